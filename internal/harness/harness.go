package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/majinxin2003/IDArling/internal/core"
	"github.com/majinxin2003/IDArling/internal/host"
	"github.com/majinxin2003/IDArling/internal/identity"
	"github.com/majinxin2003/IDArling/internal/relay"
	"github.com/majinxin2003/IDArling/internal/store"
	"github.com/majinxin2003/IDArling/internal/testutil"
)

// DefaultUser is the display name used when a scenario sets none.
const DefaultUser = "anonymous"

// Harness holds one scenario run.
type Harness struct {
	store  *store.Store
	sim    *host.Sim
	relay  *testutil.Relay
	core   *core.Core
	logger *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger routes core logs to logger. Runs are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// Run executes a scenario on a fresh in-memory sidecar and evaluates its
// assertions. The returned error covers setup failures only; step and
// assertion failures are reported in the Result.
func Run(s *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	h.store = st

	ctx := context.Background()
	if err := seedIdentity(ctx, st.Node(identity.NodeName), s.Identity); err != nil {
		return nil, fmt.Errorf("failed to seed identity: %w", err)
	}

	h.sim = host.NewSim(st, host.WithLogger(h.logger))
	h.sim.SetScreenEA(s.Cursor)

	h.relay = testutil.NewRelay()
	for project, names := range s.Relay.Databases {
		h.relay.AddDatabase(project, names...)
	}
	if s.Relay.FailQuery != "" {
		h.relay.FailQuery(errors.New(s.Relay.FailQuery))
	}
	for _, typ := range s.Relay.FailSend {
		h.relay.FailSend(relay.PacketType(typ), fmt.Errorf("%s refused", typ))
	}

	profile := core.Profile{Name: s.User.Name, Color: s.User.Color}
	if profile.Name == "" {
		profile.Name = DefaultUser
	}
	h.core = core.New(h.sim, h.relay, profile, core.WithLogger(h.logger))
	if err := h.core.Install(); err != nil {
		return nil, fmt.Errorf("failed to install core: %w", err)
	}
	defer h.core.Uninstall()

	result := NewResult()
	seen := 0
	for i, step := range s.Steps {
		if err := h.runStep(ctx, step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
		}

		sent := h.relay.Sent()
		for _, p := range sent[seen:] {
			result.Trace = append(result.Trace, TraceEntry{Step: i, Packet: p})
		}
		seen = len(sent)

		h.logger.Debug("step completed", "scenario", s.Name, "step", i, "state", h.core.Session().State())
	}

	final, err := h.final(ctx)
	if err != nil {
		return nil, err
	}
	result.Final = final

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// seedIdentity writes spec as raw netnode values, bypassing validation so
// corrupt identities can be staged.
func seedIdentity(ctx context.Context, node *store.Node, spec IdentitySpec) error {
	if spec.Project != "" {
		if err := node.HashSet(ctx, identity.KeyProject, spec.Project); err != nil {
			return err
		}
	}
	if spec.Database != "" {
		if err := node.HashSet(ctx, identity.KeyDatabase, spec.Database); err != nil {
			return err
		}
	}
	if spec.Tick != 0 {
		return node.HashSet(ctx, identity.KeyTick, strconv.FormatUint(spec.Tick, 10))
	}
	return nil
}

func (h *Harness) runStep(ctx context.Context, step Step) error {
	switch {
	case step.Notify != "":
		n, err := buildNotification(host.Topic(step.Notify), step.Args)
		if err != nil {
			return err
		}
		if cmt, ok := n.(host.CmtChanged); ok {
			if text, ok := step.Args["comment"].(string); ok {
				h.sim.SetComment(cmt.EA, cmt.Repeatable, text)
			}
		}
		h.sim.Fire(n)
	case step.Deliver:
		h.relay.Deliver()
	case step.Reject != "":
		h.relay.Reject(errors.New(step.Reject))
	case step.Advance != nil:
		return h.core.Session().Advance(ctx, *step.Advance)
	case step.Cursor != nil:
		h.sim.SetScreenEA(*step.Cursor)
	}
	return nil
}

// final reads the persisted identity raw, so corrupt values show up as
// stored.
func (h *Harness) final(ctx context.Context) (Final, error) {
	node := h.store.Node(identity.NodeName)
	var spec IdentitySpec
	var err error

	if spec.Project, _, err = node.HashVal(ctx, identity.KeyProject); err != nil {
		return Final{}, err
	}
	if spec.Database, _, err = node.HashVal(ctx, identity.KeyDatabase); err != nil {
		return Final{}, err
	}
	tick, ok, err := node.HashVal(ctx, identity.KeyTick)
	if err != nil {
		return Final{}, err
	}
	if ok {
		if spec.Tick, err = strconv.ParseUint(tick, 10, 64); err != nil {
			return Final{}, fmt.Errorf("final tick %q: %w", tick, err)
		}
	}

	session := h.core.Session()
	return Final{
		State:     session.State().String(),
		Hooked:    h.core.Controller().Hooked(),
		Identity:  spec,
		Warnings:  len(h.sim.Warnings()),
		LastError: session.LastError(),
	}, nil
}
