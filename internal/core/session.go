package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/majinxin2003/IDArling/internal/event"
	"github.com/majinxin2003/IDArling/internal/host"
	"github.com/majinxin2003/IDArling/internal/identity"
	"github.com/majinxin2003/IDArling/internal/relay"
)

// Transport is the relay surface the core uses. Sends never wait for the
// network; ListDatabases settles later, possibly on another goroutine.
type Transport interface {
	ListDatabases(project string) *relay.Reply[[]relay.Database]
	Send(p relay.Packet) error
	SendEvent(e event.Event) error
}

// Profile is how the local user appears to other participants.
type Profile struct {
	Name  string
	Color int
}

// State is the session protocol state.
type State int

const (
	StateIdle State = iota
	StateAwaitingDatabaseList
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingDatabaseList:
		return "awaiting_database_list"
	case StateJoined:
		return "joined"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session runs the join/leave protocol for the open document and owns its
// persisted identity. Not safe for concurrent use; every method runs on the
// host owner loop.
type Session struct {
	host      host.Host
	transport Transport
	ctrl      *Controller
	profile   Profile
	logger    *slog.Logger

	node identity.Node
	id   identity.Identity

	state State
	// generation changes whenever an outstanding query must stop mattering:
	// on leave and on document close.
	generation uint64
	lastErr    error
}

func newSession(h host.Host, t Transport, ctrl *Controller, profile Profile, logger *slog.Logger) *Session {
	return &Session{host: h, transport: t, ctrl: ctrl, profile: profile, logger: logger}
}

// State returns the protocol state.
func (s *Session) State() State {
	return s.state
}

// Identity returns the in-memory identity of the open document.
func (s *Session) Identity() identity.Identity {
	return s.id
}

// LastError returns the outcome of the most recent failed join or leave, or
// nil. Join clears it.
func (s *Session) LastError() error {
	return s.lastErr
}

// Load opens the document's identity node and reads the identity.
func (s *Session) Load(ctx context.Context) error {
	node, err := s.host.Netnode(identity.NodeName)
	if err != nil {
		return fmt.Errorf("open identity node: %w", err)
	}
	id, err := identity.Load(ctx, node)
	if err != nil {
		return err
	}

	s.node = node
	s.id = id
	s.logger.Debug("loaded identity", "project", id.Project, "database", id.Database, "tick", id.Tick)
	return nil
}

// Bind binds the open document to (project, database) and persists it.
func (s *Session) Bind(ctx context.Context, project, database string) error {
	if s.node == nil {
		return ErrNoDocument
	}
	if s.state != StateIdle {
		return fmt.Errorf("bind: %w (%s)", ErrSessionActive, s.state)
	}

	next := s.id
	next.Project, next.Database = project, database
	if err := identity.Save(ctx, s.node, next); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	s.id = next
	return nil
}

// Advance moves the tick forward and persists it. Equal ticks are a no-op.
func (s *Session) Advance(ctx context.Context, tick uint64) error {
	if s.node == nil {
		return ErrNoDocument
	}
	if tick < s.id.Tick {
		return fmt.Errorf("advance to %d from %d: %w", tick, s.id.Tick, ErrTickRegression)
	}
	if tick == s.id.Tick {
		return nil
	}

	next := s.id
	next.Tick = tick
	if err := identity.Save(ctx, s.node, next); err != nil {
		return fmt.Errorf("advance: %w", err)
	}
	s.id = next
	return nil
}

// Join queries the relay for the bound project's databases. The rest of the
// protocol runs when the reply arrives: if the bound database is listed, a
// JoinSession is sent and the fine-grained observers are hooked.
//
// Join is a no-op unless the session is idle.
func (s *Session) Join(ctx context.Context) error {
	if !s.id.Bound() {
		return ErrNotBound
	}
	if s.state != StateIdle {
		s.logger.Debug("join ignored", "state", s.state)
		return nil
	}

	s.lastErr = nil
	s.state = StateAwaitingDatabaseList
	gen := s.generation
	project := s.id.Project

	s.logger.Debug("listing databases", "project", project)
	s.transport.ListDatabases(project).Then(
		func(dbs []relay.Database) {
			s.marshal(gen, func() { s.onDatabases(gen, dbs) })
		},
		func(err error) {
			s.marshal(gen, func() { s.onQueryFailed(gen, err) })
		},
	)
	return nil
}

// marshal runs fn on the owner loop. A host that is shutting down drops it.
func (s *Session) marshal(gen uint64, fn func()) {
	if !s.host.Execute(fn) {
		s.logger.Debug("reply dropped", "error", ErrStaleReply, "generation", gen)
	}
}

// current reports whether a reply issued at gen may still act.
func (s *Session) current(gen uint64) error {
	if gen != s.generation || s.state != StateAwaitingDatabaseList {
		return ErrStaleReply
	}
	return nil
}

func (s *Session) onQueryFailed(gen uint64, err error) {
	if stale := s.current(gen); stale != nil {
		s.logger.Debug("query failure ignored", "error", stale, "cause", err)
		return
	}

	s.fail(&DispatchError{Op: string(relay.TypeListDatabases), Err: err})
}

func (s *Session) onDatabases(gen uint64, dbs []relay.Database) {
	if err := s.current(gen); err != nil {
		s.logger.Debug("database list ignored", "error", err, "generation", gen)
		return
	}

	if !listed(dbs, s.id.Database) {
		s.logger.Info("database not registered",
			"project", s.id.Project, "database", s.id.Database, "known", len(dbs))
		s.lastErr = fmt.Errorf("%s/%s: %w", s.id.Project, s.id.Database, ErrDatabaseNotRegistered)
		s.state = StateIdle
		return
	}

	join := relay.JoinSession{
		Project:  s.id.Project,
		Database: s.id.Database,
		Tick:     s.id.Tick,
		Name:     s.profile.Name,
		Color:    s.profile.Color,
		EA:       s.host.ScreenEA(),
	}
	if err := s.transport.Send(join); err != nil {
		s.fail(&DispatchError{Op: string(relay.TypeJoinSession), Err: err})
		return
	}

	if err := s.ctrl.HookAll(); err != nil {
		s.logger.Error("hooking failed after join", "error", err)
		if lerr := s.transport.Send(relay.LeaveSession{Name: s.profile.Name}); lerr != nil {
			s.logger.Warn("leave after failed hook", "error", lerr)
		}
		s.lastErr = err
		s.state = StateIdle
		return
	}

	s.state = StateJoined
	s.logger.Info("joined session", "project", join.Project, "database", join.Database, "tick", join.Tick)
}

func (s *Session) fail(err error) {
	s.logger.Warn("join failed", "error", err)
	s.lastErr = err
	s.state = StateIdle
}

// listed reports whether name is in dbs, compared exactly.
func listed(dbs []relay.Database, name string) bool {
	for _, d := range dbs {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Leave sends LeaveSession when the document is bound, then unhooks
// unconditionally. Outstanding queries become stale. Safe in any state.
func (s *Session) Leave(ctx context.Context) error {
	s.generation++
	s.state = StateIdle

	var errs []error
	if s.id.Bound() {
		if err := s.transport.Send(relay.LeaveSession{Name: s.profile.Name}); err != nil {
			derr := &DispatchError{Op: string(relay.TypeLeaveSession), Err: err}
			s.logger.Warn("leave failed", "error", derr)
			errs = append(errs, derr)
		} else {
			s.logger.Info("left session", "project", s.id.Project, "database", s.id.Database)
		}
	}

	if err := s.ctrl.UnhookAll(); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err != nil {
		s.lastErr = err
	}
	return err
}

// Close leaves the session and clears the persisted identity. The document
// handle is released; Load must run again for the next document.
func (s *Session) Close(ctx context.Context) error {
	errLeave := s.Leave(ctx)

	var errClear error
	if s.node != nil {
		if err := identity.Clear(ctx, s.node); err != nil {
			errClear = fmt.Errorf("clear identity: %w", err)
		}
	}
	s.id = identity.Identity{}
	s.node = nil
	s.generation++

	return errors.Join(errLeave, errClear)
}
