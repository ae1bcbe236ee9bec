package core

import (
	"context"
	"errors"
	"log/slog"

	"github.com/majinxin2003/IDArling/internal/hooks"
	"github.com/majinxin2003/IDArling/internal/host"
	"github.com/majinxin2003/IDArling/internal/identity"
)

// Coarse observer names.
const (
	ObserverReady   = "ui_core"
	ObserverClosing = "idb_core"
)

// Core ties the controller and the session to the host.
type Core struct {
	host    host.Host
	ctrl    *Controller
	session *Session
	logger  *slog.Logger
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger for the core and every observer it creates.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) { c.logger = logger }
}

// New builds a core over h. Nothing is subscribed until Install.
func New(h host.Host, t Transport, profile Profile, opts ...Option) *Core {
	c := &Core{host: h, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	ready := &readyObserver{core: c}
	closing := &closingObserver{core: c}
	coarse := []*hooks.Observer{
		hooks.NewObserver(ObserverReady, h).On(host.TopicReady, ready.handle),
		hooks.NewObserver(ObserverClosing, h).On(host.TopicClosing, closing.handle),
	}

	c.ctrl = NewController(coarse, hooks.Catalogue(h, t, c.logger), c.logger)
	c.session = newSession(h, t, c.ctrl, profile, c.logger)
	return c
}

// Install subscribes the ready and closing observers.
func (c *Core) Install() error {
	return c.ctrl.Install()
}

// Uninstall leaves an active session, then unsubscribes everything,
// fine-grained observers first.
func (c *Core) Uninstall() error {
	var errLeave error
	if c.session.State() != StateIdle {
		errLeave = c.session.Leave(context.Background())
	}
	return errors.Join(errLeave, c.ctrl.Uninstall())
}

// Session returns the session protocol.
func (c *Core) Session() *Session {
	return c.session
}

// Controller returns the hook controller.
func (c *Core) Controller() *Controller {
	return c.ctrl
}

// readyObserver loads the identity and joins once the host is initialized.
type readyObserver struct {
	core *Core
}

func (o *readyObserver) handle(host.Notification) {
	c := o.core
	ctx := context.Background()
	c.logger.Debug("ready to run")

	if err := c.session.Load(ctx); err != nil {
		c.logger.Error("load identity", "error", err)
		if errors.Is(err, identity.ErrCorruptIdentity) {
			c.host.Warn(err.Error())
		}
		return
	}

	if err := c.session.Join(ctx); err != nil {
		if errors.Is(err, ErrNotBound) {
			c.logger.Debug("document not bound, staying idle")
			return
		}
		c.logger.Warn("join", "error", err)
	}
}

// closingObserver leaves and clears the identity when the document closes.
type closingObserver struct {
	core *Core
}

func (o *closingObserver) handle(host.Notification) {
	c := o.core
	c.logger.Debug("closebase")

	if err := c.session.Close(context.Background()); err != nil {
		c.logger.Warn("close session", "error", err)
	}
}
