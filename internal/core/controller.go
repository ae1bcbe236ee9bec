package core

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/majinxin2003/IDArling/internal/hooks"
)

// Controller owns the hook state of every observer.
//
// States: Uninstalled, Installed+Unhooked, Installed+Hooked. The
// fine-grained set is always either fully hooked or fully unhooked.
// Not safe for concurrent use; drive it from the owner loop.
type Controller struct {
	coarse    []*hooks.Observer
	fine      []*hooks.Observer
	installed bool
	hooked    bool
	logger    *slog.Logger
}

// NewController creates an uninstalled controller.
func NewController(coarse, fine []*hooks.Observer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{coarse: coarse, fine: fine, logger: logger}
}

// Install hooks the coarse observers. No-op when installed.
func (c *Controller) Install() error {
	if c.installed {
		return nil
	}

	c.logger.Debug("installing core hooks")
	if err := hookGroup(c.coarse); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	c.installed = true
	return nil
}

// Uninstall unhooks the fine-grained observers, then the coarse ones. No
// observer stays hooked afterwards even when some cancellations fail.
func (c *Controller) Uninstall() error {
	if !c.installed {
		return nil
	}

	c.logger.Debug("uninstalling core hooks")
	errUnhook := c.UnhookAll()
	errCoarse := unhookGroup(c.coarse)
	c.installed = false

	if err := errors.Join(errUnhook, errCoarse); err != nil {
		return fmt.Errorf("uninstall: %w", err)
	}
	return nil
}

// HookAll hooks every fine-grained observer. On failure the set is rolled
// back to fully unhooked. No-op when hooked.
func (c *Controller) HookAll() error {
	if c.hooked {
		return nil
	}

	c.logger.Debug("installing hooks", "observers", len(c.fine))
	if err := hookGroup(c.fine); err != nil {
		return fmt.Errorf("hook all: %w", err)
	}
	c.hooked = true
	return nil
}

// UnhookAll unhooks every fine-grained observer. The set is unhooked
// afterwards even if some cancellations failed. No-op when unhooked.
func (c *Controller) UnhookAll() error {
	if !c.hooked {
		return nil
	}

	c.logger.Debug("uninstalling hooks", "observers", len(c.fine))
	c.hooked = false
	if err := unhookGroup(c.fine); err != nil {
		return fmt.Errorf("unhook all: %w", err)
	}
	return nil
}

// Hooked reports whether the fine-grained observers are hooked.
func (c *Controller) Hooked() bool {
	return c.hooked
}

// Installed reports whether the coarse observers are hooked.
func (c *Controller) Installed() bool {
	return c.installed
}

// hookGroup hooks observers in order, unhooking the ones already hooked if
// any fails.
func hookGroup(observers []*hooks.Observer) error {
	for i, o := range observers {
		if err := o.Hook(); err != nil {
			return errors.Join(err, unhookGroup(observers[:i]))
		}
	}
	return nil
}

// unhookGroup unhooks observers in reverse order and reports every failure.
func unhookGroup(observers []*hooks.Observer) error {
	var errs []error
	for i := len(observers) - 1; i >= 0; i-- {
		if err := observers[i].Unhook(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
