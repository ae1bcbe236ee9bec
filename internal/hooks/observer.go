package hooks

import (
	"errors"
	"fmt"

	"github.com/majinxin2003/IDArling/internal/host"
)

type registration struct {
	topic   host.Topic
	handler host.Handler
}

// Observer is a named, ordered set of host registrations.
// Not safe for concurrent use; it is driven from the owner loop.
type Observer struct {
	name    string
	binding host.Binding
	regs    []registration
	subs    []host.Subscription
}

// NewObserver creates an unhooked observer.
func NewObserver(name string, b host.Binding) *Observer {
	return &Observer{name: name, binding: b}
}

// On adds a registration. Must be called before the first Hook.
func (o *Observer) On(topic host.Topic, h host.Handler) *Observer {
	o.regs = append(o.regs, registration{topic: topic, handler: h})
	return o
}

// Name returns the observer name.
func (o *Observer) Name() string {
	return o.name
}

// Topics returns the registered topics in registration order.
func (o *Observer) Topics() []host.Topic {
	topics := make([]host.Topic, len(o.regs))
	for i, r := range o.regs {
		topics[i] = r.topic
	}
	return topics
}

// Hooked reports whether the observer is subscribed.
func (o *Observer) Hooked() bool {
	return o.subs != nil
}

// Hook subscribes every registration. Either all succeed or none stay
// subscribed. No-op when already hooked.
func (o *Observer) Hook() error {
	if o.Hooked() {
		return nil
	}

	subs := make([]host.Subscription, 0, len(o.regs))
	for _, r := range o.regs {
		sub, err := o.binding.Subscribe(r.topic, r.handler)
		if err != nil {
			rollback := cancelAll(subs)
			return errors.Join(fmt.Errorf("hook %s: %w", o.name, err), rollback)
		}
		subs = append(subs, sub)
	}
	o.subs = subs
	return nil
}

// Unhook cancels every subscription. The observer is unhooked afterwards
// even if some cancellations failed. No-op when not hooked.
func (o *Observer) Unhook() error {
	if !o.Hooked() {
		return nil
	}
	subs := o.subs
	o.subs = nil

	if err := cancelAll(subs); err != nil {
		return fmt.Errorf("unhook %s: %w", o.name, err)
	}
	return nil
}

// cancelAll cancels in reverse subscription order.
func cancelAll(subs []host.Subscription) error {
	var errs []error
	for i := len(subs) - 1; i >= 0; i-- {
		if err := subs[i].Cancel(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
