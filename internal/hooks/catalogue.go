package hooks

import (
	"fmt"
	"log/slog"

	"github.com/majinxin2003/IDArling/internal/event"
	"github.com/majinxin2003/IDArling/internal/host"
)

// Observer group names.
const (
	GroupIDB  = "idb"
	GroupIDP  = "idp"
	GroupView = "view"
)

// Sender hands an event to the transport. It must not block on the network.
type Sender interface {
	SendEvent(e event.Event) error
}

// translator maps one notification to one event.
type translator func(h host.Host, n host.Notification) (event.Event, error)

// translate adapts a typed translation to a translator, rejecting
// notifications of the wrong type.
func translate[N host.Notification](fn func(host.Host, N) event.Event) translator {
	return func(h host.Host, n host.Notification) (event.Event, error) {
		typed, ok := n.(N)
		if !ok {
			return nil, fmt.Errorf("unexpected notification %T on topic %s", n, n.Topic())
		}
		return fn(h, typed), nil
	}
}

var idbTranslators = []struct {
	topic host.Topic
	fn    translator
}{
	{host.TopicMakeCode, translate(func(_ host.Host, n host.MakeCode) event.Event {
		return event.MakeCode{EA: n.Insn.EA}
	})},
	{host.TopicMakeData, translate(func(_ host.Host, n host.MakeData) event.Event {
		return event.MakeData{EA: n.EA, Flags: n.Flags, TID: n.TID, Size: n.Size}
	})},
	{host.TopicRenamed, translate(func(_ host.Host, n host.Renamed) event.Event {
		return event.Renamed{EA: n.EA, NewName: n.NewName, Local: n.Local}
	})},
	{host.TopicFuncAdded, translate(func(_ host.Host, n host.FuncAdded) event.Event {
		return event.FuncAdded{StartEA: n.Func.Start, EndEA: n.Func.End}
	})},
	{host.TopicDeletingFunc, translate(func(_ host.Host, n host.DeletingFunc) event.Event {
		return event.DeletingFunc{StartEA: n.Func.Start}
	})},
	{host.TopicSetFuncStart, translate(func(_ host.Host, n host.SetFuncStart) event.Event {
		return event.SetFuncStart{StartEA: n.Func.Start, NewStart: n.NewStart}
	})},
	{host.TopicSetFuncEnd, translate(func(_ host.Host, n host.SetFuncEnd) event.Event {
		return event.SetFuncEnd{StartEA: n.Func.Start, NewEnd: n.NewEnd}
	})},
	{host.TopicCmtChanged, translate(func(h host.Host, n host.CmtChanged) event.Event {
		return event.CmtChanged{EA: n.EA, Repeatable: n.Repeatable, Comment: h.Comment(n.EA, n.Repeatable)}
	})},
}

// Catalogue builds the fine-grained observers, all unhooked.
func Catalogue(h host.Host, sender Sender, logger *slog.Logger) []*Observer {
	if logger == nil {
		logger = slog.Default()
	}

	idb := NewObserver(GroupIDB, h)
	for _, t := range idbTranslators {
		idb.On(t.topic, forward(h, sender, logger, t.fn))
	}

	idp := NewObserver(GroupIDP, h).
		On(host.TopicUndefine, forward(h, sender, logger,
			translate(func(_ host.Host, n host.Undefine) event.Event {
				return event.Undefined{EA: n.EA}
			})))

	view := NewObserver(GroupView, h).
		On(host.TopicLocationChanged, forward(h, sender, logger,
			translate(func(_ host.Host, n host.LocationChanged) event.Event {
				return event.LocationChanged{EA: n.EA}
			})))

	return []*Observer{idb, idp, view}
}

// forward wraps a translator into a host handler. Nothing escapes to the
// host: translation errors, send errors and panics are logged and the event
// is dropped.
func forward(h host.Host, sender Sender, logger *slog.Logger, fn translator) host.Handler {
	return func(n host.Notification) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("observer panicked", "topic", n.Topic(), "panic", r)
			}
		}()

		ev, err := fn(h, n)
		if err != nil {
			logger.Error("translate notification", "topic", n.Topic(), "error", err)
			return
		}

		logger.Debug("sending event", "kind", ev.Kind())
		if err := sender.SendEvent(ev); err != nil {
			logger.Warn("send event", "kind", ev.Kind(), "error", err)
		}
	}
}
