package host

import (
	"errors"

	"github.com/majinxin2003/IDArling/internal/identity"
)

// Topic names a host notification stream.
type Topic string

// Coarse topics. These stay subscribed for the lifetime of the plugin.
const (
	TopicReady   Topic = "ready_to_run"
	TopicClosing Topic = "closebase"
)

// Fine-grained mutation topics.
const (
	TopicMakeCode        Topic = "make_code"
	TopicMakeData        Topic = "make_data"
	TopicRenamed         Topic = "renamed"
	TopicFuncAdded       Topic = "func_added"
	TopicDeletingFunc    Topic = "deleting_func"
	TopicSetFuncStart    Topic = "set_func_start"
	TopicSetFuncEnd      Topic = "set_func_end"
	TopicCmtChanged      Topic = "cmt_changed"
	TopicUndefine        Topic = "ev_undefine"
	TopicLocationChanged Topic = "view_loc_changed"
)

// ErrNotSubscribed is returned when cancelling a subscription twice.
var ErrNotSubscribed = errors.New("not subscribed")

// Handler receives notifications for one topic.
// Handlers run on the owner loop and must return promptly.
type Handler func(Notification)

// Subscription is a live registration returned by Subscribe.
type Subscription interface {
	Cancel() error
}

// Binding registers handlers with the host.
type Binding interface {
	Subscribe(topic Topic, h Handler) (Subscription, error)
}

// Host is everything the sync core needs from the host environment.
type Host interface {
	Binding

	// ScreenEA returns the address under the local cursor.
	ScreenEA() uint64

	// Comment returns the current (repeatable) comment at ea.
	Comment(ea uint64, repeatable bool) string

	// Netnode opens the named per-document storage node.
	Netnode(name string) (identity.Node, error)

	// Execute schedules fn on the owner loop. It returns false if the host
	// is shutting down and fn will never run.
	Execute(fn func()) bool

	// Warn shows an interruptive message to the operator.
	Warn(msg string)
}
