package harness

import (
	"fmt"

	"github.com/majinxin2003/IDArling/internal/host"
)

// buildNotification turns a scenario step into a host notification.
func buildNotification(topic host.Topic, args map[string]any) (host.Notification, error) {
	a := stepArgs{args: args}
	var n host.Notification

	switch topic {
	case host.TopicReady:
		n = host.Ready{}
	case host.TopicClosing:
		n = host.Closing{}
	case host.TopicMakeCode:
		n = host.MakeCode{Insn: host.Insn{EA: a.u64("ea"), Size: a.u64("size")}}
	case host.TopicMakeData:
		n = host.MakeData{EA: a.u64("ea"), Flags: a.u64("flags"), TID: a.u64("tid"), Size: a.u64("size")}
	case host.TopicRenamed:
		n = host.Renamed{EA: a.u64("ea"), NewName: a.str("new_name"), Local: a.boolean("local")}
	case host.TopicFuncAdded:
		n = host.FuncAdded{Func: host.Func{Start: a.u64("start"), End: a.u64("end")}}
	case host.TopicDeletingFunc:
		n = host.DeletingFunc{Func: host.Func{Start: a.u64("start"), End: a.u64("end")}}
	case host.TopicSetFuncStart:
		n = host.SetFuncStart{Func: host.Func{Start: a.u64("start"), End: a.u64("end")}, NewStart: a.u64("new_start")}
	case host.TopicSetFuncEnd:
		n = host.SetFuncEnd{Func: host.Func{Start: a.u64("start"), End: a.u64("end")}, NewEnd: a.u64("new_end")}
	case host.TopicCmtChanged:
		// The comment text is stored in the host by the runner; read it here
		// only to type-check it.
		a.str("comment")
		n = host.CmtChanged{EA: a.u64("ea"), Repeatable: a.boolean("repeatable")}
	case host.TopicUndefine:
		n = host.Undefine{EA: a.u64("ea")}
	case host.TopicLocationChanged:
		n = host.LocationChanged{EA: a.u64("ea")}
	default:
		return nil, fmt.Errorf("unknown topic %q", topic)
	}

	if a.err != nil {
		return nil, fmt.Errorf("%s: %w", topic, a.err)
	}
	return n, nil
}

// stepArgs reads typed values from YAML args, keeping the first error.
type stepArgs struct {
	args map[string]any
	err  error
}

func (a *stepArgs) fail(key string, want string) {
	if a.err == nil {
		a.err = fmt.Errorf("arg %q: expected %s, got %T", key, want, a.args[key])
	}
}

func (a *stepArgs) u64(key string) uint64 {
	v, ok := a.args[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		if n >= 0 {
			return uint64(n)
		}
	case uint64:
		return n
	}
	a.fail(key, "unsigned integer")
	return 0
}

func (a *stepArgs) str(key string) string {
	v, ok := a.args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		a.fail(key, "string")
	}
	return s
}

func (a *stepArgs) boolean(key string) bool {
	v, ok := a.args[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		a.fail(key, "bool")
	}
	return b
}
