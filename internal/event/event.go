package event

// Kind discriminates outbound events.
type Kind string

const (
	KindMakeCode        Kind = "make_code"
	KindMakeData        Kind = "make_data"
	KindRenamed         Kind = "renamed"
	KindFuncAdded       Kind = "func_added"
	KindDeletingFunc    Kind = "deleting_func"
	KindSetFuncStart    Kind = "set_func_start"
	KindSetFuncEnd      Kind = "set_func_end"
	KindCmtChanged      Kind = "cmt_changed"
	KindUndefined       Kind = "undefined"
	KindLocationChanged Kind = "location_changed"
)

// Kinds lists every kind in catalogue order.
var Kinds = []Kind{
	KindMakeCode,
	KindMakeData,
	KindRenamed,
	KindFuncAdded,
	KindDeletingFunc,
	KindSetFuncStart,
	KindSetFuncEnd,
	KindCmtChanged,
	KindUndefined,
	KindLocationChanged,
}

// Event is a single captured mutation.
type Event interface {
	Kind() Kind
	// Fields returns the kind-specific payload. Values are string, bool or
	// uint64.
	Fields() map[string]any
}

// MakeCode: an instruction was created at EA.
type MakeCode struct {
	EA uint64
}

func (MakeCode) Kind() Kind { return KindMakeCode }

func (e MakeCode) Fields() map[string]any {
	return map[string]any{"ea": e.EA}
}

// MakeData: a data item of Size bytes was defined at EA.
type MakeData struct {
	EA    uint64
	Flags uint64
	TID   uint64
	Size  uint64
}

func (MakeData) Kind() Kind { return KindMakeData }

func (e MakeData) Fields() map[string]any {
	return map[string]any{"ea": e.EA, "flags": e.Flags, "tid": e.TID, "size": e.Size}
}

// Renamed: the name at EA changed to NewName.
type Renamed struct {
	EA      uint64
	NewName string
	Local   bool
}

func (Renamed) Kind() Kind { return KindRenamed }

func (e Renamed) Fields() map[string]any {
	return map[string]any{"ea": e.EA, "new_name": e.NewName, "local": e.Local}
}

// FuncAdded: a function spanning [StartEA, EndEA) was created.
type FuncAdded struct {
	StartEA uint64
	EndEA   uint64
}

func (FuncAdded) Kind() Kind { return KindFuncAdded }

func (e FuncAdded) Fields() map[string]any {
	return map[string]any{"start_ea": e.StartEA, "end_ea": e.EndEA}
}

// DeletingFunc: the function starting at StartEA is being removed.
type DeletingFunc struct {
	StartEA uint64
}

func (DeletingFunc) Kind() Kind { return KindDeletingFunc }

func (e DeletingFunc) Fields() map[string]any {
	return map[string]any{"start_ea": e.StartEA}
}

// SetFuncStart: the function starting at StartEA now starts at NewStart.
type SetFuncStart struct {
	StartEA  uint64
	NewStart uint64
}

func (SetFuncStart) Kind() Kind { return KindSetFuncStart }

func (e SetFuncStart) Fields() map[string]any {
	return map[string]any{"start_ea": e.StartEA, "new_start": e.NewStart}
}

// SetFuncEnd: the function starting at StartEA now ends at NewEnd.
type SetFuncEnd struct {
	StartEA uint64
	NewEnd  uint64
}

func (SetFuncEnd) Kind() Kind { return KindSetFuncEnd }

func (e SetFuncEnd) Fields() map[string]any {
	return map[string]any{"start_ea": e.StartEA, "new_end": e.NewEnd}
}

// CmtChanged: the (repeatable) comment at EA is now Comment.
type CmtChanged struct {
	EA         uint64
	Repeatable bool
	Comment    string
}

func (CmtChanged) Kind() Kind { return KindCmtChanged }

func (e CmtChanged) Fields() map[string]any {
	return map[string]any{"ea": e.EA, "repeatable": e.Repeatable, "comment": e.Comment}
}

// Undefined: the item at EA was undefined.
type Undefined struct {
	EA uint64
}

func (Undefined) Kind() Kind { return KindUndefined }

func (e Undefined) Fields() map[string]any {
	return map[string]any{"ea": e.EA}
}

// LocationChanged: the local user's cursor moved to EA.
type LocationChanged struct {
	EA uint64
}

func (LocationChanged) Kind() Kind { return KindLocationChanged }

func (e LocationChanged) Fields() map[string]any {
	return map[string]any{"ea": e.EA}
}
