package host

// Notification is a raw payload delivered by the host for one topic.
type Notification interface {
	Topic() Topic
}

// Insn describes a decoded instruction.
type Insn struct {
	EA   uint64
	Size uint64
}

// Func describes a function's bounds, [Start, End).
type Func struct {
	Start uint64
	End   uint64
}

// Ready fires once per document load after the host finished initializing.
type Ready struct{}

// Closing fires once per document unload.
type Closing struct{}

type MakeCode struct {
	Insn Insn
}

type MakeData struct {
	EA    uint64
	Flags uint64
	TID   uint64
	Size  uint64
}

type Renamed struct {
	EA      uint64
	NewName string
	Local   bool
}

type FuncAdded struct {
	Func Func
}

type DeletingFunc struct {
	Func Func
}

type SetFuncStart struct {
	Func     Func
	NewStart uint64
}

type SetFuncEnd struct {
	Func   Func
	NewEnd uint64
}

// CmtChanged carries only the location; the text is read back with
// Host.Comment.
type CmtChanged struct {
	EA         uint64
	Repeatable bool
}

type Undefine struct {
	EA uint64
}

// LocationChanged reports a cursor move in a disassembly view.
type LocationChanged struct {
	EA uint64
}

func (Ready) Topic() Topic           { return TopicReady }
func (Closing) Topic() Topic         { return TopicClosing }
func (MakeCode) Topic() Topic        { return TopicMakeCode }
func (MakeData) Topic() Topic        { return TopicMakeData }
func (Renamed) Topic() Topic         { return TopicRenamed }
func (FuncAdded) Topic() Topic       { return TopicFuncAdded }
func (DeletingFunc) Topic() Topic    { return TopicDeletingFunc }
func (SetFuncStart) Topic() Topic    { return TopicSetFuncStart }
func (SetFuncEnd) Topic() Topic      { return TopicSetFuncEnd }
func (CmtChanged) Topic() Topic      { return TopicCmtChanged }
func (Undefine) Topic() Topic        { return TopicUndefine }
func (LocationChanged) Topic() Topic { return TopicLocationChanged }
