package harness

import (
	"github.com/majinxin2003/IDArling/internal/relay"
)

// TraceEntry is one outbound packet and the step that caused it.
type TraceEntry struct {
	Step   int
	Packet relay.Packet
}

// Final is the observable state after the last step.
type Final struct {
	State    string
	Hooked   bool
	Identity IdentitySpec // as persisted in the sidecar
	Warnings int
	// LastError is the session's last join or leave failure.
	LastError error
}

// Result is the outcome of a scenario run.
type Result struct {
	Pass   bool
	Trace  []TraceEntry
	Final  Final
	Errors []string
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEntry{}, Errors: []string{}}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Types returns the packet type of every trace entry.
func (r *Result) Types() []string {
	types := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		types[i] = string(e.Packet.Type())
	}
	return types
}
