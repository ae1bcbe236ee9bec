package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/majinxin2003/IDArling/internal/core"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []string // packet types, in send order
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nSent packets:\n")
	for i, t := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, t)
	}
	return buf.String()
}

// EvaluateAssertions returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluate(result *Result, a Assertion) error {
	types := result.Types()
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: types}
	}

	switch a.Type {
	case AssertHooked:
		if result.Final.Hooked != a.Hooked {
			return fail(fmt.Sprintf("hooked=%t", a.Hooked), fmt.Sprintf("hooked=%t", result.Final.Hooked))
		}

	case AssertState:
		if result.Final.State != a.State {
			return fail(a.State, result.Final.State)
		}

	case AssertSentCount:
		n := 0
		for _, t := range types {
			if t == a.Packet {
				n++
			}
		}
		if n != a.Count {
			return fail(fmt.Sprintf("%d x %s", a.Count, a.Packet), fmt.Sprintf("%d x %s", n, a.Packet))
		}

	case AssertSentOrder:
		if missing := subsequence(types, a.Packets); missing != "" {
			return fail(fmt.Sprintf("packets in order: %v", a.Packets), fmt.Sprintf("%s not found in order", missing))
		}

	case AssertIdentity:
		if a.Identity == nil {
			return fmt.Errorf("identity assertion without identity")
		}
		if result.Final.Identity != *a.Identity {
			return fail(formatIdentity(*a.Identity), formatIdentity(result.Final.Identity))
		}

	case AssertLastError:
		if actual := classify(result.Final.LastError); actual != a.Error {
			return fail(a.Error, fmt.Sprintf("%s (%v)", actual, result.Final.LastError))
		}

	case AssertWarnings:
		if result.Final.Warnings != a.Count {
			return fail(fmt.Sprintf("%d warnings", a.Count), fmt.Sprintf("%d warnings", result.Final.Warnings))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// subsequence returns the first wanted type that does not appear after the
// previous match, or "" when all are found in order.
func subsequence(types, want []string) string {
	i := 0
	for _, w := range want {
		for i < len(types) && types[i] != w {
			i++
		}
		if i == len(types) {
			return w
		}
		i++
	}
	return ""
}

func classify(err error) string {
	var derr *core.DispatchError
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, core.ErrDatabaseNotRegistered):
		return ErrorDatabaseNotRegistered
	case errors.As(err, &derr):
		return ErrorDispatch
	default:
		return "other"
	}
}

func formatIdentity(id IdentitySpec) string {
	return fmt.Sprintf("project=%q database=%q tick=%d", id.Project, id.Database, id.Tick)
}
