package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/majinxin2003/IDArling/internal/host"
	"github.com/majinxin2003/IDArling/internal/relay"
)

// Scenario is one scripted session run.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Identity    IdentitySpec `yaml:"identity,omitempty"`
	User        UserSpec     `yaml:"user,omitempty"`
	Cursor      uint64       `yaml:"cursor,omitempty"`
	Relay       RelaySpec    `yaml:"relay,omitempty"`
	Steps       []Step       `yaml:"steps"`
	Assertions  []Assertion  `yaml:"assertions"`
}

// IdentitySpec is a stored identity. Corrupt values are allowed here so
// scenarios can exercise the corrupt-identity path.
type IdentitySpec struct {
	Project  string `yaml:"project,omitempty"`
	Database string `yaml:"database,omitempty"`
	Tick     uint64 `yaml:"tick,omitempty"`
}

// UserSpec is the local profile. Defaults to name "anonymous", color 0.
type UserSpec struct {
	Name  string `yaml:"name,omitempty"`
	Color int    `yaml:"color,omitempty"`
}

// RelaySpec configures the in-memory relay.
type RelaySpec struct {
	// Databases maps a project to its registered database names.
	Databases map[string][]string `yaml:"databases,omitempty"`
	// FailQuery rejects every ListDatabases with this message.
	FailQuery string `yaml:"fail_query,omitempty"`
	// FailSend lists packet types whose sends fail.
	FailSend []string `yaml:"fail_send,omitempty"`
}

// Step is one scripted action. Exactly one field is set.
type Step struct {
	Notify  string         `yaml:"notify,omitempty"`
	Args    map[string]any `yaml:"args,omitempty"`
	Deliver bool           `yaml:"deliver,omitempty"`
	Reject  string         `yaml:"reject,omitempty"`
	Advance *uint64        `yaml:"advance,omitempty"`
	Cursor  *uint64        `yaml:"cursor,omitempty"`
}

// Assertion checks the final state of a run.
type Assertion struct {
	Type     string        `yaml:"type"`
	Hooked   bool          `yaml:"hooked,omitempty"`
	State    string        `yaml:"state,omitempty"`
	Packet   string        `yaml:"packet,omitempty"`
	Count    int           `yaml:"count,omitempty"`
	Packets  []string      `yaml:"packets,omitempty"`
	Identity *IdentitySpec `yaml:"identity,omitempty"`
	Error    string        `yaml:"error,omitempty"`
}

// Assertion types.
const (
	AssertHooked    = "hooked"
	AssertState     = "state"
	AssertSentCount = "sent_count"
	AssertSentOrder = "sent_order"
	AssertIdentity  = "identity"
	AssertLastError = "last_error"
	AssertWarnings  = "warnings"
)

// last_error values.
const (
	ErrorNone                  = "none"
	ErrorDatabaseNotRegistered = "database_not_registered"
	ErrorDispatch              = "dispatch"
)

var knownPackets = map[string]bool{
	string(relay.TypeListDatabases): true,
	string(relay.TypeJoinSession):   true,
	string(relay.TypeLeaveSession):  true,
	string(relay.TypeEvent):         true,
}

var knownStates = map[string]bool{
	"idle":                   true,
	"awaiting_database_list": true,
	"joined":                 true,
}

// LoadScenario reads and validates a scenario file. Unknown keys are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, typ := range s.Relay.FailSend {
		if !knownPackets[typ] {
			return fmt.Errorf("relay.fail_send: unknown packet type %q", typ)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	set := 0
	if step.Notify != "" {
		set++
		if _, err := buildNotification(host.Topic(step.Notify), step.Args); err != nil {
			return err
		}
	}
	if step.Deliver {
		set++
	}
	if step.Reject != "" {
		set++
	}
	if step.Advance != nil {
		set++
	}
	if step.Cursor != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of notify, deliver, reject, advance, cursor is required")
	}
	if step.Notify == "" && step.Args != nil {
		return fmt.Errorf("args is only valid with notify")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertHooked, AssertWarnings:
	case AssertState:
		if !knownStates[a.State] {
			return fmt.Errorf("unknown state %q", a.State)
		}
	case AssertSentCount:
		if !knownPackets[a.Packet] {
			return fmt.Errorf("unknown packet type %q", a.Packet)
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertSentOrder:
		if len(a.Packets) == 0 {
			return fmt.Errorf("packets list is required for sent_order")
		}
		for _, p := range a.Packets {
			if !knownPackets[p] {
				return fmt.Errorf("unknown packet type %q", p)
			}
		}
	case AssertIdentity:
		if a.Identity == nil {
			return fmt.Errorf("identity is required")
		}
	case AssertLastError:
		switch a.Error {
		case ErrorNone, ErrorDatabaseNotRegistered, ErrorDispatch:
		default:
			return fmt.Errorf("unknown error kind %q", a.Error)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
