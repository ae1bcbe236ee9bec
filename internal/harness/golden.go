package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/majinxin2003/IDArling/internal/event"
)

// Snapshot renders a run as canonical JSON: every packet with its step,
// followed by the final state.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		payload, err := canonicalPayload(e.Packet)
		if err != nil {
			return nil, fmt.Errorf("trace[%d]: %w", i, err)
		}
		trace[i] = map[string]any{
			"step":    int64(e.Step),
			"type":    string(e.Packet.Type()),
			"payload": payload,
		}
	}

	id := result.Final.Identity
	snapshot := map[string]any{
		"scenario": name,
		"trace":    trace,
		"final": map[string]any{
			"state":    result.Final.State,
			"hooked":   result.Final.Hooked,
			"warnings": int64(result.Final.Warnings),
			"identity": map[string]any{
				"project":  id.Project,
				"database": id.Database,
				"tick":     id.Tick,
			},
		},
	}
	return event.MarshalCanonical(snapshot)
}

// canonicalPayload round-trips v through encoding/json so numbers come back
// as integers the canonical encoder accepts.
func canonicalPayload(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return integers(out)
}

func integers(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		n, err := strconv.ParseUint(val.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-integer number %s", val)
		}
		return n, nil
	case map[string]any:
		for k, elem := range val {
			conv, err := integers(elem)
			if err != nil {
				return nil, err
			}
			val[k] = conv
		}
		return val, nil
	case []any:
		for i, elem := range val {
			conv, err := integers(elem)
			if err != nil {
				return nil, err
			}
			val[i] = conv
		}
		return val, nil
	default:
		return v, nil
	}
}

// RunWithGolden runs the scenario and compares its snapshot with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, s.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
