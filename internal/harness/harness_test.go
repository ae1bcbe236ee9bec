package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_TraceRecordsCausingStep(t *testing.T) {
	s := mustParse(t, `
name: trace
description: steps are attributed
identity: {project: alpha, database: fw.idb}
relay:
  databases:
    alpha: [fw.idb]
steps:
  - notify: ready_to_run
  - cursor: 0x10
  - deliver: true
assertions:
  - type: state
    state: joined
`)
	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, 0, result.Trace[0].Step)
	assert.Equal(t, 2, result.Trace[1].Step)
	assert.Equal(t, []string{"list_databases", "join_session"}, result.Types())
}

func TestRun_FailingAssertionsAreReported(t *testing.T) {
	s := mustParse(t, `
name: wrong
description: expects a join that never happens
steps:
  - notify: ready_to_run
assertions:
  - type: state
    state: joined
  - type: sent_order
    packets: [join_session]
`)
	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Expected: joined")
	assert.Contains(t, result.Errors[0], "Actual: idle")
	assert.Contains(t, result.Errors[1], "join_session not found in order")
}

func TestRun_StepErrorFailsRun(t *testing.T) {
	s := mustParse(t, `
name: regress
description: ticks never move backwards
identity: {project: alpha, database: fw.idb, tick: 9}
steps:
  - notify: ready_to_run
  - advance: 3
assertions:
  - type: identity
    identity: {project: alpha, database: fw.idb, tick: 9}
`)
	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[1]")
	assert.Contains(t, result.Errors[0], "tick regression")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown key",
			body: "name: x\ndescription: y\nbogus: 1\nsteps: [{deliver: true}]\nassertions: [{type: hooked}]\n",
			want: "field bogus not found",
		},
		{
			name: "missing description",
			body: "name: x\nsteps: [{deliver: true}]\nassertions: [{type: hooked}]\n",
			want: "description is required",
		},
		{
			name: "two actions in one step",
			body: "name: x\ndescription: y\nsteps: [{deliver: true, reject: no}]\nassertions: [{type: hooked}]\n",
			want: "exactly one of",
		},
		{
			name: "unknown topic",
			body: "name: x\ndescription: y\nsteps: [{notify: auto_empty}]\nassertions: [{type: hooked}]\n",
			want: `unknown topic "auto_empty"`,
		},
		{
			name: "wrong arg type",
			body: "name: x\ndescription: y\nsteps: [{notify: renamed, args: {ea: main}}]\nassertions: [{type: hooked}]\n",
			want: `arg "ea": expected unsigned integer`,
		},
		{
			name: "args without notify",
			body: "name: x\ndescription: y\nsteps: [{deliver: true, args: {ea: 1}}]\nassertions: [{type: hooked}]\n",
			want: "args is only valid with notify",
		},
		{
			name: "unknown packet",
			body: "name: x\ndescription: y\nsteps: [{deliver: true}]\nassertions: [{type: sent_count, packet: hello}]\n",
			want: `unknown packet type "hello"`,
		},
		{
			name: "unknown state",
			body: "name: x\ndescription: y\nsteps: [{deliver: true}]\nassertions: [{type: state, state: connected}]\n",
			want: `unknown state "connected"`,
		},
		{
			name: "unknown error kind",
			body: "name: x\ndescription: y\nsteps: [{deliver: true}]\nassertions: [{type: last_error, error: timeout}]\n",
			want: `unknown error kind "timeout"`,
		},
		{
			name: "unknown fail_send packet",
			body: "name: x\ndescription: y\nrelay: {fail_send: [ping]}\nsteps: [{deliver: true}]\nassertions: [{type: hooked}]\n",
			want: `unknown packet type "ping"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenario files")
}

func TestSubsequence(t *testing.T) {
	types := []string{"list_databases", "join_session", "event", "event", "leave_session"}

	assert.Empty(t, subsequence(types, []string{"list_databases", "event", "leave_session"}))
	assert.Empty(t, subsequence(types, []string{"event", "event"}))
	assert.Equal(t, "event", subsequence(types, []string{"event", "event", "event"}))
	assert.Equal(t, "list_databases", subsequence(types, []string{"join_session", "list_databases"}))
}

func mustParse(t *testing.T, body string) *Scenario {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	s, err := LoadScenario(path)
	require.NoError(t, err)
	return s
}
