package main

import (
	"testing"

	"github.com/arthur-debert/nanostate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func run(t *testing.T, doc string) ([]types.Event, error) {
	t.Helper()
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	events, _, err := s.Run(runOptions{ResetThreshold: 1.0, Logger: zaptest.NewLogger(t)})
	return events, err
}

func summaries(events []types.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.String()
	}
	return out
}

func TestParseScenario(t *testing.T) {
	_, err := ParseScenario([]byte("items: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no steps")

	_, err = ParseScenario([]byte("steps: {"))
	require.Error(t, err)
}

func TestRunDirect(t *testing.T) {
	events, err := run(t, `
items:
  - {key: a, values: {n: 1}}
  - {key: b, values: {n: 2}}
steps:
  - {op: move, index: 0, to: 1}
  - {op: replace, index: 0, key: c, values: {n: 3}}
  - {op: set, item: a, field: n, value: 10}
  - {op: remove, index: 1}
  - {op: clear}
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"move 0->1 (direct)",
		"replace @0 (direct)",
		"change 1@1 (direct)",
		"remove 1@1 (direct)",
		"reset 0 items (reset)",
	}, summaries(events))
}

func TestRunAcceptThenReject(t *testing.T) {
	events, err := run(t, `
items:
  - {key: a, values: {n: 1}}
steps:
  - {op: append, key: b, values: {n: 2}}
  - {op: accept}
  - {op: reject}
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"add 1@1 (direct)"}, summaries(events))
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown op",
			doc:  "steps:\n  - {op: shuffle}\n",
			want: `unknown op "shuffle"`,
		},
		{
			name: "unknown item",
			doc:  "steps:\n  - {op: set, item: ghost, field: n, value: 1}\n",
			want: `unknown item "ghost"`,
		},
		{
			name: "set without item",
			doc:  "steps:\n  - {op: set, field: n, value: 1}\n",
			want: "set needs an item",
		},
		{
			name: "duplicate key",
			doc:  "items:\n  - {key: a}\nsteps:\n  - {op: append, key: a}\n",
			want: `duplicate item key "a"`,
		},
		{
			name: "missing key",
			doc:  "steps:\n  - {op: append}\n",
			want: "item key is required",
		},
		{
			name: "window already open",
			doc:  "steps:\n  - {op: suspend, analyze: true}\n  - {op: suspend, analyze: true}\n",
			want: "step 2 (suspend)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunInvalidSchema(t *testing.T) {
	s, err := ParseScenario([]byte(`
schema:
  fields:
    - {name: x, kind: int}
steps:
  - {op: clear}
`))
	require.NoError(t, err)
	_, _, err = s.Run(runOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidSchema)
}

func TestRunSchemaRejectsBadValue(t *testing.T) {
	_, err := run(t, `
schema:
  name: point
  fields:
    - {name: x, kind: int}
items:
  - {key: p, values: {x: 1}}
steps:
  - {op: set, item: p, field: x, value: lots}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (set)")
}
