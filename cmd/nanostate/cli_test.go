package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/nanostate/nanostate/entity"
	"github.com/arthur-debert/nanostate/nanostate/envelope"
	"github.com/arthur-debert/nanostate/types"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewCLI(&out, &errOut).Execute(args)
	return out.String(), errOut.String(), err
}

func lines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestReplayText(t *testing.T) {
	out, _, err := execute(t, "replay", "testdata/move.yaml")
	require.NoError(t, err)

	got := lines(out)
	require.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[0], "move 0->1 (reconciled)"), got[0])
	assert.True(t, strings.HasPrefix(got[1], "change 1@2 (reconciled)"), got[1])
	assert.Contains(t, got[1], "changes=0:name")
}

func TestReplayJSON(t *testing.T) {
	out, _, err := execute(t, "replay", "--format", "json", "testdata/move.yaml")
	require.NoError(t, err)

	got := lines(out)
	require.Len(t, got, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(got[0]), &first))
	assert.Equal(t, "move", first["action"])
	assert.Equal(t, "reconciled", first["reason"])
	assert.EqualValues(t, 0, first["oldIndex"])
	assert.EqualValues(t, 1, first["newIndex"])
}

func TestReplayThreshold(t *testing.T) {
	t.Run("default escalates a fully changed window", func(t *testing.T) {
		out, _, err := execute(t, "replay", "testdata/people.yaml")
		require.NoError(t, err)

		got := lines(out)
		require.Len(t, got, 3)
		assert.True(t, strings.HasPrefix(got[0], "reset 2 items (escalated)"), got[0])
		assert.True(t, strings.HasPrefix(got[1], "add 1@2 (direct)"), got[1])
		assert.True(t, strings.HasPrefix(got[2], "reset 2 items (rejected)"), got[2])
	})

	t.Run("flag disables escalation", func(t *testing.T) {
		out, _, err := execute(t, "replay", "--reset-threshold", "0", "testdata/people.yaml")
		require.NoError(t, err)

		got := lines(out)
		require.Len(t, got, 3)
		assert.True(t, strings.HasPrefix(got[0], "change 2@0 (reconciled)"), got[0])
		assert.Contains(t, got[0], "changes=0:age,1:age")
	})

	t.Run("environment disables escalation", func(t *testing.T) {
		t.Setenv("NANOSTATE_COLLECTION_RESET_THRESHOLD", "0")
		out, _, err := execute(t, "replay", "testdata/people.yaml")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(lines(out)[0], "change 2@0 (reconciled)"))
	})
}

func TestReplayCoercesThroughSchema(t *testing.T) {
	out, _, err := execute(t, "replay", "--format", "json", "--reset-threshold", "0", "testdata/people.yaml")
	require.NoError(t, err)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines(out)[0]), &first))
	items, ok := first["newItems"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	ada := items[0].(map[string]any)
	assert.EqualValues(t, 37, ada["age"])
	assert.Equal(t, "Ada", ada["first"])
}

func TestReplayConfig(t *testing.T) {
	t.Run("environment selects the format", func(t *testing.T) {
		t.Setenv("NANOSTATE_OUTPUT_FORMAT", "yaml")
		out, _, err := execute(t, "replay", "testdata/move.yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "action: move")
		assert.Contains(t, out, "---")
	})

	t.Run("config file selects the format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nanostate.yaml")
		require.NoError(t, os.WriteFile(path, []byte("output:\n  format: json\n"), 0o644))

		out, _, err := execute(t, "--config", path, "replay", "testdata/move.yaml")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "{"), out)
	})

	t.Run("flag beats environment", func(t *testing.T) {
		t.Setenv("NANOSTATE_OUTPUT_FORMAT", "yaml")
		out, _, err := execute(t, "replay", "-f", "text", "testdata/move.yaml")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "move 0->1"), out)
	})

	t.Run("broken config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nanostate.yaml")
		require.NoError(t, os.WriteFile(path, []byte("output: [\n"), 0o644))

		_, _, err := execute(t, "--config", path, "replay", "testdata/move.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config")
	})
}

func TestReplayErrors(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		_, _, err := execute(t, "replay", "--format", "xml", "testdata/move.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "xml")
	})

	t.Run("missing scenario", func(t *testing.T) {
		_, _, err := execute(t, "replay", "testdata/missing.yaml")
		require.Error(t, err)
	})

	t.Run("failing step still prints earlier events", func(t *testing.T) {
		out, _, err := execute(t, "replay", "testdata/bad_step.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "step 2 (move)")
		assert.True(t, strings.HasPrefix(out, "add 1@1 (direct)"), out)
	})
}

func TestReplayMetrics(t *testing.T) {
	out, _, err := execute(t, "replay", "--metrics", "testdata/move.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "nanostate_events_total")
	assert.Contains(t, out, "nanostate_version_bumps_total")
	assert.Contains(t, out, "nanostate_flushed_log_size")
}

func TestReplaySave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.json")
	_, _, err := execute(t, "replay", "--save", path, "testdata/move.yaml")
	require.NoError(t, err)

	col, err := envelope.NewFile(path, nil).LoadCollection(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, col.Len())

	first, err := col.At(0)
	require.NoError(t, err)
	assert.Equal(t, "B", first.(*entity.Entity).MustGet("name"))

	last, err := col.At(2)
	require.NoError(t, err)
	assert.Equal(t, "C2", last.(*entity.Entity).MustGet("name"))
	assert.Equal(t, types.Changed, last.(*entity.Entity).State())
}

func TestReplayLogging(t *testing.T) {
	_, errOut, err := execute(t, "--log-level", "info", "--log-json", "replay", "testdata/move.yaml")
	require.NoError(t, err)

	got := lines(errOut)
	require.NotEmpty(t, got)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(got[len(got)-1]), &entry))
	assert.Equal(t, "scenario replayed", entry["msg"])
	assert.EqualValues(t, 2, entry["count"])
}

func TestSchemaValidate(t *testing.T) {
	t.Run("good file", func(t *testing.T) {
		out, _, err := execute(t, "schema", "validate", "testdata/schema.yaml")
		require.NoError(t, err)
		assert.Equal(t, "testdata/schema.yaml: ok (point, 2 fields)\n", out)
	})

	t.Run("bad file is reported", func(t *testing.T) {
		out, errOut, err := execute(t, "schema", "validate", "testdata/schema.yaml", "testdata/bad_schema.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2")
		assert.Contains(t, out, "point")
		assert.Contains(t, errOut, "testdata/bad_schema.yaml")
	})
}

func TestSchemaShow(t *testing.T) {
	out, _, err := execute(t, "schema", "show", "testdata/schema.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: point")
	assert.Contains(t, out, "kind: int")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "nanostate dev (none)\n", out)
}
