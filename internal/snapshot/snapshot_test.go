package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/snapshot"
	"github.com/vk/runbookgo/internal/testutil"
	"github.com/vk/runbookgo/internal/values"
)

func capturedRun(t *testing.T) (*runbook.Runbook, *snapshot.Snapshot) {
	t.Helper()
	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	rb := testutil.LoadRunbook(t, reg, map[string]string{
		"main.tx": `
variable "network" {
  value = "mainnet"
}

action "task" "test::task" {
  id    = "t"
  input = variable.network
}

output "done" {
  value = action.task.result
}
`,
	})
	result := testutil.ExecuteRunbook(t, reg, rb)
	require.False(t, result.Failed(), "diagnostics: %v", result.Diagnostics)
	return rb, snapshot.Capture(rb, result.Results.Snapshot())
}

func TestCapture_RecordsOutputsInExecutionOrder(t *testing.T) {
	t.Parallel()

	rb, snap := capturedRun(t)
	assert.Equal(t, "test", snap.Name)
	assert.NotEmpty(t, snap.Fingerprint)
	assert.True(t, snap.Match(rb))

	outputs := snap.Outputs()
	done := testutil.ConstructByName(t, rb, runbook.KindOutput, "done")
	store, ok := outputs[done.Did]
	require.True(t, ok)
	val, ok := store.Get("value")
	require.True(t, ok)
	assert.True(t, val.Equals(values.String("t")))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	rb, snap := capturedRun(t)
	path := filepath.Join(t.TempDir(), "run.snapshot.json")
	require.NoError(t, snap.Save(path))

	loaded, err := snapshot.Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Fingerprint, loaded.Fingerprint)
	assert.True(t, loaded.Match(rb))

	// Recorded outputs survive serialization with order intact.
	outputs := loaded.Outputs()
	task := testutil.ConstructByName(t, rb, runbook.KindAction, "task")
	store, ok := outputs[task.Did]
	require.True(t, ok)
	assert.Equal(t, store.Keys(), snap.Outputs()[task.Did].Keys())
}

func TestLoad_FingerprintMismatch(t *testing.T) {
	t.Parallel()

	_, snap := capturedRun(t)
	path := filepath.Join(t.TempDir(), "run.snapshot.json")
	snap.Fingerprint = did.FromBytes([]byte("tampered")).String()
	require.NoError(t, snap.Save(path))

	_, err := snapshot.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fingerprint mismatch")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := snapshot.Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := snapshot.Load(path)
	assert.Error(t, err)
}

func TestChanged_DetectsDivergence(t *testing.T) {
	t.Parallel()

	_, snap := capturedRun(t)

	// A runbook with a different construct set no longer matches.
	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	other := testutil.LoadRunbook(t, reg, map[string]string{
		"main.tx": `
variable "network" {
  value = "mainnet"
}

action "renamed" "test::task" {
  id    = "t"
  input = variable.network
}
`,
	})

	changed := snap.Changed(other)
	assert.False(t, snap.Match(other))
	assert.Contains(t, changed, "renamed", "constructs added since the snapshot")
	assert.Contains(t, changed, "task", "constructs recorded but now gone")
	assert.Contains(t, changed, "done")
}

func TestMatch_SameSourcesDifferentRun(t *testing.T) {
	t.Parallel()

	// A snapshot taken from one run matches a fresh load of the same sources:
	// construct identity depends on content, not on the run.
	_, snap := capturedRun(t)
	rb, _ := capturedRun(t)
	assert.True(t, snap.Match(rb))
}
