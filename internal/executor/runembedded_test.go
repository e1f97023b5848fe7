package executor_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/snapshot"
	"github.com/vk/runbookgo/internal/testutil"
	"github.com/vk/runbookgo/internal/values"
)

func TestExecute_EmbeddedRunbookPublishesSnapshotOutputs(t *testing.T) {
	t.Parallel()

	// Run the child runbook and record its outcome.
	childReg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	child := testutil.LoadRunbook(t, childReg, map[string]string{
		"child.tx": `
variable "rpc" {
  value = "https://rpc.example.com"
}

output "endpoint" {
  value = variable.rpc
}
`,
	})
	childResult := testutil.ExecuteRunbook(t, childReg, child)
	require.False(t, childResult.Failed())

	snapPath := filepath.Join(t.TempDir(), "child.json")
	require.NoError(t, snapshot.Capture(child, childResult.Results.Snapshot()).Save(snapPath))

	// The parent embeds the recorded run instead of re-executing it.
	parentReg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	parent := testutil.LoadRunbook(t, parentReg, map[string]string{
		"main.tx": `
runbook "child" {
  location = "` + snapPath + `"
}

output "forwarded" {
  value = runbook.child.endpoint
}
`,
	})

	result := testutil.ExecuteRunbook(t, parentReg, parent)
	require.False(t, result.Failed(), "diagnostics: %v", result.Diagnostics)

	forwarded := testutil.ConstructByName(t, parent, runbook.KindOutput, "forwarded")
	store, ok := result.Results.Get(forwarded.Did)
	require.True(t, ok)
	val, ok := store.Get("value")
	require.True(t, ok)
	assert.True(t, val.Equals(values.String("https://rpc.example.com")))
}

func TestExecute_EmbeddedRunbookRelativeLocation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	childReg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	child := testutil.LoadRunbook(t, childReg, map[string]string{
		"child.tx": `
output "endpoint" {
  value = "https://rpc.example.com"
}
`,
	})
	childResult := testutil.ExecuteRunbook(t, childReg, child)
	require.False(t, childResult.Failed())
	require.NoError(t, snapshot.Capture(child, childResult.Results.Snapshot()).Save(filepath.Join(dir, "child.json")))

	// The location is relative to the file declaring the runbook block,
	// not to the process working directory.
	parentReg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	parent := testutil.LoadRunbook(t, parentReg, map[string]string{
		filepath.Join(dir, "main.tx"): `
runbook "child" {
  location = "child.json"
}

output "forwarded" {
  value = runbook.child.endpoint
}
`,
	})

	result := testutil.ExecuteRunbook(t, parentReg, parent)
	require.False(t, result.Failed(), "diagnostics: %v", result.Diagnostics)

	forwarded := testutil.ConstructByName(t, parent, runbook.KindOutput, "forwarded")
	store, ok := result.Results.Get(forwarded.Did)
	require.True(t, ok)
	val, ok := store.Get("value")
	require.True(t, ok)
	assert.True(t, val.Equals(values.String("https://rpc.example.com")))
}

func TestExecute_EmbeddedRunbookMissingSnapshotFails(t *testing.T) {
	t.Parallel()

	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	rb := testutil.LoadRunbook(t, reg, map[string]string{
		"main.tx": `
runbook "child" {
  location = "` + filepath.Join(t.TempDir(), "absent.json") + `"
}
`,
	})

	result := testutil.ExecuteRunbook(t, reg, rb)
	require.True(t, result.Failed())
	assert.Contains(t, result.Diagnostics[0].Message, `embedded runbook "child"`)
}
