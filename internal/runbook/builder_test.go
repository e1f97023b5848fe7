package runbook_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/runbookgo/internal/hcl"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/testutil"
	"github.com/vk/runbookgo/internal/values"
)

func TestResolveGraph_LinksReferenceIntoEdge(t *testing.T) {
	t.Parallel()

	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	rb := testutil.LoadRunbook(t, reg, map[string]string{
		"main.tx": `
variable "x" {
  value = 5
}

action "y" "test::task" {
  id    = "y"
  input = variable.x
}
`,
	})

	x := testutil.ConstructByName(t, rb, runbook.KindVariable, "x")
	y := testutil.ConstructByName(t, rb, runbook.KindAction, "y")

	deps := rb.Graph.Dependencies(y.Did)
	require.Len(t, deps, 1)
	assert.Equal(t, x.Did, deps[0], "y must depend on x")

	// Once a real dependency exists, the synthetic root no longer parents y.
	assert.False(t, rb.Graph.ConstructsDag.HasEdge(rb.Graph.RootDid.String(), y.Did.String()))
	assert.True(t, rb.Graph.ConstructsDag.HasEdge(rb.Graph.RootDid.String(), x.Did.String()))
}

func TestResolveGraph_ExecutionOrderRespectsDependencies(t *testing.T) {
	t.Parallel()

	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	rb := testutil.LoadRunbook(t, reg, map[string]string{
		"main.tx": `
action "first" "test::task" {
  id = "first"
}

action "second" "test::task" {
  id    = "second"
  input = action.first.result
}

action "third" "test::task" {
  id    = "third"
  input = action.second.result
}
`,
	})

	positions := make(map[string]int)
	for i, constructDid := range rb.Graph.ExecutionOrder {
		positions[rb.ConstructName(constructDid.String())] = i
	}
	assert.Less(t, positions["first"], positions["second"])
	assert.Less(t, positions["second"], positions["third"])
}

func TestResolveGraph_UnresolvedReferenceIsWarning(t *testing.T) {
	t.Parallel()

	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())

	ctx := context.Background()
	rb := runbook.New("test")
	loader := hcl.NewLoader(reg)
	diags := loader.LoadSource(ctx, rb, "main.tx", []byte(`
action "a" "test::task" {
  id    = "a"
  input = variable.ghost
}
`))
	require.Empty(t, diags)

	// Resolution succeeds; the dangling reference surfaces as a warning.
	require.Empty(t, rb.ResolveGraph(ctx))
	require.Len(t, rb.Diagnostics, 1)
	assert.Contains(t, rb.Diagnostics[0].Message, "variable.ghost")
	assert.Contains(t, rb.Diagnostics[0].Message, "'a'")
}

func TestResolveGraph_CycleNamesAllMembers(t *testing.T) {
	t.Parallel()

	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	messages := testutil.LoadRunbookExpectingGraphError(t, reg, map[string]string{
		"main.tx": `
variable "a" {
  value = variable.b
}

variable "b" {
  value = variable.a
}
`,
	})

	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "cycling dependency between")
	assert.Contains(t, messages[0], "a")
	assert.Contains(t, messages[0], "b")
}

func TestResolveGraph_SelfReferenceIsFatal(t *testing.T) {
	t.Parallel()

	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	messages := testutil.LoadRunbookExpectingGraphError(t, reg, map[string]string{
		"main.tx": `
variable "loop" {
  value = variable.loop
}
`,
	})

	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "loop")
}

func TestResolveGraph_SignerBookkeeping(t *testing.T) {
	t.Parallel()

	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	rb := testutil.LoadRunbook(t, reg, map[string]string{
		"main.tx": `
signer "ops" "std::secret_key" {
  secret_key = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"
}

action "a" "test::task" {
  id  = "a"
  key = signer.ops.public_key
}

action "b" "test::task" {
  id  = "b"
  key = signer.ops.public_key
}
`,
	})

	ops := testutil.ConstructByName(t, rb, runbook.KindSigner, "ops")
	a := testutil.ConstructByName(t, rb, runbook.KindAction, "a")
	b := testutil.ConstructByName(t, rb, runbook.KindAction, "b")

	require.Len(t, rb.Graph.SignersInitOrder, 1, "a signer referenced twice is initialized once")
	assert.Equal(t, ops.Did, rb.Graph.SignersInitOrder[0])
	assert.Equal(t, []string{ops.Did.String()}, []string{rb.Graph.SignedCommands[a.Did][0].String()})
	assert.Equal(t, []string{ops.Did.String()}, []string{rb.Graph.SignedCommands[b.Did][0].String()})
}

func TestResolveGraph_InputReferences(t *testing.T) {
	t.Parallel()

	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())

	ctx := context.Background()
	rb := runbook.New("test")
	loader := hcl.NewLoader(reg)
	diags := loader.LoadSource(ctx, rb, "main.tx", []byte(`
action "a" "test::task" {
  id    = "a"
  input = input.network
}
`))
	require.Empty(t, diags)

	rb.AddTopLevelInput("network", values.String("mainnet"))
	require.Empty(t, rb.ResolveGraph(ctx))
	assert.Empty(t, rb.Diagnostics, "declared inputs resolve without warnings")

	a := testutil.ConstructByName(t, rb, runbook.KindAction, "a")
	require.Len(t, rb.Graph.Dependencies(a.Did), 1)
}
