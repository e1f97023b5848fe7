package hcl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/runbookgo/internal/hcl"
	"github.com/vk/runbookgo/internal/runbook"
	"github.com/vk/runbookgo/internal/testutil"
)

func loadSource(t *testing.T, src string) (*runbook.Runbook, []string) {
	t.Helper()
	reg := testutil.NewTestRegistry(testutil.NewRecorderAddon())
	rb := runbook.New("test")
	loader := hcl.NewLoader(reg)
	diags := loader.LoadSource(context.Background(), rb, "main.tx", []byte(src))
	messages := make([]string, 0, len(diags))
	for _, d := range diags {
		messages = append(messages, d.Message)
	}
	return rb, messages
}

func TestLoadSource_IndexesAllBlockKinds(t *testing.T) {
	t.Parallel()

	rb, msgs := loadSource(t, `
variable "network" {
  value = "mainnet"
}

output "done" {
  value = variable.network
}

module "shared" {
  region = "eu"
}

action "ping" "std::send_http_request" {
  url = "https://example.com"
}

signer "ops" "std::secret_key" {
  secret_key = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"
}
`)
	require.Empty(t, msgs)
	require.Len(t, rb.ConstructOrder, 5)

	ping := testutil.ConstructByName(t, rb, runbook.KindAction, "ping")
	require.NotNil(t, ping.Command)
	assert.Equal(t, "std", ping.Command.Namespace)
	assert.Equal(t, "send_http_request", ping.Command.Specification.Matcher)

	ops := testutil.ConstructByName(t, rb, runbook.KindSigner, "ops")
	require.NotNil(t, ops.Signer)
	assert.Nil(t, ops.Command, "signer constructs bind no command instance")
}

func TestLoadSource_ExpressionDeclarationOrder(t *testing.T) {
	t.Parallel()

	rb, msgs := loadSource(t, `
action "req" "std::send_http_request" {
  url    = "https://example.com"
  method = "POST"
  body   = "{}"
}
`)
	require.Empty(t, msgs)

	req := testutil.ConstructByName(t, rb, runbook.KindAction, "req")
	assert.Equal(t, []string{"url", "method", "body"}, req.ExprOrder)
	assert.Equal(t, req.ExprOrder, req.Command.InputOrder)
}

func TestLoadSource_CollectsReferences(t *testing.T) {
	t.Parallel()

	rb, msgs := loadSource(t, `
variable "endpoint" {
  value = "https://example.com"
}

action "req" "std::send_http_request" {
  url  = variable.endpoint
  body = std::concat(action.other.result, input.network)
}
`)
	require.Empty(t, msgs)

	req := testutil.ConstructByName(t, rb, runbook.KindAction, "req")
	require.Len(t, req.References, 3)

	assert.Equal(t, "variable", req.References[0].Namespace)
	assert.Equal(t, "endpoint", req.References[0].Name)
	assert.Empty(t, req.References[0].Field)
	assert.Equal(t, "url", req.References[0].InputName)

	assert.Equal(t, "action", req.References[1].Namespace)
	assert.Equal(t, "other", req.References[1].Name)
	assert.Equal(t, "result", req.References[1].Field)
	assert.Equal(t, "body", req.References[1].InputName)

	assert.Equal(t, "input", req.References[2].Namespace)
	assert.Equal(t, "network", req.References[2].Name)
}

func TestLoadSource_ContentHashedIdentity(t *testing.T) {
	t.Parallel()

	a, msgs := loadSource(t, `
variable "x" {
  value = 1
}
`)
	require.Empty(t, msgs)
	b, msgs := loadSource(t, `
variable "x" {
  value = 1
}
`)
	require.Empty(t, msgs)

	// Same location, kind, and name hash to the same did across loads.
	ax := testutil.ConstructByName(t, a, runbook.KindVariable, "x")
	bx := testutil.ConstructByName(t, b, runbook.KindVariable, "x")
	assert.Equal(t, ax.Did, bx.Did)
}

func TestLoadSource_UnknownActionType(t *testing.T) {
	t.Parallel()

	_, msgs := loadSource(t, `
action "x" "std::teleport" {
}
`)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], `unknown action "teleport"`)
}

func TestLoadSource_UnknownBlockType(t *testing.T) {
	t.Parallel()

	_, msgs := loadSource(t, `
widget "x" {
}
`)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], `unknown block type "widget"`)
}

func TestLoadSource_MissingLabels(t *testing.T) {
	t.Parallel()

	_, msgs := loadSource(t, `
action "only_name" {
}
`)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "requires a name label and a type label")
}

func TestLoadSource_ImportPathMustBeLiteral(t *testing.T) {
	t.Parallel()

	_, msgs := loadSource(t, `
import "shared" {
  path = variable.somewhere
}
`)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "path must be a string literal")
}

func TestLoadSource_ImportLiteral(t *testing.T) {
	t.Parallel()

	rb, msgs := loadSource(t, `
import "shared" {
  path = "lib/shared.tx"
}
`)
	require.Empty(t, msgs)
	shared := testutil.ConstructByName(t, rb, runbook.KindImport, "shared")
	assert.Equal(t, "lib/shared.tx", shared.ImportPath)
	assert.False(t, shared.Executable())
}

func TestLoadSource_UnregisteredAddonBlock(t *testing.T) {
	t.Parallel()

	_, msgs := loadSource(t, `
addon "evm" {
  rpc_url = "https://rpc"
}
`)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], `addon "evm" is not registered`)
}

func TestLoadSource_ParseErrorCarriesLocation(t *testing.T) {
	t.Parallel()

	reg := testutil.NewTestRegistry()
	rb := runbook.New("test")
	loader := hcl.NewLoader(reg)
	diags := loader.LoadSource(context.Background(), rb, "broken.tx", []byte(`variable "x" {`))
	require.NotEmpty(t, diags)
	assert.Equal(t, "broken.tx", diags[0].Location)
}

func TestLoadSource_DuplicateConstructName(t *testing.T) {
	t.Parallel()

	_, msgs := loadSource(t, `
variable "x" {
  value = 1
}

variable "x" {
  value = 2
}
`)
	require.NotEmpty(t, msgs)
}
