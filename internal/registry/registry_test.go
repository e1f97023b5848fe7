package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/runbookgo/internal/commands"
	"github.com/vk/runbookgo/internal/functions"
	"github.com/vk/runbookgo/internal/signers"
)

type stubAddon struct {
	ns        string
	actions   []*commands.CommandSpecification
	signers   []*signers.SignerSpecification
	functions []*functions.FunctionSpecification
}

func (a *stubAddon) Namespace() string { return a.ns }

func (a *stubAddon) Actions() []*commands.CommandSpecification { return a.actions }

func (a *stubAddon) Signers() []*signers.SignerSpecification { return a.signers }

func (a *stubAddon) Functions() []*functions.FunctionSpecification { return a.functions }

func newStubAddon(ns string) *stubAddon {
	return &stubAddon{
		ns:        ns,
		actions:   []*commands.CommandSpecification{{Name: "Deploy", Matcher: "deploy"}},
		signers:   []*signers.SignerSpecification{{Name: "Key", Matcher: "key"}},
		functions: []*functions.FunctionSpecification{{Name: "encode"}},
	}
}

func TestNew_Lookups(t *testing.T) {
	t.Parallel()

	r := New(newStubAddon("evm"), newStubAddon("svm"))
	assert.Equal(t, []string{"evm", "svm"}, r.Namespaces())
	assert.True(t, r.HasNamespace("evm"))
	assert.False(t, r.HasNamespace("btc"))

	action, err := r.Action("evm::deploy")
	require.NoError(t, err)
	assert.Equal(t, "Deploy", action.Name)

	signer, err := r.Signer("svm::key")
	require.NoError(t, err)
	assert.Equal(t, "Key", signer.Name)

	fn, ok := r.Function("evm", "encode")
	require.True(t, ok)
	assert.Equal(t, "encode", fn.Name)

	_, ok = r.Function("evm", "absent")
	assert.False(t, ok)
}

func TestLookup_UnknownNamespaceAndMatcher(t *testing.T) {
	t.Parallel()

	r := New(newStubAddon("evm"))

	_, err := r.Action("btc::deploy")
	assert.ErrorContains(t, err, `unknown namespace "btc"`)

	_, err = r.Action("evm::teleport")
	assert.ErrorContains(t, err, `unknown action "teleport"`)

	_, err = r.Signer("evm::teleport")
	assert.ErrorContains(t, err, `unknown signer "teleport"`)
}

func TestNew_DuplicateNamespacePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		New(newStubAddon("evm"), newStubAddon("evm"))
	})
}

func TestNew_DuplicateActionPanics(t *testing.T) {
	t.Parallel()

	addon := newStubAddon("evm")
	addon.actions = append(addon.actions, &commands.CommandSpecification{Name: "Deploy again", Matcher: "deploy"})
	assert.Panics(t, func() { New(addon) })
}

func TestActionMatchers_CoverActionsAndSigners(t *testing.T) {
	t.Parallel()

	r := New(newStubAddon("evm"))
	assert.ElementsMatch(t, []string{"deploy", "key"}, r.ActionMatchers("evm"))
	assert.Empty(t, r.ActionMatchers("btc"))
}

func TestFunctionNames(t *testing.T) {
	t.Parallel()

	r := New(newStubAddon("evm"))
	assert.Equal(t, []string{"encode"}, r.FunctionNames("evm"))
}

func TestSplitActionType(t *testing.T) {
	t.Parallel()

	ns, matcher, err := SplitActionType("evm::deploy_contract")
	require.NoError(t, err)
	assert.Equal(t, "evm", ns)
	assert.Equal(t, "deploy_contract", matcher)

	for _, malformed := range []string{"deploy", "::deploy", "evm::", "a::b::c", ""} {
		_, _, err := SplitActionType(malformed)
		assert.Error(t, err, "input %q", malformed)
	}
}
