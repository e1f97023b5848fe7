package std

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/signers"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

const signerSeed = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"

func newSecretKeyInstance(t *testing.T, seed string) (*signers.SignerInstance, *values.ValueStore) {
	t.Helper()
	spec := newSecretKeySignerSpecification()
	constructDid := did.NewConstructDid(did.FromComponents("test.tx", "signer", "ops"))
	inst := signers.NewSignerInstance(spec, Namespace, "ops", constructDid)
	inputs := values.NewValueStore("ops")
	inputs.Insert("secret_key", values.String(seed))
	return inst, inputs
}

func TestActivate_DerivesStablePublicKey(t *testing.T) {
	t.Parallel()

	inst, inputs := newSecretKeyInstance(t, signerSeed)
	res, diag := inst.Activate(context.Background(), inputs, nil)
	require.Nil(t, diag)

	pub, err := res.Outputs.GetString("public_key")
	require.NoError(t, err)

	seed, _ := hex.DecodeString(signerSeed)
	expected := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	assert.Equal(t, hex.EncodeToString(expected), pub)
}

func TestSign_VerifiableSignature(t *testing.T) {
	t.Parallel()

	inst, inputs := newSecretKeyInstance(t, signerSeed)
	res, diag := inst.Activate(context.Background(), inputs, nil)
	require.Nil(t, diag)

	caller := did.NewConstructDid(did.FromComponents("test.tx", "action", "send"))
	payload := values.String("transfer 100 to alice")
	sig, diag := inst.Sign(context.Background(), caller, "send", payload, inputs)
	require.Nil(t, diag)

	sigBytes, ok := sig.AsBuffer()
	require.True(t, ok)

	pubHex, err := res.Outputs.GetString("public_key")
	require.NoError(t, err)
	pub, err := hex.DecodeString(pubHex)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub), []byte("transfer 100 to alice"), sigBytes))
}

func TestCheckActivability_EmitsAutoApprovableItem(t *testing.T) {
	t.Parallel()

	inst, inputs := newSecretKeyInstance(t, signerSeed)
	reqs, diag := inst.CheckActivability(context.Background(), inputs, supervisor.Context{})
	require.Nil(t, diag)
	require.Len(t, reqs, 1)
	assert.Equal(t, supervisor.ProvidePublicKey, reqs[0].Type)
	assert.True(t, reqs[0].AutoApprovable)
}

func TestCheckActivability_RejectsBadSeeds(t *testing.T) {
	t.Parallel()

	for name, seed := range map[string]string{
		"not hex":   "zzzz",
		"too short": "abcd",
	} {
		inst, inputs := newSecretKeyInstance(t, seed)
		_, diag := inst.CheckActivability(context.Background(), inputs, supervisor.Context{})
		require.NotNil(t, diag, "seed case %q", name)
	}
}

func TestCheckPublicKeyExpectations(t *testing.T) {
	t.Parallel()

	inst, inputs := newSecretKeyInstance(t, signerSeed)
	res, diag := inst.Activate(context.Background(), inputs, nil)
	require.Nil(t, diag)
	pub, err := res.Outputs.GetString("public_key")
	require.NoError(t, err)

	// A matching expectation passes, including an 0x prefix and upper case.
	inputs.Insert("expected_public_key", values.String("0x"+pub))
	assert.Nil(t, inst.CheckPublicKeyExpectations(context.Background(), inputs))

	inputs.Insert("expected_public_key", values.String("0x"+"00"+pub[2:]))
	diag = inst.CheckPublicKeyExpectations(context.Background(), inputs)
	require.NotNil(t, diag)
	assert.Contains(t, diag.Message, "does not match expected")
}

func TestCheckSignability_CarriesPayloadForReview(t *testing.T) {
	t.Parallel()

	inst, inputs := newSecretKeyInstance(t, signerSeed)
	_, diag := inst.Activate(context.Background(), inputs, nil)
	require.Nil(t, diag)

	caller := did.NewConstructDid(did.FromComponents("test.tx", "action", "send"))
	payload := values.Buffer([]byte{1, 2, 3})
	reqs, diag := inst.CheckSignability(context.Background(), caller, "send", payload, inputs, supervisor.Context{})
	require.Nil(t, diag)
	require.Len(t, reqs, 1)
	assert.Equal(t, supervisor.ReviewInput, reqs[0].Type)
	assert.Equal(t, "sign/send", reqs[0].Key)
	assert.True(t, reqs[0].Payload.Equals(payload))
}
