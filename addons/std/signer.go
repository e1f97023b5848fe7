package std

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/signers"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

// newSecretKeySignerSpecification builds the std::secret_key signer: an
// ed25519 keypair derived from a hex-encoded seed held directly in the
// runbook's inputs. Activation derives the public key once; each signing
// round goes through a review action item so a supervisor can inspect the
// payload before the signature exists.
func newSecretKeySignerSpecification() *signers.SignerSpecification {
	return &signers.SignerSpecification{
		Name:          "Secret key signer",
		Matcher:       "secret_key",
		Documentation: "Signs payloads with an ed25519 key derived from a local secret.",
		Inputs: []signers.SignerInput{
			{Name: "secret_key", Documentation: "Hex encoded 32 byte seed.", Type: values.StringType(), Sensitive: true},
			{Name: "expected_public_key", Documentation: "Fails activation when the derived public key differs.", Type: values.StringType(), Optional: true},
			{Name: "description", Documentation: "Operator facing description.", Type: values.StringType(), Optional: true},
		},
		Outputs: []signers.SignerOutput{
			{Name: "public_key", Documentation: "Hex encoded public key.", Type: values.StringType()},
		},
		CheckActivability:          checkSecretKeyActivability,
		Activate:                   activateSecretKey,
		CheckSignability:           checkSecretKeySignability,
		Sign:                       signWithSecretKey,
		CheckPublicKeyExpectations: checkSecretKeyExpectations,
	}
}

func checkSecretKeyActivability(ctx context.Context, constructDid did.ConstructDid, instanceName string, spec *signers.SignerSpecification, inputs *values.ValueStore, sup supervisor.Context) ([]*supervisor.ActionItemRequest, *diagnostics.Diagnostic) {
	if _, err := secretKeySeed(inputs); err != nil {
		return nil, err
	}
	return []*supervisor.ActionItemRequest{{
		ConstructDid:   constructDid,
		Title:          "Activate signer " + instanceName,
		Description:    "Confirm usage of the locally held secret key.",
		Type:           supervisor.ProvidePublicKey,
		Key:            "activate",
		AutoApprovable: true,
	}}, nil
}

func activateSecretKey(ctx context.Context, constructDid did.ConstructDid, spec *signers.SignerSpecification, inputs *values.ValueStore, state *values.ValueStore, responses []*supervisor.ActionItemResponse) (*signers.ActivationResult, *diagnostics.Diagnostic) {
	seed, diag := secretKeySeed(inputs)
	if diag != nil {
		return nil, diag
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	state.Insert("private_key", values.Buffer(priv))
	state.Insert("public_key", values.String(hex.EncodeToString(pub)))

	result := &signers.ActivationResult{Outputs: values.NewValueStore(spec.Matcher)}
	result.Outputs.Insert("public_key", values.String(hex.EncodeToString(pub)))
	return result, nil
}

func checkSecretKeySignability(ctx context.Context, caller did.ConstructDid, title string, payload values.Value, spec *signers.SignerSpecification, inputs *values.ValueStore, state *values.ValueStore, sup supervisor.Context) ([]*supervisor.ActionItemRequest, *diagnostics.Diagnostic) {
	return []*supervisor.ActionItemRequest{{
		ConstructDid:   caller,
		Title:          "Sign payload for " + title,
		Description:    "Review the payload before it is signed.",
		Type:           supervisor.ReviewInput,
		Key:            "sign/" + title,
		Payload:        payload,
		AutoApprovable: true,
	}}, nil
}

func signWithSecretKey(ctx context.Context, caller did.ConstructDid, title string, payload values.Value, spec *signers.SignerSpecification, inputs *values.ValueStore, state *values.ValueStore) (values.Value, *diagnostics.Diagnostic) {
	keyVal, err := state.GetExpected("private_key")
	if err != nil {
		return values.Null(), diagnostics.Errorf("signer is not activated: %s", err)
	}
	keyBytes, ok := keyVal.AsBuffer()
	if !ok || len(keyBytes) != ed25519.PrivateKeySize {
		return values.Null(), diagnostics.Errorf("signer holds malformed key material")
	}

	message, diag := payloadBytes(payload)
	if diag != nil {
		return values.Null(), diag
	}
	sig := ed25519.Sign(ed25519.PrivateKey(keyBytes), message)
	return values.Buffer(sig), nil
}

func checkSecretKeyExpectations(ctx context.Context, constructDid did.ConstructDid, spec *signers.SignerSpecification, inputs *values.ValueStore, state *values.ValueStore) *diagnostics.Diagnostic {
	expectedVal, found := inputs.Get("expected_public_key")
	if !found {
		return nil
	}
	expected, ok := expectedVal.AsString()
	if !ok || expected == "" {
		return nil
	}
	actual, err := state.GetString("public_key")
	if err != nil {
		return diagnostics.Errorf("signer is not activated: %s", err)
	}
	if !strings.EqualFold(strings.TrimPrefix(expected, "0x"), actual) {
		return diagnostics.Errorf("derived public key %s does not match expected %s", actual, expected)
	}
	return nil
}

// secretKeySeed parses the hex seed input.
func secretKeySeed(inputs *values.ValueStore) ([]byte, *diagnostics.Diagnostic) {
	raw, err := inputs.GetString("secret_key")
	if err != nil {
		return nil, diagnostics.Errorf("secret_key signer: %s", err)
	}
	seed, decodeErr := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if decodeErr != nil {
		return nil, diagnostics.Errorf("secret_key signer: secret_key is not valid hex")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, diagnostics.Errorf("secret_key signer: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return seed, nil
}

// payloadBytes renders a payload value as signable bytes.
func payloadBytes(payload values.Value) ([]byte, *diagnostics.Diagnostic) {
	if buf, ok := payload.AsBuffer(); ok {
		return buf, nil
	}
	if s, ok := payload.AsString(); ok {
		return []byte(s), nil
	}
	if data, ok := payload.AsAddon(); ok {
		return data.Bytes, nil
	}
	return nil, diagnostics.Errorf("payload must be a string, buffer, or addon value")
}
