package did

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromComponents_Deterministic(t *testing.T) {
	t.Parallel()

	a := FromComponents("main.tx", "action", "deploy")
	b := FromComponents("main.tx", "action", "deploy")
	assert.Equal(t, a, b, "identical components must hash identically")
}

func TestFromComponents_DistinctComponentsDistinctDids(t *testing.T) {
	t.Parallel()

	a := FromComponents("main.tx", "action", "deploy")
	b := FromComponents("main.tx", "action", "verify")
	c := FromComponents("other.tx", "action", "deploy")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestFromComponents_SeparatorPreventsConcatenationCollisions(t *testing.T) {
	t.Parallel()

	// "ab" + "c" must not collide with "a" + "bc".
	a := FromComponents("ab", "c")
	b := FromComponents("a", "bc")
	assert.NotEqual(t, a, b)
}

func TestHexRoundTrip(t *testing.T) {
	t.Parallel()

	original := FromComponents("main.tx", "signer", "ops")
	parsed := FromHexString(original.String())
	assert.Equal(t, original, parsed)
}

func TestFromHexString_Malformed(t *testing.T) {
	t.Parallel()

	assert.True(t, FromHexString("not-hex").IsZero())
	assert.True(t, FromHexString("abcd").IsZero(), "truncated digests parse to zero")
}

func TestZero(t *testing.T) {
	t.Parallel()

	require.True(t, Zero().IsZero())
	assert.False(t, FromComponents("x").IsZero())
	assert.Len(t, Zero().String(), Size*2)
}

func TestFromBytes(t *testing.T) {
	t.Parallel()

	a := FromBytes([]byte("payload"))
	b := FromBytes([]byte("payload"))
	c := FromBytes([]byte("other"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
