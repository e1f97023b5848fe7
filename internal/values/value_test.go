package values

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestEquals_KindStrict(t *testing.T) {
	t.Parallel()

	// Integer 1 and float 1.0 are distinct values.
	assert.False(t, Integer(1).Equals(Float(1.0)))
	assert.True(t, Integer(42).Equals(Integer(42)))
	assert.True(t, Float(1.5).Equals(Float(1.5)))
	assert.False(t, String("a").Equals(String("b")))
	assert.True(t, Null().Equals(Null()))
}

func TestEquals_Structural(t *testing.T) {
	t.Parallel()

	a := Array(Integer(1), String("two"))
	b := Array(Integer(1), String("two"))
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(Array(Integer(1))))

	objA := Object(NewObjectMap().Set("x", Integer(1)).Set("y", Bool(true)))
	objB := Object(NewObjectMap().Set("x", Integer(1)).Set("y", Bool(true)))
	assert.True(t, objA.Equals(objB))

	assert.True(t, Buffer([]byte{1, 2}).Equals(Buffer([]byte{1, 2})))
	assert.True(t, Addon([]byte{9}, "evm::tx").Equals(Addon([]byte{9}, "evm::tx")))
	assert.False(t, Addon([]byte{9}, "evm::tx").Equals(Addon([]byte{9}, "svm::tx")))
}

func TestObjectMap_PreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	m := NewObjectMap().Set("z", Integer(1)).Set("a", Integer(2)).Set("m", Integer(3))
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())

	// Re-setting an existing key keeps its position.
	m.Set("z", Integer(9))
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())
	v, ok := m.Get("z")
	require.True(t, ok)
	assert.True(t, v.Equals(Integer(9)))
}

func TestTypeCheck(t *testing.T) {
	t.Parallel()

	assert.True(t, StringType().Check(String("hi")))
	assert.False(t, StringType().Check(Integer(1)))

	// Null satisfies every type.
	assert.True(t, IntegerType().Check(Null()))
	assert.True(t, BufferType().Check(Null()))

	// Floats accept integers, not the other way around.
	assert.True(t, FloatType().Check(Integer(1)))
	assert.False(t, IntegerType().Check(Float(1.0)))

	// Addon types interoperate with buffers.
	assert.True(t, AddonType("evm::tx").Check(Buffer([]byte{1})))
	assert.True(t, BufferType().Check(Addon([]byte{1}, "evm::tx")))
}

func TestTypeCheck_AnyIsUnconstrained(t *testing.T) {
	t.Parallel()

	for _, v := range []Value{
		Null(),
		Bool(false),
		Integer(1),
		Float(2.5),
		String("x"),
		Buffer([]byte{1}),
		Array(Integer(1)),
		Object(NewObjectMap().Set("k", Integer(1))),
		Addon([]byte{1}, "evm::tx"),
	} {
		assert.True(t, AnyType().Check(v), "any must accept %s", v.String())
	}
	assert.Equal(t, "any", AnyType().String())
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []Value{
		Null(),
		Bool(true),
		Integer(-17),
		Float(2.25),
		String("hello"),
		Buffer([]byte{0xde, 0xad}),
		Array(Integer(1), String("x"), Bool(false)),
		Object(NewObjectMap().Set("b", Integer(2)).Set("a", Integer(1))),
		Addon([]byte{0x01, 0x02}, "evm::address"),
	}

	for _, original := range cases {
		data, err := json.Marshal(original)
		require.NoError(t, err, "marshaling %s", original.String())

		var decoded Value
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, original.Equals(decoded), "round trip changed %s into %s", original.String(), decoded.String())
	}
}

func TestJSONObjectOrderSurvives(t *testing.T) {
	t.Parallel()

	original := Object(NewObjectMap().Set("z", Integer(1)).Set("a", Integer(2)))
	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	obj, ok := decoded.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a"}, obj.Keys())
}

func TestCtyRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []Value{
		Bool(true),
		Integer(7),
		Float(0.5),
		String("s"),
		Buffer([]byte{1, 2, 3}),
		Array(Integer(1), Integer(2)),
		Object(NewObjectMap().Set("k", String("v"))),
		Addon([]byte{0xaa}, "evm::tx"),
	}
	for _, original := range cases {
		back, err := FromCty(original.ToCty())
		require.NoError(t, err, "converting %s", original.String())
		assert.True(t, original.Equals(back), "cty round trip changed %s into %s", original.String(), back.String())
	}
}

func TestCtyWholeFloatsBecomeIntegers(t *testing.T) {
	t.Parallel()

	// cty numbers carry no int/float distinction, so whole numbers
	// normalize to integers on the way back.
	back, err := FromCty(cty.NumberFloatVal(3.0))
	require.NoError(t, err)
	assert.True(t, back.Equals(Integer(3)))
}

func TestValueStore(t *testing.T) {
	t.Parallel()

	store := NewValueStore("outputs")
	store.Insert("b", Integer(2))
	store.Insert("a", Integer(1))
	assert.Equal(t, []string{"b", "a"}, store.Keys())

	_, err := store.GetExpected("missing")
	assert.Error(t, err)

	s, err := store.GetString("a")
	assert.Error(t, err, "integer read as string should fail")
	assert.Empty(t, s)

	clone := store.Clone()
	clone.Insert("c", Integer(3))
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 3, clone.Len())
}
