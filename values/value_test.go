package values

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyRoundTrip(t *testing.T) {
	orig := NewArray(2)
	require.NoError(t, orig.ArraySet(0, StringFromGo("hi")))
	cp := orig.Copy()
	assert.True(t, orig.Equal(cp))
	cp.Destroy()
	// destroying the copy must leave orig valid
	v, err := orig.ArrayGet(0)
	require.NoError(t, err)
	assert.Equal(t, "hi", v.AsGoString())
}

func TestEqualityCrossTypeAlwaysFalse(t *testing.T) {
	assert.False(t, Int(0).Equal(Bool(false)))
	assert.False(t, Int(1).Equal(StringFromGo("1")))
	assert.True(t, Null().Equal(Null()))
}

func TestArrayInvariantTailIsNull(t *testing.T) {
	a := NewArray(0)
	for i := 0; i < 20; i++ {
		require.NoError(t, a.ArrayPush(Int(int64(i))))
	}
	size := a.ArraySize()
	assert.Equal(t, 20, size)
	// indices beyond size are not observable through ArrayGet
	// (bounds-checked), so inspect the backing slice directly.
	for i := size; i < len(a.arr.elems); i++ {
		assert.Equal(t, TypeNull, a.arr.elems[i].Type, "slot %d", i)
	}
}

func TestStringConcatCoercion(t *testing.T) {
	got := Concat(Int(1), StringFromGo("x"))
	assert.Equal(t, "1x", got.AsGoString())
	got = Concat(Bool(true), Bool(false))
	assert.Equal(t, "1", got.AsGoString())
	got = Concat(Null(), Float(2.5))
	assert.Equal(t, "2.5", got.AsGoString())
}

func TestArithIntegerWrap(t *testing.T) {
	v, err := Arith(OpAdd, Int(1), Int(2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.AsInt())

	v, err = Arith(OpAdd, Int(math.MaxInt64), Int(1))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), v.AsInt())

	_, err = Arith(OpDiv, Int(1), Int(0))
	assert.ErrorIs(t, err, ErrDivByZero)
}

func TestArithPromotesToFloat(t *testing.T) {
	v, err := Arith(OpAdd, Int(1), Float(0.5))
	require.NoError(t, err)
	assert.Equal(t, TypeFloat, v.Type)
	assert.Equal(t, 1.5, v.AsFloat())
}

func TestTruthiness(t *testing.T) {
	assert.False(t, Null().Truthy())
	assert.False(t, Int(0).Truthy())
	assert.True(t, Int(-1).Truthy())
	assert.False(t, StringFromGo("").Truthy())
	assert.True(t, StringFromGo("0x").Truthy())
	empty := NewArray(3)
	assert.False(t, empty.Truthy())
}
