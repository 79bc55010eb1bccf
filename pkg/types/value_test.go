package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Constructors(t *testing.T) {
	assert.Equal(t, KindNull, Null().Kind())
	assert.Equal(t, KindInt, Int(7).Kind())
	assert.Equal(t, KindReal, Real(1.5).Kind())
	assert.Equal(t, KindText, Text("x").Kind())
	assert.Equal(t, KindBlob, Blob([]byte{1, 2}).Kind())
	assert.Equal(t, KindIntVector, IntVector([]int64{1}).Kind())
	assert.Equal(t, KindRealVector, RealVector([]float64{1}).Kind())
	assert.Equal(t, KindTextVector, TextVector([]string{"a"}).Kind())

	var zero Value
	assert.True(t, zero.IsNull())
}

func TestValue_Extractors(t *testing.T) {
	i, err := Int(42).AsInt()
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	f, err := Real(2.5).AsReal()
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	// Integer promotes into a real context.
	f, err = Int(3).AsReal()
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	s, err := Text("hello").AsText()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	_, err = Text("hello").AsInt()
	require.Error(t, err)
	assert.Equal(t, TypeMismatch, KindOf(err))

	_, err = Int(1).AsText()
	assert.Equal(t, TypeMismatch, KindOf(err))

	_, err = Null().AsBlob()
	assert.Equal(t, TypeMismatch, KindOf(err))
}

func TestValue_VectorAccess(t *testing.T) {
	v := RealVector([]float64{1.0, 2.0, 3.0})

	n, err := v.VectorLen()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	e, err := v.VectorElement(1)
	require.NoError(t, err)
	assert.True(t, e.Equal(Real(2.0)))

	_, err = v.VectorElement(3)
	assert.Equal(t, InvalidValue, KindOf(err))

	_, err = Int(1).VectorLen()
	assert.Equal(t, TypeMismatch, KindOf(err))
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Null().Equal(Null()))
	assert.True(t, Int(1).Equal(Int(1)))
	assert.False(t, Int(1).Equal(Int(2)))
	assert.False(t, Int(1).Equal(Real(1.0)))
	assert.True(t, Text("a").Equal(Text("a")))
	assert.True(t, Blob([]byte{1, 2}).Equal(Blob([]byte{1, 2})))
	assert.False(t, Blob([]byte{1}).Equal(Blob([]byte{1, 2})))
	assert.True(t, IntVector([]int64{1, 2}).Equal(IntVector([]int64{1, 2})))
	assert.False(t, IntVector([]int64{1, 2}).Equal(IntVector([]int64{2, 1})))
}

func TestValue_EqualNaN(t *testing.T) {
	nan := math.NaN()
	assert.True(t, Real(nan).Equal(Real(nan)))
	assert.False(t, Real(nan).Equal(Real(1.0)))
	assert.True(t, RealVector([]float64{1.0, nan}).Equal(RealVector([]float64{1.0, nan})))
	assert.False(t, RealVector([]float64{nan}).Equal(RealVector([]float64{0.0})))
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "null", Null().String())
	assert.Equal(t, "42", Int(42).String())
	assert.Equal(t, "2.5", Real(2.5).String())
	assert.Equal(t, "0.1", Real(0.1).String())
	assert.Equal(t, "abc", Text("abc").String())
	assert.Equal(t, "blob(3 bytes)", Blob([]byte{1, 2, 3}).String())
	assert.Equal(t, "[1, 2]", IntVector([]int64{1, 2}).String())
	assert.Equal(t, "[a, b]", TextVector([]string{"a", "b"}).String())
}
