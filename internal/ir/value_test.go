package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Compile-time check that every variant implements Value
	var _ Value = Number(1)
	var _ Value = Text("a")
	var _ Value = Bytes{0x01}
}

func TestValue_Kind(t *testing.T) {
	assert.Equal(t, KindNumber, Number(7).Kind())
	assert.Equal(t, KindText, Text("x").Kind())
	assert.Equal(t, KindBytes, Bytes{1}.Kind())
	assert.Equal(t, "bytes", KindBytes.String())
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "-12", Number(-12).String())
	assert.Equal(t, `"HELLO"`, Text("HELLO").String())
	assert.Equal(t, "0x0fff", Bytes{0x0F, 0xFF}.String())
	assert.Equal(t, "<none>", Describe(nil))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.True(t, Equal(Bytes{1, 2}, Bytes{1, 2}))
	assert.False(t, Equal(Bytes{1, 2}, Bytes{2, 1}))
	assert.False(t, Equal(Number(1), Text("1")))
	assert.False(t, Equal(Number(1), nil))
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(3)
	require.NoError(t, err)
	assert.Equal(t, Number(3), v)

	v, err = FromAny("hi")
	require.NoError(t, err)
	assert.Equal(t, Text("hi"), v)

	v, err = FromAny([]any{1, 255, int64(16)})
	require.NoError(t, err)
	assert.Equal(t, Bytes{1, 255, 16}, v)

	_, err = FromAny([]any{256})
	assert.Error(t, err)

	_, err = FromAny(1.5)
	assert.Error(t, err)
}
