package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberToBytes(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 7}, NumberToBytes(7))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, NumberToBytes(-1))
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, NumberToBytes(1<<24))
}

func TestBytesToNumber_SignExtends(t *testing.T) {
	n, err := BytesToNumber([]byte{0xFF})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), n)

	n, err = BytesToNumber([]byte{0x00, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, int64(255), n)

	n, err = BytesToNumber(NumberToBytes(-300))
	require.NoError(t, err)
	assert.Equal(t, int64(-300), n)

	n, err = BytesToNumber(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBytesToNumber_TooWide(t *testing.T) {
	_, err := BytesToNumber(make([]byte, 9))
	assert.True(t, errors.Is(err, ErrCoercion))
}

func TestTextToBytes(t *testing.T) {
	b, err := TextToBytes("HELLO")
	require.NoError(t, err)
	assert.Equal(t, []byte("HELLO"), b)

	// Decomposed e + combining acute normalises to a single Latin-1 byte
	b, err = TextToBytes("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE9}, b)

	_, err = TextToBytes("日本")
	assert.True(t, errors.Is(err, ErrCoercion))
}

func TestBytesToText(t *testing.T) {
	s, err := BytesToText([]byte{0x48, 0x49, 0xE9})
	require.NoError(t, err)
	assert.Equal(t, "HIé", s)
}

func TestToNumber(t *testing.T) {
	n, err := ToNumber(Text(" 42 "))
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = ToNumber(Text("abc"))
	assert.Error(t, err)

	_, err = ToNumber(nil)
	assert.Error(t, err)
}

func TestToText(t *testing.T) {
	s, err := ToText(Number(-3))
	require.NoError(t, err)
	assert.Equal(t, "-3", s)

	s, err = ToText(Bytes("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", s)
}

func TestToBytes_CopiesInput(t *testing.T) {
	src := Bytes{1, 2, 3}
	out, err := ToBytes(src)
	require.NoError(t, err)
	out[0] = 9
	assert.Equal(t, byte(1), src[0])
}

func TestPad(t *testing.T) {
	out, truncated := Pad([]byte{0x01}, 3)
	assert.Equal(t, []byte{0x00, 0x00, 0x01}, out)
	assert.False(t, truncated)

	// Leading bit set extends with 0xFF
	out, truncated = Pad([]byte{0x80, 0x01}, 4)
	assert.Equal(t, []byte{0xFF, 0xFF, 0x80, 0x01}, out)
	assert.False(t, truncated)

	// Longer input keeps the least significant bytes
	out, truncated = Pad([]byte{0x01, 0x02, 0x03}, 2)
	assert.Equal(t, []byte{0x02, 0x03}, out)
	assert.True(t, truncated)

	out, _ = Pad(nil, 2)
	assert.Equal(t, []byte{0, 0}, out)
}

func TestZeroPad(t *testing.T) {
	assert.Equal(t, []byte{1, 2, 0, 0}, ZeroPad([]byte{1, 2}, 4))
	assert.Equal(t, []byte{1, 2}, ZeroPad([]byte{1, 2}, 1))
}
