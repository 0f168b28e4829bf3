package ir

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// NumberWidth is the byte width of a number when expanded into a buffer.
const NumberWidth = 4

// ErrCoercion is the sentinel wrapped by every conversion failure.
var ErrCoercion = errors.New("coercion failed")

// NumberToBytes expands n into NumberWidth big-endian bytes.
// Values outside the 32-bit range keep their low-order bytes.
func NumberToBytes(n int64) []byte {
	out := make([]byte, NumberWidth)
	binary.BigEndian.PutUint32(out, uint32(n))
	return out
}

// BytesToNumber interprets b as a big-endian two's complement integer.
// The leading bit is the sign, so [0xFF] is -1 and [0x00, 0xFF] is 255.
func BytesToNumber(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if len(b) > 8 {
		return 0, fmt.Errorf("%w: %d bytes do not fit in a number", ErrCoercion, len(b))
	}
	var n int64
	if b[0]&0x80 != 0 {
		n = -1
	}
	for _, c := range b {
		n = n<<8 | int64(c)
	}
	return n, nil
}

// TextToBytes encodes s one byte per character (ISO 8859-1) after NFC
// normalisation. Characters outside Latin-1 are an error.
func TextToBytes(s string) ([]byte, error) {
	out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(norm.NFC.String(s)))
	if err != nil {
		return nil, fmt.Errorf("%w: text %q is not Latin-1: %v", ErrCoercion, s, err)
	}
	return out, nil
}

// BytesToText decodes b one character per byte (ISO 8859-1).
func BytesToText(b []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCoercion, err)
	}
	return string(out), nil
}

// ToBytes converts any value into its byte form.
func ToBytes(v Value) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: no value", ErrCoercion)
	case Number:
		return NumberToBytes(int64(x)), nil
	case Text:
		return TextToBytes(string(x))
	case Bytes:
		return bytes.Clone(x), nil
	}
	return nil, fmt.Errorf("%w: unknown value %T", ErrCoercion, v)
}

// ToNumber converts any value into a number. Text must hold a decimal
// integer; bytes are read as a signed big-endian integer.
func ToNumber(v Value) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: no value", ErrCoercion)
	case Number:
		return int64(x), nil
	case Text:
		n, err := strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: text %q is not a number", ErrCoercion, string(x))
		}
		return n, nil
	case Bytes:
		return BytesToNumber(x)
	}
	return 0, fmt.Errorf("%w: unknown value %T", ErrCoercion, v)
}

// ToText converts any value into text.
func ToText(v Value) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", fmt.Errorf("%w: no value", ErrCoercion)
	case Number:
		return x.String(), nil
	case Text:
		return string(x), nil
	case Bytes:
		return BytesToText(x)
	}
	return "", fmt.Errorf("%w: unknown value %T", ErrCoercion, v)
}

// Pad resizes b to exactly size bytes. Shorter input is extended on the
// left with 0x00, or 0xFF when its leading bit is set. Longer input keeps
// its least significant bytes and reports truncated.
func Pad(b []byte, size int) (out []byte, truncated bool) {
	if size < 0 {
		size = 0
	}
	if len(b) >= size {
		return bytes.Clone(b[len(b)-size:]), len(b) > size
	}
	fill := byte(0x00)
	if len(b) > 0 && b[0]&0x80 != 0 {
		fill = 0xFF
	}
	out = make([]byte, size)
	lead := size - len(b)
	for i := 0; i < lead; i++ {
		out[i] = fill
	}
	copy(out[lead:], b)
	return out, false
}

// ZeroPad extends b on the right with zero bytes up to size.
// Used for cipher keys, IVs and blocks, where the padding is trailing.
func ZeroPad(b []byte, size int) []byte {
	if len(b) >= size {
		return bytes.Clone(b)
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}
