package ir

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Kind identifies which variant of Value is held.
type Kind uint8

const (
	// KindNumber is a signed integer value.
	KindNumber Kind = iota + 1

	// KindText is a character string.
	KindText

	// KindBytes is a raw byte sequence.
	KindBytes
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a sealed interface for the values carried on wires.
// Only Number, Text and Bytes implement it.
// A nil Value means "no value at this slot".
type Value interface {
	Kind() Kind
	String() string
	value() // Sealed
}

// Number is an integer value. Always int64, never float.
type Number int64

func (Number) value() {}

// Kind returns KindNumber.
func (Number) Kind() Kind { return KindNumber }

// String renders the decimal form.
func (n Number) String() string { return strconv.FormatInt(int64(n), 10) }

// Text is a character string value.
type Text string

func (Text) value() {}

// Kind returns KindText.
func (Text) Kind() Kind { return KindText }

// String renders the quoted form.
func (t Text) String() string { return strconv.Quote(string(t)) }

// Bytes is a byte sequence value, most significant byte first.
type Bytes []byte

func (Bytes) value() {}

// Kind returns KindBytes.
func (Bytes) Kind() Kind { return KindBytes }

// String renders 0x-prefixed lowercase hex.
func (b Bytes) String() string { return "0x" + hex.EncodeToString(b) }

// Equal reports whether two values hold the same variant and content.
// Two nil values are equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Bytes:
		bv, ok := b.(Bytes)
		return ok && bytes.Equal(av, bv)
	}
	return false
}

// Describe renders a value for diagnostics, including the nil case.
func Describe(v Value) string {
	if v == nil {
		return "<none>"
	}
	return v.String()
}

// FromAny converts a decoded scalar (from YAML, JSON or CUE) into a Value.
// Integers become Number, strings become Text, and []byte or a list of
// integers in byte range become Bytes.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Value:
		return x, nil
	case int:
		return Number(x), nil
	case int64:
		return Number(x), nil
	case uint64:
		return Number(int64(x)), nil
	case string:
		return Text(x), nil
	case []byte:
		return Bytes(bytes.Clone(x)), nil
	case []any:
		out := make(Bytes, len(x))
		for i, e := range x {
			n, ok := e.(int)
			if !ok {
				if n64, ok64 := e.(int64); ok64 {
					n, ok = int(n64), true
				}
			}
			if !ok || n < 0 || n > 0xFF {
				return nil, fmt.Errorf("byte list element %d: %v is not a byte", i, e)
			}
			out[i] = byte(n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
