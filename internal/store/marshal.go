package store

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/cipherflow/internal/ir"
)

// envelope is the stored form of one ir.Value. The kind tag keeps a
// Number from coming back as Bytes and vice versa.
type envelope struct {
	Kind   string `msgpack:"k"`
	Number int64  `msgpack:"n,omitempty"`
	Text   string `msgpack:"t,omitempty"`
	Bytes  []byte `msgpack:"b,omitempty"`
}

func toEnvelope(v ir.Value) *envelope {
	switch x := v.(type) {
	case ir.Number:
		return &envelope{Kind: ir.KindNumber.String(), Number: int64(x)}
	case ir.Text:
		return &envelope{Kind: ir.KindText.String(), Text: string(x)}
	case ir.Bytes:
		return &envelope{Kind: ir.KindBytes.String(), Bytes: []byte(x)}
	}
	return nil
}

func fromEnvelope(e *envelope) (ir.Value, error) {
	if e == nil {
		return nil, nil
	}
	switch e.Kind {
	case ir.KindNumber.String():
		return ir.Number(e.Number), nil
	case ir.KindText.String():
		return ir.Text(e.Text), nil
	case ir.KindBytes.String():
		if e.Bytes == nil {
			return ir.Bytes{}, nil
		}
		return ir.Bytes(e.Bytes), nil
	}
	return nil, fmt.Errorf("unknown value kind %q", e.Kind)
}

// marshalValue encodes a single value. A nil value encodes to nil so it
// lands in the database as NULL.
func marshalValue(v ir.Value) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := msgpack.Marshal(toEnvelope(v))
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

func unmarshalValue(data []byte) (ir.Value, error) {
	if data == nil {
		return nil, nil
	}
	var e envelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return fromEnvelope(&e)
}

// marshalValues encodes a list of output values; nil entries are kept.
func marshalValues(vs []ir.Value) ([]byte, error) {
	es := make([]*envelope, len(vs))
	for i, v := range vs {
		es[i] = toEnvelope(v)
	}
	data, err := msgpack.Marshal(es)
	if err != nil {
		return nil, fmt.Errorf("marshal values: %w", err)
	}
	return data, nil
}

func unmarshalValues(data []byte) ([]ir.Value, error) {
	var es []*envelope
	if err := msgpack.Unmarshal(data, &es); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}
	vs := make([]ir.Value, len(es))
	for i, e := range es {
		v, err := fromEnvelope(e)
		if err != nil {
			return nil, fmt.Errorf("unmarshal values: entry %d: %w", i, err)
		}
		vs[i] = v
	}
	return vs, nil
}
