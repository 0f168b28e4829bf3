package interp

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cipherflow/internal/ir"
	"github.com/roach88/cipherflow/internal/native"
)

func bytesPort(size ir.Size) ir.Port {
	return ir.Port{Format: ir.FormatBytes, Size: size}
}

func numberPort() ir.Port {
	return ir.Port{Format: ir.FormatNumber}
}

func compile(t *testing.T, op string, inputs, outputs []ir.Port) *Operation {
	t.Helper()
	o, err := Compile(ir.BlockDecl{Package: "test", Name: "Block", Operation: op, Inputs: inputs, Outputs: outputs})
	require.NoError(t, err)
	return o
}

type recorder struct{ msgs []string }

func (r *recorder) report(msg string) { r.msgs = append(r.msgs, msg) }

func newEnv(mod native.Module) (*Env, *recorder) {
	rec := &recorder{}
	return &Env{Ctx: context.Background(), Module: mod, Report: rec.report}, rec
}

// ============================================================================
// Runtime size
// ============================================================================

func TestCalculateRuntimeSize_Rules(t *testing.T) {
	f := &Frame{
		Inputs: []Slot{
			{Port: numberPort(), Value: ir.Number(9)},
			{Port: bytesPort(ir.FixedSize(16)), Value: ir.Bytes{1}},
			{Port: bytesPort(ir.MaxSize()), Value: ir.Bytes{1, 2, 3}},
			{Port: bytesPort(ir.Size{}), Value: ir.Text("hello world, this is long")},
		},
		Outputs: []Slot{
			{Port: bytesPort(ir.MaxSize())},
			{Port: bytesPort(ir.InputSize(1))},
			{Port: numberPort()},
			{Port: bytesPort(ir.FixedSize(2))},
		},
	}
	require.NoError(t, CalculateRuntimeSize(f))

	assert.Equal(t, 4, f.Inputs[0].RuntimeSize)
	assert.Equal(t, 16, f.Inputs[1].RuntimeSize)
	assert.Equal(t, 25, f.Inputs[2].RuntimeSize, "max of own length and siblings")
	assert.Equal(t, 25, f.Inputs[3].RuntimeSize)
	assert.Equal(t, 25, f.Outputs[0].RuntimeSize)
	assert.Equal(t, 16, f.Outputs[1].RuntimeSize)
	assert.Equal(t, 4, f.Outputs[2].RuntimeSize)
	assert.Equal(t, 2, f.Outputs[3].RuntimeSize)

	f.ResetRuntimeSizes()
	assert.False(t, f.Sized())
}

func TestCalculateRuntimeSize_Errors(t *testing.T) {
	tests := []struct {
		name string
		f    *Frame
		want error
	}{
		{
			name: "input with nothing to size from",
			f:    &Frame{Inputs: []Slot{{Port: bytesPort(ir.MaxSize())}}},
			want: ErrInputSize,
		},
		{
			name: "input sized only by numbers",
			f: &Frame{Inputs: []Slot{
				{Port: bytesPort(ir.MaxSize())},
				{Port: numberPort(), Value: ir.Number(1)},
			}},
			want: ErrInputSizeMaxOfIntegers,
		},
		{
			name: "output with no inputs",
			f:    &Frame{Outputs: []Slot{{Port: bytesPort(ir.MaxSize())}}},
			want: ErrOutputSize,
		},
		{
			name: "output sized only by numbers",
			f: &Frame{
				Inputs:  []Slot{{Port: numberPort(), Value: ir.Number(1)}},
				Outputs: []Slot{{Port: bytesPort(ir.Size{})}},
			},
			want: ErrOutputSizeMaxOfIntegers,
		},
		{
			name: "output refers to missing input",
			f: &Frame{
				Inputs:  []Slot{{Port: bytesPort(ir.FixedSize(1))}},
				Outputs: []Slot{{Port: bytesPort(ir.InputSize(3))}},
			},
			want: ErrIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CalculateRuntimeSize(tt.f)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

// ============================================================================
// Built-in operations
// ============================================================================

func TestOperation_UtilAdd(t *testing.T) {
	op := compile(t, "util.ADD(0,1,2)",
		[]ir.Port{numberPort(), numberPort()},
		[]ir.Port{numberPort()})

	env, _ := newEnv(nil)
	out, err := op.Resolve(env, []ir.Value{ir.Number(3), ir.Number(4)})
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Number(7)}, out)
}

func TestOperation_UtilNested(t *testing.T) {
	// MUL(ADD(a, b), a) with the result written to output 0
	op := compile(t, "util.MUL(util.ADD(0,1),0,2)",
		[]ir.Port{numberPort(), numberPort()},
		[]ir.Port{numberPort()})

	env, _ := newEnv(nil)
	out, err := op.Resolve(env, []ir.Value{ir.Number(2), ir.Number(5)})
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Number(14)}, out)
}

func TestOperation_RuntimeInputLength(t *testing.T) {
	op := compile(t, "util.ADD(0,1,2)",
		[]ir.Port{numberPort(), numberPort()},
		[]ir.Port{numberPort()})

	env, _ := newEnv(nil)
	_, err := op.Resolve(env, []ir.Value{ir.Number(3)})
	assert.True(t, errors.Is(err, ErrRuntimeInputLength))

	var ie *Error
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "test/Block", ie.Block)
}

func TestOperation_UnknownUtil(t *testing.T) {
	op := compile(t, "util.FROB(0,1)", []ir.Port{numberPort()}, []ir.Port{numberPort()})
	env, _ := newEnv(nil)
	_, err := op.Resolve(env, []ir.Value{ir.Number(1)})
	assert.True(t, errors.Is(err, ErrUnknownFunction))
}

func TestOperation_UnwrittenOutput(t *testing.T) {
	op := compile(t, "util.assign(0,1)",
		[]ir.Port{bytesPort(ir.FixedSize(1))},
		[]ir.Port{bytesPort(ir.FixedSize(1)), bytesPort(ir.FixedSize(1))})
	env, _ := newEnv(nil)
	_, err := op.Resolve(env, []ir.Value{ir.Bytes{1}})
	assert.True(t, errors.Is(err, ErrOutputValue))
}

// ============================================================================
// Native operations
// ============================================================================

func xorOperation(t *testing.T) *Operation {
	return compile(t, "std.XOR(0,1,util.len(0),2)",
		[]ir.Port{bytesPort(ir.MaxSize()), bytesPort(ir.MaxSize())},
		[]ir.Port{bytesPort(ir.MaxSize())})
}

func TestOperation_NativeXORPadsAndFrees(t *testing.T) {
	mod := native.NewStdModule()
	env, _ := newEnv(mod)

	out, err := xorOperation(t).Resolve(env, []ir.Value{ir.Bytes{0x0F}, ir.Bytes{0x0F, 0xF0}})
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Bytes{0x0F, 0xFF}}, out)
	assert.Zero(t, mod.Live(), "every allocation is released")
}

func TestOperation_NativeSignExtends(t *testing.T) {
	mod := native.NewStdModule()
	env, _ := newEnv(mod)

	// 0x80 has its leading bit set, so it is widened with 0xFF
	out, err := xorOperation(t).Resolve(env, []ir.Value{ir.Bytes{0x80}, ir.Bytes{0x00, 0x00}})
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Bytes{0xFF, 0x80}}, out)
}

func TestOperation_NativeTextInput(t *testing.T) {
	mod := native.NewStdModule()
	env, _ := newEnv(mod)

	out, err := xorOperation(t).Resolve(env, []ir.Value{ir.Text("HI"), ir.Bytes{0x00, 0x00}})
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Bytes("HI")}, out)
}

func TestOperation_NativeFreesOnFailure(t *testing.T) {
	mod := native.NewStdModule()
	env, _ := newEnv(mod)
	op := compile(t, "std.MISSING(0,1,util.len(0),2)",
		[]ir.Port{bytesPort(ir.MaxSize()), bytesPort(ir.MaxSize())},
		[]ir.Port{bytesPort(ir.MaxSize())})

	_, err := op.Resolve(env, []ir.Value{ir.Bytes{1}, ir.Bytes{2}})
	assert.True(t, errors.Is(err, ErrUnknownFunction))
	assert.Zero(t, mod.Live())
}

func TestOperation_NativeTruncationWarns(t *testing.T) {
	mod := native.NewStdModule()
	env, rec := newEnv(mod)
	op := compile(t, "std.NOT(0,util.len(0),1)",
		[]ir.Port{bytesPort(ir.FixedSize(2))},
		[]ir.Port{bytesPort(ir.InputSize(0))})

	out, err := op.Resolve(env, []ir.Value{ir.Bytes{0xAA, 0x0F, 0xF0}})
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Bytes{0xF0, 0x0F}}, out, "least significant bytes are kept")
	require.Len(t, rec.msgs, 1)
	assert.Contains(t, rec.msgs[0], "[WARNING]")
	assert.Contains(t, rec.msgs[0], "truncated")
}

func TestOperation_NativeNumberReturn(t *testing.T) {
	mod := native.NewStdModule()
	env, _ := newEnv(mod)
	op := compile(t, "std.EQ(0,1,util.len(0))",
		[]ir.Port{bytesPort(ir.MaxSize()), bytesPort(ir.MaxSize())},
		[]ir.Port{numberPort()})

	out, err := op.Resolve(env, []ir.Value{ir.Bytes{1, 2}, ir.Bytes{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Number(1)}, out)

	out, err = op.Resolve(env, []ir.Value{ir.Bytes{1, 2}, ir.Bytes{1, 3}})
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Number(0)}, out)
}

func TestOperation_NativeNumberPort(t *testing.T) {
	mod := native.NewStdModule()
	env, _ := newEnv(mod)
	op := compile(t, "std.LSHIFT(0,1,util.len(0),2)",
		[]ir.Port{bytesPort(ir.FixedSize(2)), numberPort()},
		[]ir.Port{bytesPort(ir.InputSize(0))})

	out, err := op.Resolve(env, []ir.Value{ir.Bytes{0x00, 0x01}, ir.Number(4)})
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.Bytes{0x00, 0x10}}, out)

	_, err = op.Resolve(env, []ir.Value{ir.Bytes{0x00, 0x01}, ir.Text("4")})
	assert.True(t, errors.Is(err, ErrTypeMismatch))
	assert.Zero(t, mod.Live())
}

func TestOperation_NativeAES(t *testing.T) {
	mod := native.NewStdModule()
	env, _ := newEnv(mod)
	op := compile(t, "std.aes_encrypt(0,util.len(0),1,2,3)",
		[]ir.Port{bytesPort(ir.FixedSize(16)), bytesPort(ir.FixedSize(16)), bytesPort(ir.FixedSize(16))},
		[]ir.Port{bytesPort(ir.FixedSize(32))})

	key := bytes.Repeat([]byte{0x2B}, 16)
	iv := make([]byte, 16)
	out, err := op.Resolve(env, []ir.Value{ir.Text("attack at dawn!!"), ir.Bytes(key), ir.Bytes(iv)})
	require.NoError(t, err)
	require.Len(t, out, 1)

	ct := out[0].(ir.Bytes)
	require.Len(t, ct, 32)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	pt := make([]byte, 32)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)
	assert.Equal(t, []byte("attack at dawn!!"), pt[:16])
	assert.Zero(t, mod.Live())
}

func TestOperation_NoModule(t *testing.T) {
	env, _ := newEnv(nil)
	_, err := xorOperation(t).Resolve(env, []ir.Value{ir.Bytes{1}, ir.Bytes{2}})
	assert.True(t, errors.Is(err, ErrNative))
}

func TestOperation_RunClearsRuntimeSizes(t *testing.T) {
	mod := native.NewStdModule()
	env, _ := newEnv(mod)
	op := xorOperation(t)

	f, err := NewFrame(ir.BlockDecl{
		Inputs:  []ir.Port{bytesPort(ir.MaxSize()), bytesPort(ir.MaxSize())},
		Outputs: []ir.Port{bytesPort(ir.MaxSize())},
	}, []ir.Value{ir.Bytes{1, 2, 3}, ir.Bytes{4}})
	require.NoError(t, err)

	_, err = op.Run(env, f)
	require.NoError(t, err)
	assert.False(t, f.Sized())

	// A failing run also leaves no sizes behind
	f.Inputs[0].Value = ir.Text("世")
	_, err = op.Run(env, f)
	require.Error(t, err)
	assert.False(t, f.Sized())
}
