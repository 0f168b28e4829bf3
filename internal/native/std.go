package native

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"sort"
)

type stdFunc struct {
	args []ArgType
	ret  ReturnType
	fn   func(m *StdModule, args []uint64) (uint64, error)
}

// StdModule is an in-process module exporting the standard block library
// over its own heap. It needs no external runtime.
type StdModule struct {
	heap   *heap
	funcs  map[string]stdFunc
	closed bool
}

var _ Module = (*StdModule)(nil)

// NewStdModule creates a module with an empty heap.
func NewStdModule() *StdModule {
	return &StdModule{heap: newHeap(), funcs: stdFuncs()}
}

func stdFuncs() map[string]stdFunc {
	p, n := ArgPointer, ArgNumber
	binary := func(op func(x, y byte) byte) stdFunc {
		return stdFunc{args: []ArgType{p, p, n, p}, ret: ReturnVoid, fn: func(m *StdModule, a []uint64) (uint64, error) {
			return 0, m.bytewise(a, op)
		}}
	}
	return map[string]stdFunc{
		"XOR": binary(func(x, y byte) byte { return x ^ y }),
		"OR":  binary(func(x, y byte) byte { return x | y }),
		"AND": binary(func(x, y byte) byte { return x & y }),
		"NOT": {args: []ArgType{p, n, p}, ret: ReturnVoid, fn: (*StdModule).not},
		"LSHIFT": {args: []ArgType{p, n, n, p}, ret: ReturnVoid, fn: func(m *StdModule, a []uint64) (uint64, error) {
			return 0, m.shift(a, true)
		}},
		"RSHIFT": {args: []ArgType{p, n, n, p}, ret: ReturnVoid, fn: func(m *StdModule, a []uint64) (uint64, error) {
			return 0, m.shift(a, false)
		}},
		"EQ": {args: []ArgType{p, p, n}, ret: ReturnNumber, fn: func(m *StdModule, a []uint64) (uint64, error) {
			return m.compare(a, true)
		}},
		"DEQ": {args: []ArgType{p, p, n}, ret: ReturnNumber, fn: func(m *StdModule, a []uint64) (uint64, error) {
			return m.compare(a, false)
		}},
		"ADD":         {args: []ArgType{p, p, n, p}, ret: ReturnVoid, fn: (*StdModule).add},
		"aes_encrypt": {args: []ArgType{p, n, p, p, p}, ret: ReturnNumber, fn: (*StdModule).aesEncrypt},
	}
}

// Functions lists the exported function names in sorted order.
func (m *StdModule) Functions() []string {
	names := make([]string, 0, len(m.funcs))
	for name := range m.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes an exported function.
func (m *StdModule) Call(ctx context.Context, name string, ret ReturnType, argTypes []ArgType, args []uint64) (uint64, error) {
	if m.closed {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, ok := m.funcs[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if len(args) != len(f.args) || (argTypes != nil && len(argTypes) != len(args)) {
		return 0, fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, name, len(f.args), len(args))
	}
	out, err := f.fn(m, args)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if ret == ReturnVoid {
		return 0, nil
	}
	return out, nil
}

// Malloc allocates size bytes.
func (m *StdModule) Malloc(_ context.Context, size uint32) (uint32, error) {
	if m.closed {
		return 0, ErrClosed
	}
	return m.heap.malloc(size), nil
}

// Free releases a pointer returned by Malloc.
func (m *StdModule) Free(_ context.Context, ptr uint32) error {
	if m.closed {
		return ErrClosed
	}
	return m.heap.free(ptr)
}

// Memory exposes the heap.
func (m *StdModule) Memory() Memory {
	return m.heap
}

// Live returns the number of outstanding allocations.
func (m *StdModule) Live() int {
	return m.heap.live()
}

// Close marks the module unusable.
func (m *StdModule) Close(context.Context) error {
	m.closed = true
	return nil
}

func (m *StdModule) read(ptr, n uint64) ([]byte, error) {
	return m.heap.Read(uint32(ptr), uint32(n))
}

// bytewise: op(a, b, len, c)
func (m *StdModule) bytewise(a []uint64, op func(x, y byte) byte) error {
	x, err := m.read(a[0], a[2])
	if err != nil {
		return err
	}
	y, err := m.read(a[1], a[2])
	if err != nil {
		return err
	}
	out := make([]byte, len(x))
	for i := range x {
		out[i] = op(x[i], y[i])
	}
	return m.heap.Write(uint32(a[3]), out)
}

// not: NOT(a, len, b)
func (m *StdModule) not(a []uint64) (uint64, error) {
	x, err := m.read(a[0], a[1])
	if err != nil {
		return 0, err
	}
	for i := range x {
		x[i] = ^x[i]
	}
	return 0, m.heap.Write(uint32(a[2]), x)
}

// shift: SHIFT(a, bits, len, c) over a big-endian buffer.
func (m *StdModule) shift(a []uint64, left bool) error {
	x, err := m.read(a[0], a[2])
	if err != nil {
		return err
	}
	bits := int(uint32(a[1]))
	byteShift, bitShift := bits/8, uint(bits%8)
	at := func(i int) byte {
		if i < 0 || i >= len(x) {
			return 0
		}
		return x[i]
	}
	out := make([]byte, len(x))
	for i := range out {
		if left {
			j := i + byteShift
			out[i] = at(j)<<bitShift | at(j+1)>>(8-bitShift)
		} else {
			j := i - byteShift
			out[i] = at(j)>>bitShift | at(j-1)<<(8-bitShift)
		}
	}
	return m.heap.Write(uint32(a[3]), out)
}

// compare: EQ(a, b, len) / DEQ(a, b, len)
func (m *StdModule) compare(a []uint64, equal bool) (uint64, error) {
	x, err := m.read(a[0], a[2])
	if err != nil {
		return 0, err
	}
	y, err := m.read(a[1], a[2])
	if err != nil {
		return 0, err
	}
	for i := range x {
		if (x[i] == y[i]) != equal {
			return 0, nil
		}
	}
	return 1, nil
}

// add: ADD(a, b, len, c), big-endian with carry, overflow discarded.
func (m *StdModule) add(a []uint64) (uint64, error) {
	x, err := m.read(a[0], a[2])
	if err != nil {
		return 0, err
	}
	y, err := m.read(a[1], a[2])
	if err != nil {
		return 0, err
	}
	out := make([]byte, len(x))
	carry := uint(0)
	for i := len(x) - 1; i >= 0; i-- {
		sum := carry + uint(x[i]) + uint(y[i])
		out[i] = byte(sum)
		carry = sum >> 8
	}
	return 0, m.heap.Write(uint32(a[3]), out)
}

// aesEncrypt: aes_encrypt(pt, len, key, iv, ct) -> ciphertext length.
// AES-128-CBC with PKCS#7 padding, so ct must hold len rounded up to the
// next whole block.
func (m *StdModule) aesEncrypt(a []uint64) (uint64, error) {
	pt, err := m.read(a[0], a[1])
	if err != nil {
		return 0, err
	}
	key, err := m.read(a[2], aes.BlockSize)
	if err != nil {
		return 0, err
	}
	iv, err := m.read(a[3], aes.BlockSize)
	if err != nil {
		return 0, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return 0, err
	}
	pad := aes.BlockSize - len(pt)%aes.BlockSize
	pt = append(pt, bytes.Repeat([]byte{byte(pad)}, pad)...)
	ct := make([]byte, len(pt))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, pt)
	if err := m.heap.Write(uint32(a[4]), ct); err != nil {
		return 0, err
	}
	return uint64(len(ct)), nil
}
