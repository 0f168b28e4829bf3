package interp

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/roach88/cipherflow/internal/cryptoprim"
	"github.com/roach88/cipherflow/internal/ir"
)

// builtin is a util function. Arguments and results share one register
// array; results are written by assigning to a register's Value and the
// return value feeds enclosing expressions.
type builtin struct {
	min, max int // max < 0 means variadic
	run      func(env *Env, regs []*Slot) (int64, error)
}

func (b builtin) arity() string {
	switch {
	case b.max == b.min:
		return strconv.Itoa(b.min)
	case b.max < 0:
		return fmt.Sprintf("at least %d", b.min)
	}
	return fmt.Sprintf("%d to %d", b.min, b.max)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"len":       {1, 1, utilLen},
		"assign":    {2, 2, utilAssign},
		"to_bytes":  {2, 2, convert(func(v ir.Value) (ir.Value, error) { b, err := ir.ToBytes(v); return ir.Bytes(b), err })},
		"to_number": {2, 2, convert(func(v ir.Value) (ir.Value, error) { n, err := ir.ToNumber(v); return ir.Number(n), err })},
		"to_text":   {2, 2, convert(func(v ir.Value) (ir.Value, error) { s, err := ir.ToText(v); return ir.Text(s), err })},

		"ADD":  arith(func(a, b int64) (int64, error) { return a + b, nil }),
		"SUB":  arith(func(a, b int64) (int64, error) { return a - b, nil }),
		"MUL":  arith(func(a, b int64) (int64, error) { return a * b, nil }),
		"DIV":  arith(cryptoprim.FloorDiv),
		"MOD":  arith(cryptoprim.FloorMod),
		"EGCD": {2, 5, utilEGCD},

		"AND": bitwise(cryptoprim.AND),
		"OR":  bitwise(cryptoprim.OR),
		"XOR": bitwise(cryptoprim.XOR),
		"NOT": {2, 2, utilNOT},

		"PRG":     {3, 3, utilPRG},
		"PRF":     {4, 4, utilPRF},
		"PRP":     {3, 3, permute(cryptoprim.PRP)},
		"PRP_INV": {3, 3, permute(cryptoprim.PRPInverse)},

		"AES_ECB_ENCRYPT": {3, 3, ecb(cryptoprim.ECBEncrypt)},
		"AES_ECB_DECRYPT": {3, 3, ecb(cryptoprim.ECBDecrypt)},
		"AES_CBC_ENCRYPT": {4, 4, withIV(cryptoprim.CBCEncrypt)},
		"AES_CBC_DECRYPT": {4, 4, withIV(cryptoprim.CBCDecrypt)},
		"AES_CTR":         {4, 4, withIV(cryptoprim.CTR)},
	}
}

// Builtins lists the util function names in sorted order.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func argBytes(regs []*Slot, i int) ([]byte, error) {
	v := regs[i].Value
	if v == nil {
		return nil, newError(ErrPrepareInputs, fmt.Sprintf("argument %d", i), "no value")
	}
	b, err := ir.ToBytes(v)
	if err != nil {
		return nil, &Error{Kind: ErrTypeMismatch, Port: fmt.Sprintf("argument %d", i), Err: err}
	}
	return b, nil
}

func argNumber(regs []*Slot, i int) (int64, error) {
	v := regs[i].Value
	if v == nil {
		return 0, newError(ErrPrepareInputs, fmt.Sprintf("argument %d", i), "no value")
	}
	n, err := ir.ToNumber(v)
	if err != nil {
		return 0, &Error{Kind: ErrTypeMismatch, Port: fmt.Sprintf("argument %d", i), Err: err}
	}
	return n, nil
}

// utilLen: len(x). The runtime size wins over the value length so that
// lengths agree with the padded buffers passed to native calls.
func utilLen(_ *Env, regs []*Slot) (int64, error) {
	if regs[0].RuntimeSize > 0 {
		return int64(regs[0].RuntimeSize), nil
	}
	b, err := argBytes(regs, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// utilAssign: assign(src, dst)
func utilAssign(_ *Env, regs []*Slot) (int64, error) {
	if regs[0].Value == nil {
		return 0, newError(ErrPrepareInputs, "argument 0", "no value")
	}
	regs[1].Value = regs[0].Value
	return 0, nil
}

func convert(fn func(ir.Value) (ir.Value, error)) func(*Env, []*Slot) (int64, error) {
	return func(_ *Env, regs []*Slot) (int64, error) {
		if regs[0].Value == nil {
			return 0, newError(ErrPrepareInputs, "argument 0", "no value")
		}
		v, err := fn(regs[0].Value)
		if err != nil {
			return 0, &Error{Kind: ErrTypeMismatch, Port: "argument 0", Err: err}
		}
		regs[1].Value = v
		return 0, nil
	}
}

// arith: OP(a, b[, out])
func arith(op func(a, b int64) (int64, error)) builtin {
	return builtin{2, 3, func(_ *Env, regs []*Slot) (int64, error) {
		a, err := argNumber(regs, 0)
		if err != nil {
			return 0, err
		}
		b, err := argNumber(regs, 1)
		if err != nil {
			return 0, err
		}
		n, err := op(a, b)
		if err != nil {
			return 0, &Error{Kind: ErrTypeMismatch, Port: "argument 1", Err: err}
		}
		if len(regs) == 3 {
			regs[2].Value = ir.Number(n)
		}
		return n, nil
	}}
}

// utilEGCD: EGCD(a, b[, g[, x[, y]]]) with g = a*x + b*y.
func utilEGCD(_ *Env, regs []*Slot) (int64, error) {
	a, err := argNumber(regs, 0)
	if err != nil {
		return 0, err
	}
	b, err := argNumber(regs, 1)
	if err != nil {
		return 0, err
	}
	g, x, y := cryptoprim.EGCD(a, b)
	for i, v := range []int64{g, x, y} {
		if 2+i < len(regs) {
			regs[2+i].Value = ir.Number(v)
		}
	}
	return g, nil
}

// bitwise: OP(a, b, out)
func bitwise(op func(a, b []byte) []byte) builtin {
	return builtin{3, 3, func(_ *Env, regs []*Slot) (int64, error) {
		a, err := argBytes(regs, 0)
		if err != nil {
			return 0, err
		}
		b, err := argBytes(regs, 1)
		if err != nil {
			return 0, err
		}
		out := op(a, b)
		regs[2].Value = ir.Bytes(out)
		return int64(len(out)), nil
	}}
}

// utilNOT: NOT(a, out)
func utilNOT(_ *Env, regs []*Slot) (int64, error) {
	a, err := argBytes(regs, 0)
	if err != nil {
		return 0, err
	}
	out := cryptoprim.NOT(a)
	regs[1].Value = ir.Bytes(out)
	return int64(len(out)), nil
}

// utilPRG: PRG(seed, n, out). Repeated seeds continue one stream.
func utilPRG(env *Env, regs []*Slot) (int64, error) {
	seed, err := argBytes(regs, 0)
	if err != nil {
		return 0, err
	}
	n, err := argNumber(regs, 1)
	if err != nil {
		return 0, err
	}
	out, err := env.generators().Read(seed, int(n))
	if err != nil {
		return 0, &Error{Kind: ErrTypeMismatch, Port: "argument 1", Err: err}
	}
	regs[2].Value = ir.Bytes(out)
	return n, nil
}

// utilPRF: PRF(seed, x, n, out)
func utilPRF(_ *Env, regs []*Slot) (int64, error) {
	seed, err := argBytes(regs, 0)
	if err != nil {
		return 0, err
	}
	x, err := argBytes(regs, 1)
	if err != nil {
		return 0, err
	}
	n, err := argNumber(regs, 2)
	if err != nil {
		return 0, err
	}
	out, err := cryptoprim.PRF(seed, x, int(n))
	if err != nil {
		return 0, &Error{Kind: ErrTypeMismatch, Port: "argument 2", Err: err}
	}
	regs[3].Value = ir.Bytes(out)
	return n, nil
}

// permute: PRP(seed, m, out) / PRP_INV(seed, c, out)
func permute(fn func(seed, m []byte) ([]byte, error)) func(*Env, []*Slot) (int64, error) {
	return func(_ *Env, regs []*Slot) (int64, error) {
		seed, err := argBytes(regs, 0)
		if err != nil {
			return 0, err
		}
		m, err := argBytes(regs, 1)
		if err != nil {
			return 0, err
		}
		out, err := fn(seed, m)
		if err != nil {
			return 0, &Error{Kind: ErrTypeMismatch, Port: "argument 1", Err: err}
		}
		regs[2].Value = ir.Bytes(out)
		return int64(len(out)), nil
	}
}

// ecb: AES_ECB_*(key, data, out)
func ecb(fn func(key, data []byte, report cryptoprim.Report) ([]byte, error)) func(*Env, []*Slot) (int64, error) {
	return func(env *Env, regs []*Slot) (int64, error) {
		key, err := argBytes(regs, 0)
		if err != nil {
			return 0, err
		}
		data, err := argBytes(regs, 1)
		if err != nil {
			return 0, err
		}
		out, err := fn(key, data, env.reportFunc())
		if err != nil {
			return 0, &Error{Kind: ErrTypeMismatch, Port: "argument 1", Err: err}
		}
		regs[2].Value = ir.Bytes(out)
		return int64(len(out)), nil
	}
}

// withIV: AES_CBC_*(key, iv, data, out) / AES_CTR(key, iv, data, out)
func withIV(fn func(key, iv, data []byte, report cryptoprim.Report) ([]byte, error)) func(*Env, []*Slot) (int64, error) {
	return func(env *Env, regs []*Slot) (int64, error) {
		key, err := argBytes(regs, 0)
		if err != nil {
			return 0, err
		}
		iv, err := argBytes(regs, 1)
		if err != nil {
			return 0, err
		}
		data, err := argBytes(regs, 2)
		if err != nil {
			return 0, err
		}
		out, err := fn(key, iv, data, env.reportFunc())
		if err != nil {
			return 0, &Error{Kind: ErrTypeMismatch, Port: "argument 2", Err: err}
		}
		regs[3].Value = ir.Bytes(out)
		return int64(len(out)), nil
	}
}
