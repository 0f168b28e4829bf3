package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel kinds for operation parse failures.
var (
	ErrSyntax = errors.New("syntax error")
	ErrIndex  = errors.New("port index out of range")
)

// ArgKind says what an operation argument refers to.
type ArgKind uint8

const (
	// ArgInput refers to an input port by index.
	ArgInput ArgKind = iota + 1

	// ArgOutput refers to an output port used as an in/out buffer.
	ArgOutput

	// ArgCall is a nested call whose return value is substituted.
	ArgCall
)

// Arg is one argument of a Call.
type Arg struct {
	Kind ArgKind

	// Index is the input index for ArgInput and the output index for
	// ArgOutput (the input count already subtracted).
	Index int

	Call *Call
}

// Call is a parsed operation: pkg.fn(args...).
type Call struct {
	Package  string
	Function string
	Args     []Arg
}

// Render renders the call back in source form, with output indices
// offset by numInputs.
func (c *Call) Render(numInputs int) string {
	var b strings.Builder
	b.WriteString(c.Package)
	b.WriteByte('.')
	b.WriteString(c.Function)
	b.WriteByte('(')
	for i, a := range c.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		switch a.Kind {
		case ArgCall:
			b.WriteString(a.Call.Render(numInputs))
		case ArgOutput:
			b.WriteString(strconv.Itoa(a.Index + numInputs))
		default:
			b.WriteString(strconv.Itoa(a.Index))
		}
	}
	b.WriteByte(')')
	return b.String()
}

// ParseError reports a malformed operation string.
type ParseError struct {
	Kind      error // ErrSyntax or ErrIndex
	Operation string
	Offset    int
	Message   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("operation %q at offset %d: %s: %s", e.Operation, e.Offset, e.Kind, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// ParseOperation compiles an operation string into a call tree.
//
//	expr := ident "." ident "(" [ arg { "," arg } ] ")"
//	arg  := integer | expr
//
// Integers below numInputs refer to inputs; integers in
// [numInputs, numInputs+numOutputs) refer to outputs. Whitespace is ignored.
func ParseOperation(src string, numInputs, numOutputs int) (*Call, error) {
	p := &opParser{src: src, numIn: numInputs, numOut: numOutputs}
	call, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.fail(ErrSyntax, "unexpected %q after expression", p.src[p.pos:])
	}
	return call, nil
}

type opParser struct {
	src    string
	pos    int
	numIn  int
	numOut int
}

func (p *opParser) fail(kind error, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:      kind,
		Operation: p.src,
		Offset:    p.pos,
		Message:   fmt.Sprintf(format, args...),
	}
}

func (p *opParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *opParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *opParser) expect(c byte) error {
	if p.peek() != c {
		if p.pos >= len(p.src) {
			return p.fail(ErrSyntax, "expected %q, got end of input", c)
		}
		return p.fail(ErrSyntax, "expected %q, got %q", c, p.src[p.pos])
	}
	p.pos++
	return nil
}

func (p *opParser) ident() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos], p.pos == start) {
		p.pos++
	}
	if p.pos == start {
		return "", p.fail(ErrSyntax, "expected identifier")
	}
	return p.src[start:p.pos], nil
}

func (p *opParser) expr() (*Call, error) {
	pkg, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expect('.'); err != nil {
		return nil, err
	}
	fn, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}

	call := &Call{Package: pkg, Function: fn}
	if p.peek() == ')' {
		p.pos++
		return call, nil
	}
	for {
		arg, err := p.arg()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return call, nil
		case 0:
			return nil, p.fail(ErrSyntax, "unterminated argument list")
		default:
			return nil, p.fail(ErrSyntax, "expected ',' or ')', got %q", p.src[p.pos])
		}
	}
}

func (p *opParser) arg() (Arg, error) {
	c := p.peek()
	if c == '-' || (c >= '0' && c <= '9') {
		return p.index()
	}
	if isIdentByte(c, true) {
		sub, err := p.expr()
		if err != nil {
			return Arg{}, err
		}
		return Arg{Kind: ArgCall, Call: sub}, nil
	}
	if c == 0 {
		return Arg{}, p.fail(ErrSyntax, "expected argument, got end of input")
	}
	return Arg{}, p.fail(ErrSyntax, "unexpected %q in argument", c)
}

func (p *opParser) index() (Arg, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	text := p.src[start:p.pos]
	n, err := strconv.Atoi(text)
	if err != nil {
		p.pos = start
		return Arg{}, p.fail(ErrSyntax, "invalid integer %q", text)
	}
	switch {
	case n >= 0 && n < p.numIn:
		return Arg{Kind: ArgInput, Index: n}, nil
	case n >= p.numIn && n < p.numIn+p.numOut:
		return Arg{Kind: ArgOutput, Index: n - p.numIn}, nil
	}
	p.pos = start
	return Arg{}, p.fail(ErrIndex, "%d not in [0,%d)", n, p.numIn+p.numOut)
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}
