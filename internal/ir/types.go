package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Side is the edge of a block a port is drawn on.
type Side string

const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
	SideRight  Side = "right"
)

// Format is a port's value format tag.
//
// The tag is one of "number", "bytearr", "inherit", or "iN" which means
// "same format as input N".
type Format string

const (
	FormatNumber  Format = "number"
	FormatBytes   Format = "bytearr"
	FormatInherit Format = "inherit"
)

// InputRef returns N for an "iN" format reference.
func (f Format) InputRef() (int, bool) {
	return parseInputRef(string(f))
}

// Valid reports whether f is a recognised tag.
func (f Format) Valid() bool {
	switch f {
	case FormatNumber, FormatBytes, FormatInherit:
		return true
	}
	_, ok := f.InputRef()
	return ok
}

// SizeMode says how a port's byte size is determined.
type SizeMode uint8

const (
	// SizeUnset behaves like SizeMax.
	SizeUnset SizeMode = iota
	SizeFixed
	SizeMax
	SizeInput
)

// Size is a port's declared byte size: a fixed count, "max", an input
// reference "iN", or unset.
type Size struct {
	Mode SizeMode
	N    int // byte count for SizeFixed, input index for SizeInput
}

// FixedSize declares a size of exactly n bytes.
func FixedSize(n int) Size { return Size{Mode: SizeFixed, N: n} }

// MaxSize declares the "max" rule.
func MaxSize() Size { return Size{Mode: SizeMax} }

// InputSize declares that the port inherits input n's runtime size.
func InputSize(n int) Size { return Size{Mode: SizeInput, N: n} }

// ParseSize converts a declared size (integer, "max", "iN" or nil) into a Size.
func ParseSize(v any) (Size, error) {
	switch x := v.(type) {
	case nil:
		return Size{}, nil
	case int:
		return sizeFromInt(int64(x))
	case int64:
		return sizeFromInt(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "max" {
			return MaxSize(), nil
		}
		if n, ok := parseInputRef(s); ok {
			return InputSize(n), nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return sizeFromInt(n)
		}
		return Size{}, fmt.Errorf("invalid size %q: want a positive integer, \"max\" or \"iN\"", x)
	}
	return Size{}, fmt.Errorf("invalid size type %T", v)
}

func sizeFromInt(n int64) (Size, error) {
	if n <= 0 {
		return Size{}, fmt.Errorf("invalid size %d: must be positive", n)
	}
	return FixedSize(int(n)), nil
}

// String renders the declared form.
func (s Size) String() string {
	switch s.Mode {
	case SizeFixed:
		return strconv.Itoa(s.N)
	case SizeMax:
		return "max"
	case SizeInput:
		return "i" + strconv.Itoa(s.N)
	}
	return ""
}

func parseInputRef(s string) (int, bool) {
	if len(s) < 2 || s[0] != 'i' {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Port describes one connection point of a block.
type Port struct {
	Side     Side   `json:"side,omitempty" validate:"omitempty,oneof=top bottom left right"`
	Position int    `json:"position" validate:"gte=0"`
	Format   Format `json:"format" validate:"required,portformat"`
	Size     Size   `json:"-"`
	Default  Value  `json:"-"`
	Label    string `json:"label,omitempty"`

	// Required defaults to true when nil.
	Required *bool `json:"required,omitempty"`

	// Internal marks an output that only serves as a scratch buffer for
	// the operation; it cannot be wired.
	Internal bool `json:"internal,omitempty"`
}

// IsRequired reports whether the port must be connected (or defaulted).
func (p Port) IsRequired() bool {
	return p.Required == nil || *p.Required
}

// Optional returns a pointer to false for Port.Required.
func Optional() *bool {
	b := false
	return &b
}

// BlockDecl is a block as declared in a library: identity, operation and
// port layout.
type BlockDecl struct {
	Package     string `json:"package" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Operation   string `json:"operation,omitempty"`
	Description string `json:"description,omitempty"`
	Label       string `json:"label,omitempty"`
	Width       int    `json:"width" validate:"gte=0"`
	Height      int    `json:"height" validate:"gte=0"`
	Inputs      []Port `json:"inputs" validate:"dive"`
	Outputs     []Port `json:"outputs" validate:"dive"`
}

// ID returns the "Package/Name" identity of the block.
func (d BlockDecl) ID() string {
	return d.Package + "/" + d.Name
}
