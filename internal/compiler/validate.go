package compiler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/cipherflow/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrFieldInvalid     = "E100" // struct tag constraint failed
	ErrOperationInvalid = "E101" // operation does not parse against the port counts
	ErrFormatRefInvalid = "E102" // "iN" format refers to a missing input
	ErrSizeRefInvalid   = "E103" // "iN" size refers to a missing input
	ErrInternalInput    = "E104" // internal flag on an input port
)

// ValidationError represents a block declaration validation error.
type ValidationError struct {
	Block   string `json:"block"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Block, e.Field, e.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("portformat", func(fl validator.FieldLevel) bool {
		return ir.Format(fl.Field().String()).Valid()
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateBlock checks a compiled block declaration.
// Returns all errors found (does not fail-fast).
func ValidateBlock(decl ir.BlockDecl) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Block:   decl.ID(),
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	if err := validate.Struct(decl); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				add(trimNamespace(fe.Namespace()), ErrFieldInvalid, "%s", fieldMessage(fe))
			}
		} else {
			add("block", ErrFieldInvalid, "%v", err)
		}
	}

	if decl.Operation != "" {
		if _, err := ParseOperation(decl.Operation, len(decl.Inputs), len(decl.Outputs)); err != nil {
			add("operation", ErrOperationInvalid, "%v", err)
		}
	}

	check := func(side string, ports []ir.Port) {
		for i, p := range ports {
			field := fmt.Sprintf("%s[%d]", side, i)
			if n, ok := p.Format.InputRef(); ok && n >= len(decl.Inputs) {
				add(field+".format", ErrFormatRefInvalid, "format %q refers to input %d of %d", p.Format, n, len(decl.Inputs))
			}
			if p.Size.Mode == ir.SizeInput && p.Size.N >= len(decl.Inputs) {
				add(field+".size", ErrSizeRefInvalid, "size %q refers to input %d of %d", p.Size, p.Size.N, len(decl.Inputs))
			}
		}
	}
	check("inputs", decl.Inputs)
	check("outputs", decl.Outputs)

	for i, p := range decl.Inputs {
		if p.Internal {
			add(fmt.Sprintf("inputs[%d].internal", i), ErrInternalInput, "only outputs can be internal")
		}
	}

	return errs
}

// trimNamespace drops the leading struct name from a validator namespace.
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "portformat":
		return fmt.Sprintf("invalid format %q: want number, bytearr, inherit or iN", fe.Value())
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}
