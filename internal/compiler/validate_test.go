package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cipherflow/internal/ir"
)

func validDecl() ir.BlockDecl {
	return ir.BlockDecl{
		Package:   "Bitwise",
		Name:      "XOR",
		Operation: "util.XOR(0,1,2)",
		Inputs: []ir.Port{
			{Side: ir.SideLeft, Format: ir.FormatBytes},
			{Side: ir.SideLeft, Position: 1, Format: ir.FormatBytes},
		},
		Outputs: []ir.Port{{Side: ir.SideRight, Format: "i0", Size: ir.MaxSize()}},
	}
}

func TestValidateBlock_Valid(t *testing.T) {
	assert.Empty(t, ValidateBlock(validDecl()))
}

func TestValidateBlock_StructTags(t *testing.T) {
	d := validDecl()
	d.Name = ""
	d.Inputs[0].Side = "middle"
	d.Inputs[1].Format = "float"
	d.Width = -1

	errs := ValidateBlock(d)
	require.Len(t, errs, 4)
	fields := make(map[string]string)
	for _, e := range errs {
		assert.Equal(t, ErrFieldInvalid, e.Code)
		fields[e.Field] = e.Message
	}
	assert.Equal(t, "field is required", fields["name"])
	assert.Contains(t, fields["inputs[0].side"], "must be one of")
	assert.Contains(t, fields["inputs[1].format"], "invalid format")
	assert.Equal(t, "must be at least 0", fields["width"])
}

func TestValidateBlock_Operation(t *testing.T) {
	d := validDecl()
	d.Operation = "util.XOR(0,1,7)"

	errs := ValidateBlock(d)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrOperationInvalid, errs[0].Code)
}

func TestValidateBlock_References(t *testing.T) {
	d := validDecl()
	d.Outputs[0].Format = "i5"
	d.Outputs[0].Size = ir.InputSize(2)
	d.Inputs[0].Internal = true

	errs := ValidateBlock(d)
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{ErrFormatRefInvalid, ErrSizeRefInvalid, ErrInternalInput}, codes)
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Block: "a/b", Field: "operation", Message: "bad", Code: ErrOperationInvalid}
	assert.Equal(t, "[E101] a/b: operation: bad", e.Error())
}
