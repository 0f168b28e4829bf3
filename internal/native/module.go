package native

import (
	"context"
	"errors"
)

// Sentinel errors returned by modules.
var (
	ErrUnknownFunction = errors.New("unknown native function")
	ErrArgCount        = errors.New("wrong number of arguments")
	ErrOutOfBounds     = errors.New("memory access out of bounds")
	ErrInvalidFree     = errors.New("free of unallocated pointer")
	ErrClosed          = errors.New("module closed")
)

// ArgType is the calling convention of one argument.
type ArgType uint8

const (
	// ArgNumber is passed by value as a 32-bit integer.
	ArgNumber ArgType = iota + 1

	// ArgPointer is an address into the module's memory.
	ArgPointer
)

// ReturnType is the calling convention of a function result.
type ReturnType uint8

const (
	ReturnVoid ReturnType = iota
	ReturnNumber
)

// Memory is a module's flat addressable byte region.
type Memory interface {
	// Read copies n bytes starting at ptr.
	Read(ptr, n uint32) ([]byte, error)

	// Write copies b into memory starting at ptr.
	Write(ptr uint32, b []byte) error
}

// Module is the native computation boundary used by the interpreter.
//
// Arguments are raw 32-bit words: numbers by value, buffers by pointer.
// Every pointer returned by Malloc must be released with Free.
type Module interface {
	Call(ctx context.Context, name string, ret ReturnType, argTypes []ArgType, args []uint64) (uint64, error)
	Malloc(ctx context.Context, size uint32) (uint32, error)
	Free(ctx context.Context, ptr uint32) error
	Memory() Memory
	Close(ctx context.Context) error
}

// EncodeNumber converts a signed number into an argument word.
func EncodeNumber(n int64) uint64 {
	return uint64(uint32(int32(n)))
}

// DecodeNumber converts a returned word back into a signed number.
func DecodeNumber(w uint64) int64 {
	return int64(int32(uint32(w)))
}
