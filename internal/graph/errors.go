package graph

import (
	"errors"
	"fmt"
)

// Structural fault kinds.
var (
	ErrGraphCollision   = errors.New("graph collision")
	ErrOutOfBoundGraph  = errors.New("block out of graph bounds")
	ErrIndex            = errors.New("no block at index")
	ErrOutOfBoundBucket = errors.New("port out of bounds")
	ErrImpossibleEdge   = errors.New("impossible edge")
	ErrDoubleEdge       = errors.New("double edge")
)

// GraphError is a failed graph edit.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *GraphError) Unwrap() error {
	return e.Kind
}

func fail(kind error, format string, args ...any) *GraphError {
	return &GraphError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
