package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a failure of a whole run.
//
// Runtime errors include:
//   - Quota exceeded: the run pulled more blocks than allowed
//   - Missing block: an edit or run referred to a block that is not there
//   - Run in progress: a second run was started on a busy engine
//   - No sink: the graph has no Outputs/Bob block
//   - Resolver failed: a block's resolver returned an error
//   - Native unavailable: the native module handshake failed
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Block is the graph id of the affected block, or -1.
	Block int

	// BlockID is the "Package/Name" of the affected block, if known.
	BlockID string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates the run exceeded max pulls.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeMissingBlock indicates a block id or definition does not exist.
	ErrCodeMissingBlock RuntimeErrorCode = "MISSING_BLOCK"

	// ErrCodeRunInProgress indicates the engine is already running.
	ErrCodeRunInProgress RuntimeErrorCode = "RUN_IN_PROGRESS"

	// ErrCodeNoSink indicates the graph has nothing to pull from.
	ErrCodeNoSink RuntimeErrorCode = "NO_SINK"

	// ErrCodeResolverFailed indicates a block resolver returned an error.
	ErrCodeResolverFailed RuntimeErrorCode = "RESOLVER_FAILED"

	// ErrCodeNativeUnavailable indicates the native module could not be loaded.
	ErrCodeNativeUnavailable RuntimeErrorCode = "NATIVE_UNAVAILABLE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.BlockID != "" {
		msg = fmt.Sprintf("%s (block=%d %s)", msg, e.Block, e.BlockID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and PullsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == ErrCodeQuotaExceeded {
		return true
	}
	return IsPullsExceededError(err)
}

// HasCode reports whether err is a RuntimeError with the given code.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == code
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(block int, blockID string, cause *PullsExceededError) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("run exceeded max pulls (%d > %d)", cause.Pulls, cause.Limit),
		Block:   block,
		BlockID: blockID,
		Details: map[string]string{
			"pulls":     fmt.Sprintf("%d", cause.Pulls),
			"max_pulls": fmt.Sprintf("%d", cause.Limit),
		},
		Err: cause,
	}
}

// NewMissingBlockError creates a RuntimeError for an unknown block.
func NewMissingBlockError(block int, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeMissingBlock,
		Message: fmt.Sprintf(format, args...),
		Block:   block,
	}
}

// NewResolverError wraps a block resolver failure.
func NewResolverError(block int, blockID string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeResolverFailed,
		Message: "block resolver failed",
		Block:   block,
		BlockID: blockID,
		Err:     err,
	}
}
