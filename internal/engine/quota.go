package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts block pulls during one run and enforces a maximum.
//
// A cycle whose inputs are all required and have no default never stops
// pulling. Verify rejects such graphs statically; the quota is what ends
// a run when Verify was skipped or a cycle only starves at runtime.
type QuotaEnforcer struct {
	maxPulls int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxPulls int) *QuotaEnforcer {
	return &QuotaEnforcer{maxPulls: maxPulls}
}

// Check counts one pull and validates it against the limit.
//
// Returns PullsExceededError once the count passes the limit.
func (q *QuotaEnforcer) Check(block string) error {
	q.current++
	if q.current > q.maxPulls {
		return &PullsExceededError{
			Block: block,
			Pulls: q.current,
			Limit: q.maxPulls,
		}
	}
	return nil
}

// Reset resets the pull counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current pull count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxPulls returns the limit.
func (q *QuotaEnforcer) MaxPulls() int {
	return q.maxPulls
}

// PullsExceededError is returned when a run exceeds the pull quota.
type PullsExceededError struct {
	Block string // the block whose pull went over
	Pulls int
	Limit int
}

// Error implements the error interface.
func (e *PullsExceededError) Error() string {
	return fmt.Sprintf("pulling %s exceeded max pulls quota: %d pulls > %d limit",
		e.Block, e.Pulls, e.Limit)
}

// IsPullsExceededError returns true if the error is a PullsExceededError.
// Uses errors.As to handle wrapped errors.
func IsPullsExceededError(err error) bool {
	var pe *PullsExceededError
	return errors.As(err, &pe)
}
