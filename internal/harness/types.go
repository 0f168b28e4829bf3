package harness

import "strings"

// TraceEvent is one block pull with its outputs rendered for comparison.
type TraceEvent struct {
	Seq     int64    `json:"seq"`
	Block   int      `json:"block"`
	Name    string   `json:"name"`
	Outputs []string `json:"outputs"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace lists the block pulls in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains the failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Success is true when the sink received a value and the run
	// returned no error.
	Success bool `json:"success"`

	// Sink is the rendered sink value, "<none>" when the run failed.
	Sink string `json:"sink"`

	// Diagnostics are the reporter messages of the run.
	Diagnostics []string `json:"diagnostics,omitempty"`

	// Problems are what Verify reported before the run.
	Problems []string `json:"problems,omitempty"`

	// ErrorCode is the engine error code when the run failed.
	ErrorCode string `json:"error_code,omitempty"`

	RunID string `json:"run_id"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Warnings returns the diagnostics reported as warnings.
func (r *Result) Warnings() []string {
	var out []string
	for _, d := range r.Diagnostics {
		if strings.HasPrefix(d, warningPrefix) {
			out = append(out, d)
		}
	}
	return out
}

const warningPrefix = "[WARNING]"
