package harness

import (
	"github.com/roach88/crate/internal/record"
)

// Step kinds recorded in the trace.
const (
	StepImport = "import"
	StepReopen = "reopen"
)

// CaseSuccess is the output case of a step that did not fail.
const CaseSuccess = "Success"

// TraceEvent records the outcome of one flow step.
type TraceEvent struct {
	Seq        int64  `json:"seq"`
	Step       string `json:"step"`
	Source     string `json:"source,omitempty"`
	Version    int    `json:"version,omitempty"`
	OutputCase string `json:"output_case"`
	BatchID    string `json:"batch_id,omitempty"`
	Records    int    `json:"records,omitempty"`
	FirstID    int64  `json:"first_id,omitempty"`
	LastID     int64  `json:"last_id,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Records is the final enumeration shown to the display consumer.
	Records []record.Record `json:"records"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Records: []record.Record{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
