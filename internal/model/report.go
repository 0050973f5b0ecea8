package model

import "time"

// OutcomeStatus classifies the result of a single operation
type OutcomeStatus string

const (
	StatusOK       OutcomeStatus = "ok"       // Completed as requested
	StatusDegraded OutcomeStatus = "degraded" // Completed with partial or fallback output
	StatusFailed   OutcomeStatus = "failed"   // Did not complete; the batch carried on
)

// Outcome records what happened to one unit of work inside a batch
type Outcome struct {
	Op     string        `json:"op" yaml:"op"`         // e.g. "upsert_extracted", "add_property"
	Target string        `json:"target" yaml:"target"` // Article id or property key
	Status OutcomeStatus `json:"status" yaml:"status"`
	Detail string        `json:"detail,omitempty" yaml:"detail,omitempty"`
	Err    error         `json:"-" yaml:"-"`
}

// Failed builds a failed outcome from an error
func Failed(op, target string, err error) Outcome {
	o := Outcome{Op: op, Target: target, Status: StatusFailed, Err: err}
	if err != nil {
		o.Detail = err.Error()
	}
	return o
}

// ImportReport summarizes one import pass
type ImportReport struct {
	RunID         string                  `json:"run_id" yaml:"run_id"`
	StartedAt     time.Time               `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time               `json:"finished_at" yaml:"finished_at"`
	Articles      int                     `json:"articles" yaml:"articles"`
	Properties    int                     `json:"properties" yaml:"properties"`
	NewProperties []PropertyKey           `json:"new_properties,omitempty" yaml:"new_properties,omitempty"`
	Registered    int                     `json:"registered" yaml:"registered"` // New definitions actually inserted
	Suggestions   map[string][]Suggestion `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	Diagnostics   []string                `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Failures      int                     `json:"failures" yaml:"failures"`
	Outcomes      []Outcome               `json:"outcomes,omitempty" yaml:"outcomes,omitempty"` // Failed and degraded only
}

// Record appends a non-ok outcome and counts failures
func (r *ImportReport) Record(o Outcome) {
	if o.Status == StatusOK {
		return
	}
	if o.Status == StatusFailed {
		r.Failures++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// ExportReport summarizes one export pass
type ExportReport struct {
	Articles int       `json:"articles" yaml:"articles"`
	Columns  int       `json:"columns" yaml:"columns"`
	Failures int       `json:"failures" yaml:"failures"`
	Outcomes []Outcome `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
}

// Record appends a non-ok outcome and counts failures
func (r *ExportReport) Record(o Outcome) {
	if o.Status == StatusOK {
		return
	}
	if o.Status == StatusFailed {
		r.Failures++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// ImportRun is the persisted record of one import pass
type ImportRun struct {
	ID         string    `json:"id" yaml:"id"`
	Source     string    `json:"source" yaml:"source"` // Input file or "-" for stdin
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Articles   int       `json:"articles" yaml:"articles"`
	Failures   int       `json:"failures" yaml:"failures"`
}
