// Package load provides the weighted scenario scheduler and the concurrent
// execution harness that drives it.
//
// A run is made of:
//   - a ScenarioSet: labelled actions with relative selection weights
//   - a pool of workers, each drawing scenarios from the set and pacing
//     itself with a random think time between iterations
//   - a Driver that starts the workers against a shared deadline and merges
//     their Outcomes once every worker has returned
package load

import (
	"time"
)

// Outcome is the record of one scenario execution.
//
// An Outcome is either a completed call (Status and Elapsed set) or an error
// marker (Failure set, Status and Elapsed zero). Use NewSuccess and
// NewFailure to build one.
type Outcome struct {
	// Scenario is the label of the executed entry
	Scenario string `json:"scenario"`

	// Status is the HTTP status code (or action specific status) of a completed call
	Status int `json:"status,omitempty"`

	// Elapsed is the measured call time of a completed call
	Elapsed time.Duration `json:"elapsed,omitempty"`

	// Failure holds the error detail of a failed call
	Failure string `json:"failure,omitempty"`

	// Bookkeeping, filled in by the worker
	Worker    int       `json:"worker"`
	Iteration int64     `json:"iteration"`
	Start     time.Time `json:"start"`
}

// NewSuccess returns the Outcome of a call that completed with a status.
// Non-2xx statuses are still completed calls.
func NewSuccess(label string, status int, elapsed time.Duration) Outcome {
	if elapsed < 0 {
		elapsed = 0
	}
	return Outcome{
		Scenario: label,
		Status:   status,
		Elapsed:  elapsed,
	}
}

// NewFailure returns the error marker Outcome for a call that could not be
// completed.
func NewFailure(label string, err error) Outcome {
	detail := "unknown error"
	if err != nil && err.Error() != "" {
		detail = err.Error()
	}
	return Outcome{
		Scenario: label,
		Failure:  detail,
	}
}

// IsError reports whether the outcome is an error marker.
func (o Outcome) IsError() bool {
	return o.Failure != ""
}

// Succeeded reports whether the call completed with a status below 400.
func (o Outcome) Succeeded() bool {
	return !o.IsError() && o.Status < 400
}

// HasElapsed reports whether the outcome carries a latency measurement.
func (o Outcome) HasElapsed() bool {
	return !o.IsError()
}
