package load

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// weightTolerance is how far the declared weight sum may drift from 1 before
// the set is normalised.
const weightTolerance = 1e-6

// ErrInvalidScenarioSet is returned (wrapped) for any ScenarioSet that cannot
// be used for selection.
var ErrInvalidScenarioSet = errors.New("invalid scenario set")

// Result is what an Action reports for one completed call.
type Result struct {
	Status  int
	Elapsed time.Duration
}

// Action performs one scenario call.
//
// Execute returns an error only when the call could not be completed
// (connection refused, timeout, malformed request). An HTTP error status is
// a completed call and must be reported in Result.
type Action interface {
	Execute(ctx context.Context) (Result, error)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context) (Result, error)

// Execute calls f(ctx).
func (f ActionFunc) Execute(ctx context.Context) (Result, error) {
	return f(ctx)
}

// Entry is one scenario in a ScenarioSet.
type Entry struct {
	Label  string
	Weight float64
	Action Action
}

// ScenarioSet is an ordered, immutable collection of weighted entries.
// It is safe to share between workers.
type ScenarioSet struct {
	entries     []Entry
	declaredSum float64
	normalized  bool
}

// NewScenarioSet validates entries and builds a set from them.
//
// Declaration order is kept since selection walks the cumulative weights in
// that order. When the weights do not add up to 1 they are rescaled so that
// they do; Normalized reports when that happened.
func NewScenarioSet(entries ...Entry) (*ScenarioSet, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: at least one scenario is required", ErrInvalidScenarioSet)
	}

	seen := make(map[string]struct{}, len(entries))
	sum := 0.0
	for i, e := range entries {
		if e.Label == "" {
			return nil, fmt.Errorf("%w: scenario %d has no label", ErrInvalidScenarioSet, i)
		}
		if _, dup := seen[e.Label]; dup {
			return nil, fmt.Errorf("%w: duplicate scenario label %q", ErrInvalidScenarioSet, e.Label)
		}
		seen[e.Label] = struct{}{}

		if e.Action == nil {
			return nil, fmt.Errorf("%w: scenario %q has no action", ErrInvalidScenarioSet, e.Label)
		}
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight < 0 {
			return nil, fmt.Errorf("%w: scenario %q has invalid weight %v", ErrInvalidScenarioSet, e.Label, e.Weight)
		}
		sum += e.Weight
	}
	if sum == 0 {
		return nil, fmt.Errorf("%w: all weights are zero", ErrInvalidScenarioSet)
	}

	set := &ScenarioSet{
		entries:     make([]Entry, len(entries)),
		declaredSum: sum,
	}
	copy(set.entries, entries)

	if math.Abs(sum-1) > weightTolerance {
		for i := range set.entries {
			set.entries[i].Weight /= sum
		}
		set.normalized = true
	}

	return set, nil
}

// Len returns the number of entries.
func (s *ScenarioSet) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries in declaration order.
func (s *ScenarioSet) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Labels returns the entry labels in declaration order.
func (s *ScenarioSet) Labels() []string {
	labels := make([]string, len(s.entries))
	for i, e := range s.entries {
		labels[i] = e.Label
	}
	return labels
}

// Normalized reports whether the declared weights were rescaled.
func (s *ScenarioSet) Normalized() bool {
	return s.normalized
}

// DeclaredWeightSum returns the weight sum before any normalisation.
func (s *ScenarioSet) DeclaredWeightSum() float64 {
	return s.declaredSum
}

// Pick returns the entry chosen by the uniform draw r in [0, 1).
func (s *ScenarioSet) Pick(r float64) Entry {
	return s.entries[Select(s.entries, r)]
}
