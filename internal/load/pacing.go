package load

import (
	"fmt"
	"math/rand"
	"time"
)

// PacingType identifies how a worker waits between iterations.
type PacingType string

const (
	PacingNone     PacingType = "none"
	PacingConstant PacingType = "constant"
	PacingRandom   PacingType = "random"
)

// Default think time bounds between two iterations of a worker.
const (
	DefaultMinDelay = 100 * time.Millisecond
	DefaultMaxDelay = 500 * time.Millisecond
)

// Pacing controls the think time between iterations.
type Pacing struct {
	// Type of pacing: "none", "constant", "random"
	Type PacingType `json:"type" yaml:"type"`

	// Duration for constant pacing
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`

	// Min and Max bound random pacing (both inclusive)
	Min time.Duration `json:"min,omitempty" yaml:"min,omitempty"`
	Max time.Duration `json:"max,omitempty" yaml:"max,omitempty"`
}

// DefaultPacing returns a uniform random think time of 100ms to 500ms.
func DefaultPacing() Pacing {
	return RandomPacing(DefaultMinDelay, DefaultMaxDelay)
}

// RandomPacing returns a uniform random think time in [min, max].
func RandomPacing(min, max time.Duration) Pacing {
	return Pacing{Type: PacingRandom, Min: min, Max: max}
}

// Validate checks the pacing bounds.
func (p Pacing) Validate() error {
	switch p.Type {
	case "", PacingNone:
	case PacingConstant:
		if p.Duration < 0 {
			return &OptionError{Field: "pacing.duration", Message: "must be >= 0"}
		}
	case PacingRandom:
		if p.Min < 0 {
			return &OptionError{Field: "pacing.min", Message: "must be >= 0"}
		}
		if p.Min > p.Max {
			return &OptionError{Field: "pacing.max", Message: fmt.Sprintf("must be >= min (%v)", p.Min)}
		}
	default:
		return &OptionError{Field: "pacing.type", Message: "unknown pacing type: " + string(p.Type)}
	}
	return nil
}

// Next returns the next think time drawn from rng.
func (p Pacing) Next(rng *rand.Rand) time.Duration {
	switch p.Type {
	case PacingConstant:
		return p.Duration
	case PacingRandom:
		diff := p.Max - p.Min
		if diff > 0 {
			return p.Min + time.Duration(rng.Int63n(int64(diff)+1))
		}
		return p.Min
	default:
		return 0
	}
}
