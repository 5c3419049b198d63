package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/wesleyorama2/mixload/internal/report"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// Validate validates the configuration after defaults have been applied.
//
// Returns nil if valid, or a *ValidationErrors containing all problems.
func (c *TestConfig) Validate() error {
	errs := &ValidationErrors{}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add("baseUrl", fmt.Sprintf("must be an absolute http(s) URL, got %q", c.BaseURL))
	}
	if c.Duration < 0 {
		errs.Add("duration", "must be >= 0")
	}
	if c.Workers != nil && *c.Workers < 0 {
		errs.Add("workers", "must be >= 0")
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "must be >= 0")
	}
	if c.MaxRPS < 0 || math.IsNaN(c.MaxRPS) || math.IsInf(c.MaxRPS, 0) {
		errs.Add("maxRps", "must be a finite number >= 0")
	}
	if c.Pacing != nil {
		if c.Pacing.Min < 0 {
			errs.Add("pacing.min", "must be >= 0")
		}
		if c.Pacing.Max < c.Pacing.Min {
			errs.Add("pacing.max", "must be >= pacing.min")
		}
	}

	for i, expr := range c.Thresholds {
		if err := report.ValidateThreshold(expr); err != nil {
			errs.Add(fmt.Sprintf("thresholds[%d]", i), err.Error())
		}
	}

	c.validateScenarios(errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (c *TestConfig) validateScenarios(errs *ValidationErrors) {
	if len(c.Scenarios) == 0 {
		errs.Add("scenarios", "at least one scenario is required")
		return
	}

	seen := make(map[string]int)
	sum := 0.0
	for i, sc := range c.Scenarios {
		field := fmt.Sprintf("scenarios[%d]", i)

		if sc.Name == "" {
			errs.Add(field+".name", "name is required")
		} else if prev, dup := seen[sc.Name]; dup {
			errs.Add(field+".name", fmt.Sprintf("duplicate name %q (also scenarios[%d])", sc.Name, prev))
		} else {
			seen[sc.Name] = i
		}

		if math.IsNaN(sc.Weight) || math.IsInf(sc.Weight, 0) || sc.Weight < 0 {
			errs.Add(field+".weight", "must be a finite number >= 0")
		} else {
			sum += sc.Weight
		}

		if sc.Method != "" && !knownMethods[strings.ToUpper(sc.Method)] {
			errs.Add(field+".method", fmt.Sprintf("unsupported method %q", sc.Method))
		}

		if sc.Path == "" {
			errs.Add(field+".path", "path is required")
		} else if !strings.HasPrefix(sc.Path, "/") {
			if u, err := url.Parse(sc.Path); err != nil || u.Scheme == "" || u.Host == "" {
				errs.Add(field+".path", "must start with / or be an absolute URL")
			}
		}
	}

	if sum == 0 {
		errs.Add("scenarios", "at least one scenario needs a weight > 0")
	}
}
