// Package config provides the test configuration for mixload: the YAML/JSON
// file format, its validation and the built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TestConfig is the root configuration of a load test.
type TestConfig struct {
	// Name of the test (shown in the console header)
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description of the test
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// BaseURL is prepended to every scenario path
	BaseURL string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`

	// Duration of the run (e.g., "60s", "2m", or an integer number of seconds)
	Duration Duration `json:"duration,omitempty" yaml:"duration,omitempty"`

	// Workers is the number of concurrent loops
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Pacing bounds the think time between iterations of a worker
	Pacing *PacingConfig `json:"pacing,omitempty" yaml:"pacing,omitempty"`

	// Timeout bounds every single call
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxRPS caps the global call rate (0 = unlimited)
	MaxRPS float64 `json:"maxRps,omitempty" yaml:"maxRps,omitempty"`

	// Seed for the worker random sources (0 = time based)
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Headers are applied to every request
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Thresholds are pass/fail expressions such as "p95 < 500ms"
	Thresholds []string `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`

	// Scenarios is the weighted mix, in selection order
	Scenarios []ScenarioConfig `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
}

// PacingConfig controls time between iterations.
type PacingConfig struct {
	// Min is the minimum wait time
	Min Duration `json:"min,omitempty" yaml:"min,omitempty"`

	// Max is the maximum wait time
	Max Duration `json:"max,omitempty" yaml:"max,omitempty"`
}

// ScenarioConfig defines one weighted request type.
type ScenarioConfig struct {
	// Name is the scenario label used in reports
	Name string `json:"name" yaml:"name"`

	// Weight is the selection probability (normalised if the mix does not add up to 1)
	Weight float64 `json:"weight" yaml:"weight"`

	// Method is the HTTP method (default GET, or POST when a body is set)
	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	// Path is appended to BaseURL; absolute URLs are used as-is
	Path string `json:"path" yaml:"path"`

	// Body is a template rendered on every call
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	// Headers are request-specific headers
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Duration is a time.Duration that reads "30s"-style strings or an integer
// number of seconds from YAML and JSON.
type Duration time.Duration

// ParseDuration parses a Go duration string or an integer number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	seconds, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}
	return time.Duration(seconds) * time.Second, nil
}

// GetDuration returns the duration or a default if empty.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}

	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}

	dur, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(dur)
	return nil
}
