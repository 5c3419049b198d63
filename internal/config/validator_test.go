package config

import (
	"math"
	"strings"
	"testing"
)

func validConfig() *TestConfig {
	cfg := DefaultConfig()
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.WorkerCount() != DefaultWorkers {
		t.Errorf("WorkerCount() = %d, want %d", cfg.WorkerCount(), DefaultWorkers)
	}

	sum := 0.0
	for _, sc := range cfg.Scenarios {
		sum += sc.Weight
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("default weights sum to %v, want 1", sum)
	}
}

func TestTestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TestConfig)
		field  string
	}{
		{"relative base url", func(c *TestConfig) { c.BaseURL = "localhost:8080" }, "baseUrl"},
		{"ftp base url", func(c *TestConfig) { c.BaseURL = "ftp://host" }, "baseUrl"},
		{"negative workers", func(c *TestConfig) { n := -1; c.Workers = &n }, "workers"},
		{"negative timeout", func(c *TestConfig) { c.Timeout = -1 }, "timeout"},
		{"infinite rps", func(c *TestConfig) { c.MaxRPS = math.Inf(1) }, "maxRps"},
		{"pacing inverted", func(c *TestConfig) { c.Pacing.Min, c.Pacing.Max = c.Pacing.Max, c.Pacing.Min }, "pacing.max"},
		{"bad threshold", func(c *TestConfig) { c.Thresholds = []string{"speed > fast"} }, "thresholds[0]"},
		{"no scenarios", func(c *TestConfig) { c.Scenarios = nil }, "scenarios"},
		{"duplicate name", func(c *TestConfig) { c.Scenarios[1].Name = c.Scenarios[0].Name }, "scenarios[1].name"},
		{"NaN weight", func(c *TestConfig) { c.Scenarios[2].Weight = math.NaN() }, "scenarios[2].weight"},
		{"unknown method", func(c *TestConfig) { c.Scenarios[0].Method = "FETCH" }, "scenarios[0].method"},
		{"relative path", func(c *TestConfig) { c.Scenarios[3].Path = "api/users" }, "scenarios[3].path"},
		{"all zero weights", func(c *TestConfig) {
			for i := range c.Scenarios {
				c.Scenarios[i].Weight = 0
			}
		}, "scenarios"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}

			verrs, ok := err.(*ValidationErrors)
			if !ok {
				t.Fatalf("Validate() error type = %T, want *ValidationErrors", err)
			}

			found := false
			for _, e := range verrs.Errors {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error on field %q: %v", tt.field, err)
			}
		})
	}
}

func TestTestConfig_ValidateAbsolutePath(t *testing.T) {
	cfg := validConfig()
	cfg.Scenarios[0].Path = "https://other.example.com/api/users"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for absolute scenario URL", err)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := &ValidationErrors{}
	if errs.Error() != "no validation errors" {
		t.Errorf("empty Error() = %q", errs.Error())
	}

	errs.Add("workers", "must be >= 0")
	if got := errs.Error(); got != "validation error on field 'workers': must be >= 0" {
		t.Errorf("single Error() = %q", got)
	}

	errs.Add("", "something else")
	got := errs.Error()
	if !strings.HasPrefix(got, "2 validation errors:\n") {
		t.Errorf("multi Error() = %q", got)
	}
	if !strings.Contains(got, "  2. validation error: something else") {
		t.Errorf("multi Error() missing second entry: %q", got)
	}
}
