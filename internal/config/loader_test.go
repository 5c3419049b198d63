package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: Checkout mix
baseUrl: http://shop.local:9090/
duration: 2m
workers: 20
pacing:
  min: 50ms
  max: 200ms
timeout: 5
maxRps: 100
headers:
  X-Load-Test: mixload
thresholds:
  - "successRate >= 95"
  - "p95 < 800ms"
scenarios:
  - name: browse
    weight: 0.7
    path: /api/products
  - name: buy
    weight: 0.3
    path: /api/orders
    body: '{"userId": {{randomInt 1 100}}}'
`

func TestParseConfig_YAML(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleYAML), "test.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Checkout mix", cfg.Name)
	assert.Equal(t, 2*time.Minute, time.Duration(cfg.Duration))
	require.NotNil(t, cfg.Workers)
	assert.Equal(t, 20, *cfg.Workers)
	assert.Equal(t, 50*time.Millisecond, time.Duration(cfg.Pacing.Min))
	assert.Equal(t, 200*time.Millisecond, time.Duration(cfg.Pacing.Max))
	assert.Equal(t, 5*time.Second, time.Duration(cfg.Timeout), "integer durations are seconds")
	assert.Equal(t, 100.0, cfg.MaxRPS)
	assert.Equal(t, "mixload", cfg.Headers["X-Load-Test"])
	assert.Len(t, cfg.Thresholds, 2)
	require.Len(t, cfg.Scenarios, 2)
	assert.Equal(t, "buy", cfg.Scenarios[1].Name)

	cfg.ApplyDefaults()
	assert.Equal(t, "http://shop.local:9090", cfg.BaseURL)
	assert.Equal(t, "GET", cfg.Scenarios[0].Method)
	assert.Equal(t, "POST", cfg.Scenarios[1].Method)
	assert.NoError(t, cfg.Validate())
}

func TestParseConfig_JSON(t *testing.T) {
	data := `{
		"baseUrl": "http://localhost:8080",
		"duration": "30s",
		"workers": 0,
		"scenarios": [{"name": "ping", "weight": 1, "path": "/health"}]
	}`

	cfg, err := ParseConfig([]byte(data), "test.json")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, time.Duration(cfg.Duration))
	require.NotNil(t, cfg.Workers)
	assert.Equal(t, 0, cfg.WorkerCount())
}

func TestParseConfig_SchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{"unknown top-level key", "wrkers: 10\n", ""},
		{"negative weight", "scenarios:\n  - {name: a, weight: -1, path: /}\n", "scenarios[0].weight"},
		{"missing path", "scenarios:\n  - {name: a, weight: 1}\n", "scenarios[0]"},
		{"bad duration", "duration: soon\n", "duration"},
		{"workers as string", "workers: many\n", "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data), "test.yaml")
			require.Error(t, err)

			var verrs *ValidationErrors
			require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %T: %v", err, err)
			require.True(t, verrs.HasErrors())

			if tt.field != "" {
				found := false
				for _, e := range verrs.Errors {
					if e.Field == tt.field {
						found = true
					}
				}
				assert.True(t, found, "no error on field %q in %v", tt.field, err)
			}
		})
	}
}

func TestParseConfig_InvalidSyntax(t *testing.T) {
	_, err := ParseConfig([]byte("scenarios: [\n"), "test.yaml")
	assert.Error(t, err)

	_, err = ParseConfig([]byte("{"), "test.json")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mix.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Checkout mix", cfg.Name)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveConfig(DefaultConfig(), path))

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			cfg.ApplyDefaults()

			assert.NoError(t, cfg.Validate())
			assert.Equal(t, DefaultScenarios(), cfg.Scenarios)
			assert.Equal(t, DefaultDuration, time.Duration(cfg.Duration))
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"30s", 30 * time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"45", 45 * time.Second, false},
		{"500ms", 500 * time.Millisecond, false},
		{"later", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
