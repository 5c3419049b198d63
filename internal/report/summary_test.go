package report

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/mixload/internal/load"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func sampleOutcomes() []load.Outcome {
	return []load.Outcome{
		load.NewSuccess("user", 201, ms(100)),
		load.NewSuccess("user", 201, ms(300)),
		load.NewSuccess("product", 200, ms(200)),
		load.NewSuccess("order", 409, ms(50)),
		load.NewSuccess("order", 503, ms(10)),
		load.NewFailure("order", errors.New("connection refused")),
		load.NewFailure("user-read", errors.New("connection refused")),
		load.NewFailure("user-read", errors.New("timeout")),
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleOutcomes(), 4*time.Second)

	assert.Equal(t, 8, s.Total)
	assert.Equal(t, 3, s.Successful)
	assert.Equal(t, 5, s.Failed)
	assert.InDelta(t, 37.5, s.SuccessRate, 1e-9)
	assert.Equal(t, ms(200), s.AvgElapsed)
	assert.Equal(t, ms(100), s.MinElapsed)
	assert.Equal(t, ms(300), s.MaxElapsed)
	assert.InDelta(t, 2.0, s.RequestsPerSecond, 1e-9)
	assert.Equal(t, 3, s.TransportErrors)

	assert.Equal(t, []ScenarioCount{
		{Label: "order", Count: 3, Successful: 0, Failed: 3},
		{Label: "product", Count: 1, Successful: 1, Failed: 0, AvgElapsed: ms(200)},
		{Label: "user", Count: 2, Successful: 2, Failed: 0, AvgElapsed: ms(200)},
		{Label: "user-read", Count: 2, Successful: 0, Failed: 2},
	}, s.ByScenario)

	assert.Equal(t, []StatusCount{{200, 1}, {201, 2}, {409, 1}, {503, 1}}, s.ByStatus)
	assert.Equal(t, []ErrorCount{{"connection refused", 2}, {"timeout", 1}}, s.Errors)
}

func TestSummarize_Invariants(t *testing.T) {
	inputs := map[string][]load.Outcome{
		"empty":  nil,
		"sample": sampleOutcomes(),
		"only failures": {
			load.NewFailure("a", errors.New("x")),
			load.NewSuccess("a", 500, ms(1)),
		},
	}

	for name, outcomes := range inputs {
		t.Run(name, func(t *testing.T) {
			s := Summarize(outcomes, time.Second)
			if s.Successful+s.Failed != s.Total {
				t.Errorf("successful (%d) + failed (%d) != total (%d)", s.Successful, s.Failed, s.Total)
			}

			counted := 0
			for _, sc := range s.ByScenario {
				counted += sc.Count
			}
			if counted != s.Total {
				t.Errorf("byScenario counts sum to %d, want %d", counted, s.Total)
			}
		})
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, time.Minute)

	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.SuccessRate)
	assert.Equal(t, time.Duration(0), s.AvgElapsed)
	assert.Equal(t, time.Duration(0), s.MinElapsed)
	assert.Equal(t, time.Duration(0), s.MaxElapsed)
	assert.Equal(t, 0.0, s.RequestsPerSecond)
	assert.Empty(t, s.ByScenario)
}

func TestSummarize_NoSuccesses(t *testing.T) {
	s := Summarize([]load.Outcome{
		load.NewSuccess("a", 404, ms(20)),
		load.NewFailure("a", errors.New("refused")),
	}, time.Second)

	assert.Equal(t, 0, s.Successful)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 0.0, s.SuccessRate)
	assert.Equal(t, time.Duration(0), s.AvgElapsed)
	assert.Equal(t, time.Duration(0), s.MinElapsed)
	assert.Equal(t, time.Duration(0), s.MaxElapsed)
	assert.Equal(t, Percentiles{}, s.Latency)
}

func TestSummarize_NonPositiveDuration(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		s := Summarize(sampleOutcomes(), d)
		if s.RequestsPerSecond != 0 {
			t.Errorf("RequestsPerSecond with duration %v = %v, want 0", d, s.RequestsPerSecond)
		}
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	outcomes := sampleOutcomes()
	first := Summarize(outcomes, 3*time.Second)
	second := Summarize(outcomes, 3*time.Second)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Summarize is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestSummarize_ConstantLatency(t *testing.T) {
	outcomes := make([]load.Outcome, 20)
	for i := range outcomes {
		outcomes[i] = load.NewSuccess("only", 200, ms(50))
	}

	s := Summarize(outcomes, 10*time.Second)

	assert.Equal(t, ms(50), s.AvgElapsed)
	assert.Equal(t, ms(50), s.MinElapsed)
	assert.Equal(t, ms(50), s.MaxElapsed)
	assert.InDelta(t, float64(ms(50)), float64(s.Latency.P99), float64(ms(1)))
	assert.Equal(t, 100.0, s.SuccessRate)
}

func TestSummarizeRun(t *testing.T) {
	start := time.Now()
	run := &load.RunResult{
		Outcomes:  sampleOutcomes(),
		Duration:  time.Minute,
		StartTime: start,
		EndTime:   start.Add(4 * time.Second),
	}

	s := SummarizeRun(run)
	require.Equal(t, time.Minute, s.Duration)

	run.Interrupted = true
	s = SummarizeRun(run)
	assert.Equal(t, 4*time.Second, s.Duration)
	assert.InDelta(t, 2.0, s.RequestsPerSecond, 1e-9)
}
