// Package report turns the outcomes of a load run into summary statistics.
//
// Summarize is pure: the same outcomes and duration always give the same
// Summary, and nothing is read from the clock or from shared state.
package report

import (
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/wesleyorama2/mixload/internal/load"
)

// Histogram bounds in microseconds: 1µs to 1h, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// Summary contains the aggregate statistics of a run.
type Summary struct {
	Total      int
	Successful int
	Failed     int

	// SuccessRate is a percentage in [0, 100]
	SuccessRate float64

	// Latency of successful calls
	AvgElapsed time.Duration
	MinElapsed time.Duration
	MaxElapsed time.Duration
	Latency    Percentiles

	RequestsPerSecond float64
	Duration          time.Duration

	ByScenario []ScenarioCount
	ByStatus   []StatusCount
	Errors     []ErrorCount

	// TransportErrors counts calls that never produced a status
	TransportErrors int
}

// Percentiles of successful call latency.
type Percentiles struct {
	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// ScenarioCount is the per-scenario breakdown.
type ScenarioCount struct {
	Label      string
	Count      int
	Successful int
	Failed     int
	AvgElapsed time.Duration
}

// StatusCount counts outcomes with one status code.
type StatusCount struct {
	Status int
	Count  int
}

// ErrorCount counts failure outcomes with the same detail.
type ErrorCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Summarize computes the Summary of outcomes over duration.
//
// A call is successful when it completed with a status below 400; error
// markers and 4xx/5xx statuses are failed. Latency figures only consider
// successful calls and are zero when there are none. The request rate is
// zero for a non-positive duration.
func Summarize(outcomes []load.Outcome, duration time.Duration) *Summary {
	s := &Summary{
		Total:    len(outcomes),
		Duration: duration,
	}

	hist := hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
	scenarios := make(map[string]*scenarioAcc)
	statuses := make(map[int]int)
	errs := make(map[string]int)

	var sum time.Duration
	for _, o := range outcomes {
		acc, ok := scenarios[o.Scenario]
		if !ok {
			acc = &scenarioAcc{}
			scenarios[o.Scenario] = acc
		}
		acc.count++

		if o.IsError() {
			s.TransportErrors++
			errs[o.Failure]++
		} else {
			statuses[o.Status]++
		}

		if !o.Succeeded() || !o.HasElapsed() {
			continue
		}

		s.Successful++
		acc.successful++
		acc.sum += o.Elapsed

		if s.Successful == 1 || o.Elapsed < s.MinElapsed {
			s.MinElapsed = o.Elapsed
		}
		if o.Elapsed > s.MaxElapsed {
			s.MaxElapsed = o.Elapsed
		}
		sum += o.Elapsed
		hist.RecordValue(clampMicros(o.Elapsed))
	}

	s.Failed = s.Total - s.Successful

	if s.Total > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.Total) * 100
	}
	if s.Successful > 0 {
		s.AvgElapsed = sum / time.Duration(s.Successful)
		s.Latency = Percentiles{
			P50: quantile(hist, 50),
			P90: quantile(hist, 90),
			P95: quantile(hist, 95),
			P99: quantile(hist, 99),
		}
	}
	if duration > 0 {
		s.RequestsPerSecond = float64(s.Total) / duration.Seconds()
	}

	s.ByScenario = make([]ScenarioCount, 0, len(scenarios))
	for label, acc := range scenarios {
		sc := ScenarioCount{
			Label:      label,
			Count:      acc.count,
			Successful: acc.successful,
			Failed:     acc.count - acc.successful,
		}
		if acc.successful > 0 {
			sc.AvgElapsed = acc.sum / time.Duration(acc.successful)
		}
		s.ByScenario = append(s.ByScenario, sc)
	}
	sort.Slice(s.ByScenario, func(i, j int) bool { return s.ByScenario[i].Label < s.ByScenario[j].Label })

	s.ByStatus = make([]StatusCount, 0, len(statuses))
	for status, n := range statuses {
		s.ByStatus = append(s.ByStatus, StatusCount{Status: status, Count: n})
	}
	sort.Slice(s.ByStatus, func(i, j int) bool { return s.ByStatus[i].Status < s.ByStatus[j].Status })

	s.Errors = make([]ErrorCount, 0, len(errs))
	for msg, n := range errs {
		s.Errors = append(s.Errors, ErrorCount{Message: msg, Count: n})
	}
	sort.Slice(s.Errors, func(i, j int) bool {
		if s.Errors[i].Count != s.Errors[j].Count {
			return s.Errors[i].Count > s.Errors[j].Count
		}
		return s.Errors[i].Message < s.Errors[j].Message
	})

	return s
}

// SummarizeRun summarizes a driver result. An interrupted run is measured
// against the time it actually ran rather than the configured duration.
func SummarizeRun(run *load.RunResult) *Summary {
	duration := run.Duration
	if run.Interrupted {
		duration = run.Elapsed()
	}
	return Summarize(run.Outcomes, duration)
}

type scenarioAcc struct {
	count      int
	successful int
	sum        time.Duration
}

func clampMicros(d time.Duration) int64 {
	micros := d.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}
	return micros
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}
