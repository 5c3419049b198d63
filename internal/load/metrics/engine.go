// Package metrics provides the live, concurrency-safe view of a running load
// test. Workers feed it every Outcome; the console and the Prometheus
// exporter read from it while the run is still in progress.
package metrics

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wesleyorama2/mixload/internal/load"
)

// Engine aggregates outcomes as they are produced.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Counters use atomic operations,
// histograms and the per-scenario table use mutex protection.
type Engine struct {
	// HDR Histogram of successful call latency
	// Range: 1 microsecond to 1 hour, 3 significant figures
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	// Per-scenario counters
	scenarios   map[string]*ScenarioStats
	scenariosMu sync.Mutex

	// Atomic counters for lock-free updates
	totalRequests   atomic.Int64
	successRequests atomic.Int64
	failedRequests  atomic.Int64
	errorRequests   atomic.Int64

	activeWorkers atomic.Int32

	// Rate sampling for the current RPS figure
	sampleMu    sync.Mutex
	sampleTime  time.Time
	sampleTotal int64
	currentRPS  float64

	startTime time.Time

	// Prometheus collectors on a private registry
	registry      *prometheus.Registry
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	workersGauge  prometheus.Gauge

	config EngineConfig
}

// EngineConfig contains configuration for the metrics engine.
type EngineConfig struct {
	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 3600000000 = 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int

	// Namespace prefixes the Prometheus metric names (default: "mixload")
	Namespace string
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HistogramMin:     1,
		HistogramMax:     3600000000, // 1 hour in microseconds
		HistogramSigFigs: 3,
		Namespace:        "mixload",
	}
}

// NewEngine creates a new metrics engine with default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig())
}

// NewEngineWithConfig creates a new metrics engine with custom configuration.
func NewEngineWithConfig(config EngineConfig) *Engine {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "requests_total",
		Help:      "Scenario calls by scenario and result (success, failed, error).",
	}, []string{"scenario", "result"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Name:      "request_duration_seconds",
		Help:      "Latency of completed scenario calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"scenario"})

	workers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Name:      "active_workers",
		Help:      "Workers currently looping.",
	})

	registry.MustRegister(requestsTotal, duration, workers)

	now := time.Now()
	return &Engine{
		latencyHist:   hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		scenarios:     make(map[string]*ScenarioStats),
		startTime:     now,
		sampleTime:    now,
		registry:      registry,
		requestsTotal: requestsTotal,
		duration:      duration,
		workersGauge:  workers,
		config:        config,
	}
}

// Record implements load.Observer.
func (e *Engine) Record(o load.Outcome) {
	e.totalRequests.Add(1)

	result := "success"
	switch {
	case o.IsError():
		e.errorRequests.Add(1)
		e.failedRequests.Add(1)
		result = "error"
	case o.Succeeded():
		e.successRequests.Add(1)
	default:
		e.failedRequests.Add(1)
		result = "failed"
	}

	if o.HasElapsed() {
		e.duration.WithLabelValues(o.Scenario).Observe(o.Elapsed.Seconds())
	}
	if o.Succeeded() {
		e.recordLatency(o.Elapsed)
	}
	e.requestsTotal.WithLabelValues(o.Scenario, result).Inc()

	e.scenariosMu.Lock()
	stats, ok := e.scenarios[o.Scenario]
	if !ok {
		stats = &ScenarioStats{Name: o.Scenario}
		e.scenarios[o.Scenario] = stats
	}
	stats.Requests++
	if o.Succeeded() {
		stats.Successes++
	} else {
		stats.Failures++
	}
	e.scenariosMu.Unlock()
}

// recordLatency records a latency in the overall histogram.
// HDR histogram RecordValue is not thread-safe, so we must hold a lock.
func (e *Engine) recordLatency(d time.Duration) {
	micros := d.Microseconds()
	if micros < e.config.HistogramMin {
		micros = e.config.HistogramMin
	}
	if micros > e.config.HistogramMax {
		micros = e.config.HistogramMax
	}

	e.latencyHistMu.Lock()
	e.latencyHist.RecordValue(micros)
	e.latencyHistMu.Unlock()
}

// SetActiveWorkers implements load.Observer.
func (e *Engine) SetActiveWorkers(n int) {
	e.activeWorkers.Store(int32(n))
	e.workersGauge.Set(float64(n))
}

// ActiveWorkers returns the current active worker count.
func (e *Engine) ActiveWorkers() int {
	return int(e.activeWorkers.Load())
}

// Handler returns an HTTP handler exposing the collectors in the Prometheus
// text format.
func (e *Engine) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Snapshot returns a point-in-time view of all metrics.
func (e *Engine) Snapshot() *Snapshot {
	e.latencyHistMu.Lock()
	latency := LatencyStats{
		Min:   time.Duration(e.latencyHist.Min()) * time.Microsecond,
		Max:   time.Duration(e.latencyHist.Max()) * time.Microsecond,
		Mean:  time.Duration(e.latencyHist.Mean()) * time.Microsecond,
		P50:   time.Duration(e.latencyHist.ValueAtQuantile(50)) * time.Microsecond,
		P90:   time.Duration(e.latencyHist.ValueAtQuantile(90)) * time.Microsecond,
		P95:   time.Duration(e.latencyHist.ValueAtQuantile(95)) * time.Microsecond,
		P99:   time.Duration(e.latencyHist.ValueAtQuantile(99)) * time.Microsecond,
		Count: e.latencyHist.TotalCount(),
	}
	e.latencyHistMu.Unlock()

	now := time.Now()
	elapsed := now.Sub(e.startTime)
	total := e.totalRequests.Load()
	failed := e.failedRequests.Load()

	rps := 0.0
	if elapsed.Seconds() > 0 {
		rps = float64(total) / elapsed.Seconds()
	}

	errorRate := 0.0
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	return &Snapshot{
		TotalRequests:   total,
		SuccessRequests: e.successRequests.Load(),
		FailedRequests:  failed,
		ErrorRequests:   e.errorRequests.Load(),
		Latency:         latency,
		RPS:             rps,
		CurrentRPS:      e.sampleRate(now, total),
		ErrorRate:       errorRate,
		ActiveWorkers:   e.ActiveWorkers(),
		Scenarios:       e.scenarioStats(),
		Elapsed:         elapsed,
		StartTime:       e.startTime,
		Timestamp:       now,
	}
}

// sampleRate returns the rate since the previous sample. Samples closer than
// half a second reuse the previous figure.
func (e *Engine) sampleRate(now time.Time, total int64) float64 {
	e.sampleMu.Lock()
	defer e.sampleMu.Unlock()

	window := now.Sub(e.sampleTime)
	if window >= 500*time.Millisecond {
		e.currentRPS = float64(total-e.sampleTotal) / window.Seconds()
		e.sampleTime = now
		e.sampleTotal = total
	}
	return e.currentRPS
}

func (e *Engine) scenarioStats() []ScenarioStats {
	e.scenariosMu.Lock()
	defer e.scenariosMu.Unlock()

	result := make([]ScenarioStats, 0, len(e.scenarios))
	for _, s := range e.scenarios {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Snapshot contains a point-in-time view of all metrics.
type Snapshot struct {
	TotalRequests   int64           `json:"totalRequests"`
	SuccessRequests int64           `json:"successRequests"`
	FailedRequests  int64           `json:"failedRequests"`
	ErrorRequests   int64           `json:"errorRequests"`
	Latency         LatencyStats    `json:"latency"`
	RPS             float64         `json:"rps"`
	CurrentRPS      float64         `json:"currentRps"`
	ErrorRate       float64         `json:"errorRate"`
	ActiveWorkers   int             `json:"activeWorkers"`
	Scenarios       []ScenarioStats `json:"scenarios"`
	Elapsed         time.Duration   `json:"elapsed"`
	StartTime       time.Time       `json:"startTime"`
	Timestamp       time.Time       `json:"timestamp"`
}

// LatencyStats contains latency statistics of successful calls.
type LatencyStats struct {
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P90   time.Duration `json:"p90"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Count int64         `json:"count"`
}

// ScenarioStats counts calls of one scenario.
type ScenarioStats struct {
	Name      string `json:"name"`
	Requests  int64  `json:"requests"`
	Successes int64  `json:"successes"`
	Failures  int64  `json:"failures"`
}

// Ensure Engine implements load.Observer
var _ load.Observer = (*Engine)(nil)
