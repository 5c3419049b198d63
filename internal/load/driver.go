package load

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Options configures a Driver.
type Options struct {
	// Duration is the wall-clock length of the run
	Duration time.Duration

	// Workers is the number of concurrent loops. Zero or less yields an empty run.
	Workers int

	// Pacing between iterations of a worker
	Pacing Pacing

	// Seed for the per-worker random sources. Zero picks a time based seed.
	Seed int64

	// Limiter, if set, caps the global call rate
	Limiter Limiter

	// Observer, if set, receives every outcome as it is produced
	Observer Observer

	Logger *zap.Logger
}

// DefaultOptions returns the stock configuration: 50 workers for 60 seconds
// with a 100ms to 500ms think time.
func DefaultOptions() Options {
	return Options{
		Duration: 60 * time.Second,
		Workers:  50,
		Pacing:   DefaultPacing(),
	}
}

// Validate checks the options. A zero or negative Duration is valid: the
// deadline has already passed and every worker performs zero iterations.
func (o Options) Validate() error {
	return o.Pacing.Validate()
}

// OptionError represents an invalid run option.
type OptionError struct {
	Field   string
	Message string
}

func (e *OptionError) Error() string {
	return "invalid option '" + e.Field + "': " + e.Message
}

// RunResult is the merged result of a run.
type RunResult struct {
	// Outcomes of all workers, grouped by worker, each group in iteration order
	Outcomes []Outcome

	// Iterations completed per worker (index 0 is worker 1)
	Iterations []int64

	Workers   int
	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time

	// Interrupted is set when the context was cancelled before the deadline
	Interrupted bool
}

// Elapsed returns the measured run time.
func (r *RunResult) Elapsed() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Driver starts the workers against a shared deadline and joins them.
type Driver struct {
	opts   Options
	logger *zap.Logger

	// State
	startTime atomic.Int64
	running   atomic.Bool

	// activeMu orders updates of active with their publication
	activeMu sync.Mutex
	active   atomic.Int32

	workersMu sync.RWMutex
	workers   []*Worker
}

// NewDriver creates a Driver from validated options.
func NewDriver(opts Options) (*Driver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{opts: opts, logger: logger}, nil
}

// Run executes set for the configured duration and blocks until every
// worker has returned.
//
// Cancelling ctx stops workers from starting new iterations; calls already
// in flight still complete and are included in the result.
func (d *Driver) Run(ctx context.Context, set *ScenarioSet) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		Workers:   d.opts.Workers,
		Duration:  d.opts.Duration,
		StartTime: start,
	}

	if d.opts.Workers <= 0 {
		result.Workers = 0
		result.EndTime = start
		return result, nil
	}
	if set == nil {
		return nil, errors.New("scenario set is required")
	}
	if !d.running.CompareAndSwap(false, true) {
		return nil, errors.New("driver is already running")
	}
	defer d.running.Store(false)

	deadline := start.Add(d.opts.Duration)
	d.startTime.Store(start.UnixNano())

	d.logger.Info("load run started",
		zap.Int("workers", d.opts.Workers),
		zap.Duration("duration", d.opts.Duration),
		zap.Strings("scenarios", set.Labels()))

	baseSeed := d.opts.Seed
	if baseSeed == 0 {
		baseSeed = start.UnixNano()
	}

	workers := make([]*Worker, d.opts.Workers)
	for i := range workers {
		workers[i] = NewWorker(i+1, set, WorkerConfig{
			Seed:     baseSeed + int64(i),
			Pacing:   d.opts.Pacing,
			Limiter:  d.opts.Limiter,
			Observer: d.opts.Observer,
			Logger:   d.logger,
		})
	}
	d.workersMu.Lock()
	d.workers = workers
	d.workersMu.Unlock()

	perWorker := make([][]Outcome, len(workers))
	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w *Worker) {
			defer wg.Done()
			d.addActive(1)
			defer d.addActive(-1)

			perWorker[i] = w.Run(ctx, deadline)
		}(i, w)
	}

	// Wait for all workers to complete
	wg.Wait()

	result.EndTime = time.Now()
	result.Interrupted = ctx.Err() != nil && result.EndTime.Before(deadline)
	result.Iterations = make([]int64, len(workers))

	total := 0
	for _, outcomes := range perWorker {
		total += len(outcomes)
	}
	result.Outcomes = make([]Outcome, 0, total)
	for i, outcomes := range perWorker {
		result.Outcomes = append(result.Outcomes, outcomes...)
		result.Iterations[i] = workers[i].Iterations()
	}

	d.logger.Info("load run finished",
		zap.Int("outcomes", total),
		zap.Duration("elapsed", result.Elapsed()),
		zap.Bool("interrupted", result.Interrupted))

	return result, nil
}

func (d *Driver) addActive(delta int32) {
	d.activeMu.Lock()
	defer d.activeMu.Unlock()

	n := d.active.Add(delta)
	if d.opts.Observer != nil {
		d.opts.Observer.SetActiveWorkers(int(n))
	}
}

// ActiveWorkers returns the number of workers still looping.
func (d *Driver) ActiveWorkers() int {
	return int(d.active.Load())
}

// Iterations returns the total number of iterations started so far.
func (d *Driver) Iterations() int64 {
	d.workersMu.RLock()
	defer d.workersMu.RUnlock()

	var total int64
	for _, w := range d.workers {
		total += w.Iterations()
	}
	return total
}

// Progress returns run progress between 0.0 and 1.0.
func (d *Driver) Progress() float64 {
	started := d.startTime.Load()
	if started == 0 {
		return 0.0
	}
	if !d.running.Load() || d.opts.Duration <= 0 {
		return 1.0
	}

	elapsed := time.Since(time.Unix(0, started))
	progress := float64(elapsed) / float64(d.opts.Duration)
	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

// Elapsed returns the time since the run started.
func (d *Driver) Elapsed() time.Duration {
	started := d.startTime.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}
