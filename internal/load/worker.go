package load

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// WorkerState represents the lifecycle state of a Worker.
type WorkerState int32

const (
	// WorkerIdle indicates the worker is created but not started.
	WorkerIdle WorkerState = iota
	// WorkerRunning indicates the worker is running iterations.
	WorkerRunning
	// WorkerStopped indicates the worker loop has returned.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Observer receives every Outcome as soon as it is produced. Implementations
// are called concurrently from all workers.
type Observer interface {
	Record(o Outcome)
	SetActiveWorkers(n int)
}

// Limiter gates the start of each call. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// WorkerConfig holds the per-worker collaborators.
type WorkerConfig struct {
	Seed     int64
	Pacing   Pacing
	Limiter  Limiter
	Observer Observer
	Logger   *zap.Logger
}

// Worker is one independent selection/execution loop.
//
// Each worker owns its random source, so draws never contend with other
// workers, and collects its Outcomes in a local slice that only the worker
// goroutine touches until Run returns.
type Worker struct {
	// Unique identifier for this worker (1-based)
	ID int

	set      *ScenarioSet
	rng      *rand.Rand
	pacing   Pacing
	limiter  Limiter
	observer Observer
	logger   *zap.Logger

	// Lifecycle state (atomic for lock-free reads)
	state atomic.Int32

	// Iteration counter
	iteration atomic.Int64
}

// NewWorker creates a worker drawing from set.
func NewWorker(id int, set *ScenarioSet, cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		ID:       id,
		set:      set,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		pacing:   cfg.Pacing,
		limiter:  cfg.Limiter,
		observer: cfg.Observer,
		logger:   logger.With(zap.Int("worker", id)),
	}
}

// State returns the current worker state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Iterations returns the number of iterations started so far.
func (w *Worker) Iterations() int64 {
	return w.iteration.Load()
}

// Run executes iterations until deadline passes or ctx is cancelled and
// returns the outcomes in iteration order.
//
// The deadline is only checked between iterations: a call already in flight
// always completes (its context is detached from ctx) and the think time
// after the last call is waited out unless ctx is cancelled.
func (w *Worker) Run(ctx context.Context, deadline time.Time) []Outcome {
	w.state.Store(int32(WorkerRunning))
	defer w.state.Store(int32(WorkerStopped))

	w.logger.Debug("worker started", zap.Time("deadline", deadline))

	var outcomes []Outcome
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}

		entry := w.set.Pick(w.rng.Float64())

		if w.limiter != nil && !w.waitTurn(ctx, deadline) {
			break
		}

		o := w.execute(ctx, entry)
		outcomes = append(outcomes, o)
		if w.observer != nil {
			w.observer.Record(o)
		}

		if !sleep(ctx, w.pacing.Next(w.rng)) {
			break
		}
	}

	w.logger.Debug("worker stopped", zap.Int64("iterations", w.iteration.Load()))
	return outcomes
}

// waitTurn blocks on the limiter. It returns false when the wait was cut
// short by ctx or would end after the deadline.
func (w *Worker) waitTurn(ctx context.Context, deadline time.Time) bool {
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	return w.limiter.Wait(waitCtx) == nil
}

// execute runs one call and turns errors and panics into failure outcomes.
func (w *Worker) execute(ctx context.Context, entry Entry) (o Outcome) {
	start := time.Now()
	iter := w.iteration.Add(1)

	defer func() {
		if r := recover(); r != nil {
			w.logger.Warn("scenario panicked", zap.String("scenario", entry.Label), zap.Any("panic", r))
			o = NewFailure(entry.Label, fmt.Errorf("panic: %v", r))
		}
		o.Worker = w.ID
		o.Iteration = iter
		o.Start = start
	}()

	res, err := entry.Action.Execute(context.WithoutCancel(ctx))
	if err != nil {
		w.logger.Debug("scenario failed", zap.String("scenario", entry.Label), zap.Error(err))
		return NewFailure(entry.Label, err)
	}

	return NewSuccess(entry.Label, res.Status, res.Elapsed)
}

// sleep waits for d or until ctx is done. It returns false if ctx ended the wait.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
