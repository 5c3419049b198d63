package load_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wesleyorama2/mixload/internal/load"
)

// countingObserver records outcomes concurrently.
type countingObserver struct {
	mu       sync.Mutex
	outcomes []load.Outcome
	peak     atomic.Int32
}

func (c *countingObserver) Record(o load.Outcome) {
	c.mu.Lock()
	c.outcomes = append(c.outcomes, o)
	c.mu.Unlock()
}

func (c *countingObserver) SetActiveWorkers(n int) {
	for {
		cur := c.peak.Load()
		if int32(n) <= cur || c.peak.CompareAndSwap(cur, int32(n)) {
			return
		}
	}
}

func constantAction(status int, elapsed time.Duration) load.Action {
	return load.ActionFunc(func(ctx context.Context) (load.Result, error) {
		return load.Result{Status: status, Elapsed: elapsed}, nil
	})
}

func singleSet(t *testing.T, label string, action load.Action) *load.ScenarioSet {
	t.Helper()
	set, err := load.NewScenarioSet(load.Entry{Label: label, Weight: 1, Action: action})
	require.NoError(t, err)
	return set
}

func newDriver(t *testing.T, opts load.Options) *load.Driver {
	t.Helper()
	d, err := load.NewDriver(opts)
	require.NoError(t, err)
	return d
}

func TestDriver_ZeroWorkers(t *testing.T) {
	d := newDriver(t, load.Options{Duration: time.Second, Workers: 0})

	result, err := d.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, result.Outcomes)
	assert.Equal(t, 0, result.Workers)
	assert.False(t, result.Interrupted)
}

func TestDriver_ZeroDuration(t *testing.T) {
	for _, duration := range []time.Duration{0, -time.Second} {
		d := newDriver(t, load.Options{Duration: duration, Workers: 4})

		result, err := d.Run(context.Background(), singleSet(t, "a", constantAction(200, time.Millisecond)))
		require.NoError(t, err)

		assert.Empty(t, result.Outcomes)
		assert.Equal(t, []int64{0, 0, 0, 0}, result.Iterations)
		assert.False(t, result.Interrupted)
	}
}

func TestDriver_InvalidPacing(t *testing.T) {
	_, err := load.NewDriver(load.Options{
		Duration: time.Second,
		Workers:  1,
		Pacing:   load.RandomPacing(time.Second, time.Millisecond),
	})
	require.Error(t, err)

	var optErr *load.OptionError
	assert.True(t, errors.As(err, &optErr))
}

func TestDriver_ConstantOutcome(t *testing.T) {
	observer := &countingObserver{}
	d := newDriver(t, load.Options{
		Duration: 200 * time.Millisecond,
		Workers:  3,
		Pacing:   load.Pacing{Type: load.PacingConstant, Duration: 10 * time.Millisecond},
		Seed:     1,
		Observer: observer,
	})

	result, err := d.Run(context.Background(), singleSet(t, "a", constantAction(200, 50*time.Millisecond)))
	require.NoError(t, err)

	require.NotEmpty(t, result.Outcomes)
	for _, o := range result.Outcomes {
		assert.Equal(t, "a", o.Scenario)
		assert.Equal(t, 200, o.Status)
		assert.Equal(t, 50*time.Millisecond, o.Elapsed)
		assert.False(t, o.IsError())
	}

	assert.Len(t, observer.outcomes, len(result.Outcomes))
	assert.Equal(t, int32(3), observer.peak.Load())
	assert.Equal(t, 0, d.ActiveWorkers())
	assert.GreaterOrEqual(t, result.Elapsed(), 200*time.Millisecond)
}

func TestDriver_FailuresAndPanics(t *testing.T) {
	failing := load.ActionFunc(func(ctx context.Context) (load.Result, error) {
		return load.Result{}, errors.New("connection refused")
	})
	panicking := load.ActionFunc(func(ctx context.Context) (load.Result, error) {
		panic("boom")
	})

	set, err := load.NewScenarioSet(
		load.Entry{Label: "fail", Weight: 0.5, Action: failing},
		load.Entry{Label: "panic", Weight: 0.5, Action: panicking},
	)
	require.NoError(t, err)

	d := newDriver(t, load.Options{
		Duration: 100 * time.Millisecond,
		Workers:  2,
		Pacing:   load.Pacing{Type: load.PacingConstant, Duration: 5 * time.Millisecond},
		Seed:     3,
	})

	result, err := d.Run(context.Background(), set)
	require.NoError(t, err)
	require.NotEmpty(t, result.Outcomes)

	for _, o := range result.Outcomes {
		require.True(t, o.IsError(), "outcome should be an error marker: %+v", o)
		switch o.Scenario {
		case "fail":
			assert.Equal(t, "connection refused", o.Failure)
		case "panic":
			assert.Equal(t, "panic: boom", o.Failure)
		default:
			t.Fatalf("unexpected scenario %q", o.Scenario)
		}
	}
}

func TestDriver_NoLostOrDuplicatedOutcomes(t *testing.T) {
	d := newDriver(t, load.Options{
		Duration: 300 * time.Millisecond,
		Workers:  50,
		Pacing:   load.RandomPacing(time.Millisecond, 5*time.Millisecond),
		Seed:     99,
	})

	set, err := load.NewScenarioSet(
		load.Entry{Label: "a", Weight: 0.5, Action: constantAction(200, time.Millisecond)},
		load.Entry{Label: "b", Weight: 0.5, Action: constantAction(500, time.Millisecond)},
	)
	require.NoError(t, err)

	result, err := d.Run(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, result.Iterations, 50)

	var total int64
	for _, n := range result.Iterations {
		total += n
	}
	assert.Equal(t, total, int64(len(result.Outcomes)))
	assert.Equal(t, total, d.Iterations())

	// Outcomes are grouped by worker, each group numbered 1..n.
	type key struct {
		worker    int
		iteration int64
	}
	seen := make(map[key]bool, len(result.Outcomes))
	next := make(map[int]int64)
	for _, o := range result.Outcomes {
		k := key{o.Worker, o.Iteration}
		require.False(t, seen[k], "duplicate outcome %+v", k)
		seen[k] = true

		next[o.Worker]++
		assert.Equal(t, next[o.Worker], o.Iteration)
	}
	for i, n := range result.Iterations {
		assert.Equal(t, n, next[i+1], "worker %d", i+1)
	}
}

func TestDriver_InterruptLetsInFlightCallsFinish(t *testing.T) {
	var completed, cancelledInside atomic.Int32
	slow := load.ActionFunc(func(ctx context.Context) (load.Result, error) {
		time.Sleep(100 * time.Millisecond)
		if ctx.Err() != nil {
			cancelledInside.Add(1)
		}
		completed.Add(1)
		return load.Result{Status: 200, Elapsed: 100 * time.Millisecond}, nil
	})

	d := newDriver(t, load.Options{
		Duration: 10 * time.Second,
		Workers:  4,
		Pacing:   load.DefaultPacing(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result, err := d.Run(ctx, singleSet(t, "slow", slow))
	require.NoError(t, err)

	assert.True(t, result.Interrupted)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, result.Outcomes, int(completed.Load()))
	assert.Equal(t, int32(0), cancelledInside.Load(), "in-flight calls must not see cancellation")
	for _, o := range result.Outcomes {
		assert.False(t, o.IsError())
	}
}

func TestDriver_RateLimit(t *testing.T) {
	d := newDriver(t, load.Options{
		Duration: 500 * time.Millisecond,
		Workers:  5,
		Pacing:   load.Pacing{Type: load.PacingNone},
		Limiter:  rate.NewLimiter(rate.Limit(20), 1),
	})

	result, err := d.Run(context.Background(), singleSet(t, "a", constantAction(200, 0)))
	require.NoError(t, err)

	// 20/s for 0.5s plus the initial token
	assert.LessOrEqual(t, len(result.Outcomes), 12)
	assert.NotEmpty(t, result.Outcomes)
}

func TestDriver_Progress(t *testing.T) {
	d := newDriver(t, load.Options{
		Duration: 100 * time.Millisecond,
		Workers:  1,
		Pacing:   load.Pacing{Type: load.PacingConstant, Duration: 10 * time.Millisecond},
	})
	assert.Equal(t, 0.0, d.Progress())

	_, err := d.Run(context.Background(), singleSet(t, "a", constantAction(200, 0)))
	require.NoError(t, err)

	assert.Equal(t, 1.0, d.Progress())
}

// sequenceObserver keeps every published active worker count in order.
type sequenceObserver struct {
	mu     sync.Mutex
	counts []int
}

func (s *sequenceObserver) Record(load.Outcome) {}

func (s *sequenceObserver) SetActiveWorkers(n int) {
	s.mu.Lock()
	s.counts = append(s.counts, n)
	s.mu.Unlock()
}

func TestDriver_ActiveWorkersPublishedInOrder(t *testing.T) {
	const workers = 20

	for run := 0; run < 20; run++ {
		obs := &sequenceObserver{}
		d := newDriver(t, load.Options{
			Duration: 5 * time.Millisecond,
			Workers:  workers,
			Pacing:   load.Pacing{Type: load.PacingNone},
			Observer: obs,
		})

		_, err := d.Run(context.Background(), singleSet(t, "ok", constantAction(200, time.Millisecond)))
		require.NoError(t, err)

		require.Len(t, obs.counts, 2*workers)
		prev := 0
		for i, n := range obs.counts {
			if n != prev+1 && n != prev-1 {
				t.Fatalf("run %d: count %d at step %d follows %d", run, n, i, prev)
			}
			prev = n
		}
		assert.Equal(t, 0, obs.counts[len(obs.counts)-1])
		assert.Equal(t, 0, d.ActiveWorkers())
	}
}
