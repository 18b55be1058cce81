package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ScopeKit/scopekit-go/internal/carrier"
	"github.com/ScopeKit/scopekit-go/internal/table"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRuntime_StartStop_Idempotent(t *testing.T) {
	rt := New(Config{Concurrency: 0}, func(context.Context, string, []byte) error { return nil })

	// start/stop multiple times should be safe
	rt.Start()
	rt.Start()
	time.Sleep(20 * time.Millisecond)
	rt.Stop()
	rt.Stop()

	require.ErrorIs(t, rt.Submit(&Job{ID: "late"}), ErrStopped)
}

func TestRuntime_SubmitBeforeStart_RunsAfterStart(t *testing.T) {
	var ran atomic.Bool
	rt := New(Config{Concurrency: 1}, nil)
	require.NoError(t, rt.Submit(&Job{
		ID:   "early",
		Unit: func(context.Context) error { ran.Store(true); return nil },
	}))

	rt.Start()
	defer rt.Stop()
	waitFor(t, ran.Load)
}

func TestRuntime_QueueFull(t *testing.T) {
	rt := New(Config{Concurrency: 0, QueueSize: 1}, nil)
	require.NoError(t, rt.Submit(&Job{ID: "a", Unit: func(context.Context) error { return nil }}))
	require.ErrorIs(t, rt.Submit(&Job{ID: "b", Unit: func(context.Context) error { return nil }}), ErrQueueFull)
}

func TestRuntime_DelayedScheduling(t *testing.T) {
	var ran atomic.Bool
	rt := New(Config{Concurrency: 1}, nil)
	rt.Start()
	defer rt.Stop()

	require.NoError(t, rt.Submit(&Job{
		ID:        "later",
		NotBefore: time.Now().Add(100 * time.Millisecond),
		Unit:      func(context.Context) error { ran.Store(true); return nil },
	}))

	require.Equal(t, int64(1), rt.Stats().Delayed)
	require.False(t, ran.Load(), "delayed job must not run immediately")

	waitFor(t, ran.Load)
	require.Equal(t, int64(0), rt.Stats().Delayed)
}

func TestRuntime_RetryThenSucceed(t *testing.T) {
	var attempts atomic.Int64
	rt := New(Config{Concurrency: 1, RetryBackoff: time.Millisecond}, nil)
	rt.Start()
	defer rt.Stop()

	require.NoError(t, rt.Submit(&Job{
		ID:       "flaky",
		MaxRetry: 3,
		Unit: func(context.Context) error {
			if attempts.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		},
	}))

	waitFor(t, func() bool { return rt.Stats().Succeeded == 1 })
	require.Equal(t, int64(3), attempts.Load())
}

func TestRuntime_RetriesExhausted_DeadWithCallback(t *testing.T) {
	deadCh := make(chan *Job, 1)
	rt := New(Config{
		Concurrency:  1,
		RetryBackoff: time.Millisecond,
		OnDead:       func(j *Job) { deadCh <- j },
	}, nil)
	rt.Start()
	defer rt.Stop()

	require.NoError(t, rt.Submit(&Job{
		ID:       "doomed",
		MaxRetry: 1,
		Unit:     func(context.Context) error { return errors.New("permanent") },
	}))

	select {
	case j := <-deadCh:
		require.Equal(t, "doomed", j.ID)
		require.Equal(t, 1, j.Retry)
		require.Equal(t, "permanent", j.LastError)
	case <-time.After(3 * time.Second):
		t.Fatal("dead callback not invoked")
	}
	require.Equal(t, int64(1), rt.Stats().Dead)
}

func TestRuntime_NoHandler_DeadWithoutRetry(t *testing.T) {
	deadCh := make(chan *Job, 1)
	exec := func(context.Context, string, []byte) error { return ErrNoHandler }
	rt := New(Config{Concurrency: 1, OnDead: func(j *Job) { deadCh <- j }}, exec)
	rt.Start()
	defer rt.Stop()

	require.NoError(t, rt.Submit(&Job{ID: "orphan", Type: "nope", MaxRetry: 5}))

	select {
	case j := <-deadCh:
		require.Equal(t, 0, j.Retry, "no-handler tasks must not be retried")
		require.Equal(t, "no handler", j.LastError)
	case <-time.After(3 * time.Second):
		t.Fatal("dead callback not invoked")
	}
}

func TestRuntime_PanicConvertedToFailure(t *testing.T) {
	deadCh := make(chan *Job, 1)
	rt := New(Config{Concurrency: 1, OnDead: func(j *Job) { deadCh <- j }}, nil)
	rt.Start()
	defer rt.Stop()

	require.NoError(t, rt.Submit(&Job{
		ID:   "boom",
		Unit: func(context.Context) error { panic("kapow") },
	}))

	select {
	case j := <-deadCh:
		require.Contains(t, j.LastError, "kapow")
	case <-time.After(3 * time.Second):
		t.Fatal("panicking unit should dead-letter")
	}

	// the worker must survive the panic
	var ran atomic.Bool
	require.NoError(t, rt.Submit(&Job{
		ID:   "after",
		Unit: func(context.Context) error { ran.Store(true); return nil },
	}))
	waitFor(t, ran.Load)
}

func TestRuntime_SnapshotInstalledForJob(t *testing.T) {
	tb := table.New(1)
	tb.Set(0, "inherited")

	got := make(chan *table.Table, 1)
	rt := New(Config{Concurrency: 1}, nil)
	rt.Start()
	defer rt.Stop()

	require.NoError(t, rt.Submit(&Job{
		ID:       "snap",
		Snapshot: tb,
		Unit: func(ctx context.Context) error {
			cur, _ := carrier.From(ctx)
			got <- cur
			return nil
		},
	}))

	select {
	case cur := <-got:
		require.Same(t, tb, cur, "job must run with the exact captured table")
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestRuntime_NoSnapshot_NoTable(t *testing.T) {
	got := make(chan bool, 1)
	rt := New(Config{Concurrency: 1}, nil)
	rt.Start()
	defer rt.Stop()

	require.NoError(t, rt.Submit(&Job{
		ID: "bare",
		Unit: func(ctx context.Context) error {
			_, ok := carrier.From(ctx)
			got <- ok
			return nil
		},
	}))

	select {
	case ok := <-got:
		require.False(t, ok, "an uncaptured job must not see any table")
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
