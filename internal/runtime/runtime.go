// Package runtime is the in-process executor engine behind Pool. It owns the
// worker goroutines, the pending queue, the delayed-job scheduler, and the
// retry/dead-letter lifecycle. The public surface lives in the root package.
package runtime

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ScopeKit/scopekit-go/internal/carrier"
	"github.com/ScopeKit/scopekit-go/internal/table"
)

// ErrNoHandler indicates there is no handler for the task type; the runtime
// moves the task to dead without retry.
var ErrNoHandler = errors.New("no handler")

// ErrQueueFull indicates the pending queue is at capacity.
var ErrQueueFull = errors.New("queue full")

// ErrStopped indicates the runtime no longer accepts work.
var ErrStopped = errors.New("runtime stopped")

// Logger is a minimal logging interface used internally by the runtime.
// It mirrors the public logger in the root package to avoid an import cycle.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// Job is one spawned unit of work owned by the runtime.
type Job struct {
	ID       string
	Type     string
	Payload  []byte
	Retry    int
	MaxRetry int
	// NotBefore delays execution until the given time when non-zero.
	NotBefore time.Time
	// Snapshot carries the bindings captured at the spawn boundary; it is
	// installed as the active table for the job's entire extent. Nil means
	// the job inherits nothing.
	Snapshot *table.Table
	// Unit, when non-nil, is executed directly and Type/Payload are ignored.
	Unit      func(ctx context.Context) error
	CreatedAt int64
	LastError string
}

// Executor executes a task payload for a given type.
type Executor func(ctx context.Context, taskType string, payload []byte) error

// Config controls runtime behavior.
type Config struct {
	// Concurrency is the number of worker goroutines. Zero runs no workers,
	// which is occasionally useful in tests.
	Concurrency int
	// QueueSize bounds the pending queue. Defaults to 256.
	QueueSize int
	// RetryBackoff is the delay before the first retry; each further retry
	// doubles it. Defaults to 50ms.
	RetryBackoff time.Duration
	// OnDead, when set, is invoked for every job that is dead-lettered.
	OnDead func(*Job)
	Logger Logger
}

// Stats is a point-in-time count of jobs per lifecycle state.
type Stats struct {
	Pending   int64
	Active    int64
	Delayed   int64
	Succeeded int64
	Dead      int64
}

// Runtime manages workers and the delayed-job scheduler.
type Runtime struct {
	cfg     Config
	exec    Executor
	queue   chan *Job
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	log     Logger

	dmu     sync.Mutex
	delayed delayedHeap

	pending   atomic.Int64
	active    atomic.Int64
	succeeded atomic.Int64
	dead      atomic.Int64
}

// New creates a runtime that executes typed jobs via exec; raw units bypass it.
func New(cfg Config, exec Executor) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 50 * time.Millisecond
	}
	lg := cfg.Logger
	if lg == nil {
		lg = noopLogger{}
	}
	return &Runtime{
		cfg:    cfg,
		exec:   exec,
		queue:  make(chan *Job, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
		log:    lg,
	}
}

// Submit hands a job to the runtime. Jobs submitted before Start are held in
// the pending queue until workers come up; delayed jobs wait in the
// scheduler heap first.
func (rt *Runtime) Submit(j *Job) error {
	rt.mu.Lock()
	stopped := rt.stopped
	rt.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	if !j.NotBefore.IsZero() && time.Until(j.NotBefore) > 0 {
		rt.pushDelayed(j)
		return nil
	}
	return rt.enqueue(j)
}

func (rt *Runtime) enqueue(j *Job) error {
	select {
	case rt.queue <- j:
		rt.pending.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

func (rt *Runtime) pushDelayed(j *Job) {
	rt.dmu.Lock()
	heap.Push(&rt.delayed, j)
	rt.dmu.Unlock()
}

// Start launches workers and the delayed-job scheduler.
func (rt *Runtime) Start() {
	rt.mu.Lock()
	if rt.started || rt.stopped {
		rt.log.Warnf("runtime already started or stopped; ignoring Start()")
		rt.mu.Unlock()
		return
	}
	rt.started = true
	rt.mu.Unlock()
	rt.log.Infof("runtime starting: concurrency=%d queue=%d", rt.cfg.Concurrency, rt.cfg.QueueSize)

	for i := 0; i < rt.cfg.Concurrency; i++ {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			rt.workerLoop()
		}()
	}

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		rt.schedulerLoop()
	}()
}

// Stop cancels the internal context and waits for all goroutines to exit.
// Jobs still pending or delayed at that point are released unrun.
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	if !rt.started || rt.stopped {
		rt.log.Warnf("runtime not running; ignoring Stop()")
		rt.mu.Unlock()
		return
	}
	rt.stopped = true
	rt.mu.Unlock()
	rt.log.Infof("runtime stopping")

	rt.cancel()
	rt.wg.Wait()
}

// Stats reports current per-state job counts.
func (rt *Runtime) Stats() Stats {
	rt.dmu.Lock()
	delayed := int64(len(rt.delayed))
	rt.dmu.Unlock()
	return Stats{
		Pending:   rt.pending.Load(),
		Active:    rt.active.Load(),
		Delayed:   delayed,
		Succeeded: rt.succeeded.Load(),
		Dead:      rt.dead.Load(),
	}
}

// CfgConcurrency exposes configured worker concurrency.
func (rt *Runtime) CfgConcurrency() int { return rt.cfg.Concurrency }

func (rt *Runtime) workerLoop() {
	for {
		select {
		case <-rt.ctx.Done():
			return
		case j := <-rt.queue:
			rt.pending.Add(-1)
			rt.process(j)
		}
	}
}

// schedulerLoop moves due jobs from the delayed heap into the pending queue,
// at most a bounded batch per tick to keep Stop responsive.
func (rt *Runtime) schedulerLoop() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-rt.ctx.Done():
			return
		case <-ticker.C:
			for i := 0; i < 256; i++ {
				j := rt.popDue(time.Now())
				if j == nil {
					break
				}
				select {
				case rt.queue <- j:
					rt.pending.Add(1)
				case <-rt.ctx.Done():
					return
				}
			}
		}
	}
}

func (rt *Runtime) popDue(now time.Time) *Job {
	rt.dmu.Lock()
	defer rt.dmu.Unlock()
	if len(rt.delayed) == 0 || rt.delayed[0].NotBefore.After(now) {
		return nil
	}
	return heap.Pop(&rt.delayed).(*Job)
}

func (rt *Runtime) process(j *Job) {
	rt.active.Add(1)
	err := rt.run(j)
	rt.active.Add(-1)

	if err == nil {
		rt.succeeded.Add(1)
		rt.log.Debugf("processed: id=%s type=%s", j.ID, j.Type)
		return
	}

	if errors.Is(err, ErrNoHandler) {
		rt.log.Warnf("no handler for task: id=%s type=%s", j.ID, j.Type)
		rt.toDead(j, "no handler")
		return
	}

	j.LastError = err.Error()
	if j.Retry >= j.MaxRetry {
		rt.log.Warnf("handler error: id=%s type=%s retry=%d err=%v", j.ID, j.Type, j.Retry, err)
		rt.toDead(j, err.Error())
		return
	}

	j.Retry++
	j.NotBefore = time.Now().Add(rt.cfg.RetryBackoff << (j.Retry - 1))
	rt.pushDelayed(j)
	rt.log.Warnf("retrying: id=%s type=%s retry=%d err=%v", j.ID, j.Type, j.Retry, err)
}

// run executes the job with its captured bindings installed. A panicking
// unit is converted into a job failure so one bad unit cannot take down the
// worker; an unscoped access therefore aborts only the unit itself.
func (rt *Runtime) run(j *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit panic: %v", r)
		}
	}()

	ctx := rt.ctx
	if j.Snapshot != nil {
		ctx = carrier.With(ctx, j.Snapshot)
	}
	if j.Unit != nil {
		return j.Unit(ctx)
	}
	return rt.exec(ctx, j.Type, j.Payload)
}

func (rt *Runtime) toDead(j *Job, reason string) {
	if j.LastError == "" {
		j.LastError = reason
	}
	rt.dead.Add(1)
	if rt.cfg.OnDead != nil {
		rt.cfg.OnDead(j)
	}
}

// delayedHeap orders jobs by NotBefore, soonest first.
type delayedHeap []*Job

func (h delayedHeap) Len() int           { return len(h) }
func (h delayedHeap) Less(i, j int) bool { return h[i].NotBefore.Before(h[j].NotBefore) }
func (h delayedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *delayedHeap) Push(x any) { *h = append(*h, x.(*Job)) }

func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return j
}
