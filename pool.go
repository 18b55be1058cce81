package scopekit

import (
	"context"
	"errors"
	"sync"
	"time"

	rtm "github.com/ScopeKit/scopekit-go/internal/runtime"
	"github.com/google/uuid"
)

// PoolConfig defines the configuration for a Pool.
type PoolConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int
	// QueueSize bounds how many units may wait for a worker.
	QueueSize int
	// RetryBackoff is the delay before the first retry of a failed unit;
	// each further retry doubles it.
	RetryBackoff time.Duration
	// OnDead is invoked with the final task record when a unit permanently fails.
	OnDead func(*Task)
	// Logger is the logger used for pool events.
	Logger Logger
}

// Pool runs units of work on a fixed set of workers. Units may suspend and
// resume on any worker; the bindings captured at their spawn boundary travel
// with them regardless.
type Pool struct {
	rt      *rtm.Runtime
	mux     *Mux
	encoder Encoder
	mu      sync.Mutex
	started bool
	log     Logger
}

// NewPool creates a new pool. mux may be nil for pools that only run raw
// units via Submit; typed tasks on such a pool dead-letter as unhandled.
func NewPool(cfg PoolConfig, mux *Mux) *Pool {
	l := cfg.Logger
	if l == nil {
		l = NewFmtLogger()
	}
	exec := func(ctx context.Context, taskType string, payload []byte) error {
		if mux == nil {
			return rtm.ErrNoHandler
		}
		h, ok := mux.handlers[taskType]
		if !ok {
			return rtm.ErrNoHandler
		}
		fn := mux.wrapHandler(h.exec)
		return fn(ctx, payload)
	}

	var onDead func(*rtm.Job)
	if cfg.OnDead != nil {
		onDead = func(j *rtm.Job) { cfg.OnDead(taskFromJob(j)) }
	}

	rtc := rtm.Config{
		Concurrency:  cfg.Concurrency,
		QueueSize:    cfg.QueueSize,
		RetryBackoff: cfg.RetryBackoff,
		OnDead:       onDead,
		Logger:       rtLogger{Logger: l},
	}
	return &Pool{rt: rtm.New(rtc, exec), mux: mux, encoder: &JSONEncoder{}, log: l}
}

// Start launches the pool workers and the delayed-unit scheduler.
// It is idempotent and non-blocking.
func (p *Pool) Start() {
	p.mu.Lock()
	if p.started {
		p.log.Warnf("pool already started; ignoring Start()")
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()
	p.log.Infof("starting pool: concurrency=%d", p.rt.CfgConcurrency())
	p.rt.Start()
}

// Stop gracefully shuts down the pool, waiting for workers to finish their
// current units. Units still queued are released unrun.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.log.Warnf("pool not started; ignoring Stop()")
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	p.log.Infof("stopping pool")
	p.rt.Stop()
}

// Submit hands a unit of work to the pool. Submit is the spawn boundary: the
// unit inherits no bindings unless it was wrapped with Capture or the
// Inherit option is given. It returns the unit's generated ID.
func (p *Pool) Submit(u Unit, opts ...Option) (string, error) {
	if u == nil {
		return "", errors.New("scopekit: nil unit")
	}
	j, id := p.newJob(opts)
	j.Unit = u
	return id, p.submit(j)
}

// Enqueue submits a typed task routed through the pool's Mux. The payload is
// serialized with the pool's Encoder; use the Inherit option to let the
// handler observe the caller's bindings.
func (p *Pool) Enqueue(taskType string, payload any, opts ...Option) (string, error) {
	data, err := p.encoder.Encode(payload)
	if err != nil {
		return "", err
	}
	j, id := p.newJob(opts)
	j.Type = taskType
	j.Payload = data
	return id, p.submit(j)
}

// Stats returns current unit counts per lifecycle state.
func (p *Pool) Stats() map[State]int64 {
	s := p.rt.Stats()
	return map[State]int64{
		StatePending:   s.Pending,
		StateActive:    s.Active,
		StateDelayed:   s.Delayed,
		StateSucceeded: s.Succeeded,
		StateDead:      s.Dead,
	}
}

func (p *Pool) newJob(opts []Option) (*rtm.Job, string) {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}
	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}
	j := &rtm.Job{
		ID:        id,
		MaxRetry:  cfg.maxRetry,
		Snapshot:  cfg.snapshot,
		CreatedAt: time.Now().UnixMilli(),
	}
	if cfg.delay > 0 {
		j.NotBefore = time.Now().Add(cfg.delay)
	}
	return j, id
}

func (p *Pool) submit(j *rtm.Job) error {
	err := p.rt.Submit(j)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rtm.ErrQueueFull):
		return ErrQueueFull
	case errors.Is(err, rtm.ErrStopped):
		return ErrPoolStopped
	default:
		return err
	}
}

func taskFromJob(j *rtm.Job) *Task {
	return &Task{
		ID:        j.ID,
		Type:      j.Type,
		Payload:   j.Payload,
		Retry:     j.Retry,
		MaxRetry:  j.MaxRetry,
		CreatedAt: j.CreatedAt,
		LastError: j.LastError,
	}
}

// rtLogger adapts the public Logger to the internal runtime logger interface.
type rtLogger struct{ Logger }
