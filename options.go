package scopekit

import (
	"context"
	"time"

	"github.com/ScopeKit/scopekit-go/internal/carrier"
	"github.com/ScopeKit/scopekit-go/internal/table"
)

type options struct {
	id       string
	delay    time.Duration
	maxRetry int
	snapshot *table.Table
}

// Option is a function that configures unit behavior during Submit or Enqueue.
type Option func(*options)

// TaskID sets a custom ID for the unit. If not provided, a random UUID will be generated.
func TaskID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// Delay schedules the unit to be executed after the specified duration.
func Delay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// MaxRetry sets the maximum number of retry attempts for the unit.
func MaxRetry(n int) Option {
	return func(o *options) {
		o.maxRetry = n
	}
}

// Inherit captures the bindings visible to ctx and attaches them to the
// unit, the same contract as Capture but expressed as a spawn option for the
// typed-task path. The snapshot is taken when Inherit itself is called, not
// when the unit later runs. When ctx carries no bindings the unit runs with
// an empty lineage rather than none.
func Inherit(ctx context.Context) Option {
	snap, ok := carrier.From(ctx)
	if !ok {
		snap = table.New(0)
	}
	return func(o *options) {
		o.snapshot = snap
	}
}
