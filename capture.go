package scopekit

import (
	"context"

	"github.com/ScopeKit/scopekit-go/internal/carrier"
	"github.com/ScopeKit/scopekit-go/internal/table"
)

// Unit is a unit of asynchronous work: anything that can be handed to an
// executor's spawn entry point, such as Pool.Submit or a plain goroutine.
type Unit func(ctx context.Context) error

// Capture snapshots the bindings visible to ctx and attaches them to u, so
// that u observes them no matter where or when the executor runs it — on a
// different worker, after the capturing scope has already exited, or under a
// context that carries some other lineage's bindings.
//
// The snapshot is taken when Capture is called, not when u eventually runs,
// and is immutable afterward. When ctx carries no bindings the returned unit
// runs with an empty lineage, which reads as ErrNoBindings rather than
// ErrNoScope.
//
// Inheritance does not cross an unwrapped spawn: if u itself spawns further
// units, each of those must be wrapped with its own Capture call to inherit
// u's bindings.
func Capture(ctx context.Context, u Unit) Unit {
	snap, ok := carrier.From(ctx)
	if !ok {
		snap = table.New(0)
	}
	// The snapshot is never mutated after install, so the table pointer can
	// be shared as-is; a later nested scope inside u clones before writing.
	return func(runCtx context.Context) error {
		return u(carrier.With(runCtx, snap))
	}
}
