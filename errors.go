package scopekit

import "errors"

// ErrNoScope is returned by Lookup when no scoping machinery is active for
// the calling context: no scope was ever entered in this lineage and the
// unit was not captured.
var ErrNoScope = errors.New("scopekit: no scope active")

// ErrNoBindings is returned by Lookup when the calling context runs under
// the scoping machinery (for example inside a captured unit) but no value
// was ever bound in this lineage.
var ErrNoBindings = errors.New("scopekit: scope active but no values bound")

// ErrNotBound is returned by Lookup when this lineage has bindings but none
// for the requested key.
var ErrNotBound = errors.New("scopekit: value not bound for key")

// ErrQueueFull is returned when a spawned unit cannot be accepted because
// the pool's pending queue is at capacity.
var ErrQueueFull = errors.New("scopekit: pool queue full")

// ErrPoolStopped is returned when a unit is handed to a pool that is not
// running.
var ErrPoolStopped = errors.New("scopekit: pool stopped")

// ErrUnknownState is returned when an invalid state is used.
var ErrUnknownState = errors.New("scopekit: unknown state")
