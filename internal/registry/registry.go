// Package registry hands out slot identifiers for inheritable keys.
// It is kept in internal so the identifier scheme never leaks into the
// public API.
package registry

import "sync/atomic"

// next is the process-wide slot counter. Identifiers are dense and start
// at zero so they double as table indices.
var next atomic.Int64

// Next reserves and returns a fresh slot identifier. It is safe to call
// concurrently; identifiers are never reused.
func Next() int {
	return int(next.Add(1)) - 1
}

// Count returns the number of slots registered so far, which is also the
// width a full table must have.
func Count() int {
	return int(next.Load())
}
