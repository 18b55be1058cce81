package scopekit

import (
	"context"
	"fmt"

	"github.com/ScopeKit/scopekit-go/internal/carrier"
	"github.com/ScopeKit/scopekit-go/internal/registry"
)

// Key is a declared binding point for an inheritable value of type T. A key
// owns no data; it coordinates access to the cell at its identifier in
// whichever binding table is active for the calling context.
//
// Declare keys as package-level variables so registration completes before
// any unit of work can reference them:
//
//	var RequestID = scopekit.NewKey[string]()
//
// Declaring keys after units of work have started running is supported only
// in the sense that older tables read the new key as unbound until a scope
// rebuilds them; register everything up front.
type Key[T any] struct {
	id int
}

// NewKey declares a new inheritable key and reserves its identifier.
// Identifiers are process-wide and never reused; there is no way to
// unregister a key.
func NewKey[T any]() *Key[T] {
	return &Key[T]{id: registry.Next()}
}

// Bind derives a child context in which value is bound to the key for
// everything that runs with that context, shadowing any binding made by an
// enclosing scope. The parent context is left untouched, so the previous
// binding is back in force for any code still holding it.
//
// The binding table is copied before the write; sibling lineages sharing the
// parent's table never observe the new binding. The value itself is shared
// by reference with every context derived from the result, not copied.
func (k *Key[T]) Bind(ctx context.Context, value T) context.Context {
	cur, _ := carrier.From(ctx)
	nt := cur.CloneGrown(registry.Count())
	nt.Set(k.id, value)
	return carrier.With(ctx, nt)
}

// Scope binds value to the key for exactly the dynamic extent of body and
// returns body's result. The binding is visible to everything body runs,
// including suspending computations that carry body's context onward, and is
// gone once Scope returns regardless of how body finished.
func (k *Key[T]) Scope(ctx context.Context, value T, body func(context.Context) error) error {
	return body(k.Bind(ctx, value))
}

// Get returns the value bound to the key in the calling context. It panics
// if no scope binding this key was ever entered in this lineage; use Lookup
// when absence is an expected condition.
func (k *Key[T]) Get(ctx context.Context) T {
	v, err := k.Lookup(ctx)
	if err != nil {
		panic(fmt.Sprintf("scopekit: Get without an enclosing scope for this key: %v", err))
	}
	return v
}

// Lookup returns the value bound to the key in the calling context, or one
// of three errors: ErrNoScope when no scoping machinery is active at all,
// ErrNoBindings when the machinery is active but nothing was ever bound in
// this lineage, and ErrNotBound when this lineage has bindings but none for
// this key.
func (k *Key[T]) Lookup(ctx context.Context) (T, error) {
	var zero T
	t, ok := carrier.From(ctx)
	if !ok {
		return zero, ErrNoScope
	}
	if t.Len() == 0 {
		return zero, ErrNoBindings
	}
	raw, ok := t.Get(k.id)
	if !ok {
		return zero, ErrNotBound
	}
	v, ok := raw.(T)
	if !ok {
		// Identifiers are assigned once and bound to a single static type,
		// so a mismatched cell means the table itself is corrupt.
		panic(fmt.Sprintf("scopekit: internal: cell %d holds %T, want %T", k.id, raw, zero))
	}
	return v, nil
}
