// Package carrier holds the active-table association for a unit of work.
// The context is the continuation state of a Go computation, so storing the
// table on it preserves the association across every suspension point and
// across worker handoffs without assuming thread affinity.
package carrier

import (
	"context"

	"github.com/ScopeKit/scopekit-go/internal/table"
)

type ctxKey struct{}

// With returns a child context with t installed as the active table.
func With(parent context.Context, t *table.Table) context.Context {
	return context.WithValue(parent, ctxKey{}, t)
}

// From extracts the active table from ctx if one is installed.
func From(ctx context.Context) (*table.Table, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return nil, false
	}
	t, ok := v.(*table.Table)
	return t, ok
}
