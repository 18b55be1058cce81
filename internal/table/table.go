// Package table implements the copy-on-write binding table that holds the
// values visible to one lineage of execution. A table is never mutated after
// it has been installed as an active association; every write happens on a
// private clone, so readers in sibling lineages need no locking.
package table

// Table is an ordered sequence of cells, one per slot identifier known at
// the time the table was built. A nil cell means the slot is unbound.
// Cloning shares cell payloads rather than copying them; values bound into
// a table stay alive for as long as any derived table references them.
type Table struct {
	cells []any
}

// New returns a table with the given width and every cell unbound.
func New(width int) *Table {
	return &Table{cells: make([]any, width)}
}

// Len returns the number of cells in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.cells)
}

// Get returns the value bound at slot i. The second result is false when i
// is outside the table's width or the cell is unbound; a table built before
// a late registration is simply shorter than the registry, which reads as
// unbound rather than as an error.
func (t *Table) Get(i int) (any, bool) {
	if t == nil || i < 0 || i >= len(t.cells) {
		return nil, false
	}
	v := t.cells[i]
	if v == nil {
		return nil, false
	}
	return v, true
}

// CloneGrown returns a private copy of the table, widened to at least width
// cells. Existing bindings are carried over by reference; new cells start
// unbound. The receiver is left untouched.
func (t *Table) CloneGrown(width int) *Table {
	n := t.Len()
	if width < n {
		width = n
	}
	nt := &Table{cells: make([]any, width)}
	if t != nil {
		copy(nt.cells, t.cells)
	}
	return nt
}

// Set binds v at slot i, overwriting any previous binding. It must only be
// called on a table that has not yet been installed as an active
// association, i.e. on the result of CloneGrown or New.
func (t *Table) Set(i int, v any) {
	t.cells[i] = v
}
