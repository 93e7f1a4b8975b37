// Package rowstate keeps the last rendered state of offer rows so that code
// outside the rendering path can look up what the user currently sees.
package rowstate

import (
	"strconv"
	"strings"
	"sync"

	"github.com/seaward/offer-service/internal/types"
)

// Well-known rendered column keys
const (
	ColumnGuests   = "guests"
	ColumnB2BDepth = "b2bDepth"
)

// Table is a concurrency-safe map of RowIdentity to rendered column values
type Table struct {
	mu    sync.RWMutex
	rows  map[string]map[string]string
	order []string
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{rows: make(map[string]map[string]string)}
}

// Replace swaps the whole rendered set, preserving row order
func (t *Table) Replace(rows []types.Row, render func(types.Row) map[string]string) {
	next := make(map[string]map[string]string, len(rows))
	order := make([]string, 0, len(rows))
	for _, r := range rows {
		id := r.Identity()
		if _, dup := next[id]; !dup {
			order = append(order, id)
		}
		next[id] = render(r)
	}

	t.mu.Lock()
	t.rows = next
	t.order = order
	t.mu.Unlock()
}

// Set stores the rendered values for one row identity
func (t *Table) Set(identity string, values map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[identity]; !ok {
		t.order = append(t.order, identity)
	}
	t.rows[identity] = values
}

// Get returns a rendered value for a row identity and column key
func (t *Table) Get(identity, key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[identity]
	if !ok {
		return "", false
	}
	v, ok := row[key]
	return v, ok
}

// Identities returns the rendered row identities in render order
func (t *Table) Identities() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.order...)
}

// Values returns a copy of the rendered values for a row identity
func (t *Table) Values(identity string) (map[string]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[identity]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out, true
}

// Len returns the number of rendered rows
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// IsSingleGuest reports whether the rendered guests column for identity reads "1 Guest..."
func (t *Table) IsSingleGuest(identity string) bool {
	if t == nil {
		return false
	}
	v, ok := t.Get(identity, ColumnGuests)
	return ok && IsSingleGuestLabel(v)
}

// IsSingleGuestLabel reports whether a guests label describes one guest
func IsSingleGuestLabel(label string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(label)), "1 guest")
}

// DepthProvider returns the back-to-back chain depth of a row, always >= 1
type DepthProvider interface {
	Depth(row types.Row) int
}

// TableDepth reads chain depth from the rendered b2bDepth column
type TableDepth struct {
	Table *Table
}

// Depth implements DepthProvider. Rows without a rendered depth have depth 1.
func (d TableDepth) Depth(row types.Row) int {
	if d.Table == nil {
		return 1
	}
	v, ok := d.Table.Get(row.Identity(), ColumnB2BDepth)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// DepthFunc adapts a function to DepthProvider
type DepthFunc func(row types.Row) int

// Depth implements DepthProvider
func (f DepthFunc) Depth(row types.Row) int {
	if n := f(row); n >= 1 {
		return n
	}
	return 1
}
