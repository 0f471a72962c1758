// Package registry maps stable trigger identities to the objects they were
// issued for, so that a dispatched callback can be validated before it runs.
package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Table is a thread-safe identity table. The zero value is ready to use.
type Table struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]any
}

// Register stores v and returns its new identity.
func (t *Table) Register(v any) uuid.UUID {
	id := uuid.New()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[uuid.UUID]any)
	}
	t.entries[id] = v
	return id
}

// Lookup returns the object registered under id.
func (t *Table) Lookup(id uuid.UUID) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[id]
	return v, ok
}

// Validate reports whether id is still registered to exactly v.
func (t *Table) Validate(id uuid.UUID, v any) bool {
	got, ok := t.Lookup(id)
	return ok && got == v
}

// Unregister removes id.
func (t *Table) Unregister(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// Len returns the number of registered identities.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
