package journal

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the most recent records in a fixed-size ring.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	next    int
	full    bool
	closed  bool
}

// NewMemoryStore creates a store holding at most capacity records.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultListLimit
	}
	return &MemoryStore{records: make([]Record, capacity)}
}

// Append implements Store. The oldest record is overwritten when full.
func (m *MemoryStore) Append(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.records[m.next] = rec
	m.next = (m.next + 1) % len(m.records)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	limit := filter.limit()
	out := make([]Record, 0, min(limit, m.lenLocked()))

	// Walk backwards from the newest entry.
	for i := 0; i < m.lenLocked() && len(out) < limit; i++ {
		idx := (m.next - 1 - i + len(m.records)) % len(m.records)
		if rec := m.records[idx]; filter.matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Prune implements Store.
func (m *MemoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	n := m.lenLocked()
	kept := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		// oldest first
		idx := (m.next - n + i + len(m.records)) % len(m.records)
		if rec := m.records[idx]; !rec.EndedAt.Before(before) {
			kept = append(kept, rec)
		}
	}

	deleted := int64(n - len(kept))
	if deleted == 0 {
		return 0, nil
	}

	clear(m.records)
	copy(m.records, kept)
	m.next = len(kept) % len(m.records)
	m.full = len(kept) == len(m.records)
	return deleted, nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lenLocked()
}

func (m *MemoryStore) lenLocked() int {
	if m.full {
		return len(m.records)
	}
	return m.next
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
