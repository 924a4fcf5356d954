package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests and single-node deployments.
// It is safe for concurrent use and implements the same version discipline
// as the networked backends, which makes it the reference implementation the
// adapter tests compare against.
type Memory struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, username string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[username]
	return rec, ok, nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.records[rec.Username]
	switch {
	case !exists && rec.Version != 0:
		return ErrVersionConflict
	case exists && current.Version != rec.Version:
		return ErrVersionConflict
	}

	rec.Version++
	m.records[rec.Username] = rec
	return nil
}
