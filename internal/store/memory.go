package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a Store held in process memory.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Put(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("put estimate: empty id")
	}
	rec.SavedAt = fromMillis(savedAtMillis(rec.SavedAt))
	rec.Payload = append([]byte(nil), rec.Payload...)

	m.mu.Lock()
	m.records[rec.ID] = rec
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	return rec, nil
}

func (m *Memory) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.summary())
	}
	m.mu.RUnlock()

	sortSummaries(out)
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.records, id)
	return nil
}

func (m *Memory) Close() error { return nil }
