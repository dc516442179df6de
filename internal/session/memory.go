package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for single-node deployments and tests.
// Records are held as JSON so callers never share mutable state with the store.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
	stopOnce sync.Once
	done     chan struct{}
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore creates a store whose records expire ttl after their last save.
// A background goroutine evicts expired records every sweep interval.
func NewMemoryStore(ttl, sweep time.Duration) *MemoryStore {
	if sweep <= 0 {
		sweep = time.Minute
	}
	m := &MemoryStore{
		records: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.cleanup(sweep)
	return m
}

func (m *MemoryStore) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.records[rec.ID]; ok && m.now().Before(e.expiresAt) {
		return fmt.Errorf("session %q already exists", rec.ID)
	}
	return m.put(rec)
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	e, ok := m.records[id]
	m.mu.Unlock()
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	var rec Record
	if err := json.Unmarshal(e.data, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rec, nil
}

func (m *MemoryStore) Save(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.records[rec.ID]; !ok || !m.now().Before(e.expiresAt) {
		return ErrNotFound
	}
	return m.put(rec)
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// put must be called with mu held
func (m *MemoryStore) put(rec *Record) error {
	rec.ExpiresAt = m.now().Add(m.ttl).UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.records[rec.ID] = memoryEntry{data: data, expiresAt: rec.ExpiresAt}
	return nil
}

// Len returns the number of records held, expired or not
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryStore) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *MemoryStore) evictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, e := range m.records {
		if !now.Before(e.expiresAt) {
			delete(m.records, id)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (m *MemoryStore) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	return nil
}
