package repository

import (
	"context"
	"sync"
)

// Memory is a process-local KV. Its contents die with the process.
type Memory struct {
	mu   sync.Mutex
	recs map[string]Record
}

func NewMemory() *Memory { return &Memory{recs: map[string]Record{}} }

// Get returns a copy of the stored record.
func (m *Memory) Get(ctx context.Context, key string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	if !ok {
		return Record{}, ErrKeyNotFound
	}
	return Record{Data: append([]byte(nil), rec.Data...), Version: rec.Version}, nil
}

// Put stores a copy of data if the version matches.
func (m *Memory) Put(ctx context.Context, key string, data []byte, expected uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recs[key].Version != expected {
		return 0, ErrVersionMismatch
	}
	next := expected + 1
	m.recs[key] = Record{Data: append([]byte(nil), data...), Version: next}
	return next, nil
}

func (m *Memory) Close() error { return nil }
