package session

import (
	"context"
	"sync"
	"time"
)

// Store tracks live sessions by the SHA-256 of their token. Entries
// expire after the TTL given to Save.
type Store interface {
	Save(ctx context.Context, tokenHash, user string, ttl time.Duration) error
	Lookup(ctx context.Context, tokenHash string) (user string, ok bool, err error)
	Delete(ctx context.Context, tokenHash string) error
}

type memoryEntry struct {
	user    string
	expires time.Time
}

// MemoryStore keeps sessions in process memory; they end with the
// process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, tokenHash, user string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	// drop expired entries while we hold the lock
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[tokenHash] = memoryEntry{user: user, expires: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) Lookup(_ context.Context, tokenHash string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[tokenHash]
	if !ok || !m.now().Before(e.expires) {
		return "", false, nil
	}
	return e.user, true, nil
}

func (m *MemoryStore) Delete(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	delete(m.entries, tokenHash)
	m.mu.Unlock()
	return nil
}
