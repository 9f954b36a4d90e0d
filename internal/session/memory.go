package session

import (
	"context"
	"sync"

	"github.com/timmy/crafto/internal/domain"
)

// MemoryStore keeps credentials in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]domain.Credential
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]domain.Credential)}
}

func (m *MemoryStore) Save(ctx context.Context, key string, cred domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[key] = cred
	return nil
}

func (m *MemoryStore) Read(ctx context.Context, key string) (domain.Credential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.creds[key]
	return cred, ok
}

// Count returns the number of stored credentials.
func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.creds)), nil
}

func (m *MemoryStore) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, key)
	return nil
}
