package client

import "sync"

// TokenStore holds the client's current token pair. Implementations must
// be safe for concurrent use; every outbound request reads from the
// store and a refresh replaces both tokens at once.
type TokenStore interface {
	Tokens() (access, refresh string)
	Set(access, refresh string)
	Clear()
}

type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}

func (s *MemoryStore) Set(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
}
