package storage

import "sync"

// MemoryStore is an in-memory Backend (not persisted).
type MemoryStore struct {
	mu    sync.RWMutex
	kinds map[string]*memoryKind
}

type memoryKind struct {
	order   []string
	entries map[string]Entry
}

var _ Backend = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{kinds: make(map[string]*memoryKind)}
}

// Get retrieves payload and version for a record.
func (s *MemoryStore) Get(kind, id string) ([]byte, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.kinds[kind]
	if !ok {
		return nil, 0, nil
	}
	entry, ok := k.entries[id]
	if !ok {
		return nil, 0, nil
	}
	return cloneBytes(entry.Payload), entry.Version, nil
}

// Set stores payload, incrementing version automatically.
func (s *MemoryStore) Set(kind, id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.kinds[kind]
	if !ok {
		k = &memoryKind{entries: make(map[string]Entry)}
		s.kinds[kind] = k
	}

	entry, exists := k.entries[id]
	if !exists {
		k.order = append(k.order, id)
	}
	entry.ID = id
	entry.Payload = cloneBytes(payload)
	entry.Version++
	k.entries[id] = entry
	return nil
}

// Delete removes a record. Reports whether it existed.
func (s *MemoryStore) Delete(kind, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.kinds[kind]
	if !ok {
		return false, nil
	}
	if _, ok := k.entries[id]; !ok {
		return false, nil
	}

	delete(k.entries, id)
	for i, existing := range k.order {
		if existing == id {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// GetAll returns all records for a kind in insertion order.
func (s *MemoryStore) GetAll(kind string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.kinds[kind]
	if !ok {
		return nil, nil
	}

	entries := make([]Entry, 0, len(k.order))
	for _, id := range k.order {
		entry := k.entries[id]
		entry.Payload = cloneBytes(entry.Payload)
		entries = append(entries, entry)
	}
	return entries, nil
}

// Clear removes all records for a kind. If kind is empty, clears everything.
func (s *MemoryStore) Clear(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == "" {
		s.kinds = make(map[string]*memoryKind)
		return nil
	}
	delete(s.kinds, kind)
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
