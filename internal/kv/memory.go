package kv

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// memoryEntry holds an encoded value with its expiry.
type memoryEntry struct {
	data      []byte
	expiresAt time.Time // Zero value means no expiry
}

func (e *memoryEntry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryBucket is an in-memory bucket (not persisted).
type MemoryBucket struct {
	name    string
	entries map[string]*memoryEntry
	mu      sync.Mutex

	now func() time.Time
}

var _ Bucket = (*MemoryBucket)(nil)

// NewMemoryBucket creates a new in-memory bucket.
func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{
		name:    name,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Name returns the bucket name.
func (b *MemoryBucket) Name() string {
	return b.name
}

// Put saves a value with the given key.
func (b *MemoryBucket) Put(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = &memoryEntry{data: data, expiresAt: expiry(b.now(), ttl)}
	return nil
}

// Load decodes the value stored under key into dst.
func (b *MemoryBucket) Load(key string, dst any) (bool, error) {
	b.mu.Lock()
	entry, ok := b.entries[key]
	if ok && entry.isExpired(b.now()) {
		// Lazy deletion of expired entry
		delete(b.entries, key)
		ok = false
	}
	b.mu.Unlock()

	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(entry.data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return true, nil
}

// Delete removes a key from the bucket.
func (b *MemoryBucket) Delete(key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.entries[key]
	if ok {
		delete(b.entries, key)
	}
	return ok, nil
}
