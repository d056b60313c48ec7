// Package kv provides TTL-aware key-value buckets with SQLite persistence and in-memory options.
package kv

import "time"

// Bucket is the interface for key-value storage operations.
// Values are stored as JSON and decoded into the caller's type on Load.
type Bucket interface {
	// Name returns the bucket name.
	Name() string

	// Put saves a value with the given key. A positive ttl makes the value expire.
	Put(key string, value any, ttl time.Duration) error

	// Load decodes the value stored under key into dst.
	// Returns false if the key doesn't exist or has expired.
	Load(key string, dst any) (bool, error)

	// Delete removes a key from the bucket.
	// Returns true if the key existed.
	Delete(key string) (bool, error)
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
