package storage

import (
	"encoding/json"
	"fmt"
)

// DecodeFunc turns a stored payload back into a value. It receives the record id
// so decoders can fall back to it for identity fields.
type DecodeFunc[T any] func(id string, payload []byte) (T, error)

// Record is one decoded entry from GetAll. Err is set when the payload could not
// be decoded; Value is then the zero value.
type Record[T any] struct {
	ID      string
	Value   T
	Version int64
	Err     error
}

// TypedStore wraps a Backend with JSON encoding for a specific type.
type TypedStore[T any] struct {
	backend Backend
	kind    string
	decode  DecodeFunc[T]
}

// NewTypedStore creates a typed store for the given kind using plain json.Unmarshal.
func NewTypedStore[T any](backend Backend, kind string) *TypedStore[T] {
	return NewTypedStoreWithDecoder(backend, kind, func(_ string, payload []byte) (T, error) {
		var value T
		err := json.Unmarshal(payload, &value)
		return value, err
	})
}

// NewTypedStoreWithDecoder creates a typed store that validates payloads with decode.
func NewTypedStoreWithDecoder[T any](backend Backend, kind string, decode DecodeFunc[T]) *TypedStore[T] {
	return &TypedStore[T]{
		backend: backend,
		kind:    kind,
		decode:  decode,
	}
}

// Kind returns the record kind this store handles.
func (s *TypedStore[T]) Kind() string {
	return s.kind
}

// Get retrieves and decodes the record for an ID.
// Returns found=false if it does not exist.
func (s *TypedStore[T]) Get(id string) (value T, found bool, err error) {
	payload, _, err := s.backend.Get(s.kind, id)
	if err != nil {
		return value, false, err
	}
	if payload == nil {
		return value, false, nil
	}

	value, err = s.decode(id, payload)
	if err != nil {
		return value, true, fmt.Errorf("failed to decode %s %q: %w", s.kind, id, err)
	}
	return value, true, nil
}

// Set encodes and stores the value for an ID.
func (s *TypedStore[T]) Set(id string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", s.kind, err)
	}

	return s.backend.Set(s.kind, id, payload)
}

// Delete removes the record for an ID and reports whether it existed.
func (s *TypedStore[T]) Delete(id string) (bool, error) {
	return s.backend.Delete(s.kind, id)
}

// Clear removes all records of this kind.
func (s *TypedStore[T]) Clear() error {
	return s.backend.Clear(s.kind)
}

// GetAll returns every record of this kind in insertion order.
// Records that fail to decode are returned with Err set rather than aborting the scan.
func (s *TypedStore[T]) GetAll() ([]Record[T], error) {
	entries, err := s.backend.GetAll(s.kind)
	if err != nil {
		return nil, err
	}

	records := make([]Record[T], 0, len(entries))
	for _, entry := range entries {
		value, err := s.decode(entry.ID, entry.Payload)
		if err != nil {
			var zero T
			records = append(records, Record[T]{ID: entry.ID, Version: entry.Version, Value: zero, Err: err})
			continue
		}
		records = append(records, Record[T]{ID: entry.ID, Value: value, Version: entry.Version})
	}

	return records, nil
}
