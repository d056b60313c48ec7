// Package storage provides versioned JSON record storage keyed by (kind, id).
package storage

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Entry is a stored record. Entries are returned in insertion order;
// overwriting an existing id keeps its original position.
type Entry struct {
	ID      string
	Payload []byte
	Version int64
}

// Backend is the record storage used by typed stores.
type Backend interface {
	Get(kind, id string) (payload []byte, version int64, err error)
	Set(kind, id string, payload []byte) error
	Delete(kind, id string) (bool, error)
	GetAll(kind string) ([]Entry, error)
	Clear(kind string) error
}

// Store is the SQLite-backed Backend.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ Backend = (*Store)(nil)

// NewStore creates a new SQLite record store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get retrieves payload and version for a record.
// Returns nil payload and version 0 if not found.
func (s *Store) Get(kind, id string) (payload []byte, version int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payloadStr string
	err = s.db.QueryRow(`
		SELECT payload, version FROM resource_state
		WHERE kind = ? AND id = ?
	`, kind, id).Scan(&payloadStr, &version)

	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	return []byte(payloadStr), version, nil
}

// Set stores payload, incrementing version automatically.
func (s *Store) Set(kind, id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Unix()

	_, err := s.db.Exec(`
		INSERT INTO resource_state (kind, id, payload, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			payload = excluded.payload,
			version = version + 1,
			updated_at = excluded.updated_at
	`, kind, id, string(payload), now)

	if err == nil {
		log.Debug().
			Str("kind", kind).
			Str("id", id).
			Str("payload", string(payload)).
			Msg("Store.Set completed")
	}

	return err
}

// Delete removes a record. Reports whether a row was removed.
func (s *Store) Delete(kind, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		DELETE FROM resource_state WHERE kind = ? AND id = ?
	`, kind, id)
	if err != nil {
		return false, err
	}

	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// Clear removes all records for a kind. If kind is empty, clears everything.
func (s *Store) Clear(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if kind == "" {
		_, err = s.db.Exec(`DELETE FROM resource_state`)
	} else {
		_, err = s.db.Exec(`DELETE FROM resource_state WHERE kind = ?`, kind)
	}

	return err
}

// GetAll returns all records for a kind in insertion order.
func (s *Store) GetAll(kind string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, payload, version FROM resource_state
		WHERE kind = ?
		ORDER BY rowid
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var payloadStr string

		if err := rows.Scan(&entry.ID, &payloadStr, &entry.Version); err != nil {
			return nil, err
		}

		entry.Payload = []byte(payloadStr)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
