package preset

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightboard/internal/storage"
)

// Kind is the storage kind for preset records.
const Kind = "preset"

// NewRecords creates the typed record store for presets, validating every payload on read.
func NewRecords(backend storage.Backend) *storage.TypedStore[Preset] {
	return storage.NewTypedStoreWithDecoder(backend, Kind, Decode)
}

// Store holds presets keyed by name together with the generated-name pool.
// Every mutation is written through to the record store. All methods are safe
// for concurrent use; one mutex covers the pool, the map and the order.
type Store struct {
	mu      sync.Mutex
	records *storage.TypedStore[Preset]
	pool    *NamePool
	order   []string
	presets map[string]Preset

	newToken func() string
}

// NewStore creates an empty store on top of records. Call Load to read persisted presets.
func NewStore(records *storage.TypedStore[Preset]) *Store {
	return &Store{
		records:  records,
		pool:     NewNamePool(),
		presets:  make(map[string]Preset),
		newToken: randomToken,
	}
}

// Load replaces the in-memory presets with the persisted ones.
// The name pool is left alone; InitNames marks stored dictionary names used.
// Malformed records are skipped and logged; they stay in storage until deleted.
func (s *Store) Load() (int, error) {
	records, err := s.records.GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to load presets: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.presets = make(map[string]Preset, len(records))
	for _, rec := range records {
		if rec.Err != nil {
			log.Warn().Err(rec.Err).Str("preset", rec.ID).Msg("Skipping malformed preset record")
			continue
		}
		s.order = append(s.order, rec.ID)
		s.presets[rec.ID] = rec.Value
	}

	log.Info().Int("presets", len(s.order)).Msg("Presets loaded")
	return len(s.order), nil
}

// InitNames fills the generated-name pool. Names of stored presets are marked used.
func (s *Store) InitNames(names []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := s.pool.Fill(names, s.isLive)
	log.Info().Int("added", added).Int("available", s.pool.Len()).Msg("Preset name pool filled")
	return added
}

// Save stores p under its resolved name and returns it.
// A non-empty p.Name is used verbatim; otherwise a name is taken from the pool,
// falling back to a random 8-character token when the pool is empty.
// An existing preset with the same name is overwritten.
func (s *Store) Save(p Preset) (Preset, error) {
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fromPool := false
	if p.Name == "" {
		p.Name, fromPool = s.generateName()
	}

	if err := s.records.Set(p.Name, p); err != nil {
		if fromPool {
			s.pool.Release(p.Name)
		}
		return Preset{}, fmt.Errorf("failed to persist preset %q: %w", p.Name, err)
	}

	if _, exists := s.presets[p.Name]; exists {
		log.Debug().Str("preset", p.Name).Msg("Overwriting existing preset")
	} else {
		s.order = append(s.order, p.Name)
	}
	s.presets[p.Name] = p

	log.Info().
		Str("preset", p.Name).
		Bool("generated_name", fromPool).
		Msg("Preset saved")

	return p, nil
}

// Delete removes the named preset and reports whether it existed.
// A used pool name is recycled even when no preset carried it.
func (s *Store) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.records.Delete(name)
	if err != nil {
		return false, fmt.Errorf("failed to delete preset %q: %w", name, err)
	}

	_, live := s.presets[name]
	if live {
		delete(s.presets, name)
		for i, existing := range s.order {
			if existing == name {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}

	recycled := s.pool.Release(name)

	removed := live || stored
	log.Info().
		Str("preset", name).
		Bool("removed", removed).
		Bool("recycled", recycled).
		Msg("Preset delete")

	return removed, nil
}

// Get returns the named preset.
func (s *Store) Get(name string) (Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.presets[name]
	return p, ok
}

// List returns all presets in insertion order.
func (s *Store) List() []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Preset, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.presets[name])
	}
	return out
}

// Names returns a snapshot of the generated-name pool.
func (s *Store) Names() PoolSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.Snapshot()
}

// Clear removes every preset and recycles all used names.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.records.Clear(); err != nil {
		return fmt.Errorf("failed to clear presets: %w", err)
	}

	for _, name := range s.pool.Snapshot().Used {
		s.pool.Release(name)
	}
	s.order = s.order[:0]
	s.presets = make(map[string]Preset)
	return nil
}

// generateName must be called with s.mu held.
func (s *Store) generateName() (string, bool) {
	for {
		name, ok := s.pool.Take()
		if !ok {
			break
		}
		// A user-named preset may already carry this word; it stays used.
		if !s.isLive(name) {
			return name, true
		}
	}

	name := s.newToken()
	for s.isLive(name) {
		name = s.newToken()
	}
	return name, false
}

func (s *Store) isLive(name string) bool {
	_, ok := s.presets[name]
	return ok
}

// randomToken returns the first 8 hex digits of a random UUID, upper-cased.
func randomToken() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:4]))
}
