package preset

import "sort"

// NamePool tracks generated preset names. A name is either available or used,
// never both. It is not safe for concurrent use; Store guards it.
type NamePool struct {
	available map[string]struct{}
	used      map[string]struct{}
}

// PoolSnapshot is a sorted copy of the pool for display.
type PoolSnapshot struct {
	Available []string `json:"available"`
	Used      []string `json:"used"`
}

// NewNamePool creates an empty pool.
func NewNamePool() *NamePool {
	return &NamePool{
		available: make(map[string]struct{}),
		used:      make(map[string]struct{}),
	}
}

// Fill adds candidate names. Names already used are skipped. Names for which
// live returns true are recorded as used straight away so they are never handed out.
// Returns the number of names that became available.
func (p *NamePool) Fill(names []string, live func(string) bool) int {
	added := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := p.used[name]; ok {
			continue
		}
		if live != nil && live(name) {
			delete(p.available, name)
			p.used[name] = struct{}{}
			continue
		}
		if _, ok := p.available[name]; !ok {
			p.available[name] = struct{}{}
			added++
		}
	}
	return added
}

// Take moves an arbitrary available name to used.
func (p *NamePool) Take() (string, bool) {
	for name := range p.available {
		delete(p.available, name)
		p.used[name] = struct{}{}
		return name, true
	}
	return "", false
}

// Release moves a used name back to available. Unknown names are ignored.
func (p *NamePool) Release(name string) bool {
	if _, ok := p.used[name]; !ok {
		return false
	}
	delete(p.used, name)
	p.available[name] = struct{}{}
	return true
}

// IsAvailable reports whether name can be handed out.
func (p *NamePool) IsAvailable(name string) bool {
	_, ok := p.available[name]
	return ok
}

// IsUsed reports whether name is currently assigned.
func (p *NamePool) IsUsed(name string) bool {
	_, ok := p.used[name]
	return ok
}

// Len returns the number of available names.
func (p *NamePool) Len() int {
	return len(p.available)
}

// Snapshot returns sorted copies of both sets.
func (p *NamePool) Snapshot() PoolSnapshot {
	return PoolSnapshot{
		Available: sortedKeys(p.available),
		Used:      sortedKeys(p.used),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
