// Package intern deduplicates the small set of enum-like strings (asset
// types, statuses, zones) that repeat across every record of an ingestion.
package intern

import "sync"

// Pool maps strings to dense 1-based handles.
type Pool struct {
	mu      sync.RWMutex
	store   map[string]uint32
	reverse []string
}

// InvalidID is returned for the empty string.
const InvalidID uint32 = 0

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		store:   make(map[string]uint32),
		reverse: make([]string, 0, 64),
	}
}

var globalPool = NewPool()

// Get returns the unique ID for s, allocating a new one if necessary.
func (p *Pool) Get(s string) uint32 {
	if s == "" {
		return InvalidID
	}

	p.mu.RLock()
	id, ok := p.store[s]
	p.mu.RUnlock()
	if ok {
		return id
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.store[s]; ok {
		return id
	}

	// reverse[id-1] holds the string.
	p.reverse = append(p.reverse, s)
	id = uint32(len(p.reverse))
	p.store[s] = id
	return id
}

// Lookup returns the string for the given ID.
func (p *Pool) Lookup(id uint32) string {
	if id == InvalidID {
		return ""
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	idx := int(id) - 1
	if idx < 0 || idx >= len(p.reverse) {
		return ""
	}
	return p.reverse[idx]
}

// String returns the canonical copy of s held by the pool.
func (p *Pool) String(s string) string {
	return p.Lookup(p.Get(s))
}

// Len reports how many distinct strings the pool holds.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.reverse)
}

// Get interns s in the global pool.
func Get(s string) uint32 { return globalPool.Get(s) }

// GetStr returns the string for id from the global pool.
func GetStr(id uint32) string { return globalPool.Lookup(id) }

// String returns the canonical copy of s from the global pool.
func String(s string) string { return globalPool.String(s) }

// Reset clears the global pool.
func Reset() {
	globalPool.mu.Lock()
	defer globalPool.mu.Unlock()
	globalPool.store = make(map[string]uint32)
	globalPool.reverse = make([]string, 0, 64)
}
