package cache

import (
	"sync"
	"time"
)

// Memory is the process-lifetime key-value cache tier.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     Clock
}

// NewMemory creates an empty memory cache. A nil clock uses time.Now.
func NewMemory(now Clock) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{entries: make(map[string]Entry), now: now}
}

// Get returns the entry for key if it is fresh or stale-but-servable.
// An expired entry is treated as absent and evicted lazily.
func (m *Memory) Get(key string) (Entry, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if !entry.ServableAt(m.now()) {
		m.mu.Lock()
		// Re-check under the write lock; a fresh entry may have landed.
		if cur, ok := m.entries[key]; ok && !cur.ServableAt(m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return Entry{}, false
	}
	return entry, true
}

// Set stores a value with the given TTLs, stamped at the current time.
func (m *Memory) Set(key string, data any, ttl, grace time.Duration) {
	m.Put(key, Entry{Data: data, FetchedAt: m.now(), TTL: ttl, Grace: grace})
}

// Put stores a complete entry, preserving its FetchedAt. Used when promoting
// an entry from the durable tier so its age carries over.
func (m *Memory) Put(key string, entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
}

// PutUnlessNewer stores entry unless an entry fetched after cutoff already
// exists for key. Last-writer-wins by timestamp, not insertion order: a
// revalidation that started before a newer value landed discards its result.
func (m *Memory) PutUnlessNewer(key string, entry Entry, cutoff time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[key]; ok && cur.FetchedAt.After(cutoff) {
		return false
	}
	m.entries[key] = entry
	return true
}

// Sweep eagerly removes all expired entries. Called opportunistically before
// reads rather than on a timer.
func (m *Memory) Sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.entries {
		if !entry.ServableAt(now) {
			delete(m.entries, key)
		}
	}
}

// Clear removes all entries.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
}

// Len returns the number of stored entries, including not-yet-swept ones.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
