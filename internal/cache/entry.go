// Package cache provides the volatile in-memory and durable on-disk cache
// tiers. Entries are immutable once written: a refresh always replaces the
// entry rather than mutating it in place, so concurrent readers never observe
// a half-updated entry.
package cache

import "time"

// Clock returns the current time. Tests inject a fake; nil means time.Now.
type Clock func() time.Time

// State is the derived freshness of an entry at a point in time.
type State int

const (
	StateFresh   State = iota // within TTL
	StateStale                // past TTL, within grace window; servable while revalidating
	StateExpired              // past grace window; must not be served
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Entry holds a cached value with its timing metadata. FetchedAt is the
// moment the entry was written and is never mutated.
type Entry struct {
	Data      any
	FetchedAt time.Time
	TTL       time.Duration
	Grace     time.Duration
	ETag      string
}

// StateAt is the single freshness predicate: fresh while now <= FetchedAt+TTL,
// stale-but-servable while now <= FetchedAt+TTL+Grace, expired after. Both
// upper bounds are inclusive.
func (e Entry) StateAt(now time.Time) State {
	if !now.After(e.FetchedAt.Add(e.TTL)) {
		return StateFresh
	}
	if !now.After(e.FetchedAt.Add(e.TTL + e.Grace)) {
		return StateStale
	}
	return StateExpired
}

// FreshAt returns true if the entry is within its TTL at now.
func (e Entry) FreshAt(now time.Time) bool {
	return e.StateAt(now) == StateFresh
}

// ServableAt returns true if the entry may be returned to callers at now,
// fresh or stale.
func (e Entry) ServableAt(now time.Time) bool {
	return e.StateAt(now) != StateExpired
}
