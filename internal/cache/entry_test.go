package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntryStateAt_Boundaries(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{FetchedAt: t0, TTL: time.Minute, Grace: 30 * time.Second}

	assert.Equal(t, StateFresh, e.StateAt(t0), "fresh at write time")
	assert.Equal(t, StateFresh, e.StateAt(t0.Add(time.Minute)), "fresh exactly at TTL boundary (inclusive)")
	assert.Equal(t, StateStale, e.StateAt(t0.Add(time.Minute+time.Nanosecond)), "stale just past TTL")
	assert.Equal(t, StateStale, e.StateAt(t0.Add(90*time.Second)), "stale exactly at grace boundary (inclusive)")
	assert.Equal(t, StateExpired, e.StateAt(t0.Add(90*time.Second+time.Nanosecond)), "expired just past grace")
}

func TestEntryStateAt_ZeroGrace(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{FetchedAt: t0, TTL: time.Minute}

	assert.Equal(t, StateFresh, e.StateAt(t0.Add(time.Minute)))
	assert.Equal(t, StateExpired, e.StateAt(t0.Add(time.Minute+time.Nanosecond)),
		"no stale window without grace")
}

func TestEntryPredicates(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{FetchedAt: t0, TTL: time.Minute, Grace: time.Minute}

	assert.True(t, e.FreshAt(t0))
	assert.True(t, e.ServableAt(t0))

	stale := t0.Add(90 * time.Second)
	assert.False(t, e.FreshAt(stale))
	assert.True(t, e.ServableAt(stale))

	expired := t0.Add(3 * time.Minute)
	assert.False(t, e.FreshAt(expired))
	assert.False(t, e.ServableAt(expired))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fresh", StateFresh.String())
	assert.Equal(t, "stale", StateStale.String())
	assert.Equal(t, "expired", StateExpired.String())
}
