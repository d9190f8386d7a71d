package data

import (
	"sync"
	"time"
)

// Tier identifies a backing tier in the lookup order.
type Tier string

const (
	TierMemory  Tier = "memory"
	TierDurable Tier = "durable"
	TierEdge    Tier = "edge"
	TierOrigin  Tier = "origin"
)

// FetchEvent records a single settled fetch.
type FetchEvent struct {
	Timestamp time.Time
	Key       string
	Duration  time.Duration
	Err       bool
}

// KeyStats holds aggregate statistics for a single cache key.
type KeyStats struct {
	FetchCount  int
	ErrorCount  int
	TotalTimeMs int64
	LastFetch   time.Time
}

// TierStats counts hits and misses for one tier.
type TierStats struct {
	Hits   int
	Misses int
}

// Summary is a point-in-time snapshot of cache health.
type Summary struct {
	TrackedKeys int
	P50Latency  time.Duration
	ErrorRate   float64
	Tiers       map[Tier]TierStats
}

// Metrics collects cache and fetch telemetry.
type Metrics struct {
	mu     sync.Mutex
	events []FetchEvent // ring buffer, last 100
	stats  map[string]*KeyStats
	tiers  map[Tier]*TierStats
}

const maxEvents = 100

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		stats: make(map[string]*KeyStats),
		tiers: make(map[Tier]*TierStats),
	}
}

// RecordHit counts a tier hit.
func (m *Metrics) RecordHit(tier Tier, key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tierLocked(tier).Hits++
}

// RecordMiss counts a tier miss.
func (m *Metrics) RecordMiss(tier Tier, key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tierLocked(tier).Misses++
}

// RecordFetch adds a settled fetch to the ring buffer and updates per-key
// stats.
func (m *Metrics) RecordFetch(key string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := FetchEvent{Timestamp: time.Now(), Key: key, Duration: duration, Err: err != nil}
	if len(m.events) >= maxEvents {
		m.events = m.events[1:]
	}
	m.events = append(m.events, e)

	s, ok := m.stats[key]
	if !ok {
		s = &KeyStats{}
		m.stats[key] = s
	}
	s.FetchCount++
	s.TotalTimeMs += duration.Milliseconds()
	s.LastFetch = e.Timestamp
	if e.Err {
		s.ErrorCount++
	}
}

func (m *Metrics) tierLocked(tier Tier) *TierStats {
	t, ok := m.tiers[tier]
	if !ok {
		t = &TierStats{}
		m.tiers[tier] = t
	}
	return t
}

// Snapshot returns aggregate metrics.
func (m *Metrics) Snapshot() Summary {
	if m == nil {
		return Summary{Tiers: map[Tier]TierStats{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Summary{
		TrackedKeys: len(m.stats),
		Tiers:       make(map[Tier]TierStats, len(m.tiers)),
	}
	for tier, t := range m.tiers {
		out.Tiers[tier] = *t
	}

	var latencies []time.Duration
	var errors, total int
	for i := len(m.events) - 1; i >= 0 && len(latencies) < 50; i-- {
		e := m.events[i]
		total++
		if e.Err {
			errors++
			continue
		}
		latencies = append(latencies, e.Duration)
	}
	if len(latencies) > 0 {
		sortDurations(latencies)
		out.P50Latency = latencies[len(latencies)/2]
	}
	if total > 0 {
		out.ErrorRate = float64(errors) / float64(total)
	}
	return out
}

// sortDurations sorts a slice of durations in ascending order.
func sortDurations(d []time.Duration) {
	for i := 1; i < len(d); i++ {
		for j := i; j > 0 && d[j] < d[j-1]; j-- {
			d[j], d[j-1] = d[j-1], d[j]
		}
	}
}
