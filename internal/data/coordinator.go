// Package data is the client-side data layer between views and the remote
// catalog store. The Coordinator walks the cache tiers (memory, durable,
// edge, origin), coalesces duplicate concurrent queries, and serves stale
// entries while revalidating them in the background.
package data

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shopkit/catq/internal/cache"
)

// FetchFunc retrieves fresh data for a key from a backing service.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Policy fixes the tier eligibility and TTLs for one operation.
type Policy struct {
	TTL     time.Duration
	Grace   time.Duration // serve-stale window after TTL expires
	Durable bool          // eligible for the durable tier
}

// Coordinator owns the cache tiers and the pending-fetch registry. It is a
// process-wide singleton in normal use but explicitly constructed, so tests
// build isolated instances.
//
// Known limitation, preserved from the behavior this layer replicates: a
// stale entry is served indefinitely while its background revalidation keeps
// failing; there is no backoff or failure cap.
type Coordinator struct {
	memory  *cache.Memory
	durable *cache.Durable // nil when the durable tier is disabled
	now     cache.Clock
	metrics *Metrics
	logger  *slog.Logger

	// group is the pending-fetch registry: at most one outstanding fetch
	// per key; every concurrent caller for the key shares its result.
	// Flights are registered under a generation-scoped key so that reads
	// issued after Clear never join a pre-clear flight.
	group      singleflight.Group
	generation atomic.Uint64
}

// NewCoordinator creates a Coordinator over the given tiers. durable may be
// nil; a nil clock uses time.Now; a nil logger uses slog.Default.
func NewCoordinator(memory *cache.Memory, durable *cache.Durable, now cache.Clock, metrics *Metrics, logger *slog.Logger) *Coordinator {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		memory:  memory,
		durable: durable,
		now:     now,
		metrics: metrics,
		logger:  logger,
	}
}

// Clear drops every cached entry in all tiers and detaches in-flight fetches
// from the cache: their callers still get results, but nothing written
// before the clear, or fetched on behalf of a pre-clear caller, survives.
func (c *Coordinator) Clear() {
	c.generation.Add(1)
	c.memory.Clear()
	if c.durable != nil {
		c.durable.Clear()
	}
}

// Lookup resolves key through the tiers.
//
//  1. Memory hit, fresh: returned immediately.
//  2. Memory hit, stale-but-servable: returned immediately; exactly one
//     background revalidation is scheduled through the pending registry.
//  3. Durable hit (eligible ops): promoted into memory with its original
//     timestamp, then treated as case 1 or 2.
//  4. Otherwise the fetch runs through the pending registry: concurrent
//     callers with the same key share one fetch and one result or error.
//
// Failed fetches write nothing; an empty result is a valid cached value.
func Lookup[T any](ctx context.Context, c *Coordinator, key string, pol Policy, fetch FetchFunc[T]) (T, error) {
	c.memory.Sweep()

	if v, ok := fromMemory(c, key, pol, fetch); ok {
		return v, nil
	}
	if v, ok := fromDurable(c, key, pol, fetch); ok {
		return v, nil
	}
	return runFetch(ctx, c, key, pol, fetch)
}

// fromMemory serves a fresh or stale-but-servable memory entry.
func fromMemory[T any](c *Coordinator, key string, pol Policy, fetch FetchFunc[T]) (T, bool) {
	var zero T
	entry, ok := c.memory.Get(key)
	if !ok {
		c.metrics.RecordMiss(TierMemory, key)
		return zero, false
	}
	v, ok := entry.Data.(T)
	if !ok {
		// A different operation hashed to this key; treat as absent.
		c.metrics.RecordMiss(TierMemory, key)
		return zero, false
	}
	c.metrics.RecordHit(TierMemory, key)
	if entry.StateAt(c.now()) == cache.StateStale {
		c.logger.Debug("serving stale, revalidating", "key", key)
		revalidate(c, key, pol, fetch)
	}
	return v, true
}

// fromDurable promotes a durable entry into memory and serves it.
func fromDurable[T any](c *Coordinator, key string, pol Policy, fetch FetchFunc[T]) (T, bool) {
	var zero T
	if !pol.Durable || c.durable == nil {
		return zero, false
	}
	stored, ok := c.durable.Get(key)
	if !ok {
		c.metrics.RecordMiss(TierDurable, key)
		return zero, false
	}
	var v T
	if err := json.Unmarshal(stored.Raw, &v); err != nil {
		// Payload is type-incompatible with the current record shape.
		c.durable.Remove(key)
		c.metrics.RecordMiss(TierDurable, key)
		return zero, false
	}
	entry := cache.Entry{
		Data:      v,
		FetchedAt: stored.FetchedAt,
		TTL:       stored.TTL,
		Grace:     stored.Grace,
		ETag:      stored.ETag,
	}
	c.memory.Put(key, entry)
	c.metrics.RecordHit(TierDurable, key)
	if entry.StateAt(c.now()) == cache.StateStale {
		c.logger.Debug("serving stale from durable, revalidating", "key", key)
		revalidate(c, key, pol, fetch)
	}
	return v, true
}

// runFetch registers (or joins) the pending fetch for key and returns its
// result. The fetch itself is detached from the caller's cancellation so
// other waiters are never starved by one caller giving up.
func runFetch[T any](ctx context.Context, c *Coordinator, key string, pol Policy, fetch FetchFunc[T]) (T, error) {
	gen := c.generation.Load()
	flightKey := strconv.FormatUint(gen, 10) + "|" + key
	start := c.now()

	res, err, _ := c.group.Do(flightKey, func() (any, error) {
		t0 := time.Now()
		v, err := fetch(context.WithoutCancel(ctx))
		c.metrics.RecordFetch(key, time.Since(t0), err)
		if err != nil {
			return nil, err
		}
		c.storeResult(key, pol, v, gen, start)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// storeResult writes a settled fetch into the eligible tiers, unless the
// cache was cleared mid-flight or a newer value already landed.
func (c *Coordinator) storeResult(key string, pol Policy, v any, gen uint64, start time.Time) {
	if c.generation.Load() != gen {
		c.logger.Debug("discarding fetch result, cache cleared mid-flight", "key", key)
		return
	}
	entry := cache.Entry{Data: v, FetchedAt: c.now(), TTL: pol.TTL, Grace: pol.Grace}
	if !c.memory.PutUnlessNewer(key, entry, start) {
		c.logger.Debug("discarding fetch result, newer value landed", "key", key)
		return
	}
	if pol.Durable && c.durable != nil {
		if !c.durable.Set(key, v, pol.TTL, pol.Grace, entry.ETag) {
			c.logger.Warn("durable cache write dropped", "key", key)
		}
	}
}

// revalidate schedules a background refresh for key. It goes through the
// same pending registry as foreground fetches, so a foreground miss and a
// background revalidation for one key can never run concurrently, and
// repeated stale hits while a refresh is in flight join it instead of
// issuing more fetches. Callers never block on the refresh.
func revalidate[T any](c *Coordinator, key string, pol Policy, fetch FetchFunc[T]) {
	go func() {
		if _, err := runFetch(context.Background(), c, key, pol, fetch); err != nil {
			c.logger.Debug("background revalidation failed", "key", key, "error", err)
		}
	}()
}
