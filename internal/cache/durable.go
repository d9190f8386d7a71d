package cache

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FormatVersion is the durable cache schema version. Every entry file name
// carries it, so bumping the version orphans all prior entries without a
// migration; Sweep reclaims them.
const FormatVersion = 1

// lockFileName guards the cache directory against concurrent processes.
const lockFileName = "cache.lock"

// StoredEntry is a durable entry as read back from disk. Data stays raw;
// the caller decodes it into the operation's record type.
type StoredEntry struct {
	Raw       json.RawMessage
	FetchedAt time.Time
	TTL       time.Duration
	Grace     time.Duration
	ETag      string
}

// StateAt returns the derived freshness of the stored entry at now.
func (e StoredEntry) StateAt(now time.Time) State {
	return Entry{FetchedAt: e.FetchedAt, TTL: e.TTL, Grace: e.Grace}.StateAt(now)
}

// envelope is the on-disk JSON format. Not a public contract.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
	TTL       time.Duration   `json:"ttl"`
	Grace     time.Duration   `json:"grace"`
	ETag      string          `json:"etag,omitempty"`
}

// Durable is the on-disk cache tier. It survives process restarts and is
// shared across concurrent catq processes via file locking. All failure
// modes degrade to "absent" or "write dropped"; no storage error ever
// reaches a caller.
type Durable struct {
	dir  string
	now  Clock
	mu   sync.Mutex
	lock *flock.Flock
}

// NewDurable creates a durable cache rooted at dir. A nil clock uses time.Now.
func NewDurable(dir string, now Clock) *Durable {
	if now == nil {
		now = time.Now
	}
	return &Durable{
		dir:  dir,
		now:  now,
		lock: flock.New(filepath.Join(dir, lockFileName)),
	}
}

// Dir returns the cache directory path.
func (d *Durable) Dir() string {
	return d.dir
}

// entryPath maps a cache key to its versioned file path. The version tag is
// part of the name, so a format bump can never deserialize an old payload.
func (d *Durable) entryPath(key string) string {
	h := fnv.New64a()
	h.Write([]byte(key))
	return filepath.Join(d.dir, fmt.Sprintf("v%d-%x.json", FormatVersion, h.Sum64()))
}

// Get returns the stored entry for key if it is fresh or stale-but-servable.
// Corrupted payloads are deleted and reported as absent.
func (d *Durable) Get(key string) (StoredEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.entryPath(key)

	locked, _ := d.lock.TryRLock()
	if locked {
		defer d.lock.Unlock()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return StoredEntry{}, false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Corrupted entry: evict, never surface a parse error.
		_ = os.Remove(path)
		return StoredEntry{}, false
	}

	entry := StoredEntry{
		Raw:       env.Data,
		FetchedAt: env.FetchedAt,
		TTL:       env.TTL,
		Grace:     env.Grace,
		ETag:      env.ETag,
	}
	if entry.StateAt(d.now()) == StateExpired {
		_ = os.Remove(path)
		return StoredEntry{}, false
	}
	return entry, true
}

// Set serializes and stores a value. Returns false when the write was
// dropped (serialization failure or storage failure); a best-effort sweep
// runs first to reclaim space before the drop is final.
func (d *Durable) Set(key string, data any, ttl, grace time.Duration, etag string) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	env := envelope{
		Data:      raw,
		FetchedAt: d.now(),
		TTL:       ttl,
		Grace:     grace,
		ETag:      etag,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return false
	}

	locked, _ := d.lock.TryLock()
	if locked {
		defer d.lock.Unlock()
	}

	if err := d.writeFile(d.entryPath(key), payload); err != nil {
		d.sweepLocked()
		if err := d.writeFile(d.entryPath(key), payload); err != nil {
			return false
		}
	}
	return true
}

// writeFile writes atomically via a temp file so readers never observe a
// half-written entry.
func (d *Durable) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(d.dir, 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Remove deletes the entry for key, if present.
func (d *Durable) Remove(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = os.Remove(d.entryPath(key))
}

// Sweep removes expired entries and entries from older format versions.
func (d *Durable) Sweep() {
	d.mu.Lock()
	defer d.mu.Unlock()

	locked, _ := d.lock.TryLock()
	if locked {
		defer d.lock.Unlock()
	}
	d.sweepLocked()
}

func (d *Durable) sweepLocked() {
	names, err := d.entryFiles()
	if err != nil {
		return
	}
	prefix := fmt.Sprintf("v%d-", FormatVersion)
	now := d.now()
	for _, name := range names {
		path := filepath.Join(d.dir, name)
		if !strings.HasPrefix(name, prefix) {
			// Older format version; version rollover made it unreachable.
			_ = os.Remove(path)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = os.Remove(path)
			continue
		}
		stored := StoredEntry{FetchedAt: env.FetchedAt, TTL: env.TTL, Grace: env.Grace}
		if stored.StateAt(now) == StateExpired {
			_ = os.Remove(path)
		}
	}
}

// Clear removes all entries across all format versions.
func (d *Durable) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	locked, _ := d.lock.TryLock()
	if locked {
		defer d.lock.Unlock()
	}

	names, err := d.entryFiles()
	if err != nil {
		return
	}
	for _, name := range names {
		_ = os.Remove(filepath.Join(d.dir, name))
	}
}

// entryFiles lists entry file names in the cache dir (any version), skipping
// the lock file and temp files.
func (d *Durable) entryFiles() ([]string, error) {
	dirents, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || name == lockFileName {
			continue
		}
		if !strings.HasPrefix(name, "v") || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
