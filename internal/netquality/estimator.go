// Package netquality classifies the current connection into a fetch policy.
// It is a pure classifier over an ambient signal: no network calls are made
// here.
package netquality

import (
	"os"
	"strings"
	"sync"
	"time"
)

// Profile is the quality/size policy derived from the connection class.
type Profile struct {
	// ImageQuality is the compression quality (0-100) to request for images.
	ImageQuality int

	// BatchSize is the preferred listing page size.
	BatchSize int

	// AllowHighBandwidthAssets gates prefetching of secondary media
	// (gallery images) that a constrained connection should skip.
	AllowHighBandwidthAssets bool
}

// Signal exposes the ambient connection state. Implementations must be cheap
// to query; the estimator debounces re-reads regardless.
type Signal interface {
	// EffectiveType returns the connection class: "slow-2g", "2g", "3g"
	// or "4g". Empty means unknown.
	EffectiveType() string

	// SaveData returns true when the user asked to reduce data usage.
	SaveData() bool
}

// RefreshInterval is how long an estimate is held before the signal is
// re-read. Callers that need a stable value for a whole rendered unit should
// call Estimate once and hold the result.
const RefreshInterval = 30 * time.Second

// defaultProfile is returned when no signal is available.
var defaultProfile = Profile{ImageQuality: 80, BatchSize: 48, AllowHighBandwidthAssets: true}

// Estimator caches a classified Profile for RefreshInterval to prevent
// flicker from re-querying the signal on every read.
type Estimator struct {
	signal  Signal
	now     func() time.Time
	refresh time.Duration

	mu       sync.Mutex
	cached   Profile
	cachedAt time.Time
}

// NewEstimator creates an estimator over the given signal. A nil signal
// yields the fixed default profile; a nil clock uses time.Now.
func NewEstimator(signal Signal, now func() time.Time) *Estimator {
	if now == nil {
		now = time.Now
	}
	return &Estimator{signal: signal, now: now, refresh: RefreshInterval}
}

// Estimate returns the current quality profile, re-reading the signal at
// most once per refresh interval.
func (e *Estimator) Estimate() Profile {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if !e.cachedAt.IsZero() && now.Sub(e.cachedAt) < e.refresh {
		return e.cached
	}
	e.cached = Classify(e.signal)
	e.cachedAt = now
	return e.cached
}

// Classify maps a signal to a Profile. Exported for direct use in tests and
// one-shot callers that manage their own caching.
func Classify(signal Signal) Profile {
	if signal == nil {
		return defaultProfile
	}
	if signal.SaveData() {
		return Profile{ImageQuality: 40, BatchSize: 12, AllowHighBandwidthAssets: false}
	}
	switch signal.EffectiveType() {
	case "slow-2g", "2g":
		return Profile{ImageQuality: 40, BatchSize: 12, AllowHighBandwidthAssets: false}
	case "3g":
		return Profile{ImageQuality: 60, BatchSize: 24, AllowHighBandwidthAssets: false}
	case "4g":
		return Profile{ImageQuality: 80, BatchSize: 48, AllowHighBandwidthAssets: true}
	default:
		return defaultProfile
	}
}

// EnvSignal reads the connection class from the environment, the ambient
// channel available to a CLI process. CATQ_NETWORK_TYPE carries the
// effective type and CATQ_SAVE_DATA any truthy value.
type EnvSignal struct{}

func (EnvSignal) EffectiveType() string {
	return strings.TrimSpace(os.Getenv("CATQ_NETWORK_TYPE"))
}

func (EnvSignal) SaveData() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("CATQ_SAVE_DATA"))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// StaticSignal is a fixed signal, used for config overrides and tests.
type StaticSignal struct {
	Type string
	Save bool
}

func (s StaticSignal) EffectiveType() string { return s.Type }
func (s StaticSignal) SaveData() bool        { return s.Save }
