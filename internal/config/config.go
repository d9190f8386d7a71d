// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the resolved configuration.
type Config struct {
	// Origin catalog store settings
	OriginURL   string `json:"origin_url"`
	OriginToken string `json:"origin_token,omitempty"`

	// Shared edge cache settings. The edge tier is consulted only when
	// EdgeEnabled is true and EdgeURL is set; the predicate is evaluated
	// once per process, at service construction.
	EdgeURL     string `json:"edge_url,omitempty"`
	EdgeEnabled bool   `json:"edge_enabled"`

	// Cache settings
	CacheDir     string `json:"cache_dir"`
	CacheEnabled bool   `json:"cache_enabled"`

	// NetworkType overrides the ambient connection signal when set
	// ("slow-2g", "2g", "3g", "4g").
	NetworkType string `json:"network_type,omitempty"`

	// Output settings
	Format string `json:"format"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceLocal   Source = "local"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	OriginURL string
	EdgeURL   string
	CacheDir  string
	NoCache   bool
	Format    string
}

// Default returns the default configuration.
func Default() *Config {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}

	return &Config{
		CacheDir:     filepath.Join(cacheDir, "catq"),
		CacheEnabled: true,
		Format:       "table",
		Sources:      make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > local > global > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	// Global config
	if path := globalConfigPath(); path != "" {
		if err := cfg.mergeFile(path, SourceGlobal); err != nil {
			return nil, err
		}
	}

	// Local config (project-level, next to the working directory)
	if err := cfg.mergeFile(filepath.Join(".catq", "config.json"), SourceLocal); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyFlags(overrides)

	return cfg, nil
}

// globalConfigPath returns the user-level config file path.
func globalConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "catq", "config.json")
}

// mergeFile layers values from a config file, if it exists. A missing file
// is not an error; a malformed one is, so a typo never silently disables
// configuration.
func (c *Config) mergeFile(path string, source Source) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	var file Config
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	if file.OriginURL != "" {
		c.OriginURL = file.OriginURL
		c.Sources["origin_url"] = string(source)
	}
	if file.OriginToken != "" {
		c.OriginToken = file.OriginToken
		c.Sources["origin_token"] = string(source)
	}
	if file.EdgeURL != "" {
		c.EdgeURL = file.EdgeURL
		c.Sources["edge_url"] = string(source)
	}
	if file.EdgeEnabled {
		c.EdgeEnabled = true
		c.Sources["edge_enabled"] = string(source)
	}
	if file.CacheDir != "" {
		c.CacheDir = file.CacheDir
		c.Sources["cache_dir"] = string(source)
	}
	if file.NetworkType != "" {
		c.NetworkType = file.NetworkType
		c.Sources["network_type"] = string(source)
	}
	if file.Format != "" {
		c.Format = file.Format
		c.Sources["format"] = string(source)
	}
	return nil
}

// applyEnv layers CATQ_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("CATQ_ORIGIN_URL"); v != "" {
		c.OriginURL = v
		c.Sources["origin_url"] = string(SourceEnv)
	}
	if v := os.Getenv("CATQ_ORIGIN_TOKEN"); v != "" {
		c.OriginToken = v
		c.Sources["origin_token"] = string(SourceEnv)
	}
	if v := os.Getenv("CATQ_EDGE_URL"); v != "" {
		c.EdgeURL = v
		c.Sources["edge_url"] = string(SourceEnv)
	}
	if v := os.Getenv("CATQ_EDGE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.EdgeEnabled = b
			c.Sources["edge_enabled"] = string(SourceEnv)
		}
	}
	if v := os.Getenv("CATQ_CACHE_DIR"); v != "" {
		c.CacheDir = v
		c.Sources["cache_dir"] = string(SourceEnv)
	}
	if v := os.Getenv("CATQ_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CacheEnabled = b
			c.Sources["cache_enabled"] = string(SourceEnv)
		}
	}
	if v := os.Getenv("CATQ_NETWORK_TYPE"); v != "" {
		c.NetworkType = strings.TrimSpace(v)
		c.Sources["network_type"] = string(SourceEnv)
	}
}

// applyFlags layers command-line overrides, the highest precedence.
func (c *Config) applyFlags(o FlagOverrides) {
	if o.OriginURL != "" {
		c.OriginURL = o.OriginURL
		c.Sources["origin_url"] = string(SourceFlag)
	}
	if o.EdgeURL != "" {
		c.EdgeURL = o.EdgeURL
		c.EdgeEnabled = true
		c.Sources["edge_url"] = string(SourceFlag)
	}
	if o.CacheDir != "" {
		c.CacheDir = o.CacheDir
		c.Sources["cache_dir"] = string(SourceFlag)
	}
	if o.NoCache {
		c.CacheEnabled = false
		c.Sources["cache_enabled"] = string(SourceFlag)
	}
	if o.Format != "" {
		c.Format = o.Format
		c.Sources["format"] = string(SourceFlag)
	}
}

// EdgeActive reports whether the shared edge cache tier should be used.
// Decided once per process, not per call.
func (c *Config) EdgeActive() bool {
	return c.EdgeEnabled && c.EdgeURL != ""
}
