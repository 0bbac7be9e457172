// Package config loads the few tunables this in-memory system actually
// has, using github.com/knadh/koanf/v2 with file-then-env provider
// layering over typed defaults.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/cyp0633/calindex/recurrence"
)

// IteratorConfig holds the runaway caps applied to occurrence
// expansion.
type IteratorConfig struct {
	MaxOccurrences int
	MaxTimeSpan    time.Duration
}

// DefaultIteratorConfig is generous enough for interactive use, bounded
// enough to guarantee termination even with a pathological RRULE.
var DefaultIteratorConfig = IteratorConfig{
	MaxOccurrences: 10_000,
	MaxTimeSpan:    10 * 365 * 24 * time.Hour,
}

// Config is the top-level typed configuration this module loads at
// startup.
type Config struct {
	Iterator     IteratorConfig
	Cache        recurrence.CacheConfig
	DefaultLimit int
}

// Default returns the configuration this module runs with absent any
// file/env overrides.
func Default() Config {
	return Config{
		Iterator:     DefaultIteratorConfig,
		Cache:        recurrence.DefaultCacheConfig,
		DefaultLimit: 50,
	}
}

// Load merges an optional config file then environment variables
// prefixed CALINDEX_ over the defaults, the way koanf's own layered-
// provider examples do. path may be empty, in which case only the
// environment layer (and defaults) apply.
func Load(path string) (Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, err
		}
	}
	if err := k.Load(env.Provider("CALINDEX_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "CALINDEX_")), "_", ".", 1)
	}), nil); err != nil {
		return cfg, err
	}

	if v := k.Int("iterator.max_occurrences"); v != 0 {
		cfg.Iterator.MaxOccurrences = v
	}
	if v := k.String("iterator.max_time_span"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Iterator.MaxTimeSpan = d
		}
	}
	if v := k.Int("cache.size"); v != 0 {
		cfg.Cache.MaxEntries = v
	}
	if v := k.String("cache.ttl"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := k.Int("query.default_limit"); v != 0 {
		cfg.DefaultLimit = v
	}

	return cfg, nil
}
