package recurrence

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// CacheConfig bounds the compiled-rule-set cache.
type CacheConfig struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// DefaultCacheConfig provides sensible defaults.
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

type cacheEntry struct {
	ruleSet    *CompiledRuleSet
	expiresAt  time.Time
	accessedAt time.Time
}

// Cache caches compiled rule-sets keyed by event UID plus a hash of the
// schedule sources that produced them; any change to the sources is an
// implicit cache miss.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	cfg     CacheConfig
}

// NewCache builds a Cache with the given configuration.
func NewCache(cfg CacheConfig) *Cache {
	return &Cache{entries: make(map[string]*cacheEntry), cfg: cfg}
}

func cacheKey(uid string, src Sources) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s", uid, src.DTStart, src.RRule, src.ExRule)
	for _, rd := range src.RDates {
		fmt.Fprintf(h, "|rd:%d", rd)
	}
	for _, ed := range src.ExDates {
		fmt.Fprintf(h, "|ed:%d", ed)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// GetOrCompile returns the cached compiled rule-set for (uid, src),
// compiling and storing it on a miss.
func (c *Cache) GetOrCompile(uid string, src Sources) (*CompiledRuleSet, error) {
	key := cacheKey(uid, src)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	now := time.Now()
	if ok && now.Before(entry.expiresAt) {
		c.mu.Lock()
		entry.accessedAt = now
		c.mu.Unlock()
		return entry.ruleSet, nil
	}

	ruleSet, err := Compile(src)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{ruleSet: ruleSet, expiresAt: now.Add(c.cfg.TTL), accessedAt: now}
	if len(c.entries) > c.cfg.MaxEntries {
		c.evictOldest()
	}
	return ruleSet, nil
}

func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.accessedAt.Before(oldestAt) {
			oldestKey, oldestAt = key, entry.accessedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
