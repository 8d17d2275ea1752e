package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/cda-client/internal/constants"
)

// CacheType names a response cache tier.
type CacheType string

const (
	// CacheTypeMemory keeps responses in a process-local LRU.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS shares responses through a JetStream KV bucket.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone disables response caching.
	CacheTypeNone CacheType = "none"
)

// CacheConfig lists the response cache tiers, fastest first. Several tiers
// are combined into a CacheChain, so {memory, nats} serves repeated pages
// from the process while sharing fetched pages with every other process
// reading the same space.
type CacheConfig struct {
	Tiers  []CacheType
	Memory *MemoryCacheConfig
	NATS   *NATSKVConfig
}

// MemoryCacheConfig configures the memory tier.
type MemoryCacheConfig struct {
	// MaxSize bounds the number of cached responses.
	MaxSize int

	// CleanupInterval, when positive, drops expired responses in the
	// background instead of on the next lookup.
	CleanupInterval time.Duration
}

// DefaultCacheConfig returns a single memory tier.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Tiers:  []CacheType{CacheTypeMemory},
		Memory: &MemoryCacheConfig{MaxSize: constants.DefaultCacheSize},
	}
}

// ParseCacheTiers parses a comma separated tier list such as "memory,nats".
// An empty value and "none" both mean no tiers.
func ParseCacheTiers(value string) ([]CacheType, error) {
	var tiers []CacheType

	for part := range strings.SplitSeq(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			tiers = append(tiers, CacheType(part))
		}
	}

	err := validateTiers(tiers)
	if err != nil {
		return nil, err
	}

	if len(tiers) == 1 && tiers[0] == CacheTypeNone {
		return nil, nil
	}

	return tiers, nil
}

func validateTiers(tiers []CacheType) error {
	seen := make(map[CacheType]bool, len(tiers))

	for _, tier := range tiers {
		switch tier {
		case CacheTypeMemory, CacheTypeNATS:
		case CacheTypeNone:
			if len(tiers) > 1 {
				return fmt.Errorf("%w: none cannot be combined with other tiers", ErrInvalidCacheTiers)
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedCacheType, tier)
		}

		if seen[tier] {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidCacheTiers, tier)
		}

		seen[tier] = true
	}

	return nil
}

// NewCacheFromConfig builds the configured tiers. No tiers yields a
// NoOpCache, one tier its backend and several a CacheChain. A nil config
// selects DefaultCacheConfig.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	err := validateTiers(config.Tiers)
	if err != nil {
		return nil, err
	}

	caches := make([]Cache, 0, len(config.Tiers))

	for _, tier := range config.Tiers {
		cache, err := newCacheTier(tier, config)
		if err != nil {
			NewCacheChain(caches...).Close()

			return nil, fmt.Errorf("creating %s cache: %w", tier, err)
		}

		caches = append(caches, cache)
	}

	switch len(caches) {
	case 0:
		return NewNoOpCache(), nil
	case 1:
		return caches[0], nil
	default:
		return NewCacheChain(caches...), nil
	}
}

func newCacheTier(tier CacheType, config *CacheConfig) (Cache, error) {
	switch tier {
	case CacheTypeMemory:
		return NewMemoryCacheFromConfig(config.Memory), nil
	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)
	default:
		return NewNoOpCache(), nil
	}
}

// NewMemoryCacheFromConfig creates the memory tier. A nil config keeps
// DefaultCacheSize responses without a background janitor.
func NewMemoryCacheFromConfig(config *MemoryCacheConfig) *MemoryCache {
	if config == nil {
		return NewMemoryCache(constants.DefaultCacheSize)
	}

	cache := NewMemoryCache(config.MaxSize)
	if config.CleanupInterval > 0 {
		go cache.janitor(config.CleanupInterval)
	}

	return cache
}

// janitor runs Cleanup every interval for the life of the process.
func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		c.Cleanup()
	}
}

// NoOpCache stores nothing. Every lookup fails with ErrCacheDisabled.
type NoOpCache struct{}

// NewNoOpCache creates a disabled cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error { return nil }

func (c *NoOpCache) Delete(ctx context.Context, key string) error { return nil }

func (c *NoOpCache) Clear(ctx context.Context) error { return nil }

func (c *NoOpCache) Has(ctx context.Context, key string) bool { return false }

// CacheChain layers cache tiers, fastest first. A response found in a slower
// tier is copied into the tiers above it with its original expiry, so a
// local copy never outlives the shared one.
type CacheChain struct {
	tiers []Cache
}

// NewCacheChain creates a chain over tiers.
func NewCacheChain(tiers ...Cache) *CacheChain {
	return &CacheChain{tiers: tiers}
}

// Get returns the entry from the fastest tier holding it.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, tier := range c.tiers {
		entry, err := tier.Get(ctx, key)
		if err != nil {
			continue
		}

		for _, faster := range c.tiers[:i] {
			_ = faster.Set(ctx, key, entry)
		}

		return entry, nil
	}

	return nil, ErrNotFoundInAnyCache
}

// Set writes entry to every tier. Failing tiers do not stop the others.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return c.each(func(tier Cache) error { return tier.Set(ctx, key, entry) })
}

// Delete removes key from every tier.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	return c.each(func(tier Cache) error { return tier.Delete(ctx, key) })
}

// Clear empties every tier.
func (c *CacheChain) Clear(ctx context.Context) error {
	return c.each(func(tier Cache) error { return tier.Clear(ctx) })
}

// Has reports whether any tier holds key.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, tier := range c.tiers {
		if tier.Has(ctx, key) {
			return true
		}
	}

	return false
}

// Close releases the tiers that hold connections.
func (c *CacheChain) Close() {
	for _, tier := range c.tiers {
		if closer, ok := tier.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

func (c *CacheChain) each(fn func(Cache) error) error {
	var errs []error

	for i, tier := range c.tiers {
		err := fn(tier)
		if err != nil {
			errs = append(errs, fmt.Errorf("cache tier %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}
