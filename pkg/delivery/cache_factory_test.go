package delivery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

type brokenCache struct {
	delivery.NoOpCache

	closed bool
}

var errBackendDown = errors.New("backend down")

func (c *brokenCache) Set(ctx context.Context, key string, entry *delivery.CacheEntry) error {
	return errBackendDown
}

func (c *brokenCache) Close() {
	c.closed = true
}

func TestNewCacheFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("single memory tier", func(t *testing.T) {
		t.Parallel()

		cache, err := delivery.NewCacheFromConfig(&delivery.CacheConfig{
			Tiers:  []delivery.CacheType{delivery.CacheTypeMemory},
			Memory: &delivery.MemoryCacheConfig{MaxSize: 5, CleanupInterval: time.Minute},
		})
		require.NoError(t, err)
		assert.IsType(t, &delivery.MemoryCache{}, cache)
	})

	t.Run("nil config defaults to memory", func(t *testing.T) {
		t.Parallel()

		cache, err := delivery.NewCacheFromConfig(nil)
		require.NoError(t, err)
		assert.IsType(t, &delivery.MemoryCache{}, cache)
	})

	t.Run("no tiers", func(t *testing.T) {
		t.Parallel()

		for _, tiers := range [][]delivery.CacheType{nil, {delivery.CacheTypeNone}} {
			cache, err := delivery.NewCacheFromConfig(&delivery.CacheConfig{Tiers: tiers})
			require.NoError(t, err)
			assert.IsType(t, &delivery.NoOpCache{}, cache)
		}
	})

	t.Run("nats tier requires config", func(t *testing.T) {
		t.Parallel()

		_, err := delivery.NewCacheFromConfig(&delivery.CacheConfig{
			Tiers: []delivery.CacheType{delivery.CacheTypeMemory, delivery.CacheTypeNATS},
		})
		require.ErrorIs(t, err, delivery.ErrNATSConfigRequired)
		assert.Contains(t, err.Error(), "creating nats cache")
	})

	t.Run("invalid tiers", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name  string
			tiers []delivery.CacheType
			err   error
		}{
			{"unsupported", []delivery.CacheType{"redis"}, delivery.ErrUnsupportedCacheType},
			{"duplicate", []delivery.CacheType{delivery.CacheTypeMemory, delivery.CacheTypeMemory}, delivery.ErrInvalidCacheTiers},
			{"none combined", []delivery.CacheType{delivery.CacheTypeNone, delivery.CacheTypeMemory}, delivery.ErrInvalidCacheTiers},
		}

		for _, testCase := range tests {
			_, err := delivery.NewCacheFromConfig(&delivery.CacheConfig{Tiers: testCase.tiers})
			require.ErrorIs(t, err, testCase.err, testCase.name)
		}
	})
}

func TestParseCacheTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		want  []delivery.CacheType
		err   error
	}{
		{value: ""},
		{value: "none"},
		{value: "memory", want: []delivery.CacheType{delivery.CacheTypeMemory}},
		{value: " Memory , NATS ", want: []delivery.CacheType{delivery.CacheTypeMemory, delivery.CacheTypeNATS}},
		{value: "nats,", want: []delivery.CacheType{delivery.CacheTypeNATS}},
		{value: "disk", err: delivery.ErrUnsupportedCacheType},
		{value: "memory,memory", err: delivery.ErrInvalidCacheTiers},
		{value: "memory,none", err: delivery.ErrInvalidCacheTiers},
	}

	for _, testCase := range tests {
		t.Run(testCase.value, func(t *testing.T) {
			t.Parallel()

			got, err := delivery.ParseCacheTiers(testCase.value)
			if testCase.err != nil {
				require.ErrorIs(t, err, testCase.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func TestNoOpCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := delivery.NewNoOpCache()

	require.NoError(t, cache.Set(ctx, "key", &delivery.CacheEntry{Data: []byte("x")}))

	_, err := cache.Get(ctx, "key")
	require.ErrorIs(t, err, delivery.ErrCacheDisabled)
	assert.False(t, cache.Has(ctx, "key"))
	require.NoError(t, cache.Delete(ctx, "key"))
	require.NoError(t, cache.Clear(ctx))
}

func TestCacheChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("back-fills faster tiers with the original expiry", func(t *testing.T) {
		t.Parallel()

		local := delivery.NewMemoryCache(10)
		shared := delivery.NewMemoryCache(10)
		chain := delivery.NewCacheChain(local, shared)

		expiresAt := time.Now().Add(time.Hour)
		require.NoError(t, shared.Set(ctx, "key", &delivery.CacheEntry{Data: []byte("page"), ExpiresAt: expiresAt}))
		assert.False(t, local.Has(ctx, "key"))

		entry, err := chain.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, []byte("page"), entry.Data)

		copied, err := local.Get(ctx, "key")
		require.NoError(t, err)
		assert.True(t, copied.ExpiresAt.Equal(expiresAt))
	})

	t.Run("skips expired tiers", func(t *testing.T) {
		t.Parallel()

		local := delivery.NewMemoryCache(10)
		shared := delivery.NewMemoryCache(10)
		chain := delivery.NewCacheChain(local, shared)

		require.NoError(t, local.Set(ctx, "key", &delivery.CacheEntry{Data: []byte("stale"), ExpiresAt: time.Now().Add(-time.Second)}))
		require.NoError(t, shared.Set(ctx, "key", &delivery.CacheEntry{Data: []byte("fresh")}))

		entry, err := chain.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, []byte("fresh"), entry.Data)
	})

	t.Run("writes every tier", func(t *testing.T) {
		t.Parallel()

		local := delivery.NewMemoryCache(10)
		shared := delivery.NewMemoryCache(10)
		chain := delivery.NewCacheChain(local, shared)

		require.NoError(t, chain.Set(ctx, "key", &delivery.CacheEntry{Data: []byte("x")}))
		assert.True(t, local.Has(ctx, "key"))
		assert.True(t, shared.Has(ctx, "key"))
		assert.True(t, chain.Has(ctx, "key"))

		require.NoError(t, chain.Delete(ctx, "key"))
		assert.False(t, chain.Has(ctx, "key"))

		require.NoError(t, chain.Set(ctx, "key", &delivery.CacheEntry{Data: []byte("x")}))
		require.NoError(t, chain.Clear(ctx))
		assert.False(t, shared.Has(ctx, "key"))
	})

	t.Run("failing tier does not stop the others", func(t *testing.T) {
		t.Parallel()

		broken := &brokenCache{}
		shared := delivery.NewMemoryCache(10)
		chain := delivery.NewCacheChain(broken, shared)

		err := chain.Set(ctx, "key", &delivery.CacheEntry{Data: []byte("x")})
		require.ErrorIs(t, err, errBackendDown)
		assert.Contains(t, err.Error(), "cache tier 0")
		assert.True(t, shared.Has(ctx, "key"))

		chain.Close()
		assert.True(t, broken.closed)
	})

	t.Run("miss everywhere", func(t *testing.T) {
		t.Parallel()

		chain := delivery.NewCacheChain(delivery.NewMemoryCache(10), delivery.NewNoOpCache())

		_, err := chain.Get(ctx, "missing")
		require.ErrorIs(t, err, delivery.ErrNotFoundInAnyCache)
	})
}
