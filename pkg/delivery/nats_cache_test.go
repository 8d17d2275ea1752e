package delivery_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

func TestNATSKVCache_RequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := delivery.NewNATSKVCache(nil)
	require.ErrorIs(t, err, delivery.ErrNATSConfigRequired)
}

// TestNATSKVCache runs against the JetStream server named by NATS_URL.
func TestNATSKVCache(t *testing.T) {
	t.Parallel()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping NATS KV cache test")
	}

	cache, err := delivery.NewNATSKVCache(&delivery.NATSKVConfig{
		URL:    url,
		Bucket: "cda_test_" + uuid.NewString()[:8],
		TTL:    time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	ctx := context.Background()
	key := delivery.CacheKey("GET", entriesPath, nil)

	_, err = cache.Get(ctx, key)
	require.ErrorIs(t, err, delivery.ErrCacheKeyNotFound)

	require.NoError(t, cache.Set(ctx, key, &delivery.CacheEntry{
		Data:      []byte(`{"items":[]}`),
		ExpiresAt: time.Now().Add(time.Minute),
		ETag:      "v1",
	}))

	entry, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(entry.Data))
	assert.Equal(t, "v1", entry.ETag)
	assert.True(t, cache.Has(ctx, key))

	require.NoError(t, cache.Set(ctx, "stale", &delivery.CacheEntry{ExpiresAt: time.Now().Add(-time.Second)}))

	_, err = cache.Get(ctx, "stale")
	require.ErrorIs(t, err, delivery.ErrCacheEntryExpired)

	require.NoError(t, cache.Delete(ctx, key))
	assert.False(t, cache.Has(ctx, key))

	require.NoError(t, cache.Set(ctx, key, &delivery.CacheEntry{Data: []byte("x")}))
	require.NoError(t, cache.Clear(ctx))
	assert.False(t, cache.Has(ctx, key))
}

func TestNATSKVCache_BehindMemoryTier(t *testing.T) {
	t.Parallel()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping tiered cache test")
	}

	natsConfig := &delivery.NATSKVConfig{
		URL:    url,
		Bucket: "cda_test_" + uuid.NewString()[:8],
		TTL:    time.Minute,
	}

	cache, err := delivery.NewCacheFromConfig(&delivery.CacheConfig{
		Tiers: []delivery.CacheType{delivery.CacheTypeMemory, delivery.CacheTypeNATS},
		NATS:  natsConfig,
	})
	require.NoError(t, err)

	chain, ok := cache.(*delivery.CacheChain)
	require.True(t, ok)
	t.Cleanup(chain.Close)

	ctx := context.Background()
	key := delivery.ScopedCacheKey("cdn.contentful.com", "GET", entriesPath, nil)

	require.NoError(t, chain.Set(ctx, key, &delivery.CacheEntry{
		Data:      []byte(`{"items":[]}`),
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	shared, err := delivery.NewNATSKVCache(natsConfig)
	require.NoError(t, err)
	t.Cleanup(shared.Close)

	entry, err := shared.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(entry.Data))
}
