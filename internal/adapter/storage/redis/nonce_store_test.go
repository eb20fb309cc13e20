package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceStore_CheckAndSet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewNonceStore(client)
	ctx := context.Background()

	// First use is valid
	ok, err := store.CheckAndSet(ctx, "billing", "nonce-abc", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// Replay is rejected
	ok, err = store.CheckAndSet(ctx, "billing", "nonce-abc", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Same nonce under a different caller is independent
	ok, err = store.CheckAndSet(ctx, "billing-staging", "nonce-abc", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNonceStore_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewNonceStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "billing", "nonce-ttl", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	s.FastForward(2 * time.Second)

	// After expiry the nonce key is gone; the timestamp drift check upstream
	// is what keeps an old request from being replayed this late.
	ok, err = store.CheckAndSet(ctx, "billing", "nonce-ttl", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
