package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore using Redis SET NX. The billing
// auth middleware consults it to reject replayed requests.
type NonceStore struct {
	client *goredis.Client
	prefix string
}

// NewNonceStore creates a new Redis-backed nonce store.
func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{
		client: client,
		prefix: "nonce:",
	}
}

// CheckAndSet atomically claims a nonce for a caller. It returns true when
// the nonce was unused, false when it was already claimed.
func (s *NonceStore) CheckAndSet(ctx context.Context, caller string, nonce string, ttl time.Duration) (bool, error) {
	key := s.prefix + caller + ":" + nonce
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err == goredis.Nil {
		// SET NX lost, the nonce was already claimed
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return result == "OK", nil
}
