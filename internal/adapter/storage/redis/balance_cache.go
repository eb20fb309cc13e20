package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clinic-wallet-service/internal/core/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// BalanceCache implements ports.BalanceCache using Redis. Entries hold a
// JSON-encoded balance snapshot; Postgres stays the source of truth.
type BalanceCache struct {
	client *goredis.Client
	prefix string
}

// NewBalanceCache creates a new Redis-backed balance cache.
func NewBalanceCache(client *goredis.Client) *BalanceCache {
	return &BalanceCache{
		client: client,
		prefix: "balance:",
	}
}

// Get retrieves a cached balance snapshot by wallet ID.
// Returns nil, nil on cache miss.
func (c *BalanceCache) Get(ctx context.Context, walletID uuid.UUID) (*ports.BalanceSnapshot, error) {
	val, err := c.client.Get(ctx, c.prefix+walletID.String()).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis balance get: %w", err)
	}

	snapshot := &ports.BalanceSnapshot{}
	if err := json.Unmarshal(val, snapshot); err != nil {
		return nil, fmt.Errorf("decode balance snapshot: %w", err)
	}
	return snapshot, nil
}

// Set stores a balance snapshot with TTL.
func (c *BalanceCache) Set(ctx context.Context, snapshot *ports.BalanceSnapshot, ttl time.Duration) error {
	val, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode balance snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+snapshot.WalletID.String(), val, ttl).Err(); err != nil {
		return fmt.Errorf("redis balance set: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot for a wallet. Called after every
// committed ledger operation.
func (c *BalanceCache) Invalidate(ctx context.Context, walletID uuid.UUID) error {
	if err := c.client.Del(ctx, c.prefix+walletID.String()).Err(); err != nil {
		return fmt.Errorf("redis balance invalidate: %w", err)
	}
	return nil
}
