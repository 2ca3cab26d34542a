// internal/cache/wallet_cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"wallet-ledger/internal/domain"
)

// ErrCacheMiss is returned when a wallet is not cached.
var ErrCacheMiss = errors.New("wallet not found in cache")

// WalletCache caches plain wallet reads. It is never consulted on the mutation path.
//
// Each wallet carries an invalidation version. A reader takes the version before it
// reads the database and hands it back to SetWallet, which stores nothing if an
// invalidation happened in between.
type WalletCache interface {
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	Version(ctx context.Context, id uuid.UUID) (int64, error)
	SetWallet(ctx context.Context, wallet *domain.Wallet, version int64) error
	InvalidateWallet(ctx context.Context, id uuid.UUID) error
}

// versionTTL outlives any single read. An expired version only makes pending fills skip.
const versionTTL = 24 * time.Hour

// setIfVersion stores the wallet only while the version key still holds the value the reader saw.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// RedisWalletCache stores wallets as JSON under "wallet:<id>".
type RedisWalletCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisWalletCache creates a cache whose entries expire after ttl.
func NewRedisWalletCache(client *redis.Client, ttl time.Duration) *RedisWalletCache {
	return &RedisWalletCache{client: client, ttl: ttl}
}

func (c *RedisWalletCache) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	data, err := c.client.Get(ctx, walletKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached wallet %s: %w", id, err)
	}

	var wallet domain.Wallet
	if err := json.Unmarshal(data, &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached wallet %s: %w", id, err)
	}
	return &wallet, nil
}

func (c *RedisWalletCache) Version(ctx context.Context, id uuid.UUID) (int64, error) {
	version, err := c.client.Get(ctx, versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get cache version of wallet %s: %w", id, err)
	}
	return version, nil
}

func (c *RedisWalletCache) SetWallet(ctx context.Context, wallet *domain.Wallet, version int64) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet %s: %w", wallet.ID, err)
	}
	keys := []string{walletKey(wallet.ID), versionKey(wallet.ID)}
	err = setIfVersion.Run(ctx, c.client, keys, version, data, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("failed to cache wallet %s: %w", wallet.ID, err)
	}
	return nil
}

// InvalidateWallet bumps the version before dropping the entry so in-flight fills are discarded.
func (c *RedisWalletCache) InvalidateWallet(ctx context.Context, id uuid.UUID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(id))
		pipe.Expire(ctx, versionKey(id), versionTTL)
		pipe.Del(ctx, walletKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cached wallet %s: %w", id, err)
	}
	return nil
}

func walletKey(id uuid.UUID) string {
	return fmt.Sprintf("wallet:%s", id)
}

func versionKey(id uuid.UUID) string {
	return fmt.Sprintf("wallet:%s:version", id)
}

// NoopWalletCache is used when no Redis address is configured. Every read misses.
type NoopWalletCache struct{}

func (NoopWalletCache) GetWallet(context.Context, uuid.UUID) (*domain.Wallet, error) {
	return nil, ErrCacheMiss
}
func (NoopWalletCache) Version(context.Context, uuid.UUID) (int64, error)        { return 0, nil }
func (NoopWalletCache) SetWallet(context.Context, *domain.Wallet, int64) error { return nil }
func (NoopWalletCache) InvalidateWallet(context.Context, uuid.UUID) error      { return nil }
