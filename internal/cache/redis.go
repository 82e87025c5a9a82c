package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nakaltrade/nakal-agent/internal/trade"
)

// completedTTL keeps settlement records queryable for a week.
const completedTTL = 7 * 24 * time.Hour

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address   string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
	UseTLS    bool
}

// RedisCache persists completed trades in Redis.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(cfg *RedisConfig) (*RedisCache, error) {
	opts := &redis.Options{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &RedisCache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (c *RedisCache) key(paymentID string) string {
	return c.keyPrefix + "completed:" + paymentID
}

// SaveCompleted writes the settlement record for a completed trade.
func (c *RedisCache) SaveCompleted(ctx context.Context, t trade.Trade, settlementTx string) error {
	record := StoredTrade{
		Trade:        t,
		SettlementTx: settlementTx,
		CompletedAt:  time.Now(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal completed trade: %w", err)
	}
	if err := c.client.Set(ctx, c.key(t.PaymentID), data, completedTTL).Err(); err != nil {
		return fmt.Errorf("failed to store completed trade: %w", err)
	}
	return nil
}

// GetCompleted retrieves a settlement record, or ErrNotCached.
func (c *RedisCache) GetCompleted(ctx context.Context, paymentID string) (*StoredTrade, error) {
	data, err := c.client.Get(ctx, c.key(paymentID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read completed trade: %w", err)
	}

	var record StoredTrade
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal completed trade: %w", err)
	}
	return &record, nil
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
