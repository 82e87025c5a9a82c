// Package cache persists completed trades so their settlement records
// survive registry eviction and process restarts.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/nakaltrade/nakal-agent/internal/trade"
)

// ErrNotCached means the trade has no persisted completion record.
var ErrNotCached = errors.New("cache: trade not found")

// StoredTrade is a completed trade with its settlement transaction hash.
type StoredTrade struct {
	Trade        trade.Trade `json:"trade"`
	SettlementTx string      `json:"settlement_tx"`
	CompletedAt  time.Time   `json:"completed_at"`
}

// TradeCache stores and retrieves completed trade records.
type TradeCache interface {
	SaveCompleted(ctx context.Context, t trade.Trade, settlementTx string) error
	GetCompleted(ctx context.Context, paymentID string) (*StoredTrade, error)
	Close() error
}

// NoOpCache satisfies TradeCache without persisting anything. It is the
// fallback when Redis is disabled or unreachable.
type NoOpCache struct{}

// NewNoOpCache creates a cache that does nothing.
func NewNoOpCache() *NoOpCache { return &NoOpCache{} }

func (c *NoOpCache) SaveCompleted(ctx context.Context, t trade.Trade, settlementTx string) error {
	return nil
}

func (c *NoOpCache) GetCompleted(ctx context.Context, paymentID string) (*StoredTrade, error) {
	return nil, ErrNotCached
}

func (c *NoOpCache) Close() error { return nil }
