// Package trade holds the copy-trade registry and the per-trade payment
// watcher.
package trade

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a copy trade. watching is the only
// non-terminal state.
type Status string

const (
	StatusWatching  Status = "watching"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Trade is one pending or resolved copy-trade fee request.
type Trade struct {
	PaymentID       string
	TokenSymbol     string
	UserWallet      string
	FeeSmallestUnit int64
	Status          Status
	CreatedAt       time.Time
}

var (
	// ErrNotFound reports an unknown payment ID.
	ErrNotFound = errors.New("trade: payment id not found")
	// ErrAlreadyTerminal reports a mutation against a trade that already
	// reached a terminal state.
	ErrAlreadyTerminal = errors.New("trade: trade already in a terminal state")
)

// TokenTransfer is one inbound ERC-20 transfer reported by the ledger,
// amounts in the token's smallest unit and timestamps in unix seconds.
type TokenTransfer struct {
	From      string
	To        string
	Value     int64
	Timestamp int64
	TxHash    string
}

// LedgerClient queries the block explorer for the most recent transfers to
// the service's receiving address.
type LedgerClient interface {
	RecentTransfers(ctx context.Context) ([]TokenTransfer, error)
}

// Settler performs the mock reward transfer after a payment is confirmed.
type Settler interface {
	Transfer(ctx context.Context, toWallet string) (txHash string, err error)
}

// MessageSink receives the human-readable completion and expiry notices.
type MessageSink interface {
	Record(agentName, message string)
}

// CompletionStore persists completed trades so status queries survive a
// restart. Implementations must tolerate being called from many watchers.
type CompletionStore interface {
	SaveCompleted(ctx context.Context, t Trade, settlementTx string) error
}
