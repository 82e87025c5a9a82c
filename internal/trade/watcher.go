package trade

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	// DefaultPollInterval is the wait between ledger polls.
	DefaultPollInterval = 15 * time.Second
	// DefaultTimeout is the payment window quoted to the user.
	DefaultTimeout = 300 * time.Second
)

// WatcherConfig wires a Watcher's collaborators.
type WatcherConfig struct {
	Registry  *Registry
	Ledger    LedgerClient
	Settler   Settler
	Messages  MessageSink
	Store     CompletionStore
	AgentName string
	// PayTo is the service's receiving address.
	PayTo string
	// PollInterval and Timeout default to 15s and 300s.
	PollInterval time.Duration
	Timeout      time.Duration
}

// Watcher polls the ledger for one trade's fee payment and drives its state
// transitions. Watcher instances for different trades are fully independent;
// each trade's watcher is the sole writer of that trade's state.
type Watcher struct {
	registry     *Registry
	ledger       LedgerClient
	settler      Settler
	messages     MessageSink
	store        CompletionStore
	agentName    string
	payTo        string
	pollInterval time.Duration
	timeout      time.Duration
}

// NewWatcher creates a watcher factory for the given collaborators.
func NewWatcher(cfg WatcherConfig) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.AgentName == "" {
		cfg.AgentName = "NakalTrade"
	}
	if cfg.Store == nil {
		cfg.Store = noopStore{}
	}
	return &Watcher{
		registry:     cfg.Registry,
		ledger:       cfg.Ledger,
		settler:      cfg.Settler,
		messages:     cfg.Messages,
		store:        cfg.Store,
		agentName:    cfg.AgentName,
		payTo:        cfg.PayTo,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
	}
}

// Watch polls until the trade's payment is detected or the timeout elapses.
// It is meant to run as a detached goroutine: results are communicated only
// through the registry and the message sink. Cancelling ctx abandons the
// watch without touching trade state.
func (w *Watcher) Watch(ctx context.Context, paymentID string) {
	tr, err := w.registry.Get(paymentID)
	if err != nil || tr.Status != StatusWatching {
		return
	}

	log.Printf("👀 Watching for payment for ID %s from %s", paymentID, tr.UserWallet)

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if w.poll(ctx, tr) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			w.expire(paymentID)
			return
		case <-ticker.C:
		}
	}
}

// poll runs one ledger query and returns true once the trade is resolved.
// A failed query is logged and tolerated; the watch continues on the next
// tick.
func (w *Watcher) poll(ctx context.Context, tr Trade) bool {
	transfers, err := w.ledger.RecentTransfers(ctx)
	if err != nil {
		log.Printf("⚠️ Error while watching for payment %s: %v", tr.PaymentID, err)
		return false
	}

	createdUnix := tr.CreatedAt.Unix()
	for _, tx := range transfers {
		if !strings.EqualFold(tx.To, w.payTo) {
			continue
		}
		if !strings.EqualFold(tx.From, tr.UserWallet) {
			continue
		}
		if tx.Value != tr.FeeSmallestUnit {
			continue
		}
		if tx.Timestamp <= createdUnix {
			continue
		}
		// First matching transfer in descending-time order wins.
		w.complete(ctx, tr, tx)
		return true
	}
	return false
}

// complete finalizes the trade and triggers settlement. Settlement failure is
// reported in the notice but never reverts the completed status: the fee was
// genuinely paid.
func (w *Watcher) complete(ctx context.Context, tr Trade, tx TokenTransfer) {
	log.Printf("✅ Payment DETECTED for %s in tx %s", tr.PaymentID, tx.TxHash)

	if err := w.registry.Complete(tr.PaymentID); err != nil {
		log.Printf("⚠️ Could not complete trade %s: %v", tr.PaymentID, err)
		return
	}

	settlementNote, err := w.settler.Transfer(ctx, tr.UserWallet)
	if err != nil {
		log.Printf("❌ Failed to execute mock trade for %s: %v", tr.PaymentID, err)
		settlementNote = fmt.Sprintf("Failed to send mock token: %v", err)
	}

	w.messages.Record(w.agentName, fmt.Sprintf(
		"✅ **Payment Received!**\nYour fee for trade `%s` was confirmed in tx `%s...`.\nI have sent you 1 mock %s token. Tx: `%s`",
		tr.PaymentID, truncateHash(tx.TxHash), tr.TokenSymbol, settlementNote))

	tr.Status = StatusCompleted
	if err := w.store.SaveCompleted(ctx, tr, settlementNote); err != nil {
		log.Printf("⚠️ Failed to cache completed trade %s: %v", tr.PaymentID, err)
	}
}

func (w *Watcher) expire(paymentID string) {
	if !w.registry.Expire(paymentID) {
		// Completed in a race with the final poll; nothing to do.
		return
	}
	log.Printf("⌛ Payment request %s expired.", paymentID)
	w.messages.Record(w.agentName, fmt.Sprintf("Your copy trade request `%s` has expired.", paymentID))
}

func truncateHash(hash string) string {
	if len(hash) <= 10 {
		return hash
	}
	return hash[:10]
}

type noopStore struct{}

func (noopStore) SaveCompleted(context.Context, Trade, string) error { return nil }
