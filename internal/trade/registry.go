package trade

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// paymentIDLength is the number of hex characters kept from the hash.
const paymentIDLength = 10

// createAttempts bounds ID regeneration on the (theoretical) collision path.
const createAttempts = 5

// Registry is the process-wide store of copy trades, keyed by payment ID.
// All methods are safe for concurrent use by the request handler and any
// number of watchers; a single trade is only ever mutated by its own watcher.
type Registry struct {
	mu     sync.RWMutex
	trades map[string]*Trade
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		trades: make(map[string]*Trade),
		now:    time.Now,
	}
}

// Create registers a new trade in the watching state and returns it. The
// payment ID is derived from the token, wallet, and creation time, shortened
// to ten hex characters; on the off chance of a collision the ID is
// regenerated.
func (r *Registry) Create(tokenSymbol, userWallet string, feeSmallestUnit int64) (Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	createdAt := r.now()
	for attempt := 0; attempt < createAttempts; attempt++ {
		id := paymentID(tokenSymbol, userWallet, createdAt.UnixNano()+int64(attempt))
		if _, exists := r.trades[id]; exists {
			continue
		}
		t := &Trade{
			PaymentID:       id,
			TokenSymbol:     tokenSymbol,
			UserWallet:      userWallet,
			FeeSmallestUnit: feeSmallestUnit,
			Status:          StatusWatching,
			CreatedAt:       createdAt,
		}
		r.trades[id] = t
		return *t, nil
	}

	return Trade{}, fmt.Errorf("failed to generate a unique payment id after %d attempts", createAttempts)
}

// Get returns a copy of the trade for the given payment ID.
func (r *Registry) Get(paymentID string) (Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trades[paymentID]
	if !ok {
		return Trade{}, ErrNotFound
	}
	return *t, nil
}

// Complete transitions a trade from watching to completed. Completing an
// already-completed trade is a no-op, not an error; completing an expired
// or unknown trade is rejected.
func (r *Registry) Complete(paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trades[paymentID]
	if !ok {
		return ErrNotFound
	}
	switch t.Status {
	case StatusCompleted:
		return nil
	case StatusExpired:
		return ErrAlreadyTerminal
	}
	t.Status = StatusCompleted
	return nil
}

// Expire removes the trade entirely. It only acts on trades still in the
// watching state, so a trade that completed in a race between the watcher's
// poll match and its timeout check is never deleted. Returns whether the
// trade was removed.
func (r *Registry) Expire(paymentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trades[paymentID]
	if !ok || t.Status != StatusWatching {
		return false
	}
	delete(r.trades, paymentID)
	return true
}

// Active returns the number of trades currently in the watching state.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, t := range r.trades {
		if t.Status == StatusWatching {
			n++
		}
	}
	return n
}

func paymentID(tokenSymbol, userWallet string, nonce int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%s%d", tokenSymbol, userWallet, nonce)))
	return hex.EncodeToString(sum[:])[:paymentIDLength]
}
