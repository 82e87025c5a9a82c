package agent

import (
	"sync"
	"time"
)

// contextTTL is how long a wallet analysis remains usable as copy-trade
// context.
const contextTTL = 10 * time.Minute

// AnalysisContext remembers the chain of the most recent successful wallet
// analysis. Copy trades require a fresh context to know which chain to
// trade on.
type AnalysisContext struct {
	mu        sync.Mutex
	chainID   int
	chainName string
	setAt     time.Time
	now       func() time.Time
}

// NewAnalysisContext creates an empty context.
func NewAnalysisContext() *AnalysisContext {
	return &AnalysisContext{now: time.Now}
}

// Set records the chain of a completed analysis, replacing any prior value.
func (c *AnalysisContext) Set(chainID int, chainName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chainID = chainID
	c.chainName = chainName
	c.setAt = c.now()
}

// Current returns the remembered chain, or ok=false if no analysis has
// happened or the last one has gone stale.
func (c *AnalysisContext) Current() (chainID int, chainName string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setAt.IsZero() || c.now().Sub(c.setAt) > contextTTL {
		return 0, "", false
	}
	return c.chainID, c.chainName, true
}
