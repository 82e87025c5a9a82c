package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nakaltrade/nakal-agent/internal/cache"
	"github.com/nakaltrade/nakal-agent/internal/oneinch"
	"github.com/nakaltrade/nakal-agent/internal/trade"
)

const (
	testUserWallet = "0xAbCd111111111111111111111111111111111111"
	testPayTo      = "0xFeE0222222222222222222222222222222222222"
)

type fakePortfolio struct {
	overview    *oneinch.PortfolioData
	overviewErr error
	token       *oneinch.Token
	tokenErr    error
	price       float64
	priceErr    error
	priceCalls  int
}

func (f *fakePortfolio) Overview(ctx context.Context, wallet string, chainID int) (*oneinch.PortfolioData, error) {
	return f.overview, f.overviewErr
}

func (f *fakePortfolio) SearchToken(ctx context.Context, chainID int, query string) (*oneinch.Token, error) {
	return f.token, f.tokenErr
}

func (f *fakePortfolio) TokenPrice(ctx context.Context, tokenAddress string, chainID int, usdcAddress string) (float64, error) {
	f.priceCalls++
	return f.price, f.priceErr
}

type fakeLLM struct {
	chain   string
	summary string
}

func (f *fakeLLM) ParseChain(ctx context.Context, message string, supported []string) string {
	return f.chain
}

func (f *fakeLLM) SummarizePortfolio(ctx context.Context, wallet, chainName, dataJSON string) (string, error) {
	return f.summary, nil
}

type fakeWatcher struct {
	mu      sync.Mutex
	started []string
}

func (f *fakeWatcher) Watch(ctx context.Context, paymentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, paymentID)
}

func (f *fakeWatcher) startedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

type fakeCompleted struct {
	records map[string]*cache.StoredTrade
}

func (f *fakeCompleted) GetCompleted(ctx context.Context, paymentID string) (*cache.StoredTrade, error) {
	if rec, ok := f.records[paymentID]; ok {
		return rec, nil
	}
	return nil, cache.ErrNotCached
}

type testAgent struct {
	agent     *Agent
	portfolio *fakePortfolio
	watcher   *fakeWatcher
	registry  *trade.Registry
	analysis  *AnalysisContext
	completed *fakeCompleted
}

func newTestAgent(t *testing.T) *testAgent {
	t.Helper()
	portfolio := &fakePortfolio{
		overview: &oneinch.PortfolioData{
			PnL:      json.RawMessage(`{"erc20": [{"symbol": "WETH", "pnl_usd": 120.5}, {"symbol": "USDC", "pnl_usd": 500}]}`),
			Value:    json.RawMessage(`{}`),
			Details:  json.RawMessage(`{}`),
			Balances: json.RawMessage(`{}`),
		},
		token: &oneinch.Token{Address: "0xtokenaddr", Symbol: "WETH", Name: "Wrapped Ether"},
		price: 3000,
	}
	watcher := &fakeWatcher{}
	registry := trade.NewRegistry()
	analysis := NewAnalysisContext()
	completed := &fakeCompleted{records: map[string]*cache.StoredTrade{}}

	a := New(Config{
		Portfolio:        portfolio,
		LLM:              &fakeLLM{chain: "polygon", summary: "portfolio summary"},
		Registry:         registry,
		Watcher:          watcher,
		Completed:        completed,
		Messages:         NewMessageLog(),
		Context:          analysis,
		PayTo:            testPayTo,
		MaxActiveWatches: 2,
		WatchCtx:         context.Background(),
	})
	return &testAgent{
		agent:     a,
		portfolio: portfolio,
		watcher:   watcher,
		registry:  registry,
		analysis:  analysis,
		completed: completed,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHandleChat_UnknownMessage(t *testing.T) {
	ta := newTestAgent(t)
	got := ta.agent.HandleChat(context.Background(), "what is the weather")
	if !strings.Contains(got, "Sorry, I didn't understand") {
		t.Errorf("got %q, want the help text", got)
	}

	msgs := ta.agent.messages.Snapshot()
	if len(msgs) != 1 || msgs[0].AgentName != "NakalTrade" {
		t.Errorf("reply not recorded in the feed: %+v", msgs)
	}
}

func TestHandleChat_AnalysisSetsContextAndSuggests(t *testing.T) {
	ta := newTestAgent(t)
	got := ta.agent.HandleChat(context.Background(), "analyze "+testUserWallet+" on polygon")

	if !strings.Contains(got, "portfolio summary") {
		t.Errorf("reply missing the summary: %q", got)
	}
	if !strings.Contains(got, "Copy Trade Suggestion") || !strings.Contains(got, "copytrade WETH") {
		t.Errorf("reply missing the top-performer suggestion: %q", got)
	}
	if strings.Contains(got, "copytrade USDC") {
		t.Errorf("stablecoin suggested as top performer: %q", got)
	}

	chainID, chainName, ok := ta.analysis.Current()
	if !ok || chainID != 137 || chainName != "polygon" {
		t.Errorf("analysis context = (%d, %q, %v), want (137, polygon, true)", chainID, chainName, ok)
	}
}

func TestHandleChat_AnalysisUpstreamError(t *testing.T) {
	ta := newTestAgent(t)
	ta.portfolio.overviewErr = fmt.Errorf("proxy down")

	got := ta.agent.HandleChat(context.Background(), "analyze "+testUserWallet)
	if !strings.Contains(got, "Error fetching portfolio data from 1inch") {
		t.Errorf("got %q, want the 1inch error notice", got)
	}
	if _, _, ok := ta.analysis.Current(); ok {
		t.Error("failed analysis must not set the context")
	}
}

func TestHandleChat_CopyTradeRequiresContext(t *testing.T) {
	ta := newTestAgent(t)
	got := ta.agent.HandleChat(context.Background(), "copytrade WETH with address "+testUserWallet)
	if !strings.Contains(got, "recent analysis context") {
		t.Errorf("got %q, want the missing-context notice", got)
	}
	if ta.watcher.startedCount() != 0 {
		t.Error("no watcher should start without context")
	}
}

func TestHandleChat_CopyTradeWithVolume(t *testing.T) {
	ta := newTestAgent(t)
	ta.analysis.Set(137, "polygon")

	got := ta.agent.HandleChat(context.Background(),
		"copytrade weth with address "+testUserWallet+" with volume 100 usd")

	if !strings.Contains(got, "Copy Trade Initiated") {
		t.Fatalf("got %q, want initiation notice", got)
	}
	if !strings.Contains(got, "100.00 USD of WETH") {
		t.Errorf("reply missing the trade amount: %q", got)
	}
	// 100 USD at one basis point is 0.01 USDC.
	if !strings.Contains(got, "0.0100 USDC") {
		t.Errorf("reply missing the fee: %q", got)
	}
	if !strings.Contains(got, testPayTo) {
		t.Errorf("reply missing the payment address: %q", got)
	}
	if ta.portfolio.priceCalls != 0 {
		t.Error("explicit volume should skip the price lookup")
	}
	waitFor(t, func() bool { return ta.watcher.startedCount() == 1 })
	if ta.registry.Active() != 1 {
		t.Errorf("registry has %d active trades, want 1", ta.registry.Active())
	}
}

func TestHandleChat_CopyTradeUsesTokenPriceWithoutVolume(t *testing.T) {
	ta := newTestAgent(t)
	ta.analysis.Set(137, "polygon")
	ta.portfolio.price = 3000

	got := ta.agent.HandleChat(context.Background(), "copytrade WETH with address "+testUserWallet)
	if !strings.Contains(got, "1 token of WETH") {
		t.Errorf("reply missing the default trade amount: %q", got)
	}
	// 3000 USD at one basis point is 0.3 USDC.
	if !strings.Contains(got, "0.3000 USDC") {
		t.Errorf("reply missing the fee: %q", got)
	}
	if ta.portfolio.priceCalls != 1 {
		t.Errorf("price lookups = %d, want 1", ta.portfolio.priceCalls)
	}
}

func TestHandleChat_CopyTradeTokenNotFound(t *testing.T) {
	ta := newTestAgent(t)
	ta.analysis.Set(137, "polygon")
	ta.portfolio.token = nil

	got := ta.agent.HandleChat(context.Background(), "copytrade NOPE with address "+testUserWallet)
	if !strings.Contains(got, "couldn't find a contract address for 'NOPE'") {
		t.Errorf("got %q, want the token-not-found notice", got)
	}
}

func TestHandleChat_CopyTradeRejectedAtWatcherCap(t *testing.T) {
	ta := newTestAgent(t)
	ta.analysis.Set(137, "polygon")

	for i := 0; i < 2; i++ {
		got := ta.agent.HandleChat(context.Background(),
			fmt.Sprintf("copytrade WETH with address %s with volume %d usd", testUserWallet, 100+i))
		if !strings.Contains(got, "Copy Trade Initiated") {
			t.Fatalf("trade %d rejected below the cap: %q", i, got)
		}
	}

	got := ta.agent.HandleChat(context.Background(),
		"copytrade WETH with address "+testUserWallet+" with volume 500 usd")
	if !strings.Contains(got, "maximum number of pending payments") {
		t.Errorf("got %q, want the cap rejection", got)
	}
	waitFor(t, func() bool { return ta.watcher.startedCount() == 2 })
}

func TestHandleChat_StatusWatching(t *testing.T) {
	ta := newTestAgent(t)
	tr, _ := ta.registry.Create("WETH", testUserWallet, 10000)

	got := ta.agent.HandleChat(context.Background(), "status "+tr.PaymentID)
	if !strings.Contains(got, "still watching") || !strings.Contains(got, "0.0100 USDC") {
		t.Errorf("got %q, want a watching status with the fee", got)
	}
}

func TestHandleChat_StatusCompletedFromCache(t *testing.T) {
	ta := newTestAgent(t)
	ta.completed.records["abc1234def"] = &cache.StoredTrade{
		Trade:        trade.Trade{PaymentID: "abc1234def", TokenSymbol: "WETH"},
		SettlementTx: "0xsettlementhash",
		CompletedAt:  time.Now(),
	}

	got := ta.agent.HandleChat(context.Background(), "status abc1234def")
	if !strings.Contains(got, "completed") || !strings.Contains(got, "0xsettlementhash") {
		t.Errorf("got %q, want completion with the settlement tx", got)
	}
}

func TestHandleChat_StatusUnknown(t *testing.T) {
	ta := newTestAgent(t)
	got := ta.agent.HandleChat(context.Background(), "status deadbeef00")
	if !strings.Contains(got, "couldn't find a trade") {
		t.Errorf("got %q, want the not-found notice", got)
	}
}
