// Package agent routes chat messages to wallet analysis, copy-trade
// initiation, and trade status lookups.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/nakaltrade/nakal-agent/internal/cache"
	"github.com/nakaltrade/nakal-agent/internal/chains"
	"github.com/nakaltrade/nakal-agent/internal/fee"
	"github.com/nakaltrade/nakal-agent/internal/oneinch"
	"github.com/nakaltrade/nakal-agent/internal/trade"
)

// agentName labels every message the agent records.
const agentName = "NakalTrade"

var (
	analysisPattern  = regexp.MustCompile(`(?i)analyze\s+(0x[a-fA-F0-9]{40})`)
	copyTradePattern = regexp.MustCompile(`(?i)copytrade\s+([a-zA-Z0-9]+)\s+with address\s+(0x[a-fA-F0-9]{40})(?:\s+with volume\s+([\d\.]+)\s+usd)?`)
	statusPattern    = regexp.MustCompile(`(?i)status\s+(?:of\s+)?` + "`?" + `([a-zA-Z0-9]+)` + "`?")
)

// PortfolioAPI is the slice of the 1inch client the agent needs.
type PortfolioAPI interface {
	Overview(ctx context.Context, wallet string, chainID int) (*oneinch.PortfolioData, error)
	SearchToken(ctx context.Context, chainID int, query string) (*oneinch.Token, error)
	TokenPrice(ctx context.Context, tokenAddress string, chainID int, usdcAddress string) (float64, error)
}

// LanguageModel extracts chains from messages and writes analyst summaries.
type LanguageModel interface {
	ParseChain(ctx context.Context, message string, supported []string) string
	SummarizePortfolio(ctx context.Context, wallet, chainName, dataJSON string) (string, error)
}

// WatchStarter runs the payment watch loop for one trade.
type WatchStarter interface {
	Watch(ctx context.Context, paymentID string)
}

// CompletedLookup retrieves persisted settlement records.
type CompletedLookup interface {
	GetCompleted(ctx context.Context, paymentID string) (*cache.StoredTrade, error)
}

// Config wires the agent's collaborators.
type Config struct {
	Portfolio PortfolioAPI
	LLM       LanguageModel
	Registry  *trade.Registry
	Watcher   WatchStarter
	Completed CompletedLookup
	Messages  *MessageLog
	Context   *AnalysisContext

	// PayTo is the service wallet that receives fee payments.
	PayTo string
	// MaxActiveWatches caps concurrent payment watchers; new copy trades
	// are rejected at the cap.
	MaxActiveWatches int

	// WatchCtx bounds the lifetime of spawned watch goroutines. It must
	// outlive individual chat requests.
	WatchCtx context.Context
}

// Agent is the chat-facing copy-trade assistant.
type Agent struct {
	portfolio PortfolioAPI
	llm       LanguageModel
	registry  *trade.Registry
	watcher   WatchStarter
	completed CompletedLookup
	messages  *MessageLog
	analysis  *AnalysisContext

	payTo      string
	maxWatches int
	watchCtx   context.Context
}

// New creates an agent from its collaborators.
func New(cfg Config) *Agent {
	watchCtx := cfg.WatchCtx
	if watchCtx == nil {
		watchCtx = context.Background()
	}
	maxWatches := cfg.MaxActiveWatches
	if maxWatches <= 0 {
		maxWatches = 32
	}
	return &Agent{
		portfolio:  cfg.Portfolio,
		llm:        cfg.LLM,
		registry:   cfg.Registry,
		watcher:    cfg.Watcher,
		completed:  cfg.Completed,
		messages:   cfg.Messages,
		analysis:   cfg.Context,
		payTo:      cfg.PayTo,
		maxWatches: maxWatches,
		watchCtx:   watchCtx,
	}
}

// HandleChat routes one chat message and returns the reply. Every reply is
// also recorded in the agent message feed.
func (a *Agent) HandleChat(ctx context.Context, message string) string {
	var response string

	switch {
	case analysisPattern.MatchString(message):
		response = a.handleAnalysis(ctx, message, analysisPattern.FindStringSubmatch(message)[1])
	case copyTradePattern.MatchString(message):
		m := copyTradePattern.FindStringSubmatch(message)
		response = a.handleCopyTrade(ctx, strings.ToUpper(m[1]), m[2], m[3])
	case statusPattern.MatchString(message):
		response = a.handleStatus(ctx, statusPattern.FindStringSubmatch(message)[1])
	default:
		response = "Sorry, I didn't understand. Try 'analyze {address} on {chain}' or 'copytrade {TOKEN} with address {YOUR_ADDRESS}'."
	}

	a.messages.Record(agentName, response)
	return response
}

func (a *Agent) handleAnalysis(ctx context.Context, message, wallet string) string {
	chainName := a.llm.ParseChain(ctx, message, chains.Supported())
	chainID, ok := chains.ID(chainName)
	if !ok {
		return fmt.Sprintf("Sorry, '%s' is not a supported chain.", chainName)
	}

	log.Printf("📈 Analyzing %s on %s (ID: %d)", wallet, chainName, chainID)

	data, err := a.portfolio.Overview(ctx, wallet, chainID)
	if err != nil {
		log.Printf("⚠️ Portfolio overview for %s failed: %v", wallet, err)
		return "❌ Error fetching portfolio data from 1inch. Please try again later."
	}

	a.analysis.Set(chainID, chainName)

	combined, err := data.CombinedJSON()
	if err != nil {
		log.Printf("⚠️ Failed to combine portfolio payload: %v", err)
		return "❌ Error fetching portfolio data from 1inch. Please try again later."
	}

	summary, err := a.llm.SummarizePortfolio(ctx, wallet, chainName, combined)
	if err != nil {
		return fmt.Sprintf("❌ Error analyzing data with LLM: %v", err)
	}
	return summary + topPerformerSuggestion(data.PnL)
}

// topPerformerSuggestion finds the best non-stablecoin performer in the PnL
// payload and appends a copy-trade hint. Unparseable payloads produce no
// suggestion.
func topPerformerSuggestion(pnl json.RawMessage) string {
	var payload struct {
		ERC20 []struct {
			Symbol string   `json:"symbol"`
			PnLUSD *float64 `json:"pnl_usd"`
		} `json:"erc20"`
	}
	if err := json.Unmarshal(pnl, &payload); err != nil {
		return ""
	}

	bestSymbol := ""
	bestPnL := 0.0
	for _, token := range payload.ERC20 {
		if token.PnLUSD == nil || token.Symbol == "" {
			continue
		}
		switch strings.ToLower(token.Symbol) {
		case "usdc", "usdt", "dai":
			continue
		}
		if bestSymbol == "" || *token.PnLUSD > bestPnL {
			bestSymbol = token.Symbol
			bestPnL = *token.PnLUSD
		}
	}
	if bestSymbol == "" || bestPnL <= 0 {
		return ""
	}

	return fmt.Sprintf(`

---
💡 **Copy Trade Suggestion**
This wallet's top performer is **%s**.
To copy this trade, type: `+"`copytrade %s with address YOUR_WALLET_ADDRESS`", bestSymbol, bestSymbol)
}

func (a *Agent) handleCopyTrade(ctx context.Context, tokenSymbol, userWallet, volumeStr string) string {
	chainID, chainName, ok := a.analysis.Current()
	if !ok {
		return "Sorry, I don't have a recent analysis context. Please analyze a wallet on the desired chain first."
	}

	if a.registry.Active() >= a.maxWatches {
		log.Printf("⚠️ Copy trade rejected: %d active watches at the cap", a.registry.Active())
		return "⚠️ I'm watching the maximum number of pending payments right now. Please try again in a few minutes."
	}

	log.Printf("Using context from last analysis on '%s' (ID: %d) to find %s.", chainName, chainID, tokenSymbol)

	token, err := a.portfolio.SearchToken(ctx, chainID, tokenSymbol)
	if err != nil {
		log.Printf("⚠️ Token search for %s failed: %v", tokenSymbol, err)
		return fmt.Sprintf("Sorry, I couldn't find a contract address for '%s' on %s using the 1inch Token API.", tokenSymbol, chainName)
	}
	if token == nil || token.Address == "" {
		return fmt.Sprintf("Sorry, I couldn't find a contract address for '%s' on %s using the 1inch Token API.", tokenSymbol, chainName)
	}
	log.Printf("Found %s contract address: %s on %s.", tokenSymbol, token.Address, chainName)

	usdcAddress, ok := chains.USDCAddress(chainID)
	if !ok {
		return fmt.Sprintf("Sorry, I don't have the USDC address for %s to check the price.", chainName)
	}

	var amountUSD float64
	hasVolume := volumeStr != ""
	if hasVolume {
		amountUSD, err = strconv.ParseFloat(volumeStr, 64)
		if err != nil {
			return fmt.Sprintf("Sorry, '%s' is not a valid trade volume.", volumeStr)
		}
	} else {
		amountUSD, err = a.portfolio.TokenPrice(ctx, token.Address, chainID, usdcAddress)
		if err != nil {
			log.Printf("⚠️ Price lookup for %s failed: %v", tokenSymbol, err)
			return fmt.Sprintf("❌ Could not fetch the price for %s on %s. Please try again.", tokenSymbol, chainName)
		}
	}

	feeUnits, err := fee.ForNotional(amountUSD)
	if err != nil {
		return fmt.Sprintf("Sorry, '%s' is not a valid trade volume.", volumeStr)
	}

	tr, err := a.registry.Create(tokenSymbol, userWallet, feeUnits)
	if err != nil {
		log.Printf("⚠️ Failed to register copy trade: %v", err)
		return "❌ Something went wrong registering your trade. Please try again."
	}

	go a.watcher.Watch(a.watchCtx, tr.PaymentID)

	tradeAmount := "1 token"
	if hasVolume {
		tradeAmount = fmt.Sprintf("%.2f USD", amountUSD)
	}
	feeUSD := fee.USD(feeUnits)

	return fmt.Sprintf(`🚀 **Copy Trade Initiated**
**Mock Trade:** %s of %s
**Service Fee:** %.4f USDC
**Payment ID:** `+"`%s`"+`

I am now watching for a payment of **%.4f USDC** from your address `+"`%s`"+` to my address `+"`%s`"+` on **Polygon Amoy**. Please send the funds to proceed. This request will expire in 5 minutes.`,
		tradeAmount, tokenSymbol, feeUSD, tr.PaymentID, feeUSD, userWallet, a.payTo)
}

func (a *Agent) handleStatus(ctx context.Context, paymentID string) string {
	tr, err := a.registry.Get(paymentID)
	if err == nil {
		switch tr.Status {
		case trade.StatusWatching:
			return fmt.Sprintf("⏳ Trade `%s` is still watching for your payment of %.4f USDC.", paymentID, fee.USD(tr.FeeSmallestUnit))
		case trade.StatusCompleted:
			return fmt.Sprintf("✅ Trade `%s` is completed. Your fee payment was received and the mock token was sent.", paymentID)
		}
	}

	if a.completed != nil {
		record, err := a.completed.GetCompleted(ctx, paymentID)
		if err == nil {
			return fmt.Sprintf("✅ Trade `%s` is completed. Settlement tx: `%s`", paymentID, record.SettlementTx)
		}
		if !errors.Is(err, cache.ErrNotCached) {
			log.Printf("⚠️ Completed-trade lookup for %s failed: %v", paymentID, err)
		}
	}

	return fmt.Sprintf("I couldn't find a trade with ID `%s`. It may have expired.", paymentID)
}
