// Package llm wraps the ASI:One chat completion API, which speaks the
// OpenAI wire protocol.
package llm

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	model = "asi1-mini"
	// maxPortfolioChars bounds how much raw portfolio JSON goes into the
	// analyst prompt.
	maxPortfolioChars = 12000
)

// MissingKeyNotice is returned to the user when no API key is configured.
const MissingKeyNotice = "⚠️ ASI:One API key not configured. Cannot analyze data."

// chainPattern is the regex fallback when the model is unavailable.
var chainPattern = regexp.MustCompile(`(?i)on\s+(\w+\s*\w*)`)

// Client calls ASI:One for chain extraction and portfolio analysis.
type Client struct {
	api    *openai.Client
	hasKey bool
}

// NewClient creates a client against the given base URL. An empty API key
// produces a client that degrades to regex parsing and canned notices.
func NewClient(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		hasKey: apiKey != "",
	}
}

// ParseChain extracts the blockchain network name from a free-form message.
// The model chooses from the supported list; on any failure a regex scan of
// the message is tried, and "ethereum" is the final default.
func (c *Client) ParseChain(ctx context.Context, message string, supported []string) string {
	if c.hasKey {
		prompt := fmt.Sprintf(`From the user's request, identify the blockchain network. The request is: %q
Choose ONLY from the following list: %s. Default to "ethereum" if unsure. Return ONLY the chain name.`, message, strings.Join(supported, ", "))

		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
			Temperature: 0,
		})
		if err != nil {
			log.Printf("⚠️ Error parsing chain with LLM: %v", err)
		} else if len(resp.Choices) > 0 {
			choice := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
			for _, name := range supported {
				if choice == name {
					return choice
				}
			}
		}
	}
	return FallbackChain(message, supported)
}

// FallbackChain scans the message for an "on <chain>" phrase against the
// supported list.
func FallbackChain(message string, supported []string) string {
	if m := chainPattern.FindStringSubmatch(message); m != nil {
		requested := strings.ToLower(strings.TrimSpace(m[1]))
		for _, name := range supported {
			if requested == name {
				return requested
			}
		}
	}
	return "ethereum"
}

// SummarizePortfolio asks the model for an analyst summary of the combined
// 1inch portfolio payload.
func (c *Client) SummarizePortfolio(ctx context.Context, wallet, chainName, dataJSON string) (string, error) {
	if !c.hasKey {
		return MissingKeyNotice, nil
	}

	if len(dataJSON) > maxPortfolioChars {
		dataJSON = dataJSON[:maxPortfolioChars] + "... (data truncated)"
	}

	prompt := fmt.Sprintf(`You are an expert DeFi portfolio analyst. Your task is to interpret the combined data from the 1inch Portfolio and Balance APIs for a user's wallet and provide a clear, concise, and actionable summary.

USER'S WALLET: %s
CHAIN: %s

RAW 1inch PORTFOLIO & BALANCE DATA (JSON):
%s

**CRITICAL ANALYSIS INSTRUCTIONS:**

1.  **Source of Truth:** Use `+"`balances`"+` for current holdings and `+"`pnl`"+` for historical performance.
2.  **Zero-Balance Rule:** If a token has a zero balance, it's a "Past Trade." Do not list it under current holdings.
3.  **Explain PnL:** Start with total portfolio value and PnL. Explain that PnL is a mix of realized (sold) and unrealized (held) gains.
4.  **Exclude Stablecoins:** Do NOT list USDC, USDT, DAI as top performers or underperformers.
5.  **Structure:** Provide "Top Performers (Currently Held)," "Top Underperformers (Currently Held)," and "Successful Past Trades (Realized Gains)."
6.  **Actionable Insights:** Base your insights on the most significant trades.

Provide your analysis based on the data.`, wallet, chainName, dataJSON)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("portfolio analysis failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("portfolio analysis returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
