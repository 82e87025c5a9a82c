// Package oneinch talks to the 1inch Portfolio, Balance, Token and Price
// APIs through the configured proxy.
package oneinch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUpstreamUnavailable marks aggregator failures; any single failed call
// aborts the whole analysis.
var ErrUpstreamUnavailable = errors.New("oneinch: upstream unavailable")

// Client is a 1inch proxy client.
type Client struct {
	portfolioBaseURL string
	balanceBaseURL   string
	priceBaseURL     string
	tokenBaseURL     string
	httpClient       *http.Client
}

// Token is one token search result.
type Token struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
}

// PortfolioData bundles the four portfolio reads for one wallet, kept as raw
// JSON: the payloads are opaque to us and handed to the LLM as-is.
type PortfolioData struct {
	PnL      json.RawMessage
	Value    json.RawMessage
	Details  json.RawMessage
	Balances json.RawMessage
}

// CombinedJSON renders the bundle the way the analyst prompt expects it.
func (d *PortfolioData) CombinedJSON() (string, error) {
	combined, err := json.Marshal(map[string]json.RawMessage{
		"pnl":      d.PnL,
		"value":    d.Value,
		"details":  d.Details,
		"balances": d.Balances,
	})
	if err != nil {
		return "", err
	}
	return string(combined), nil
}

// NewClient creates a client against the given proxy base URL.
func NewClient(proxyURL string) *Client {
	proxyURL = strings.TrimSuffix(proxyURL, "/")
	return &Client{
		portfolioBaseURL: proxyURL + "/portfolio/portfolio/v4",
		balanceBaseURL:   proxyURL + "/balance/v1.2",
		priceBaseURL:     proxyURL + "/price",
		tokenBaseURL:     proxyURL + "/token",
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Overview fans out the four portfolio reads concurrently and joins them.
// Any single failure fails the whole overview.
func (c *Client) Overview(ctx context.Context, wallet string, chainID int) (*PortfolioData, error) {
	var data PortfolioData

	calls := []struct {
		name string
		dest *json.RawMessage
		run  func(context.Context) (json.RawMessage, error)
	}{
		{"pnl", &data.PnL, func(ctx context.Context) (json.RawMessage, error) {
			return c.portfolioCall(ctx, "/overview/erc20/profit_and_loss", wallet, chainID)
		}},
		{"value", &data.Value, func(ctx context.Context) (json.RawMessage, error) {
			return c.portfolioCall(ctx, "/overview/erc20/current_value", wallet, chainID)
		}},
		{"details", &data.Details, func(ctx context.Context) (json.RawMessage, error) {
			return c.portfolioCall(ctx, "/overview/erc20/details", wallet, chainID)
		}},
		{"balances", &data.Balances, func(ctx context.Context) (json.RawMessage, error) {
			return c.balancesCall(ctx, wallet, chainID)
		}},
	}

	errs := make(chan error, len(calls))
	for _, call := range calls {
		go func(name string, dest *json.RawMessage, run func(context.Context) (json.RawMessage, error)) {
			result, err := run(ctx)
			if err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				return
			}
			*dest = result
			errs <- nil
		}(call.name, call.dest, call.run)
	}

	for range calls {
		if err := <-errs; err != nil {
			return nil, err
		}
	}
	return &data, nil
}

// SearchToken resolves a token symbol to its contract on the given chain.
// An exact symbol match wins; otherwise the first result is taken. A nil
// token with nil error means nothing matched.
func (c *Client) SearchToken(ctx context.Context, chainID int, query string) (*Token, error) {
	endpoint := fmt.Sprintf("%s/v1.4/%d/search", c.tokenBaseURL, chainID)
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", "5")

	body, err := c.get(ctx, endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var results []Token
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("%w: decoding token search: %v", ErrUpstreamUnavailable, err)
	}

	for i := range results {
		if strings.EqualFold(results[i].Symbol, query) {
			log.Printf("🔎 Found exact match for %s: %s", query, results[i].Name)
			return &results[i], nil
		}
	}
	if len(results) > 0 {
		log.Printf("🔎 No exact match for %s, returning first result: %s", query, results[0].Name)
		return &results[0], nil
	}
	return nil, nil
}

// TokenPrice returns the token's price expressed in the given stablecoin,
// derived from the native-denominated prices the API reports for both.
func (c *Client) TokenPrice(ctx context.Context, tokenAddress string, chainID int, usdcAddress string) (float64, error) {
	endpoint := fmt.Sprintf("%s/v1.1/%d/%s,%s", c.priceBaseURL, chainID, tokenAddress, usdcAddress)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, err
	}

	var prices map[string]string
	if err := json.Unmarshal(body, &prices); err != nil {
		return 0, fmt.Errorf("%w: decoding prices: %v", ErrUpstreamUnavailable, err)
	}

	tokenNative := prices[strings.ToLower(tokenAddress)]
	usdcNative := prices[strings.ToLower(usdcAddress)]
	if tokenNative == "" || usdcNative == "" {
		return 0, fmt.Errorf("%w: could not retrieve prices for both token and USDC", ErrUpstreamUnavailable)
	}

	tokenPrice, err := strconv.ParseFloat(tokenNative, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed token price %q", ErrUpstreamUnavailable, tokenNative)
	}
	usdcPrice, err := strconv.ParseFloat(usdcNative, 64)
	if err != nil || usdcPrice == 0 {
		return 0, fmt.Errorf("%w: malformed USDC price %q", ErrUpstreamUnavailable, usdcNative)
	}

	return tokenPrice / usdcPrice, nil
}

func (c *Client) portfolioCall(ctx context.Context, endpoint, wallet string, chainID int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("addresses", wallet)
	params.Set("chain_id", strconv.Itoa(chainID))
	return c.get(ctx, c.portfolioBaseURL+endpoint+"?"+params.Encode())
}

func (c *Client) balancesCall(ctx context.Context, wallet string, chainID int) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("%s/%d/balances/%s", c.balanceBaseURL, chainID, wallet))
}

func (c *Client) get(ctx context.Context, fullURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: proxy returned %d: %s", ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}
	return body, nil
}
