// Package explorer queries the Etherscan v2 universal API for inbound token
// transfers on Polygon Amoy.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/nakaltrade/nakal-agent/internal/trade"
)

const (
	// amoyChainID selects Polygon Amoy on the universal endpoint.
	amoyChainID = 80002
	// pageSize is how many of the most recent transfers each poll inspects.
	pageSize = 10
)

// Client fetches recent ERC-20 transfers to the service's receiving address.
// A shared rate limiter bounds aggregate pressure from all concurrent
// watchers against the explorer's rate limits.
type Client struct {
	apiURL     string
	apiKey     string
	contract   string
	address    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an explorer client. contract is the payment token's
// contract address and address the service's receiving wallet. rps caps
// requests per second across all watchers.
func NewClient(apiURL, apiKey, contract, address string, rps float64) *Client {
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		apiURL:   apiURL,
		apiKey:   apiKey,
		contract: contract,
		address:  address,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// RecentTransfers returns the most recent transfers involving the service
// address, newest first. A "0" status with no results means no transfers yet
// and is not an error.
func (c *Client) RecentTransfers(ctx context.Context) ([]trade.TokenTransfer, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("chainid", strconv.Itoa(amoyChainID))
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("contractaddress", c.contract)
	params.Set("address", c.address)
	params.Set("page", "1")
	params.Set("offset", strconv.Itoa(pageSize))
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")
	params.Set("sort", "desc")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("explorer API returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	// Etherscan reports "0"/"No transactions found" with a non-array result
	// for fresh addresses.
	if payload.Status != "1" {
		return nil, nil
	}

	var raw []struct {
		From      string `json:"from"`
		To        string `json:"to"`
		Value     string `json:"value"`
		TimeStamp string `json:"timeStamp"`
		Hash      string `json:"hash"`
	}
	if err := json.Unmarshal(payload.Result, &raw); err != nil {
		return nil, fmt.Errorf("decoding transfer list: %w", err)
	}

	transfers := make([]trade.TokenTransfer, 0, len(raw))
	for _, tx := range raw {
		value, err := strconv.ParseInt(tx.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed transfer value %q: %w", tx.Value, err)
		}
		ts, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed transfer timestamp %q: %w", tx.TimeStamp, err)
		}
		transfers = append(transfers, trade.TokenTransfer{
			From:      tx.From,
			To:        tx.To,
			Value:     value,
			Timestamp: ts,
			TxHash:    tx.Hash,
		})
	}
	return transfers, nil
}
