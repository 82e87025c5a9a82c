// Package config loads the agent configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration for the NakalTrade agent.
type Config struct {
	Port int `envconfig:"PORT" default:"8100"`

	// ASI:One LLM endpoint (OpenAI-compatible chat completions).
	ASIOneAPIKey string `envconfig:"ASI_ONE_API_KEY"`
	ASIOneURL    string `envconfig:"ASI_ONE_URL" default:"https://api.asi1.ai/v1"`

	// 1inch portfolio/balance/price/token proxy.
	OneInchProxyURL string `envconfig:"ONEINCH_PROXY_URL"`

	// Copy-trade payment watching and settlement.
	PaymentAddress    string `envconfig:"PAYMENT_ADDRESS"`
	AgentPrivateKey   string `envconfig:"AGENT_PRIVATE_KEY"`
	PolygonscanAPIKey string `envconfig:"POLYGONSCAN_API_KEY"`
	EtherscanAPIURL   string `envconfig:"ETHERSCAN_API_URL" default:"https://api.etherscan.io/v2/api"`
	AmoyRPCURL        string `envconfig:"AMOY_RPC_URL" default:"https://rpc-amoy.polygon.technology"`
	AmoyUSDCContract  string `envconfig:"AMOY_USDC_CONTRACT" default:"0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582"`
	MockTokenAddress  string `envconfig:"MOCK_TOKEN_ADDRESS" default:"0x33432627F302E9C6a3f62ACf7CB581AD57E109dB"`

	// Watcher tuning. The 300s timeout is the payment window quoted to users.
	PollInterval     time.Duration `envconfig:"POLL_INTERVAL" default:"15s"`
	WatchTimeout     time.Duration `envconfig:"WATCH_TIMEOUT" default:"300s"`
	MaxActiveWatches int           `envconfig:"MAX_ACTIVE_WATCHES" default:"32"`
	ExplorerRPS      float64       `envconfig:"EXPLORER_RPS" default:"2"`

	Redis RedisConfig
}

// RedisConfig configures the optional completed-trade cache.
type RedisConfig struct {
	Enabled   bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Address   string `envconfig:"REDIS_ADDRESS" default:"localhost:6379"`
	Username  string `envconfig:"REDIS_USERNAME"`
	Password  string `envconfig:"REDIS_PASSWORD"`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"nakal:agent:"`
	UseTLS    bool   `envconfig:"REDIS_USE_TLS" default:"false"`
}

// Load populates Config from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &cfg, nil
}

// MissingCopyTradeKeys lists the settings copy trading cannot run without.
func (c *Config) MissingCopyTradeKeys() []string {
	var missing []string
	if c.PaymentAddress == "" {
		missing = append(missing, "PAYMENT_ADDRESS")
	}
	if c.AgentPrivateKey == "" {
		missing = append(missing, "AGENT_PRIVATE_KEY")
	}
	if c.PolygonscanAPIKey == "" {
		missing = append(missing, "POLYGONSCAN_API_KEY")
	}
	return missing
}
