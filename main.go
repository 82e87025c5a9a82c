package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nakaltrade/nakal-agent/internal/agent"
	"github.com/nakaltrade/nakal-agent/internal/cache"
	"github.com/nakaltrade/nakal-agent/internal/config"
	"github.com/nakaltrade/nakal-agent/internal/explorer"
	"github.com/nakaltrade/nakal-agent/internal/llm"
	"github.com/nakaltrade/nakal-agent/internal/oneinch"
	"github.com/nakaltrade/nakal-agent/internal/server"
	"github.com/nakaltrade/nakal-agent/internal/settle"
	"github.com/nakaltrade/nakal-agent/internal/trade"
)

// amoyChainID is the EVM chain ID for Polygon Amoy, where fee payments and
// mock settlements happen.
const amoyChainID = 80002

// disabledSettler stands in when no signing key is configured. Payments are
// still detected and trades complete, but no reward is sent.
type disabledSettler struct{}

func (disabledSettler) Transfer(ctx context.Context, toWallet string) (string, error) {
	return "", fmt.Errorf("settlement disabled: AGENT_PRIVATE_KEY not configured")
}

func main() {
	log.Println("🌟 NakalTrade Agent with Automated Payment Detection")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if err := godotenv.Load(); err != nil {
		log.Println("📄 No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	if missing := cfg.MissingCopyTradeKeys(); len(missing) > 0 {
		log.Printf("⚠️ Missing %s: copy trading will be degraded", strings.Join(missing, ", "))
	} else {
		log.Println("✅ All configurations for copy trading are set.")
	}

	// Root context bounds every payment watcher. Cancelling it on shutdown
	// abandons in-flight watches without touching trade state.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := trade.NewRegistry()
	messages := agent.NewMessageLog()
	analysisCtx := agent.NewAnalysisContext()

	ledger := explorer.NewClient(cfg.EtherscanAPIURL, cfg.PolygonscanAPIKey,
		cfg.AmoyUSDCContract, cfg.PaymentAddress, cfg.ExplorerRPS)

	var settler trade.Settler = disabledSettler{}
	if cfg.AgentPrivateKey != "" {
		trigger, err := settle.NewTrigger(cfg.AmoyRPCURL, cfg.MockTokenAddress, cfg.AgentPrivateKey, amoyChainID)
		if err != nil {
			log.Printf("⚠️ Failed to initialize settlement wallet: %v (settlement disabled)", err)
		} else {
			log.Printf("💳 Settlement wallet ready: %s", trigger.Address())
			settler = trigger
		}
	}

	var tradeCache cache.TradeCache = cache.NewNoOpCache()
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
			Address:   cfg.Redis.Address,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			UseTLS:    cfg.Redis.UseTLS,
		})
		if err != nil {
			log.Printf("⚠️ Failed to initialize Redis cache: %v (continuing without cache)", err)
		} else {
			log.Printf("✅ Redis cache initialized with prefix: %s", cfg.Redis.KeyPrefix)
			tradeCache = redisCache
		}
	}
	defer func() {
		if err := tradeCache.Close(); err != nil {
			log.Printf("⚠️ Error closing cache connection: %v", err)
		}
	}()

	watcher := trade.NewWatcher(trade.WatcherConfig{
		Registry:     registry,
		Ledger:       ledger,
		Settler:      settler,
		Messages:     messages,
		Store:        tradeCache,
		PayTo:        cfg.PaymentAddress,
		PollInterval: cfg.PollInterval,
		Timeout:      cfg.WatchTimeout,
	})

	chatAgent := agent.New(agent.Config{
		Portfolio:        oneinch.NewClient(cfg.OneInchProxyURL),
		LLM:              llm.NewClient(cfg.ASIOneAPIKey, cfg.ASIOneURL),
		Registry:         registry,
		Watcher:          watcher,
		Completed:        tradeCache,
		Messages:         messages,
		Context:          analysisCtx,
		PayTo:            cfg.PaymentAddress,
		MaxActiveWatches: cfg.MaxActiveWatches,
		WatchCtx:         ctx,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.New(chatAgent, messages).Router(),
	}

	go func() {
		log.Printf("✨ Agent is ready! Listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Error during HTTP shutdown: %v", err)
	}
	log.Println("👋 Goodbye!")
}
