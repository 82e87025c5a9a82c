// Command payer sends a copy-trade fee payment in USDC on Polygon Amoy.
// It is the counterparty tool for exercising the agent's payment watcher:
// initiate a copy trade, then pay the quoted fee with this command.
//
// With no key configured it generates a fresh wallet and prints funding
// instructions instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
)

const (
	amoyChainID      = 80002
	transferGasLimit = 70000
	erc20TransferABI = `[{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`
)

func main() {
	_ = godotenv.Load()

	keyHex := flag.String("key", os.Getenv("USER_PRIVATE_KEY"), "hex private key of the paying wallet")
	to := flag.String("to", os.Getenv("PAYMENT_ADDRESS"), "agent payment address")
	amount := flag.Int64("amount", 0, "fee amount in USDC smallest units (6 decimals)")
	token := flag.String("token", envOr("AMOY_USDC_CONTRACT", "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582"), "USDC contract address")
	rpcURL := flag.String("rpc", envOr("AMOY_RPC_URL", "https://rpc-amoy.polygon.technology"), "Polygon Amoy RPC endpoint")
	flag.Parse()

	if *keyHex == "" {
		generateWallet()
		return
	}
	if *to == "" {
		log.Fatal("❌ -to (or PAYMENT_ADDRESS) is required")
	}
	if *amount <= 0 {
		log.Fatal("❌ -amount must be a positive number of smallest units")
	}

	if err := pay(*keyHex, *to, *token, *rpcURL, *amount); err != nil {
		log.Fatalf("❌ Payment failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func generateWallet() {
	key, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("❌ Failed to generate wallet: %v", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey)

	fmt.Println("⚠️ No private key provided. A new wallet has been generated.")
	fmt.Printf("🔐 Generated new wallet address: %s\n", address.Hex())
	fmt.Println("‼️ IMPORTANT: Save this private key to your .env file as USER_PRIVATE_KEY to reuse the wallet:")
	fmt.Printf("%x\n", crypto.FromECDSA(key))
	fmt.Println("💰 Fund this wallet with USDC on Polygon Amoy to pay copy trade fees.")
}

func pay(keyHex, to, token, rpcURL string, amount int64) error {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	from := crypto.PubkeyToAddress(privateKey.PublicKey)

	transferABI, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return fmt.Errorf("failed to parse transfer ABI: %w", err)
	}

	log.Printf("💸 Paying %d smallest units of USDC", amount)
	log.Printf("   From: %s", from.Hex())
	log.Printf("   To:   %s", to)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}
	defer client.Close()

	data, err := transferABI.Pack("transfer", common.HexToAddress(to), big.NewInt(amount))
	if err != nil {
		return fmt.Errorf("failed to pack transfer call: %w", err)
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(token), big.NewInt(0), transferGasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(amoyChainID)), privateKey)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}

	log.Printf("✅ Payment sent: %s", signedTx.Hash().Hex())
	log.Println("👀 The agent should detect this transfer within its next poll.")
	return nil
}
