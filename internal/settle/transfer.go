// Package settle performs the mock reward transfer that follows a confirmed
// fee payment.
package settle

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrSettlementFailed wraps any failure of the reward transfer. Settlement
// failures are recorded, never fatal: the fee payment that preceded them is
// not rolled back.
var ErrSettlementFailed = errors.New("settle: reward transfer failed")

const erc20TransferABI = `[{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

// transferGasLimit matches the fixed gas budget used for the mock token.
const transferGasLimit = 70000

// Trigger sends one mock token to a user wallet, signed by the service key.
type Trigger struct {
	rpcURL       string
	tokenAddress common.Address
	chainID      *big.Int
	privateKey   *ecdsa.PrivateKey
	from         common.Address
	amount       *big.Int
	transferABI  abi.ABI
}

// NewTrigger creates a settlement trigger for the mock token contract on the
// given chain. The reward amount is fixed at one whole token (18 decimals).
func NewTrigger(rpcURL, tokenAddress, privateKeyHex string, chainID int64) (*Trigger, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	transferABI, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse transfer ABI: %w", err)
	}

	return &Trigger{
		rpcURL:       rpcURL,
		tokenAddress: common.HexToAddress(tokenAddress),
		chainID:      big.NewInt(chainID),
		privateKey:   privateKey,
		from:         crypto.PubkeyToAddress(*publicKey),
		amount:       new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		transferABI:  transferABI,
	}, nil
}

// Transfer sends one mock token to toWallet and returns the transaction
// hash. It does not wait for the transaction to be mined.
func (t *Trigger) Transfer(ctx context.Context, toWallet string) (string, error) {
	client, err := ethclient.DialContext(ctx, t.rpcURL)
	if err != nil {
		return "", fmt.Errorf("%w: failed to connect to RPC: %v", ErrSettlementFailed, err)
	}
	defer client.Close()

	data, err := t.transferABI.Pack("transfer", common.HexToAddress(toWallet), t.amount)
	if err != nil {
		return "", fmt.Errorf("%w: failed to pack transfer call: %v", ErrSettlementFailed, err)
	}

	nonce, err := client.PendingNonceAt(ctx, t.from)
	if err != nil {
		return "", fmt.Errorf("%w: failed to get nonce: %v", ErrSettlementFailed, err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to get gas price: %v", ErrSettlementFailed, err)
	}

	tx := types.NewTransaction(nonce, t.tokenAddress, big.NewInt(0), transferGasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(t.chainID), t.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign transaction: %v", ErrSettlementFailed, err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("%w: failed to send transaction: %v", ErrSettlementFailed, err)
	}

	return signedTx.Hash().Hex(), nil
}

// Address returns the service wallet address derived from the signing key.
func (t *Trigger) Address() string {
	return t.from.Hex()
}
