// Package chains maps user-facing chain names to 1inch chain IDs and
// per-chain USDC contract addresses.
package chains

// nameToID covers the chains the 1inch portfolio proxy supports.
var nameToID = map[string]int{
	"ethereum": 1, "eth": 1,
	"arbitrum": 42161, "arb": 42161,
	"bnb chain": 56, "bnb": 56, "bsc": 56, "binance smart chain": 56,
	"gnosis":   100,
	"optimism": 10,
	"polygon":  137, "matic": 137,
	"base":        8453,
	"zksync era":  324,
	"linea":       59144,
	"avalanche":   43114, "avax": 43114,
}

var idToUSDC = map[int]string{
	1:     "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", // Ethereum
	137:   "0x3c499c542cEF5E3811e1192ce70d8cC03d59Cf01", // Polygon
	42161: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", // Arbitrum
	10:    "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", // Optimism
	8453:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", // Base
	43114: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", // Avalanche
}

// ID resolves a lowercase chain name to its chain ID.
func ID(name string) (int, bool) {
	id, ok := nameToID[name]
	return id, ok
}

// USDCAddress returns the USDC contract address on the given chain, used as
// the stable reference for price lookups.
func USDCAddress(chainID int) (string, bool) {
	addr, ok := idToUSDC[chainID]
	return addr, ok
}

// Supported returns all recognized chain names (including aliases).
func Supported() []string {
	names := make([]string, 0, len(nameToID))
	for name := range nameToID {
		names = append(names, name)
	}
	return names
}
