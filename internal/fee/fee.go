// Package fee derives the copy-trade service fee from a notional USD amount.
package fee

import (
	"errors"
	"math"
)

const (
	// basisPointRate is 0.01% of notional.
	basisPointRate = 0.0001
	// minimumFeeUSD is the floor applied after scaling.
	minimumFeeUSD = 0.001
	// scaleCeilingUSD bounds the displayed fee; anything at or above it is
	// divided down by powers of ten to preserve price digits.
	scaleCeilingUSD = 0.5
	// smallestUnitScale converts USD to 6-decimal USDC smallest units.
	smallestUnitScale = 1_000_000
)

// MinimumSmallestUnit is the smallest fee ForNotional can produce.
const MinimumSmallestUnit = int64(minimumFeeUSD * smallestUnitScale)

// ErrInvalidAmount reports a notional amount the caller should have
// validated: negative, NaN, or infinite.
var ErrInvalidAmount = errors.New("fee: invalid notional amount")

// ForNotional computes the fee in USDC smallest units for a notional USD
// amount. The fee is one basis point of notional, divided by ten while it is
// at or above 0.5 USD, floored at 0.001 USD, and truncated to an integer
// number of smallest units. The scaling loop is load-bearing: callers and
// on-chain matching depend on these exact values.
func ForNotional(amountUSD float64) (int64, error) {
	if amountUSD < 0 || math.IsNaN(amountUSD) || math.IsInf(amountUSD, 0) {
		return 0, ErrInvalidAmount
	}

	f := amountUSD * basisPointRate
	for f >= scaleCeilingUSD {
		f /= 10
	}
	if f < minimumFeeUSD {
		f = minimumFeeUSD
	}

	return int64(f * smallestUnitScale), nil
}

// USD converts a smallest-unit fee back to USD for display.
func USD(smallestUnit int64) float64 {
	return float64(smallestUnit) / smallestUnitScale
}
