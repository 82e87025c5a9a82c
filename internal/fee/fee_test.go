package fee

import (
	"errors"
	"math"
	"testing"
)

func TestForNotional(t *testing.T) {
	tests := []struct {
		name      string
		amountUSD float64
		want      int64
	}{
		{"zero floors to minimum", 0.0, 1000},
		{"tiny amount floors to minimum", 0.5, 1000},
		{"100 USD is one basis point", 100.0, 10000},
		{"10000 USD scales down once", 10000.0, 100000},
		{"100000 USD scales down twice", 100000.0, 100000},
		{"just below scale ceiling", 4999.0, 499900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ForNotional(tt.amountUSD)
			if err != nil {
				t.Fatalf("ForNotional(%v) returned error: %v", tt.amountUSD, err)
			}
			if got != tt.want {
				t.Errorf("ForNotional(%v) = %d, want %d", tt.amountUSD, got, tt.want)
			}
		})
	}
}

func TestForNotional_InvalidAmounts(t *testing.T) {
	for _, amount := range []float64{-0.01, -10000, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := ForNotional(amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ForNotional(%v) error = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestForNotional_Bounds(t *testing.T) {
	// For any valid notional the fee stays within [0.001, 0.5) USD,
	// i.e. [1000, 500000) smallest units.
	samples := []float64{0, 0.001, 1, 99.99, 100, 4999.99, 5000, 10000, 1e6, 1e9, 1e15}
	for _, amount := range samples {
		got, err := ForNotional(amount)
		if err != nil {
			t.Fatalf("ForNotional(%v) returned error: %v", amount, err)
		}
		if got < 1000 {
			t.Errorf("ForNotional(%v) = %d, below minimum 1000", amount, got)
		}
		if got >= 500000 {
			t.Errorf("ForNotional(%v) = %d, at or above 500000", amount, got)
		}
	}
}

func TestUSD(t *testing.T) {
	if got := USD(10000); got != 0.01 {
		t.Errorf("USD(10000) = %v, want 0.01", got)
	}
	if got := USD(MinimumSmallestUnit); got != 0.001 {
		t.Errorf("USD(minimum) = %v, want 0.001", got)
	}
}
