package treasury

import (
	"errors"
	"testing"
)

func TestQuoteSwapScenario(t *testing.T) {
	quote, err := QuoteSwap(NewUint128(0), scenarioOrder())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	checks := map[string]struct {
		got  Uint128
		want string
	}{
		"net":       {quote.NetAfterGas, "990000"},
		"fee":       {quote.PlatformFee, "5000"},
		"pending":   {quote.PendingPlatformFee, "5000"},
		"minOut":    {quote.MinimumOutput, "1960200"},
		"spendable": {quote.Spendable, "985000"},
	}
	for name, check := range checks {
		if check.got.String() != check.want {
			t.Fatalf("%s: expected %s, got %s", name, check.want, check.got)
		}
	}
}

func TestQuoteSwapFeeFloors(t *testing.T) {
	order := scenarioOrder()
	order.JunoAmount = NewUint128(199)
	order.GasEstimate = NewUint128(0)
	order.PlatformFeeBips = NewUint128(50)
	quote, err := QuoteSwap(NewUint128(0), order)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !quote.PlatformFee.IsZero() {
		t.Fatalf("expected fee to floor to zero, got %s", quote.PlatformFee)
	}
	if quote.Spendable.String() != "199" {
		t.Fatalf("unexpected spendable %s", quote.Spendable)
	}
}

func TestQuoteSwapMonotonic(t *testing.T) {
	var prevMin, prevSpend Uint128
	for i, slip := range []uint64{0, 10, 100, 5_000, 10_000} {
		order := scenarioOrder()
		order.SlippageBips = NewUint128(slip)
		quote, err := QuoteSwap(NewUint128(0), order)
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		if i > 0 && quote.MinimumOutput.Cmp(prevMin) > 0 {
			t.Fatalf("min output grew with slippage %d", slip)
		}
		prevMin = quote.MinimumOutput
	}
	for i, fee := range []uint64{0, 1, 50, 500, 5_000} {
		order := scenarioOrder()
		order.PlatformFeeBips = NewUint128(fee)
		quote, err := QuoteSwap(NewUint128(0), order)
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		if i > 0 && quote.Spendable.Cmp(prevSpend) > 0 {
			t.Fatalf("spendable grew with fee %d", fee)
		}
		prevSpend = quote.Spendable
	}
}

func TestQuoteSwapMinOutputOverflow(t *testing.T) {
	order := scenarioOrder()
	order.JunoAmount = MustUint128("340282366920938463463374607431768211455")
	order.TokenAmountPerNative = MustUint128("340282366920938463463374607431768211455")
	order.GasEstimate = NewUint128(0)
	order.PlatformFeeBips = NewUint128(0)
	if _, err := QuoteSwap(NewUint128(0), order); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}
}

func TestValidators(t *testing.T) {
	if err := ValidateDeadline(10, 10); err != nil {
		t.Fatalf("deadline boundary rejected: %v", err)
	}
	if err := ValidateDeadline(11, 10); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if err := ValidateSlippage(NewUint128(10_000)); err != nil {
		t.Fatalf("max slippage rejected: %v", err)
	}
	if err := ValidateGasBudget(NewUint128(5), NewUint128(5)); err != nil {
		t.Fatalf("gas equal to input rejected: %v", err)
	}
	if err := ValidateGasBudget(NewUint128(5), NewUint128(6)); !errors.Is(err, ErrInsufficientInputForGas) {
		t.Fatalf("expected ErrInsufficientInputForGas, got %v", err)
	}
}
