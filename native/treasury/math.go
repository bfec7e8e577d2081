package treasury

import (
	"fmt"

	"github.com/holiman/uint256"
)

// SwapQuote holds every amount derived from a buy order.
type SwapQuote struct {
	NetAfterGas        Uint128
	PlatformFee        Uint128
	PendingPlatformFee Uint128
	MinimumOutput      Uint128
	Spendable          Uint128
}

var bipsDenominator = uint256.NewInt(BipsDenominator)

// mulDiv computes floor(a*b/bipsDenominator) with a 256-bit product.
func mulDiv(a, b *uint256.Int) (Uint128, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return Uint128{}, fmt.Errorf("%w: %s * %s", ErrArithmeticOverflow, a.Dec(), b.Dec())
	}
	return fromWide(product.Div(product, bipsDenominator))
}

// QuoteSwap applies the fee and slippage arithmetic to an order that already
// passed the guardrail validators. pending is the fee accrued so far.
func QuoteSwap(pending Uint128, order BuyOrder) (SwapQuote, error) {
	var quote SwapQuote

	net, err := order.JunoAmount.CheckedSub(order.GasEstimate)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("%w: %v", ErrInsufficientInputForGas, err)
	}
	quote.NetAfterGas = net

	// The fee is charged on the gross input, not on the amount left after gas.
	fee, err := mulDiv(order.PlatformFeeBips.wide(), order.JunoAmount.wide())
	if err != nil {
		return SwapQuote{}, err
	}
	quote.PlatformFee = fee

	quote.PendingPlatformFee, err = pending.CheckedAdd(fee)
	if err != nil {
		return SwapQuote{}, err
	}

	keep, err := maxBips.CheckedSub(order.SlippageBips)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("%w: %s bips", ErrSlippageOutOfRange, order.SlippageBips)
	}
	expected, overflow := new(uint256.Int).MulOverflow(net.wide(), order.TokenAmountPerNative.wide())
	if overflow {
		return SwapQuote{}, fmt.Errorf("%w: %s * %s", ErrArithmeticOverflow, net, order.TokenAmountPerNative)
	}
	quote.MinimumOutput, err = mulDiv(expected, keep.wide())
	if err != nil {
		return SwapQuote{}, err
	}

	if fee.Cmp(net) >= 0 {
		return SwapQuote{}, fmt.Errorf("%w: fee %s leaves nothing of %s", ErrInsufficientAmountToSwap, fee, net)
	}
	quote.Spendable, _ = net.CheckedSub(fee)
	return quote, nil
}
