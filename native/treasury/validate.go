package treasury

import "fmt"

// BipsDenominator is the basis point scale.
const BipsDenominator = 10_000

var maxBips = NewUint128(BipsDenominator)

// ValidateDeadline rejects orders whose deadline lies strictly before the
// block time. A deadline equal to the block time is still valid.
func ValidateDeadline(blockTime, deadline uint64) error {
	if blockTime > deadline {
		return fmt.Errorf("%w: block time %d after deadline %d", ErrExpired, blockTime, deadline)
	}
	return nil
}

// ValidateSlippage accepts 0 through 10000 basis points.
func ValidateSlippage(bips Uint128) error {
	if bips.Cmp(maxBips) > 0 {
		return fmt.Errorf("%w: %s bips", ErrSlippageOutOfRange, bips)
	}
	return nil
}

// ValidateGasBudget requires the gas estimate to be covered by the input.
func ValidateGasBudget(input, gas Uint128) error {
	if gas.Cmp(input) > 0 {
		return fmt.Errorf("%w: gas %s exceeds input %s", ErrInsufficientInputForGas, gas, input)
	}
	return nil
}
