package treasury

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized is returned when the caller is not the owner, or when a
	// buy order comes from an address with no bot role entry.
	ErrUnauthorized = errors.New("treasury: unauthorized")
	// ErrUnauthorizedRole is returned when the caller has a bot entry that is
	// disabled.
	ErrUnauthorizedRole = errors.New("treasury: bot role disabled")
	// ErrExpired is returned when the block time is past the order deadline.
	ErrExpired = errors.New("treasury: order expired")
	// ErrSlippageOutOfRange is returned for slippage above 10000 basis points.
	ErrSlippageOutOfRange = errors.New("treasury: slippage out of range")
	// ErrInsufficientInputForGas is returned when the gas estimate exceeds the
	// order input.
	ErrInsufficientInputForGas = errors.New("treasury: insufficient input for gas")
	// ErrInsufficientAmountToSwap is returned when nothing is left to swap
	// after gas and the platform fee.
	ErrInsufficientAmountToSwap = errors.New("treasury: insufficient amount to swap")
	// ErrFeeUnderflow is returned when a withdrawal exceeds the pending fee.
	ErrFeeUnderflow = errors.New("treasury: fee underflow")
	// ErrArithmeticOverflow is returned when a checked computation leaves the
	// representable range.
	ErrArithmeticOverflow = errors.New("treasury: arithmetic overflow")
	// ErrStorageFailure is returned when the configuration cannot be loaded
	// or persisted.
	ErrStorageFailure = errors.New("treasury: storage failure")
	// ErrConfigNotFound is returned by state backends when the treasury was
	// never instantiated.
	ErrConfigNotFound = errors.New("treasury: config not found")
	// ErrAlreadyInstantiated is returned by a second Instantiate.
	ErrAlreadyInstantiated = errors.New("treasury: already instantiated")
	// ErrInvalidMessage is returned for malformed execute messages.
	ErrInvalidMessage = errors.New("treasury: invalid message")

	errNilState  = errors.New("treasury engine: state not configured")
	errUnderflow = errors.New("treasury: arithmetic underflow")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrUnauthorizedRole, "unauthorized_role"},
	{ErrExpired, "expired"},
	{ErrSlippageOutOfRange, "slippage_out_of_range"},
	{ErrInsufficientInputForGas, "insufficient_input_for_gas"},
	{ErrInsufficientAmountToSwap, "insufficient_amount_to_swap"},
	{ErrFeeUnderflow, "fee_underflow"},
	{ErrArithmeticOverflow, "arithmetic_overflow"},
	{ErrAlreadyInstantiated, "already_instantiated"},
	{ErrInvalidMessage, "invalid_message"},
	{ErrStorageFailure, "storage_failure"},
	{ErrConfigNotFound, "storage_failure"},
	{errNilState, "storage_failure"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "deadline_exceeded"},
}

// Code returns the stable snake_case kind of err for transports and metrics.
// Nil maps to "ok" and unknown errors to "internal".
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return "internal"
}
