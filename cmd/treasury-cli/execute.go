package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"junotreasury/crypto"
	"junotreasury/gateway/routes"
	"junotreasury/native/treasury"
)

func parseAddress(flag, raw string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddressWithPrefix(raw, crypto.JunoPrefix)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%s: %w", flag, err)
	}
	return addr, nil
}

func parseAmount(flag, raw string) (treasury.Uint128, error) {
	amount, err := treasury.ParseUint128(raw)
	if err != nil {
		return treasury.Uint128{}, fmt.Errorf("%s: %w", flag, err)
	}
	return amount, nil
}

func runExecute(cmd *cobra.Command, opts *rootOptions, msg *treasury.ExecuteMsg) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	c, err := opts.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	var res routes.ExecuteResponse
	if err := c.do(ctx, http.MethodPost, "/v1/execute", msg, &res); err != nil {
		return err
	}
	printExecute(cmd.OutOrStdout(), &res)
	return nil
}

func newSetAdminCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-admin <address>",
		Short: "Transfer treasury ownership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("address", args[0])
			if err != nil {
				return err
			}
			return runExecute(cmd, opts, &treasury.ExecuteMsg{SetAdmin: &treasury.SetAdminMsg{NewAdmin: addr}})
		},
	}
}

func newSetBotRoleCmd(opts *rootOptions) *cobra.Command {
	var disable bool
	cmd := &cobra.Command{
		Use:   "set-bot-role <address>",
		Short: "Enable or disable a trading bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("address", args[0])
			if err != nil {
				return err
			}
			return runExecute(cmd, opts, &treasury.ExecuteMsg{SetBotRole: &treasury.SetBotRoleMsg{NewBot: addr, Enabled: !disable}})
		},
	}
	cmd.Flags().BoolVar(&disable, "disable", false, "disable instead of enable")
	return cmd
}

func newWithdrawFeeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw-fee <to> <amount>",
		Short: "Pay out accrued platform fees",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseAddress("to", args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount("amount", args[1])
			if err != nil {
				return err
			}
			return runExecute(cmd, opts, &treasury.ExecuteMsg{WithdrawFee: &treasury.WithdrawFeeMsg{To: to, Amount: amount}})
		},
	}
}

type buyFlags struct {
	amount, token, rate, slippage, to, router, fee, gas string
	deadlineIn                                         time.Duration
	deadlineAt                                         uint64
}

func (f *buyFlags) message(now time.Time) (*treasury.ExecuteMsg, error) {
	msg := &treasury.BuyTokenMsg{}
	var err error
	if msg.JunoAmount, err = parseAmount("--amount", f.amount); err != nil {
		return nil, err
	}
	if msg.TokenAmountPerNative, err = parseAmount("--rate", f.rate); err != nil {
		return nil, err
	}
	if msg.SlippageBips, err = parseAmount("--slippage-bips", f.slippage); err != nil {
		return nil, err
	}
	if msg.PlatformFeeBips, err = parseAmount("--fee-bips", f.fee); err != nil {
		return nil, err
	}
	if msg.GasEstimate, err = parseAmount("--gas", f.gas); err != nil {
		return nil, err
	}
	if msg.Token, err = parseAddress("--token", f.token); err != nil {
		return nil, err
	}
	if msg.To, err = parseAddress("--to", f.to); err != nil {
		return nil, err
	}
	if msg.Router, err = parseAddress("--router", f.router); err != nil {
		return nil, err
	}
	msg.Deadline = f.deadlineAt
	if msg.Deadline == 0 {
		msg.Deadline = uint64(now.Add(f.deadlineIn).UnixNano())
	}
	return &treasury.ExecuteMsg{BuyToken: msg}, nil
}

func newBuyTokenCmd(opts *rootOptions) *cobra.Command {
	f := &buyFlags{}
	cmd := &cobra.Command{
		Use:   "buy-token",
		Short: "Submit a bot swap order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := f.message(time.Now())
			if err != nil {
				return err
			}
			return runExecute(cmd, opts, msg)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.amount, "amount", "", "native input amount")
	flags.StringVar(&f.token, "token", "", "token contract address")
	flags.StringVar(&f.rate, "rate", "", "expected tokens per native unit")
	flags.StringVar(&f.slippage, "slippage-bips", "100", "slippage tolerance in basis points")
	flags.StringVar(&f.to, "to", "", "recipient of the swap output")
	flags.StringVar(&f.router, "router", "", "pool contract address")
	flags.StringVar(&f.fee, "fee-bips", "0", "platform fee in basis points")
	flags.StringVar(&f.gas, "gas", "0", "gas budget deducted from the input")
	flags.DurationVar(&f.deadlineIn, "deadline-in", 5*time.Minute, "deadline relative to now")
	flags.Uint64Var(&f.deadlineAt, "deadline", 0, "absolute deadline in unix nanoseconds (overrides --deadline-in)")
	for _, name := range []string{"amount", "token", "rate", "to", "router"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
