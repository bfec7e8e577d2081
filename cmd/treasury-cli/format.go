package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"junotreasury/gateway/routes"
	"junotreasury/native/treasury"
)

func formatAmount(amount treasury.Uint128, denom string) string {
	return humanize.BigComma(amount.Big()) + " " + denom
}

func printExecute(w io.Writer, res *routes.ExecuteResponse) {
	fmt.Fprintf(w, "committed at height %d\n", res.Height)
	if res.BatchID != "" {
		fmt.Fprintf(w, "outbox batch %s\n", res.BatchID)
	}
	for _, msg := range res.Messages {
		switch {
		case msg.Swap != nil:
			fmt.Fprintf(w, "swap %s via %s, minimum output %s, recipient %s\n",
				formatAmount(msg.Swap.Offer.Amount, msg.Swap.Offer.Denom),
				msg.Swap.Pool,
				humanize.BigComma(msg.Swap.MinimumOutput.Big()),
				msg.Swap.Recipient)
		case msg.Bank != nil:
			for _, coin := range msg.Bank.Amount {
				fmt.Fprintf(w, "send %s to %s\n", formatAmount(coin.Amount, coin.Denom), msg.Bank.ToAddress)
			}
		}
	}
	for _, attr := range res.Attributes {
		fmt.Fprintf(w, "  %s=%s\n", attr.Key, attr.Value)
	}
}

func printConfig(w io.Writer, cfg *treasury.ConfigResponse) {
	fmt.Fprintf(w, "owner:                %s\n", cfg.Owner)
	fmt.Fprintf(w, "pending platform fee: %s\n", humanize.BigComma(cfg.PendingPlatformFee.Big()))
	fmt.Fprintf(w, "as of:                %s\n", time.Unix(0, int64(cfg.Time)).UTC().Format(time.RFC3339))
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
