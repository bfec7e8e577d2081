package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"junotreasury/native/treasury"
	"junotreasury/services/outbox"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the treasury owner and accrued fees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			var cfg treasury.ConfigResponse
			if err := c.do(ctx, http.MethodGet, "/v1/config", nil, &cfg); err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), &cfg)
			return nil
		},
	}
}

func newBotCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bot <address>",
		Short: "Show the role status of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress("address", args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			var role treasury.BotRoleResponse
			if err := c.do(ctx, http.MethodGet, "/v1/bots/"+url.PathEscape(addr.String()), nil, &role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", role.Address, role.Status)
			return nil
		},
	}
}

func newOutboxCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and acknowledge outbound messages",
	}

	var limit int
	pending := &cobra.Command{
		Use:   "pending",
		Short: "List undelivered messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			var records []outbox.Record
			if err := c.do(ctx, http.MethodGet, "/v1/outbox?limit="+strconv.Itoa(limit), nil, &records); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(w, "no pending messages")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\theight %d\t%s\t%s\n", rec.ID, rec.Kind, rec.Operation, rec.Height, rec.BatchID, ago(rec.CreatedAt))
			}
			return nil
		},
	}
	pending.Flags().IntVar(&limit, "limit", 100, "maximum messages to list")

	ack := &cobra.Command{
		Use:   "ack <id>",
		Short: "Mark a message delivered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("id: %w", err)
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/outbox/%d/delivered", id), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "message %d delivered\n", id)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Count messages per delivery state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			counts := map[outbox.Status]int{}
			if err := c.do(ctx, http.MethodGet, "/v1/outbox/counts", nil, &counts); err != nil {
				return err
			}
			keys := make([]string, 0, len(counts))
			for status := range counts {
				keys = append(keys, string(status))
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", key, counts[outbox.Status(key)])
			}
			return nil
		},
	}
	cmd.AddCommand(pending, ack, status)
	return cmd
}
