package main

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	server  string
	token   string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "treasury-cli",
		Short:         "Operate a treasuryd gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", envOr("TREASURY_SERVER", "http://127.0.0.1:8090"), "treasuryd base URL")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("TREASURY_TOKEN"), "bearer token (defaults to $TREASURY_TOKEN)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")

	cmd.AddCommand(
		newTokenCmd(),
		newKeysCmd(),
		newSetAdminCmd(opts),
		newSetBotRoleCmd(opts),
		newWithdrawFeeCmd(opts),
		newBuyTokenCmd(opts),
		newConfigCmd(opts),
		newBotCmd(opts),
		newOutboxCmd(opts),
		newEventsCmd(opts),
	)
	return cmd
}

func (o *rootOptions) client() (*client, error) {
	base := strings.TrimRight(strings.TrimSpace(o.server), "/")
	if base == "" {
		return nil, errors.New("--server is required")
	}
	return &client{
		base:  base,
		token: strings.TrimSpace(o.token),
		http:  &http.Client{Timeout: o.timeout},
	}, nil
}

func envOr(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}
