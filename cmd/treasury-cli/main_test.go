package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"junotreasury/core"
	"junotreasury/crypto"
	"junotreasury/gateway/middleware"
	"junotreasury/gateway/routes"
	"junotreasury/native/treasury"
	"junotreasury/services/outbox"
	"junotreasury/storage"
)

const cliSecret = "cli-secret"

var (
	owner     = crypto.DeriveAddress(crypto.JunoPrefix, []byte("owner"))
	bot       = crypto.DeriveAddress(crypto.JunoPrefix, []byte("bot"))
	recipient = crypto.DeriveAddress(crypto.JunoPrefix, []byte("recipient"))
	pool      = crypto.DeriveAddress(crypto.JunoPrefix, []byte("pool"))
	token     = crypto.DeriveAddress(crypto.JunoPrefix, []byte("token"))
)

func startGateway(t *testing.T) string {
	t.Helper()
	dsn, err := outbox.FileDSN(filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err)
	store, err := outbox.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	node, err := core.NewNode(storage.NewMemDB(), store)
	require.NoError(t, err)
	_, err = node.Instantiate(context.Background(), owner)
	require.NoError(t, err)

	handler, err := routes.New(routes.Config{
		Treasury:      node,
		Relay:         store,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{HMACSecret: cliSecret}, nil),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func bearer(t *testing.T, addr crypto.Address, scopes ...string) string {
	t.Helper()
	signed, err := middleware.SignToken(cliSecret, middleware.TokenRequest{Subject: addr, Scopes: scopes}, time.Now())
	require.NoError(t, err)
	return signed
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLIBuyAndWithdraw(t *testing.T) {
	server := startGateway(t)
	ownerToken := bearer(t, owner, middleware.ScopeExecute, routes.ScopeRelay)
	botToken := bearer(t, bot, middleware.ScopeExecute)

	out, err := runCLI(t, "--server", server, "--token", ownerToken, "set-bot-role", bot.String())
	require.NoError(t, err, out)
	require.Contains(t, out, "committed at height 2")

	out, err = runCLI(t, "--server", server, "--token", botToken, "buy-token",
		"--amount", "1000000", "--rate", "2", "--slippage-bips", "100", "--fee-bips", "50", "--gas", "10000",
		"--token", token.String(), "--to", recipient.String(), "--router", pool.String())
	require.NoError(t, err, out)
	require.Contains(t, out, "swap 985,000 ujuno")
	require.Contains(t, out, "minimum output 1,960,200")

	out, err = runCLI(t, "--server", server, "--token", botToken, "config")
	require.NoError(t, err, out)
	require.Contains(t, out, "pending platform fee: 5,000")

	out, err = runCLI(t, "--server", server, "--token", ownerToken, "withdraw-fee", recipient.String(), "5000")
	require.NoError(t, err, out)
	require.Contains(t, out, "send 5,000 ujuno to "+recipient.String())

	out, err = runCLI(t, "--server", server, "--token", ownerToken, "outbox", "status")
	require.NoError(t, err, out)
	require.Contains(t, out, "pending\t2")

	out, err = runCLI(t, "--server", server, "--token", ownerToken, "outbox", "pending")
	require.NoError(t, err, out)
	require.Equal(t, 2, strings.Count(out, "\n"))

	out, err = runCLI(t, "--server", server, "--token", ownerToken, "outbox", "ack", "1")
	require.NoError(t, err, out)
	require.Contains(t, out, "message 1 delivered")
}

func TestCLISurfacesGatewayErrors(t *testing.T) {
	server := startGateway(t)
	botToken := bearer(t, bot, middleware.ScopeExecute)

	_, err := runCLI(t, "--server", server, "--token", botToken, "withdraw-fee", recipient.String(), "1")
	require.Error(t, err)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "unauthorized", apiErr.Body.Code)

	out, err := runCLI(t, "--server", server, "--token", botToken, "bot", bot.String())
	require.NoError(t, err)
	require.Contains(t, out, string(treasury.RoleNone))
}

func TestCLIRejectsBadInputLocally(t *testing.T) {
	_, err := runCLI(t, "--server", "http://127.0.0.1:1", "withdraw-fee", "cosmos1bogus", "5")
	require.Error(t, err)

	_, err = runCLI(t, "--server", "http://127.0.0.1:1", "withdraw-fee", recipient.String(), "5x")
	require.ErrorIs(t, err, treasury.ErrInvalidMessage)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("TREASURY_JWT_SECRET", cliSecret)
	out, err := runCLI(t, "token", "--subject", owner.String(), "--ttl", "5m")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)

	_, err = runCLI(t, "token")
	require.Error(t, err)
}

func TestKeysGenerateAndShow(t *testing.T) {
	t.Setenv(passphraseEnv, "operator-pass")
	path := filepath.Join(t.TempDir(), "bot.keystore")
	generated, err := runCLI(t, "keys", "generate", "--light", path)
	require.NoError(t, err)
	shown, err := runCLI(t, "keys", "show", path)
	require.NoError(t, err)
	require.Equal(t, generated, shown)

	_, err = runCLI(t, "keys", "generate", "--light", path)
	require.Error(t, err)
}

func TestBuyFlagsDeadline(t *testing.T) {
	f := &buyFlags{amount: "10", token: token.String(), rate: "1", slippage: "0", to: recipient.String(), router: pool.String(), fee: "0", gas: "0", deadlineIn: time.Minute}
	now := time.Unix(1_700_000_000, 0)
	msg, err := f.message(now)
	require.NoError(t, err)
	require.Equal(t, uint64(now.Add(time.Minute).UnixNano()), msg.BuyToken.Deadline)

	f.deadlineAt = 42
	msg, err = f.message(now)
	require.NoError(t, err)
	require.Equal(t, uint64(42), msg.BuyToken.Deadline)
}
