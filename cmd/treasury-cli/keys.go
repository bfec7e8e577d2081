package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"junotreasury/cmd/internal/passphrase"
	"junotreasury/crypto"
	"junotreasury/gateway/middleware"
)

const passphraseEnv = "TREASURY_KEYSTORE_PASSPHRASE"

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage operator keystores",
	}

	var light bool
	generate := &cobra.Command{
		Use:   "generate <path>",
		Short: "Create a new keystore and print its address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			pass, err := passphrase.NewSource(passphraseEnv, "").Get()
			if err != nil {
				return err
			}
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			strength := crypto.ScryptStandard
			if light {
				strength = crypto.ScryptLight
			}
			if err := crypto.SaveToKeystore(args[0], key, pass, strength); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.PubKey().Address(crypto.JunoPrefix).String())
			return nil
		},
	}
	generate.Flags().BoolVar(&light, "light", false, "use light scrypt parameters (tests and throwaway keys)")

	show := &cobra.Command{
		Use:   "show <path>",
		Short: "Print the address stored in a keystore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := keystoreAddress(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr.String())
			return nil
		},
	}
	cmd.AddCommand(generate, show)
	return cmd
}

func keystoreAddress(path string) (crypto.Address, error) {
	pass, err := passphrase.NewSource(passphraseEnv, "").Get()
	if err != nil {
		return crypto.Address{}, err
	}
	return crypto.KeystoreAddress(path, pass, crypto.JunoPrefix)
}

func newTokenCmd() *cobra.Command {
	var (
		subject   string
		keystore  string
		secretEnv string
		issuer    string
		audience  string
		scopes    []string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var addr crypto.Address
			switch {
			case keystore != "":
				resolved, err := keystoreAddress(keystore)
				if err != nil {
					return err
				}
				addr = resolved
			case subject != "":
				decoded, err := crypto.DecodeAddressWithPrefix(subject, crypto.JunoPrefix)
				if err != nil {
					return fmt.Errorf("--subject: %w", err)
				}
				addr = decoded
			default:
				return errors.New("one of --subject or --keystore is required")
			}
			secret := strings.TrimSpace(os.Getenv(secretEnv))
			if secret == "" {
				return fmt.Errorf("%s is not set", secretEnv)
			}
			token, err := middleware.SignToken(secret, middleware.TokenRequest{
				Subject:  addr,
				Issuer:   issuer,
				Audience: audience,
				Scopes:   scopes,
				TTL:      ttl,
			}, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "juno address the token speaks for")
	cmd.Flags().StringVar(&keystore, "keystore", "", "derive the subject from a keystore")
	cmd.Flags().StringVar(&secretEnv, "secret-env", "TREASURY_JWT_SECRET", "environment variable holding the HMAC secret")
	cmd.Flags().StringVar(&issuer, "issuer", "", "iss claim")
	cmd.Flags().StringVar(&audience, "audience", "", "aud claim")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{middleware.ScopeExecute}, "scopes to grant")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
