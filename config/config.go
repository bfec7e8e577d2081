package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"junotreasury/crypto"
)

// Duration wraps time.Duration so TOML and YAML files can use strings such
// as "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses human readable duration strings.
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration in its string form.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	return d.UnmarshalText([]byte(value.Value))
}

// Config captures runtime configuration for treasuryd.
type Config struct {
	ListenAddress   string          `toml:"ListenAddress" yaml:"listen"`
	DataDir         string          `toml:"DataDir" yaml:"data_dir"`
	OutboxPath      string          `toml:"OutboxPath" yaml:"outbox"`
	Denom           string          `toml:"Denom" yaml:"denom"`
	Owner           string          `toml:"Owner" yaml:"owner"`
	OwnerKeystore   string          `toml:"OwnerKeystore,omitempty" yaml:"owner_keystore"`
	Environment     string          `toml:"Environment" yaml:"environment"`
	LogLevel        string          `toml:"LogLevel" yaml:"log_level"`
	LogFile         string          `toml:"LogFile,omitempty" yaml:"log_file"`
	AllowedOrigins  []string        `toml:"AllowedOrigins,omitempty" yaml:"allowed_origins"`
	ShutdownTimeout Duration        `toml:"ShutdownTimeout" yaml:"shutdown_timeout"`
	TLS             TLSConfig       `toml:"TLS" yaml:"tls"`
	Auth            AuthConfig      `toml:"Auth" yaml:"auth"`
	RateLimit       RateLimitConfig `toml:"RateLimit" yaml:"rate_limit"`
	Telemetry       TelemetryConfig `toml:"Telemetry" yaml:"telemetry"`
}

// TLSConfig enables HTTPS when both files are set.
type TLSConfig struct {
	CertFile string `toml:"CertFile,omitempty" yaml:"cert_file"`
	KeyFile  string `toml:"KeyFile,omitempty" yaml:"key_file"`
}

// Enabled reports whether a certificate pair is configured.
func (t TLSConfig) Enabled() bool {
	return strings.TrimSpace(t.CertFile) != "" && strings.TrimSpace(t.KeyFile) != ""
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	HMACSecret    string   `toml:"HMACSecret,omitempty" yaml:"hmac_secret"`
	HMACSecretEnv string   `toml:"HMACSecretEnv" yaml:"hmac_secret_env"`
	Issuer        string   `toml:"Issuer" yaml:"issuer"`
	Audience      string   `toml:"Audience" yaml:"audience"`
	ClockSkew     Duration `toml:"ClockSkew" yaml:"clock_skew"`
}

// RateLimitConfig bounds requests per authenticated caller.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond" yaml:"requests_per_second"`
	Burst             int     `toml:"Burst" yaml:"burst"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Endpoint    string  `toml:"Endpoint" yaml:"endpoint"`
	Insecure    bool    `toml:"Insecure" yaml:"insecure"`
	Traces      bool    `toml:"Traces" yaml:"traces"`
	Metrics     bool    `toml:"Metrics" yaml:"metrics"`
	SampleRatio float64 `toml:"SampleRatio" yaml:"sample_ratio"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Load loads the configuration from the given path. TOML is the default
// format; files ending in .yaml or .yml are decoded as YAML. A missing file is
// created with defaults and a fresh owner keystore.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if isYAML(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0].String())
		}
	}
	if env := strings.TrimSpace(os.Getenv("TREASURY_ENV")); env != "" {
		cfg.Environment = env
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8090"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./treasury-data"
	}
	if strings.TrimSpace(cfg.OutboxPath) == "" {
		cfg.OutboxPath = filepath.Join(cfg.DataDir, "outbox.db")
	}
	if strings.TrimSpace(cfg.Denom) == "" {
		cfg.Denom = "ujuno"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ShutdownTimeout.Duration <= 0 {
		cfg.ShutdownTimeout.Duration = 10 * time.Second
	}
	if strings.TrimSpace(cfg.Auth.HMACSecretEnv) == "" {
		cfg.Auth.HMACSecretEnv = "TREASURY_JWT_SECRET"
	}
	if cfg.Auth.ClockSkew.Duration <= 0 {
		cfg.Auth.ClockSkew.Duration = 30 * time.Second
	}
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 5
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}
}

// Validate checks that the configuration can start a daemon.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config required")
	}
	if strings.TrimSpace(c.Owner) == "" {
		return fmt.Errorf("Owner must be configured")
	}
	if _, err := crypto.DecodeAddressWithPrefix(c.Owner, crypto.JunoPrefix); err != nil {
		return fmt.Errorf("Owner: %w", err)
	}
	if (strings.TrimSpace(c.TLS.CertFile) == "") != (strings.TrimSpace(c.TLS.KeyFile) == "") {
		return fmt.Errorf("TLS.CertFile and TLS.KeyFile must be set together")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("Telemetry.SampleRatio must be within [0, 1]")
	}
	return nil
}

// OwnerAddress returns the decoded owner address.
func (c *Config) OwnerAddress() (crypto.Address, error) {
	return crypto.DecodeAddressWithPrefix(c.Owner, crypto.JunoPrefix)
}

// JWTSecret resolves the HMAC secret from the environment or the file.
func (c *Config) JWTSecret() (string, error) {
	if name := strings.TrimSpace(c.Auth.HMACSecretEnv); name != "" {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value, nil
		}
	}
	if secret := strings.TrimSpace(c.Auth.HMACSecret); secret != "" {
		return secret, nil
	}
	return "", fmt.Errorf("jwt secret not configured: set %s or Auth.HMACSecret", c.Auth.HMACSecretEnv)
}

func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, "", crypto.ScryptStandard); err != nil {
		return nil, err
	}

	cfg := &Config{
		Owner:         key.PubKey().Address(crypto.JunoPrefix).String(),
		OwnerKeystore: keystorePath,
		Environment:   "dev",
	}
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "owner.keystore")
}
