package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"junotreasury/config"
	"junotreasury/core"
	"junotreasury/core/events"
	"junotreasury/gateway/middleware"
	"junotreasury/gateway/routes"
	"junotreasury/gateway/stream"
	"junotreasury/observability"
	"junotreasury/observability/logging"
	telemetry "junotreasury/observability/otel"
	"junotreasury/services/outbox"
	"junotreasury/storage"
)

func main() {
	var cfgPath string
	var allowInsecure bool
	flag.StringVar(&cfgPath, "config", "treasury.toml", "path to treasuryd configuration (TOML or YAML)")
	flag.BoolVar(&allowInsecure, "allow-insecure", false, "DEV ONLY: permit plaintext listeners on non-loopback interfaces")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfgPath, allowInsecure); err != nil {
		slog.Error("treasuryd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string, allowInsecure bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out, closeLog := logging.Output(cfg.LogFile)
	defer closeLog.Close()
	logger := logging.SetupWithWriter(out, "treasuryd", cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.ApplyEnv(telemetry.Config{
		ServiceName: "treasuryd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}))
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	if !cfg.TLS.Enabled() && !allowInsecure && !strings.EqualFold(cfg.Environment, "dev") && !isLoopbackAddress(cfg.ListenAddress) {
		return errors.New("plaintext listeners are restricted to loopback addresses or the dev environment; configure TLS or pass -allow-insecure")
	}

	secret, err := cfg.JWTSecret()
	if err != nil {
		return err
	}
	owner, err := cfg.OwnerAddress()
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer db.Close()

	dsn, err := outbox.FileDSN(cfg.OutboxPath)
	if err != nil {
		return err
	}
	store, err := outbox.Open(dsn)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	defer store.Close()

	node, err := core.NewNode(db, store)
	if err != nil {
		return fmt.Errorf("open treasury: %w", err)
	}
	hub := stream.NewHub(logger)
	node.SetLogger(logger)
	node.SetDenom(cfg.Denom)
	node.SetRecorder(observability.Treasury())
	node.SetEmitter(events.Multi{observability.Events(), hub})

	promoted, voided, err := node.ReconcileOutbox(ctx)
	if err != nil {
		return fmt.Errorf("reconcile outbox: %w", err)
	}
	if promoted > 0 || voided > 0 {
		logger.Warn("reconciled staged outbox batches", slog.Int("promoted", promoted), slog.Int("voided", voided))
	}

	instantiated, err := node.Instantiated()
	if err != nil {
		return fmt.Errorf("read treasury config: %w", err)
	}
	if !instantiated {
		if _, err := node.Instantiate(ctx, owner); err != nil {
			return fmt.Errorf("instantiate treasury: %w", err)
		}
		logger.Info("treasury instantiated", slog.String("owner", owner.String()))
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: "treasuryd",
		LogRequests: strings.EqualFold(cfg.LogLevel, "debug"),
	}, logger)
	router, err := routes.New(routes.Config{
		Treasury: node,
		Relay:    store,
		Events:   hub,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			HMACSecret: secret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  cfg.Auth.ClockSkew.Duration,
		}, logger),
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}, logger),
		Observability: obs,
		CORS:          middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins},
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("configure routes: %w", err)
	}

	handler := http.Handler(router)
	if cfg.Telemetry.Traces {
		handler = otelhttp.NewHandler(router, "treasuryd")
	}
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	serveErr := make(chan error, 1)
	go func() {
		scheme := "http"
		var err error
		if cfg.TLS.Enabled() {
			scheme = "https"
			logger.Info("listening", slog.String("address", scheme+"://"+listener.Addr().String()))
			err = server.ServeTLS(listener, cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			logger.Info("listening", slog.String("address", scheme+"://"+listener.Addr().String()))
			err = server.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("treasuryd stopped")
	return nil
}

func isLoopbackAddress(addr string) bool {
	host, _, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return false
	}
	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
