package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"junotreasury/gateway/middleware"
)

// ScopeRelay grants access to the outbox endpoints.
const ScopeRelay = "treasury:relay"

type Config struct {
	Treasury      Treasury
	Relay         Relay
	Events        http.Handler
	HealthHandler http.Handler
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

func New(cfg Config) (http.Handler, error) {
	if cfg.Treasury == nil {
		return nil, errors.New("treasury dispatcher required")
	}
	if cfg.Authenticator == nil {
		return nil, errors.New("authenticator required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handlers := &treasuryRoutes{node: cfg.Treasury, relay: cfg.Relay, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	instrument := func(route string, h http.HandlerFunc) http.Handler {
		if obs == nil {
			return h
		}
		return obs.Middleware(route)(h)
	}

	health := cfg.HealthHandler
	if health == nil {
		health = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	}
	r.Handle("/healthz", health)

	r.Route("/v1", func(sr chi.Router) {
		sr.Group(func(g chi.Router) {
			g.Use(cfg.Authenticator.Middleware())
			if cfg.RateLimiter != nil {
				g.Use(cfg.RateLimiter.Middleware())
			}
			g.Get("/config", instrument("config", handlers.config).ServeHTTP)
			g.Get("/bots/{address}", instrument("bot_role", handlers.botRole).ServeHTTP)
			if cfg.Events != nil {
				g.Handle("/events", cfg.Events)
			}
		})
		sr.Group(func(g chi.Router) {
			g.Use(cfg.Authenticator.Middleware(middleware.ScopeExecute))
			if cfg.RateLimiter != nil {
				g.Use(cfg.RateLimiter.Middleware())
			}
			g.Post("/execute", instrument("execute", handlers.execute).ServeHTTP)
		})
		if cfg.Relay != nil {
			sr.Group(func(g chi.Router) {
				g.Use(cfg.Authenticator.Middleware(ScopeRelay))
				g.Get("/outbox", instrument("outbox_pending", handlers.pending).ServeHTTP)
				g.Get("/outbox/counts", instrument("outbox_counts", handlers.counts).ServeHTTP)
				g.Post("/outbox/{id}/delivered", instrument("outbox_delivered", handlers.delivered).ServeHTTP)
			})
		}
	})

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}
	return r, nil
}
