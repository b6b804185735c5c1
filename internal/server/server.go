// internal/server/server.go
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"librent/internal/cache"
	"librent/internal/catalog"
	"librent/internal/circulation"
	"librent/internal/events"
	"librent/internal/feed"
	"librent/internal/httpx"
	"librent/internal/ledger"
	"librent/internal/membership"
	"librent/internal/rankings"
	"librent/internal/rewards"
	"librent/internal/telemetry"
)

// Services are the domain services mounted under /api.
type Services struct {
	Membership  membership.Service
	Catalog     catalog.Service
	Circulation circulation.Service
	Rankings    rankings.Service
	Rewards     rewards.Service
	Feed        feed.Service
}

// NewServices wires every service to the same database, ledger, publisher
// and counters. Published rental, rating and redemption events also drop the
// cached rankings.
func NewServices(db *sqlx.DB, c cache.Cache, pub events.Publisher, rankingsTTL time.Duration, log *slog.Logger) Services {
	l := ledger.New()
	counters := telemetry.NewCounters()
	pub = rankings.InvalidateOn(pub, c, log)
	return Services{
		Membership:  membership.NewService(db, l, log),
		Catalog:     catalog.NewService(db, l, pub, counters),
		Circulation: circulation.NewService(db, l, pub, counters),
		Rankings:    rankings.NewService(db, c, rankingsTTL, log),
		Rewards:     rewards.NewService(db, l, pub, counters),
		Feed:        feed.NewService(db, pub, counters),
	}
}

// Options configure the router.
type Options struct {
	Log               *slog.Logger
	CORSOrigins       []string
	AuthRatePerMinute int
	AuthRateBurst     int
	// Ping backs /healthz; nil reports healthy.
	Ping func(ctx context.Context) error
}

// NewRouter builds the HTTP handler for the API.
func NewRouter(s Services, opts Options) http.Handler {
	log := opts.Log
	r := chi.NewRouter()

	r.Use(httpx.RequestID)
	r.Use(httpx.Recover(log))
	r.Use(httpx.Logger(log))
	r.Use(httpx.Trace)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", httpx.RequestIDHeader},
		ExposedHeaders: []string{httpx.RequestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorBody{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, httpx.ErrorBody{Error: "method not allowed"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Ping(ctx); err != nil {
				log.WarnContext(r.Context(), "health check failed", slog.Any("err", err))
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		membership.NewHandler(s.Membership, log, opts.AuthRatePerMinute, opts.AuthRateBurst).Routes(r)
		catalog.NewHandler(s.Catalog, log).Routes(r)
		circulation.NewHandler(s.Circulation, log).Routes(r)
		rankings.NewHandler(s.Rankings, log).Routes(r)
		rewards.NewHandler(s.Rewards, log).Routes(r)
		feed.NewHandler(s.Feed, log).Routes(r)
	})

	return r
}
