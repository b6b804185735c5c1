// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"librent/internal/cache"
	"librent/internal/circulation"
	"librent/internal/config"
	"librent/internal/database"
	"librent/internal/events"
	"librent/internal/server"
	"librent/internal/telemetry"
)

func main() {
	envFile := config.LoadDotenv()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)
	if envFile != "" {
		log.Info("loaded env file", slog.String("path", envFile))
	}

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "librent-api", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown", slog.Any("err", err))
		}
	}()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	var rankCache cache.Cache = cache.Nop{}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, rankings are not cached", slog.Any("err", err))
		} else {
			defer rc.Close()
			rankCache = rc
		}
	}

	var pub events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL, log)
		if err != nil {
			log.Warn("nats unavailable, domain events are dropped", slog.Any("err", err))
		} else {
			defer nc.Close()
			pub = nc
		}
	}

	svcs := server.NewServices(db, rankCache, pub, cfg.RankingsCacheTTL, log)

	if cfg.AdminEmail != "" {
		if err := svcs.Membership.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
		log.Info("admin account ensured", slog.String("email", cfg.AdminEmail))
	}

	go circulation.NewRefresher(svcs.Circulation, cfg.OverdueRefreshInterval, log).Run(ctx)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(svcs, server.Options{
			Log:               log,
			CORSOrigins:       cfg.CORSOrigins,
			AuthRatePerMinute: cfg.AuthRatePerMinute,
			AuthRateBurst:     cfg.AuthRateBurst,
			Ping:              db.PingContext,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
