// Command trustmesh-node runs the three trust registries — identity,
// reputation, validation — behind one HTTP API, with the event log
// exposed for off-process indexers.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/trustmesh/core/pkg/api"
	"github.com/trustmesh/core/pkg/config"
	"github.com/trustmesh/core/pkg/events"
	"github.com/trustmesh/core/pkg/identity"
	"github.com/trustmesh/core/pkg/observability"
	"github.com/trustmesh/core/pkg/reputation"
	"github.com/trustmesh/core/pkg/validation"

	_ "github.com/lib/pq" // Postgres driver
)

func main() {
	profilePath := flag.String("profile", "", "optional YAML node profile")
	flag.Parse()

	cfg := config.Load()
	if *profilePath != "" {
		profile, err := config.LoadProfile(*profilePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		profile.Apply(cfg)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("node exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Event plumbing: hash-chained log for /v1/events plus a JSON line
	// per event on stdout.
	eventLog := events.NewLog()
	sink := events.Tee(eventLog, events.NewWriterSink())

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	identities := identity.NewRegistry(identity.WithSink(sink))
	reputations := reputation.New(store, identities, reputation.WithSink(sink))
	validations := validation.New(identities, validation.WithSink(sink))

	metrics, err := observability.New(ctx, &observability.Config{
		ServiceName:    "trustmesh-node",
		ServiceVersion: "0.1.0",
		OTLPEndpoint:   cfg.OTLPTarget,
		Enabled:        cfg.OTLPEnabled,
		Insecure:       true,
	})
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx)
	}()

	server := api.NewServer(api.Options{
		Identities:  identities,
		Reputations: reputations,
		Validations: validations,
		Tokens:      identity.NewTokenManager([]byte(cfg.TokenSecret)),
		EventLog:    eventLog,
		Logger:      logger,
		Metrics:     metrics,
		Limiter:     api.NewRateLimiter(cfg.RateRPS, cfg.RateBurst),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", httpServer.Addr), slog.String("store", cfg.StoreKind))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// openStore builds the feedback store backend named by configuration.
func openStore(ctx context.Context, cfg *config.Config) (reputation.Store, func(), error) {
	switch strings.ToLower(cfg.StoreKind) {
	case "", "memory":
		return reputation.NewMemoryStore(), func() {}, nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		store := reputation.NewSQLStore(db)
		if err := store.Init(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init sqlite schema: %w", err)
		}
		return store, func() { _ = db.Close() }, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		store := reputation.NewSQLStore(db)
		if err := store.Init(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init postgres schema: %w", err)
		}
		return store, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.StoreKind)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
