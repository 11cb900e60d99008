// Command prax-licensed starts the PraxEMR licensing HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/praxemr/licensing/internal/config"
	"github.com/praxemr/licensing/internal/license"
	"github.com/praxemr/licensing/internal/migrate"
	"github.com/praxemr/licensing/internal/repository/postgres"
	"github.com/praxemr/licensing/internal/server/httpapi"
	"github.com/praxemr/licensing/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and serves the licensing API.
func main() {
	addr := flag.String("addr", "", "listen address (overrides ADDR)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides DATABASE_URL)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dsn != "" {
		cfg.DatabaseURL = *dsn
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("missing PostgreSQL DSN (--dsn or DATABASE_URL)")
	}

	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	directory := postgres.NewDirectoryRepo(db)
	codec := license.NewCodec(cfg.AppSecret, license.HostIdentity{})
	store := license.NewStore(cfg.UserDataDir, codec, logger)
	engine := service.NewEngine(directory, store, logger)

	api := httpapi.New(engine, cfg.AdminSecret, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
