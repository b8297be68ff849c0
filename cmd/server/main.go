// Command server starts the secure REST API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/secure-api/internal/config"
	"github.com/and161185/secure-api/internal/limiter"
	"github.com/and161185/secure-api/internal/migrate"
	"github.com/and161185/secure-api/internal/repository/postgres"
	"github.com/and161185/secure-api/internal/server/httpapi"
	"github.com/and161185/secure-api/internal/service"
	"github.com/and161185/secure-api/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, seeds the bootstrap admin and
// starts the HTTP server.
func main() {
	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
	)

	if cfg.JWT.AccessSecret == "" || cfg.JWT.RefreshSecret == "" {
		logger.Fatal("missing JWT_SECRET / JWT_REFRESH_SECRET")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.Database.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	db, err := postgres.New(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	tokenRepo := postgres.NewRefreshTokenRepo(db)
	itemRepo := postgres.NewItemRepo(db)

	lim := limiter.NewPGWithQuerier(db.Pool, cfg.Limiter.Window, cfg.Limiter.MaxFails, cfg.Limiter.BlockFor)

	// Services
	codec := token.New(
		[]byte(cfg.JWT.AccessSecret), []byte(cfg.JWT.RefreshSecret),
		cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL,
	)
	authSvc := service.NewAuthService(userRepo, tokenRepo, codec, cfg.Password.BcryptCost, lim)
	itemSvc := service.NewItemService(itemRepo)

	// Bootstrap admin before accepting traffic.
	seeder := service.NewSeeder(userRepo, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password, cfg.Password.BcryptCost)
	created, err := seeder.EnsureAdmin(ctx)
	if err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}
	if created {
		logger.Info("default admin user created", zap.String("email", cfg.Admin.Email))
	}

	handler := httpapi.NewHandler(authSvc, itemSvc, logger)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.NewRouter(handler, logger, cfg.CORS.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
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
