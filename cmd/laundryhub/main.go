// Package main запускает HTTP-сервер маркетплейса прачечных услуг.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/laundryhub/internal/config"
	"github.com/mmeshcher/laundryhub/internal/handler"
	"github.com/mmeshcher/laundryhub/internal/mfa"
	"github.com/mmeshcher/laundryhub/internal/middleware"
	"github.com/mmeshcher/laundryhub/internal/repository"
	"github.com/mmeshcher/laundryhub/internal/service"
	"github.com/mmeshcher/laundryhub/internal/upload"
)

const (
	limiterCleanupInterval = time.Minute
	limiterMaxIdle         = time.Hour
)

func newRepository(cfg *config.Config, sugar *zap.SugaredLogger) (service.Repository, error) {
	if cfg.DatabaseURI == "" {
		sugar.Warn("DATABASE_URI is not set, using in-memory storage")
		return repository.NewMemoryRepository(), nil
	}
	return repository.NewPostgresRepository(cfg.DatabaseURI)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	if cfg.JWTSecret == "" {
		sugar.Warn("JWT_SECRET is not set, tokens will not survive a restart")
	}

	repo, err := newRepository(cfg, sugar)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	storage, err := upload.NewStorage(cfg.UploadDir)
	if err != nil {
		sugar.Fatalw("upload storage initialization error", "error", err.Error())
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.TokenTTL, repo)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, cfg.TrustProxy, logger)

	svc := service.NewService(repo, authMiddleware, mfa.New(cfg.MFAIssuer), logger)
	defer svc.Close()

	h := handler.NewHandler(svc, storage, logger, authMiddleware, rateLimiter)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rateLimiter.RunCleanup(ctx, limiterCleanupInterval, limiterMaxIdle)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting laundryhub server", "addr", cfg.RunAddress, "uploads", storage.Dir())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
