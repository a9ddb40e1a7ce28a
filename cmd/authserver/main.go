package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpx "github.com/nielpattin/quizzy-sub001/internal/http"
	"github.com/nielpattin/quizzy-sub001/internal/service/identity"
	"github.com/nielpattin/quizzy-sub001/pkg/config"
	"github.com/nielpattin/quizzy-sub001/pkg/logger"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadAuthConfig()
	log := logger.New("auth", slog.LevelInfo, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	projectID, err := identity.ResolveProjectID(cfg.FirebaseProjectID, cfg.FirebaseServiceAccountPath)
	if err != nil {
		log.Error("failed to resolve firebase project", "error", err)
		os.Exit(1)
	}
	verifier, err := identity.NewCertVerifier(projectID, cfg.FirebaseCertsURL, log)
	if err != nil {
		log.Error("failed to configure token verifier", "error", err)
		os.Exit(1)
	}

	var limiter httpx.RateLimiter
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis rate limiter unavailable", "addr", addr, "error", err)
		} else {
			limiter = httpx.NewRedisRateLimiter(rdb, log)
		}
	}

	router := httpx.NewAuthRouter(log, httpx.NewGuard(verifier, log), limiter, cfg.CORSAllowedOrigins, cfg.RateLimitPerMinute)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("auth server starting", "addr", cfg.Addr, "project_id", projectID)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("auth server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
