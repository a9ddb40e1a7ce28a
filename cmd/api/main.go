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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nielpattin/quizzy-sub001/internal/app/migrate"
	httpx "github.com/nielpattin/quizzy-sub001/internal/http"
	"github.com/nielpattin/quizzy-sub001/internal/repository/postgres"
	"github.com/nielpattin/quizzy-sub001/internal/service/contest"
	"github.com/nielpattin/quizzy-sub001/internal/service/identity"
	"github.com/nielpattin/quizzy-sub001/internal/service/quiz"
	"github.com/nielpattin/quizzy-sub001/internal/service/session"
	"github.com/nielpattin/quizzy-sub001/internal/service/stats"
	"github.com/nielpattin/quizzy-sub001/internal/service/user"
	"github.com/nielpattin/quizzy-sub001/internal/ws"
	"github.com/nielpattin/quizzy-sub001/pkg/config"
	"github.com/nielpattin/quizzy-sub001/pkg/logger"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo, cfg.Environment)

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

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if cfg.AutoMigrate {
		if err := runner.Ensure(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	repo := postgres.New(pool)
	hub := ws.NewHub()
	defer hub.Close()

	limiter := httpx.NewMemoryRateLimiter()
	var cache stats.Cache = stats.NewMemoryCache()
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unavailable, using in-memory limiter and cache", "addr", addr, "error", err)
		} else {
			limiter.Close()
			limiter = httpx.NewRedisRateLimiter(rdb, log)
			cache = stats.NewRedisCache(rdb)
			log.Info("redis connected", "addr", addr)
		}
	}

	userSvc := user.New(repo, log)
	quizSvc := quiz.New(repo, log)
	sessionSvc := session.New(repo, repo, log)
	contestSvc := contest.New(repo, repo, hub, log)
	statsSvc := stats.New(repo, repo, cache, cfg.StatsStaleTime, log)

	router := httpx.NewRouter(log, httpx.NewGuard(verifier, log), userSvc, quizSvc, sessionSvc, contestSvc, statsSvc, httpx.Options{
		Version:            cfg.Version,
		CORSOrigins:        cfg.CORSAllowedOrigins,
		DefaultPageSize:    cfg.DefaultPageSize,
		MaxPageSize:        cfg.MaxPageSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Limiter:            limiter,
		DBHealth:           pool.Ping,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	// Shutdown leaves request contexts alive; closing the hub ends open streams.
	srv.RegisterOnShutdown(hub.Close)

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "project_id", projectID, "version", cfg.Version)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
