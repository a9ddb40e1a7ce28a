package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nielpattin/quizzy-sub001/internal/app/migrate"
	"github.com/nielpattin/quizzy-sub001/pkg/config"
	"github.com/nielpattin/quizzy-sub001/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down|create|reset)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	name := flag.String("name", "", "migration name for create command")
	dir := flag.String("dir", "", "migrations directory (default DB_MIGRATIONS_DIR)")
	flag.Parse()

	config.LoadDotEnv()
	cfg := config.LoadAPIConfig()
	log := logger.New("migrate", slog.LevelInfo, cfg.Environment)
	if *dir != "" {
		cfg.MigrationsDir = *dir
	}

	// create and reset only touch the filesystem.
	switch *command {
	case "create":
		if _, err := migrate.Create(cfg.MigrationsDir, *name, time.Now(), log); err != nil {
			log.Error("failed to create migration", "error", err)
			os.Exit(1)
		}
		return
	case "reset":
		if err := migrate.Reset(cfg.MigrationsDir, log); err != nil {
			log.Error("failed to reset migrations", "dir", cfg.MigrationsDir, "error", err)
			os.Exit(1)
		}
		log.Info("migrations folder reset", "dir", cfg.MigrationsDir)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	switch *command {
	case "up":
		if err := runner.Ensure(ctx); err != nil {
			log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	case "status":
		if err := runner.Status(ctx); err != nil {
			log.Error("failed to fetch migration status", "error", err)
			os.Exit(1)
		}
	case "down":
		if err := runner.Down(ctx, *target); err != nil {
			log.Error("failed to roll back migrations", "error", err)
			os.Exit(1)
		}
	default:
		log.Error("unsupported command", "command", *command)
		os.Exit(1)
	}

	log.Info("migration command completed", "command", *command)
}
