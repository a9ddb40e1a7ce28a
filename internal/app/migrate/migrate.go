package migrate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const dialect = "postgres"

// Runner applies and inspects the goose migrations of one folder.
type Runner struct {
	pool          *pgxpool.Pool
	dsn           string
	migrationsDir string
	log           *slog.Logger
}

// New returns a migration runner backed by goose.
func New(pool *pgxpool.Pool, dsn, migrationsDir string, log *slog.Logger) (Runner, error) {
	if pool == nil {
		return Runner{}, errors.New("nil pool provided")
	}
	if dsn == "" {
		return Runner{}, errors.New("empty database dsn")
	}
	if migrationsDir == "" {
		return Runner{}, errors.New("empty migrations directory")
	}
	if _, err := os.Stat(migrationsDir); err != nil {
		return Runner{}, fmt.Errorf("locate migrations dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	return Runner{pool: pool, dsn: dsn, migrationsDir: migrationsDir, log: log}, nil
}

// Ensure applies pending migrations.
func (r Runner) Ensure(ctx context.Context) error {
	return r.withDB(func(db *sql.DB) error {
		if err := goose.SetDialect(dialect); err != nil {
			return fmt.Errorf("configure goose: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		r.log.Info("applying migrations", "dir", r.migrationsDir)
		if err := goose.UpContext(runCtx, db, r.migrationsDir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		r.log.Info("migrations applied")
		return nil
	})
}

// Status prints applied and pending migrations through goose.
func (r Runner) Status(ctx context.Context) error {
	return r.withDB(func(db *sql.DB) error {
		if err := goose.SetDialect(dialect); err != nil {
			return fmt.Errorf("configure goose: %w", err)
		}

		r.log.Info("migration status", "dir", r.migrationsDir)
		if err := goose.Status(db, r.migrationsDir); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return nil
	})
}

// Down rolls back migrations either to the previous version or a specific target version.
func (r Runner) Down(ctx context.Context, targetVersion int64) error {
	return r.withDB(func(db *sql.DB) error {
		if err := goose.SetDialect(dialect); err != nil {
			return fmt.Errorf("configure goose: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		if targetVersion > 0 {
			r.log.Info("rolling back migrations", "target", targetVersion)
			if err := goose.DownToContext(runCtx, db, r.migrationsDir, targetVersion); err != nil {
				return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
			}
		} else {
			r.log.Info("rolling back latest migration")
			if err := goose.DownContext(runCtx, db, r.migrationsDir); err != nil {
				return fmt.Errorf("rollback latest migration: %w", err)
			}
		}

		r.log.Info("rollback complete")
		return nil
	})
}

// Ping checks the pool before migrations run.
func (r Runner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close releases underlying connections.
func (r Runner) Close() {
	r.pool.Close()
}

// Snapshot is the metadata file written next to the journal for each
// generated migration. IDs chain every snapshot to its predecessor.
type Snapshot struct {
	ID        string    `json:"id"`
	PrevID    string    `json:"prevId"`
	Version   string    `json:"version"`
	Dialect   string    `json:"dialect"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"createdAt"`
}

// Create writes an empty sequential SQL migration into dir, appends it to
// the journal and stores its snapshot. It returns the migration tag.
func Create(dir, name string, now time.Time, log *slog.Logger) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("empty migration name")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(dir, metaDirName), 0o755); err != nil {
		return "", fmt.Errorf("create meta dir: %w", err)
	}
	before, err := sqlFiles(dir)
	if err != nil {
		return "", err
	}

	goose.SetSequential(true)
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	after, err := sqlFiles(dir)
	if err != nil {
		return "", err
	}
	var tag string
	for file := range after {
		if !before[file] {
			tag = strings.TrimSuffix(file, ".sql")
		}
	}
	if tag == "" {
		return "", errors.New("create migration: no new file written")
	}

	journal, err := ReadJournal(dir)
	if err != nil {
		return "", err
	}
	prevID := uuid.Nil.String()
	if n := len(journal.Entries); n > 0 {
		if prev, err := readSnapshot(dir, journal.Entries[n-1].Tag); err == nil {
			prevID = prev.ID
		}
	}
	snapshot := Snapshot{
		ID:        uuid.NewString(),
		PrevID:    prevID,
		Version:   journalVersion,
		Dialect:   journalDialect,
		Tag:       tag,
		CreatedAt: now.UTC(),
	}
	payload, err := encodeStable(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(snapshotPath(dir, tag), payload, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	journal.Entries = append(journal.Entries, JournalEntry{
		Idx:         len(journal.Entries),
		Version:     journalVersion,
		When:        now.UnixMilli(),
		Tag:         tag,
		Breakpoints: true,
	})
	if err := WriteJournal(dir, journal); err != nil {
		return "", err
	}
	log.Info("migration created", "tag", tag, "dir", dir)
	return tag, nil
}

func sqlFiles(dir string) (map[string]bool, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	out := make(map[string]bool, len(matches))
	for _, m := range matches {
		out[filepath.Base(m)] = true
	}
	return out, nil
}

func snapshotPath(dir, tag string) string {
	return filepath.Join(dir, metaDirName, tag+"_snapshot.json")
}

func readSnapshot(dir, tag string) (Snapshot, error) {
	raw, err := os.ReadFile(snapshotPath(dir, tag))
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func (r Runner) withDB(fn func(*sql.DB) error) error {
	db, err := sql.Open("pgx", r.dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping sql connection: %w", err)
	}

	return fn(db)
}
