package migrate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Reset empties a migrations folder: the journal is rewritten with no
// entries, snapshot files in meta/ are removed and every .sql migration is
// deleted. Running it again on the result changes nothing. The first
// filesystem error aborts the reset, leaving whatever was already removed.
func Reset(dir string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if err := WriteJournal(dir, emptyJournal()); err != nil {
		return err
	}
	log.Info("journal reset", "path", journalPath(dir))

	snapshots, err := filepath.Glob(filepath.Join(dir, metaDirName, "*.json"))
	if err != nil {
		return fmt.Errorf("list meta files: %w", err)
	}
	for _, path := range snapshots {
		if filepath.Base(path) == journalName {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		log.Info("removed snapshot", "path", path)
	}

	migrations, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, path := range migrations {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		log.Info("removed migration", "path", path)
	}
	return nil
}
