package migrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	journalVersion = "7"
	journalDialect = "postgresql"
	metaDirName    = "meta"
	journalName    = "_journal.json"
)

// Journal indexes the migrations of a folder, oldest first.
type Journal struct {
	Version string         `json:"version"`
	Dialect string         `json:"dialect"`
	Entries []JournalEntry `json:"entries"`
}

// JournalEntry records one generated migration.
type JournalEntry struct {
	Idx         int    `json:"idx"`
	Version     string `json:"version"`
	When        int64  `json:"when"`
	Tag         string `json:"tag"`
	Breakpoints bool   `json:"breakpoints"`
}

func emptyJournal() Journal {
	return Journal{Version: journalVersion, Dialect: journalDialect, Entries: []JournalEntry{}}
}

func journalPath(dir string) string {
	return filepath.Join(dir, metaDirName, journalName)
}

// ReadJournal loads the journal of dir. A missing journal reads as empty.
func ReadJournal(dir string) (Journal, error) {
	raw, err := os.ReadFile(journalPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return emptyJournal(), nil
	}
	if err != nil {
		return Journal{}, fmt.Errorf("read journal: %w", err)
	}
	var j Journal
	if err := json.Unmarshal(raw, &j); err != nil {
		return Journal{}, fmt.Errorf("decode journal: %w", err)
	}
	if j.Entries == nil {
		j.Entries = []JournalEntry{}
	}
	return j, nil
}

// WriteJournal stores j with two-space indentation and a trailing newline.
func WriteJournal(dir string, j Journal) error {
	if err := os.MkdirAll(filepath.Join(dir, metaDirName), 0o755); err != nil {
		return fmt.Errorf("create meta dir: %w", err)
	}
	payload, err := encodeStable(j)
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	if err := os.WriteFile(journalPath(dir), payload, 0o644); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

func encodeStable(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
