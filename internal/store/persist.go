package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	applog "slotplan/internal/log"
	"slotplan/internal/model"
)

const (
	dbFileName  = "slotplan_db.json"
	logFileName = "slotplan.log"
)

func (s *Store) dbPath() string {
	return filepath.Join(s.dataDir, dbFileName)
}

// loadDB reads the database file. A missing file is the normal first-run
// case and yields a fresh empty document.
func (s *Store) loadDB() (model.Document, error) {
	data, err := os.ReadFile(s.dbPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			applog.Info("no database file, starting fresh", "path", s.dbPath())
			return model.NewDocument(), nil
		}
		return model.Document{}, fmt.Errorf("store: reading database: %w", err)
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Document{}, fmt.Errorf("store: parsing %s: %w", s.dbPath(), err)
	}
	// Containers may be null in a hand-edited file.
	if doc.Contributions == nil {
		doc.Contributions = map[string]model.Contribution{}
	}
	if doc.SlotDimensionNames == nil {
		doc.SlotDimensionNames = [][]string{}
	}
	if doc.Schedule == nil {
		doc.Schedule = map[int]map[int]map[int]string{}
	}
	applog.Info("database loaded", "path", s.dbPath(), "contributions", len(doc.Contributions))
	return doc, nil
}

// writeDBLocked serialises the document to disk. The caller must hold the
// write lock, which is what serialises all file writes.
//
// An existing database file is first renamed to a timestamped backup (one
// per second; a second write within the same second silently replaces the
// backup), then the new document is written atomically via a temp file.
// The JSON is indented with sorted keys so the file stays human-readable
// and diff-friendly.
func (s *Store) writeDBLocked() error {
	if err := os.MkdirAll(s.dataDir, 0o700); err != nil {
		return fmt.Errorf("store: creating data dir: %w", err)
	}

	path := s.dbPath()
	if _, err := os.Stat(path); err == nil {
		backup := filepath.Join(s.dataDir,
			fmt.Sprintf("slotplan_db-%s.json", timestamp(s.now())))
		if err := os.Rename(path, backup); err != nil {
			return fmt.Errorf("store: rotating backup: %w", err)
		}
	}

	data, err := json.MarshalIndent(s.doc, "", "    ")
	if err != nil {
		return fmt.Errorf("store: serialising database: %w", err)
	}

	tmp, err := os.CreateTemp(s.dataDir, ".slotplan-db-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	s.pruneBackupsLocked()
	return nil
}

// timestamp renders the unpadded Y-M-D-H_M_S stamp used in backup file
// names and audit lines.
func timestamp(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d-%d_%d_%d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// pruneBackupsLocked removes the oldest timestamped backups beyond
// maxBackups. With maxBackups == 0 every backup is kept.
func (s *Store) pruneBackupsLocked() {
	if s.maxBackups <= 0 {
		return
	}
	matches, err := filepath.Glob(filepath.Join(s.dataDir, "slotplan_db-*.json"))
	if err != nil || len(matches) <= s.maxBackups {
		return
	}
	// The unpadded stamp does not sort lexicographically; order by mtime.
	sort.Slice(matches, func(i, j int) bool {
		fi, erri := os.Stat(matches[i])
		fj, errj := os.Stat(matches[j])
		if erri != nil || errj != nil {
			return matches[i] < matches[j]
		}
		return fi.ModTime().Before(fj.ModTime())
	})
	for _, old := range matches[:len(matches)-s.maxBackups] {
		if err := os.Remove(old); err != nil {
			applog.Error("failed to prune backup", err, "path", old)
		}
	}
}

// appendAuditLocked appends a timestamped line to the plain-text audit log
// next to the database. Audit failures are logged but never fail the
// operation that triggered them.
func (s *Store) appendAuditLocked(message string) {
	path := filepath.Join(s.dataDir, logFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		applog.Error("failed to open audit log", err, "path", path)
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s    %s\n", timestamp(s.now()), message)
	if _, err := f.WriteString(line); err != nil {
		applog.Error("failed to append audit log", err, "path", path)
	}
}
