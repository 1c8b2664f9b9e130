// Package backup preserves copies of system files before they are
// mutated, and can list, diff, and restore them. Every backup is a
// verbatim copy of the original plus a .meta.json sidecar; nothing is
// ever deleted automatically.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/netfix/internal/clock"
)

// Record describes one preserved file copy.
type Record struct {
	OriginalPath string    `json:"original_path"`
	BackupPath   string    `json:"backup_path"`
	Label        string    `json:"label"`
	Timestamp    time.Time `json:"timestamp"`
	Size         int64     `json:"size"`
}

// Store writes backups into a single directory.
type Store struct {
	dir string
	clk clock.Clock
}

// NewStore creates a store rooted at dir. A nil clk uses the real clock.
func NewStore(dir string, clk clock.Clock) *Store {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	return &Store{dir: dir, clk: clk}
}

// Dir returns the backup directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) ensureDir() error {
	return os.MkdirAll(s.dir, 0755)
}

// Create copies the file at path into the store. It fails if the source
// does not exist or the store directory is not writable. The label ties
// the backup to the repair action that requested it.
func (s *Store) Create(path, label string) (*Record, error) {
	if err := s.ensureDir(); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	ts := s.clk.Now()
	backupPath := s.nextPath(filepath.Base(path), label, ts)

	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	rec := &Record{
		OriginalPath: path,
		BackupPath:   backupPath,
		Label:        label,
		Timestamp:    ts,
		Size:         int64(len(data)),
	}

	meta, _ := json.MarshalIndent(rec, "", "  ")
	if err := os.WriteFile(backupPath+".meta.json", meta, 0644); err != nil {
		return nil, fmt.Errorf("failed to write backup metadata: %w", err)
	}

	return rec, nil
}

// nextPath builds <dir>/<base>.<label>.<timestamp>[.n], bumping n until
// the name is free so same-second backups never collide.
func (s *Store) nextPath(base, label string, ts time.Time) string {
	stamp := ts.Format("20060102-150405")
	name := fmt.Sprintf("%s.%s.%s", base, sanitizeLabel(label), stamp)
	candidate := filepath.Join(s.dir, name)
	for n := 1; ; n++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(s.dir, fmt.Sprintf("%s.%d", name, n))
	}
}

func sanitizeLabel(label string) string {
	if label == "" {
		return "backup"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, label)
}

// List returns all records ordered by creation time, oldest first.
// Metadata is recovered from sidecars; backups whose sidecar went
// missing fall back to file stat info.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}

		backupPath := filepath.Join(s.dir, entry.Name())

		var rec Record
		if meta, err := os.ReadFile(backupPath + ".meta.json"); err == nil {
			json.Unmarshal(meta, &rec)
		}
		if rec.BackupPath == "" {
			rec.BackupPath = backupPath
		}
		if info, err := entry.Info(); err == nil {
			if rec.Timestamp.IsZero() {
				rec.Timestamp = info.ModTime()
			}
			if rec.Size == 0 {
				rec.Size = info.Size()
			}
		}

		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].BackupPath < records[j].BackupPath
		}
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, nil
}

// LatestFor returns the most recent record for the given original path.
func (s *Store) LatestFor(path string) (*Record, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].OriginalPath == path {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("no backup found for %s", path)
}

// Restore writes the backup content back over the original path. It
// fails if the backup no longer exists.
func (s *Store) Restore(rec Record) error {
	data, err := os.ReadFile(rec.BackupPath)
	if err != nil {
		return fmt.Errorf("backup %s is gone: %w", rec.BackupPath, err)
	}

	if dir := filepath.Dir(rec.OriginalPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to recreate %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(rec.OriginalPath, data, 0644); err != nil {
		return fmt.Errorf("failed to restore %s: %w", rec.OriginalPath, err)
	}
	return nil
}

// Diff returns a unified diff between the backup and the current
// content of the original path. A missing original is treated as empty.
func (s *Store) Diff(rec Record) (string, error) {
	backupData, err := os.ReadFile(rec.BackupPath)
	if err != nil {
		return "", fmt.Errorf("backup %s is gone: %w", rec.BackupPath, err)
	}

	currentData, err := os.ReadFile(rec.OriginalPath)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read %s: %w", rec.OriginalPath, err)
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(backupData)),
		B:        difflib.SplitLines(string(currentData)),
		FromFile: rec.BackupPath,
		ToFile:   rec.OriginalPath,
		Context:  3,
	})
}

// Prune removes all but the newest keep backups of each original file,
// so a busy file's history can never push out the only backup of a
// quiet one. It only runs when the operator asks for it explicitly;
// nothing in the repair path calls it.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	records, err := s.List()
	if err != nil {
		return 0, err
	}

	// List is oldest-first, so each group is too.
	byOriginal := make(map[string][]Record)
	for _, rec := range records {
		byOriginal[rec.OriginalPath] = append(byOriginal[rec.OriginalPath], rec)
	}

	removed := 0
	for _, recs := range byOriginal {
		if len(recs) <= keep {
			continue
		}
		for _, rec := range recs[:len(recs)-keep] {
			if err := os.Remove(rec.BackupPath); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", rec.BackupPath, err)
			}
			os.Remove(rec.BackupPath + ".meta.json")
			removed++
		}
	}
	return removed, nil
}
