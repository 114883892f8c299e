// Package backup writes periodic logical snapshots of the store to rotated
// JSON files.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/example/reminderd/internal/models"
)

// Snapshot is the data captured by one backup run.
type Snapshot struct {
	TakenAt    time.Time           `json:"taken_at"`
	Reminders  []*models.Reminder  `json:"reminders"`
	Executions []*models.Execution `json:"executions"`
	Settings   map[string]string   `json:"settings"`
}

// Source produces the snapshot contents; the repositories implement it.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

type Runner struct {
	source Source
	dir    string
	keep   int
	now    func() time.Time
}

func NewRunner(source Source, dir string, keep int) *Runner {
	if keep < 1 {
		keep = 7
	}
	return &Runner{
		source: source,
		dir:    dir,
		keep:   keep,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock. Tests only.
func (r *Runner) SetNow(now func() time.Time) { r.now = now }

// Run takes one snapshot, writes it as reminder_YYYYMMDD_HHMMSS.json and
// prunes everything but the newest keep files.
func (r *Runner) Run(ctx context.Context) error {
	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("take snapshot: %w", err)
	}
	snap.TakenAt = r.now()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	name := fmt.Sprintf("reminder_%s.json", snap.TakenAt.Format("20060102_150405"))
	if err := os.WriteFile(filepath.Join(r.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return r.prune()
}

func (r *Runner) prune() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read backup directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, "reminder_") && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	// Timestamped names sort chronologically.
	sort.Strings(names)

	for len(names) > r.keep {
		oldest := names[0]
		names = names[1:]
		if err := os.Remove(filepath.Join(r.dir, oldest)); err != nil {
			return fmt.Errorf("remove old backup %s: %w", oldest, err)
		}
	}
	return nil
}
