package backup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/reminderd/internal/models"
)

type staticSource struct {
	snap *Snapshot
}

func (s staticSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.snap, nil
}

func TestRunWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	src := staticSource{snap: &Snapshot{
		Reminders: []*models.Reminder{{ID: 1, Message: "water the plants"}},
		Settings:  map[string]string{"telegram_token": "t"},
	}}

	r := NewRunner(src, dir, 7)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r.SetNow(func() time.Time { return at })

	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "reminder_20260301_090000.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Snapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if !got.TakenAt.Equal(at) {
		t.Errorf("taken_at = %v, want %v", got.TakenAt, at)
	}
	if len(got.Reminders) != 1 || got.Reminders[0].Message != "water the plants" {
		t.Errorf("reminders = %+v", got.Reminders)
	}
}

func TestRunPrunesOldSnapshots(t *testing.T) {
	dir := t.TempDir()
	src := staticSource{snap: &Snapshot{}}

	r := NewRunner(src, dir, 3)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.AddDate(0, 0, i)
		r.SetNow(func() time.Time { return at })
		if err := r.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d files, want 3", len(entries))
	}
	// The oldest two are gone, the newest three remain.
	if _, err := os.Stat(filepath.Join(dir, "reminder_20260301_000000.json")); !os.IsNotExist(err) {
		t.Error("oldest snapshot should be pruned")
	}
	if _, err := os.Stat(filepath.Join(dir, "reminder_20260305_000000.json")); err != nil {
		t.Errorf("newest snapshot missing: %v", err)
	}
}

func TestRunIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(staticSource{snap: &Snapshot{}}, dir, 1)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}
