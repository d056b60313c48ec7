package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dokzlo13/lightboard/internal/db"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "ledger.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestLedger_AppendAndRecent(t *testing.T) {
	l := newTestLedger(t)

	if err := l.Append("preset_saved", "api", map[string]any{"name": "Aboleth"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Append("lights_reset", "lua", nil); err != nil {
		t.Fatal(err)
	}

	entries, err := l.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent() len = %d, want 2", len(entries))
	}
	if entries[0].EventType != "lights_reset" || entries[0].Source != "lua" || entries[0].Payload != nil {
		t.Errorf("newest entry = %+v", entries[0])
	}
	if entries[1].Payload["name"] != "Aboleth" {
		t.Errorf("payload = %v", entries[1].Payload)
	}

	byType, err := l.GetByType("preset_saved", 0)
	if err != nil || len(byType) != 1 {
		t.Errorf("GetByType() = %v, %v", byType, err)
	}
}

func TestLedger_DeleteOlderThan(t *testing.T) {
	l := newTestLedger(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	l.now = func() time.Time { return now.Add(-72 * time.Hour) }
	if err := l.Append("light_changed", "api", nil); err != nil {
		t.Fatal(err)
	}
	l.now = func() time.Time { return now }
	if err := l.Append("light_changed", "api", nil); err != nil {
		t.Fatal(err)
	}

	deleted, err := l.DeleteOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("DeleteOlderThan() = %d, want 1", deleted)
	}

	entries, _ := l.Recent(0)
	if len(entries) != 1 {
		t.Errorf("remaining = %d, want 1", len(entries))
	}
}
