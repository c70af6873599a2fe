package store

import (
	"fmt"
	"testing"

	"github.com/neighbornudge/neighbornudge/internal/database"
)

func setupBackupTestDB(t *testing.T) *BackupStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewBackupStore(db)
}

func TestBackupCreateAndList(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, err := bs.Create("backups/nudge-20260831-120000.db.enc", 4096)
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.ObjectKey != "backups/nudge-20260831-120000.db.enc" {
		t.Errorf("object_key = %q", b.ObjectKey)
	}
	if b.SizeBytes != 4096 {
		t.Errorf("size_bytes = %d, want 4096", b.SizeBytes)
	}

	backups, err := bs.List()
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup, got %d", len(backups))
	}
}

func TestBackupOldestBeyond(t *testing.T) {
	bs := setupBackupTestDB(t)

	for i := 0; i < 5; i++ {
		if _, err := bs.Create(fmt.Sprintf("backups/snap-%d.db.enc", i), 100); err != nil {
			t.Fatalf("create backup %d: %v", i, err)
		}
	}

	prunable, err := bs.OldestBeyond(3)
	if err != nil {
		t.Fatalf("oldest beyond: %v", err)
	}
	if len(prunable) != 2 {
		t.Fatalf("expected 2 prunable backups, got %d", len(prunable))
	}
	if prunable[0].ObjectKey != "backups/snap-0.db.enc" {
		t.Errorf("oldest first: got %q", prunable[0].ObjectKey)
	}

	for _, b := range prunable {
		if err := bs.Delete(b.ID); err != nil {
			t.Fatalf("delete backup: %v", err)
		}
	}
	rest, _ := bs.List()
	if len(rest) != 3 {
		t.Errorf("expected 3 backups after prune, got %d", len(rest))
	}
}
