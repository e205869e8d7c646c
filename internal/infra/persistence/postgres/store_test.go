package postgres

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"sowline/pkg/domain"
)

// The snapshot SQL sticks to the portable subset both engines accept, so the
// tests drive the store through an embedded database instead of requiring a
// running server.
func openEmbedded(t *testing.T, path string) *Store {
	t.Helper()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		return sql.Open("sqlite", path)
	})
	defer restore()

	store, err := NewStore("postgres://unused", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store := openEmbedded(t, path)
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateSow(domain.Sow{Base: domain.Base{ID: "101"}, Status: domain.StatusActive}); err != nil {
			return err
		}
		_, err := tx.CreateDeathRecord(domain.DeathRecord{Base: domain.Base{ID: "d1"}, SowID: "101"})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openEmbedded(t, path)
	if _, ok := reopened.GetSow("101"); !ok {
		t.Fatalf("sow did not survive reopen")
	}
	if len(reopened.ListDeathRecords()) != 1 {
		t.Fatalf("death record did not survive reopen")
	}
}

func TestUpsertOverwritesBuckets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store := openEmbedded(t, path)
	create := func(id string) {
		if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
			_, err := tx.CreateSow(domain.Sow{Base: domain.Base{ID: id}})
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	create("101")
	create("102")

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state WHERE bucket = 'sows'`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("each bucket must stay a single row, got %d", count)
	}
}
