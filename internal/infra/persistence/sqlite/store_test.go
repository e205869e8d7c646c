package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"sowline/pkg/domain"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "herd.db")

	store := openTestStore(t, path)
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateSow(domain.Sow{Base: domain.Base{ID: "101"}, Status: domain.StatusActive}); err != nil {
			return err
		}
		if _, err := tx.CreateFarrowingRecord(domain.FarrowingRecord{Base: domain.Base{ID: "f1"}, SowID: "101", Parity: 1}); err != nil {
			return err
		}
		score := 0.7
		return tx.ReplaceScores(domain.ScoreTables{Sow: []domain.SowScore{{SowID: "101", TotalScore: &score}}})
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)
	sow, ok := reopened.GetSow("101")
	if !ok {
		t.Fatalf("sow did not survive reopen")
	}
	if sow.Status != domain.StatusActive {
		t.Fatalf("status lost: %s", sow.Status)
	}
	if len(reopened.ListFarrowingRecords()) != 1 {
		t.Fatalf("farrowing record did not survive reopen")
	}
	scores := reopened.ListSowScores()
	if len(scores) != 1 || scores[0].TotalScore == nil || *scores[0].TotalScore != 0.7 {
		t.Fatalf("score table did not survive reopen: %+v", scores)
	}
}

func TestFailedTransactionNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "herd.db")
	store := openTestStore(t, path)

	boom := errors.New("boom")
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateSow(domain.Sow{Base: domain.Base{ID: "101"}}); err != nil {
			return err
		}
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected propagated error, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)
	if _, ok := reopened.GetSow("101"); ok {
		t.Fatalf("aborted write leaked to disk")
	}
}

func TestLatestSnapshotWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "herd.db")
	store := openTestStore(t, path)

	for _, id := range []string{"101", "102"} {
		sowID := id
		if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
			_, err := tx.CreateSow(domain.Sow{Base: domain.Base{ID: sowID}})
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", sowID, err)
		}
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.Truncate()
	}); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)
	if n := len(reopened.ListSows()); n != 0 {
		t.Fatalf("truncated roster resurrected: %d sows", n)
	}
}

func TestPathDefault(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "nested", "dir", "herd.db"))
	if store.Path() == "" {
		t.Fatalf("path should be recorded")
	}
	if store.DB() == nil {
		t.Fatalf("db handle should be exposed")
	}
}
