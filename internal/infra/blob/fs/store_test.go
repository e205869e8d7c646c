package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"sowline/internal/blob/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "reports/abc/ranking.html", strings.NewReader("<html>ok</html>"), core.PutOptions{
		ContentType: "text/html",
		Metadata:    map[string]string{"view": "all"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 15 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := store.Get(ctx, "reports/abc/ranking.html")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "<html>ok</html>" {
		t.Fatalf("content mismatch: %s", body)
	}
	if got.ContentType != "text/html" || got.Metadata["view"] != "all" {
		t.Fatalf("metadata lost: %+v", got)
	}
	if got.ETag != info.ETag {
		t.Fatalf("etag changed between put and get")
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatalf("overwrite must be rejected")
	}
}

func TestKeySanitization(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "/abs", "../escape", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}

func TestDeleteAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"reports/a/1", "reports/b/1", "other/1"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "reports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected two keys under reports/, got %d", len(infos))
	}
	if infos[0].Key != "reports/a/1" || infos[1].Key != "reports/b/1" {
		t.Fatalf("list not sorted: %+v", infos)
	}

	ok, err := store.Delete(ctx, "reports/a/1")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = store.Delete(ctx, "reports/a/1")
	if err != nil || ok {
		t.Fatalf("second delete must report missing: ok=%v err=%v", ok, err)
	}
}

func TestPresignURLGetOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	url, err := store.PresignURL(ctx, "some/key", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(url, "some/key") {
		t.Fatalf("url should address the key: %s", url)
	}
	if _, err := store.PresignURL(ctx, "some/key", core.SignedURLOptions{Method: "PUT"}); err != core.ErrUnsupported {
		t.Fatalf("expected unsupported for PUT, got %v", err)
	}
}
