package blob

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func testStoreRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "snapshots/proj-1/a.json", strings.NewReader(`{"v":1}`), PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"project": "proj-1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 {
		t.Fatalf("size = %d, want 7", info.Size)
	}

	// Create-only: the same key must be rejected.
	if _, err := store.Put(ctx, "snapshots/proj-1/a.json", strings.NewReader("x"), PutOptions{}); err == nil {
		t.Fatal("overwrite accepted")
	}

	got, rc, err := store.Get(ctx, "snapshots/proj-1/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != `{"v":1}` {
		t.Fatalf("body = %s", body)
	}
	if got.ContentType != "application/json" {
		t.Fatalf("content type = %q", got.ContentType)
	}
	if got.Metadata["project"] != "proj-1" {
		t.Fatalf("metadata = %v", got.Metadata)
	}

	head, err := store.Head(ctx, "snapshots/proj-1/a.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Size != 7 {
		t.Fatalf("head size = %d", head.Size)
	}

	if _, err := store.Put(ctx, "snapshots/proj-2/b.json", strings.NewReader("{}"), PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	infos, err := store.List(ctx, "snapshots/proj-1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "snapshots/proj-1/a.json" {
		t.Fatalf("list = %+v", infos)
	}
	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || all[0].Key > all[1].Key {
		t.Fatalf("list all not ordered: %+v", all)
	}

	ok, err := store.Delete(ctx, "snapshots/proj-1/a.json")
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	ok, err = store.Delete(ctx, "snapshots/proj-1/a.json")
	if err != nil || ok {
		t.Fatalf("double delete = %v, %v", ok, err)
	}
	if _, err := store.Head(ctx, "snapshots/proj-1/a.json"); err == nil {
		t.Fatal("head of deleted blob succeeded")
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	if store.Driver() != DriverMemory {
		t.Fatalf("driver = %s", store.Driver())
	}
	testStoreRoundTrip(t, store)
}

func TestMemoryStorePresignUnsupported(t *testing.T) {
	if _, err := NewMemory().PresignURL(context.Background(), "k", SignedURLOptions{}); err != ErrUnsupported {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestFilesystemStore(t *testing.T) {
	store, err := NewFilesystem(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver = %s", store.Driver())
	}
	testStoreRoundTrip(t, store)
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestFilesystemPresignIsLocalURL(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	u, err := store.PresignURL(context.Background(), "snapshots/x.json", SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(u, "http://local.blob/") {
		t.Fatalf("url = %s", u)
	}
	if _, err := store.PresignURL(context.Background(), "k", SignedURLOptions{Method: "PUT"}); err != ErrUnsupported {
		t.Fatalf("PUT presign err = %v, want ErrUnsupported", err)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	t.Setenv("PLACEMENTCORE_BLOB_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("driver = %s", store.Driver())
	}

	t.Setenv("PLACEMENTCORE_BLOB_DRIVER", "bogus")
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("unknown driver accepted")
	}
}

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("PLACEMENTCORE_BLOB_DRIVER", "")
	t.Setenv("PLACEMENTCORE_BLOB_FS_ROOT", filepath.Join(t.TempDir(), "root"))
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver = %s", store.Driver())
	}
}
