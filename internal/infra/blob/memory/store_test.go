package memory

import (
	"bytes"
	"clientcore/internal/blob/core"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestStoreLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	md := map[string]string{"format": "csv"}
	info, err := store.Put(ctx, "exports/a.csv", bytes.NewReader([]byte("a,b")), core.PutOptions{ContentType: "text/csv", Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["format"] = "mutated"
	if info.Size != 3 || info.ETag == "" || info.Metadata["format"] != "csv" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "exports/a.csv", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := store.Get(ctx, "exports/a.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "a,b" || got.ContentType != "text/csv" || got.Metadata["format"] != "csv" {
		t.Fatalf("unexpected get %+v %q", got, body)
	}

	_, _ = store.Put(ctx, "other/b.json", bytes.NewReader([]byte("{}")), core.PutOptions{})
	if list, _ := store.List(ctx, "exports/"); len(list) != 1 || list[0].Key != "exports/a.csv" {
		t.Fatalf("unexpected prefix list %+v", list)
	}
	if list, _ := store.List(ctx, ""); len(list) != 2 || list[0].Key != "exports/a.csv" {
		t.Fatalf("expected sorted full list, got %+v", list)
	}

	if ok, err := store.Delete(ctx, "exports/a.csv"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := store.Delete(ctx, "exports/a.csv"); ok {
		t.Fatalf("expected second delete to report false")
	}
	if _, _, err := store.Get(ctx, "exports/a.csv"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.PresignURL(ctx, "other/b.json", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStorePutErrors(t *testing.T) {
	store := New()
	if _, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := store.Put(context.Background(), " ", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}
