package blob

import (
	"clientcore/internal/config"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  config.Blob
		want Driver
	}{
		{"default", config.Blob{}, DriverMemory},
		{"memory", config.Blob{Driver: "memory"}, DriverMemory},
		{"fs", config.Blob{Driver: "fs", FSRoot: t.TempDir()}, DriverFilesystem},
		{"s3", config.Blob{Driver: "s3", S3: config.S3{Bucket: "exports", AccessKeyID: "AKIA", SecretAccessKey: "SECRET"}}, DriverS3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := Open(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if store.Driver() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, store.Driver())
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(context.Background(), config.Blob{Driver: "ftp"}); err == nil || !strings.Contains(err.Error(), "unknown blob driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
	if _, err := Open(context.Background(), config.Blob{Driver: "fs"}); err == nil {
		t.Fatalf("expected fs root error")
	}
	if _, err := Open(context.Background(), config.Blob{Driver: "s3"}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestDriversShareCreateOnlySemantics(t *testing.T) {
	ctx := context.Background()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	for _, store := range []Store{NewMemory(), fsStore, NewMockS3ForTests()} {
		t.Run(string(store.Driver()), func(t *testing.T) {
			if _, err := store.Put(ctx, "exports/x.json", strings.NewReader("[]"), PutOptions{ContentType: "application/json"}); err != nil {
				t.Fatalf("put: %v", err)
			}
			if _, err := store.Put(ctx, "exports/x.json", strings.NewReader("[]"), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			if _, _, err := store.Get(ctx, "exports/missing.json"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}
