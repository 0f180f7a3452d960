// Package blob is the only entry point to the blob storage drivers. Callers
// depend on Store and never import internal/infra/blob directly.
package blob

import (
	"clientcore/internal/blob/core"
	"clientcore/internal/config"
	infraFS "clientcore/internal/infra/blob/fs"
	infraMemory "clientcore/internal/infra/blob/memory"
	infraS3 "clientcore/internal/infra/blob/s3"
	"context"
	"fmt"
)

type (
	// Store is the blob storage abstraction.
	Store = core.Store
	// Driver identifies a blob backend.
	Driver = core.Driver
	// Info describes a stored blob.
	Info = core.Info
	// PutOptions configures Put.
	PutOptions = core.PutOptions
	// SignedURLOptions configures PresignURL.
	SignedURLOptions = core.SignedURLOptions
	// S3Config holds S3 driver parameters.
	S3Config = infraS3.Config
)

const (
	DriverMemory     = core.DriverMemory
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
)

// Open builds the Store selected by cfg. An empty driver selects memory.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	switch Driver(cfg.Driver) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewMemory returns an in-process store.
func NewMemory() Store { return infraMemory.New() }

// NewFilesystem returns a store rooted at the given directory.
func NewFilesystem(root string) (Store, error) { return infraFS.New(root) }

// NewS3 returns a store on an S3 compatible bucket.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return infraS3.New(ctx, cfg) }

// NewMockS3ForTests exposes the fake-transport S3 store for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
