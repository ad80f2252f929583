// Package service implements the pin lifecycle engine: code allocation,
// two-phase upload coordination, quota-checked creation, retrieval with
// URL enrichment, deletion and expired-pin reclamation.
package service

import (
	"context"
	"io"

	"pindrop/pin-api/internal/model"
)

// ObjectStorage is the capability surface the pin core needs from the
// object-storage backend. *aws.S3Client implements it; tests use fakes.
type ObjectStorage interface {
	// IssueUploadTarget returns a URL for a direct client PUT of key
	IssueUploadTarget(ctx context.Context, key string) (string, error)

	// SyncMetadata triggers metadata ingestion for a freshly uploaded key
	SyncMetadata(ctx context.Context, key string) error

	// GetMetadata returns the materialized metadata record, or an error
	// carrying pinerr.CodeNotFound while ingestion is still pending
	GetMetadata(ctx context.Context, key string) (model.FileMetadata, error)

	// AccessURL resolves a storage ref to a fetchable URL
	AccessURL(ctx context.Context, key string) (string, error)

	// Upload relays an object body server-side (pin images)
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	Delete(ctx context.Context, key string) error
}
