package service

import (
	"context"
	"fmt"
	"path"
	"time"

	"pindrop/pin-api/internal/model"
	"pindrop/pin-api/internal/pinerr"

	"go.uber.org/zap"
)

const (
	syncRetries  = 5
	syncBaseWait = 600 * time.Millisecond
)

// UploadCoordinator drives the two-phase large-file upload: issue a
// direct upload target, let the client transfer bytes on its own, then
// reconcile the resulting object metadata before a pin may reference it.
// No quota accounting happens here.
type UploadCoordinator struct {
	Storage ObjectStorage
	Now     func() time.Time

	// wait is swappable so tests can assert the backoff schedule without
	// actually sleeping
	wait func(ctx context.Context, d time.Duration) error
}

func NewUploadCoordinator(s ObjectStorage) *UploadCoordinator {
	return &UploadCoordinator{
		Storage: s,
		Now:     time.Now,
		wait:    sleepCtx,
	}
}

// UploadSession describes one in-flight transfer. It is handed to the
// client and never persisted; abandoning it costs nothing server-side.
type UploadSession struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
	IssuedAt  int64  `json:"issued_at"`
}

// FinalizedUpload is the reconciled result a file pin is created from.
type FinalizedUpload struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	AccessURL   string `json:"url"`
}

// Begin issues an upload target for fileName. The key embeds the issue
// time so concurrent uploads of the same name never collide on one
// object.
func (u *UploadCoordinator) Begin(ctx context.Context, fileName string) (*UploadSession, error) {
	now := u.Now().UnixMilli()
	key := fmt.Sprintf("%d-%s", now, path.Base(fileName))

	url, err := u.Storage.IssueUploadTarget(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to issue upload target, %w", err)
	}

	return &UploadSession{
		Key:       key,
		UploadURL: url,
		IssuedAt:  now,
	}, nil
}

// Finalize reconciles an uploaded object: trigger metadata sync, then
// poll until the record materializes. The backend ingests metadata
// asynchronously, so each retry waits 600ms * 2^attempt, giving up with
// a sync-timeout error after 5 retries (~18.6s total). Cancelling ctx
// aborts the poll; the object is left in whatever state the backend has.
func (u *UploadCoordinator) Finalize(ctx context.Context, key string) (*FinalizedUpload, error) {
	if err := u.Storage.SyncMetadata(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to trigger metadata sync, %w", err)
	}

	var meta model.FileMetadata

	for attempt := 0; ; attempt++ {
		var err error

		meta, err = u.Storage.GetMetadata(ctx, key)
		if err == nil {
			break
		}

		if !pinerr.Is(err, pinerr.CodeNotFound) {
			return nil, err
		}

		if attempt == syncRetries {
			return nil, pinerr.New(pinerr.CodeSyncTimeout,
				"storage backend did not materialize metadata for "+key).WithCause(err)
		}

		zap.L().Debug("Metadata not materialized yet",
			zap.String("key", key),
			zap.Int("attempt", attempt),
		)

		if err := u.wait(ctx, syncBaseWait<<attempt); err != nil {
			return nil, err
		}
	}

	url, err := u.Storage.AccessURL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access URL, %w", err)
	}

	return &FinalizedUpload{
		Key:         key,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		AccessURL:   url,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
