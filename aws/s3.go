package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"pindrop/pin-api/internal/model"
	"pindrop/pin-api/internal/pinerr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	// Objects above this size are relayed through the multipart manager
	minMultipartSize = 12 << 20

	uploadURLExpiry = 15 * time.Minute
	accessURLExpiry = 12 * time.Hour
)

// IssueUploadTarget returns a presigned PUT URL the client uploads bytes
// to directly. The server never sees the file body on this path.
func (s *S3Client) IssueUploadTarget(ctx context.Context, key string) (string, error) {
	req, err := s.Presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	}, s3.WithPresignExpires(uploadURLExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload URL, %w", err)
	}

	return req.URL, nil
}

// SyncMetadata asks the backend to ingest metadata for a freshly
// uploaded object. R2 materializes object metadata asynchronously and
// has no explicit trigger on the S3 API surface, so this is a no-op and
// the coordinator's bounded poll absorbs the ingestion delay.
func (s *S3Client) SyncMetadata(ctx context.Context, key string) error {
	return nil
}

// GetMetadata returns the materialized metadata record for key, or a
// not-found error while the backend is still ingesting it.
func (s *S3Client) GetMetadata(ctx context.Context, key string) (model.FileMetadata, error) {
	out, err := s.C.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return model.FileMetadata{}, pinerr.New(pinerr.CodeNotFound, "no metadata record for "+key).WithCause(err)
		}

		return model.FileMetadata{}, fmt.Errorf("failed to head object, %w", err)
	}

	return model.FileMetadata{
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
	}, nil
}

// AccessURL resolves a storage ref to a fetchable URL. With a public
// base configured the URL is a plain CDN path, otherwise a presigned GET.
func (s *S3Client) AccessURL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}

	req, err := s.Presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	}, s3.WithPresignExpires(accessURLExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign access URL, %w", err)
	}

	return req.URL, nil
}

// Upload relays an object body server-side. Pin images come through
// here; large files use the presigned direct path instead.
func (s *S3Client) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        s.Bucket,
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	}

	var err error
	if size > minMultipartSize {
		uploader := manager.NewUploader(s.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})
		_, err = uploader.Upload(ctx, input)
	} else {
		_, err = s.C.PutObject(ctx, input)
	}
	if err != nil {
		return fmt.Errorf("failed to upload object, %w", err)
	}

	zap.L().Debug("Uploaded object", zap.String("key", key), zap.Int64("size", size))
	return nil
}

func (s *S3Client) Delete(ctx context.Context, key string) error {
	_, err := s.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object, %w", err)
	}

	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError

	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}

	return false
}
