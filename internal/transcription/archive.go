package transcription

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"imobzap_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MediaArchive keeps a copy of inbound media in object storage before
// transcription, keyed per tenant.
type MediaArchive struct {
	client *minio.Client
	bucket string
}

// NewMediaArchive returns nil when no archive endpoint is configured;
// callers treat a nil archive as disabled.
func NewMediaArchive(cfg config.MediaArchiveConfig) (*MediaArchive, error) {
	if !cfg.IsMediaArchiveEnabled() {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create media archive client: %w", err)
	}

	return &MediaArchive{client: client, bucket: cfg.GetMediaArchiveBucket()}, nil
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (a *MediaArchive) EnsureBucket(ctx context.Context) error {
	if a == nil {
		return nil
	}

	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check archive bucket: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create archive bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

func (a *MediaArchive) Archive(ctx context.Context, tenantID, name, contentType string, data []byte) error {
	if a == nil {
		return nil
	}

	key := filepath.ToSlash(filepath.Join(tenantID, name))
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("archive media %s: %w", key, err)
	}
	return nil
}
