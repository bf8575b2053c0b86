package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/smallbiznis/timesheet/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidKey = errors.New("invalid_object_key")

// Archive copies generated documents to object storage.
type Archive interface {
	Enabled() bool
	// Put stores body under key and returns a presigned download URL.
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// NewArchive returns a minio backed archive, or a disabled one when no
// endpoint is configured.
func NewArchive(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Archive, error) {
	archiveCfg := cfg.Archive
	if !archiveCfg.Enabled() {
		return disabledArchive{}, nil
	}

	client, err := minio.New(archiveCfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(archiveCfg.AccessKey, archiveCfg.SecretKey, ""),
		Secure: archiveCfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	ttl := archiveCfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	a := &minioArchive{
		client: client,
		bucket: archiveCfg.Bucket,
		ttl:    ttl,
		log:    log.Named("storage.archive"),
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := a.ensureBucket(ctx); err != nil {
					a.log.Warn("archive bucket unavailable", zap.String("bucket", a.bucket), zap.Error(err))
				}
				return nil
			},
		})
	}
	return a, nil
}

type minioArchive struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
	log    *zap.Logger
}

func (a *minioArchive) Enabled() bool { return true }

func (a *minioArchive) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrInvalidKey
	}

	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}

	url, err := a.client.PresignedGetObject(ctx, a.bucket, key, a.ttl, nil)
	if err != nil {
		return "", err
	}

	a.log.Debug("document archived", zap.String("bucket", a.bucket), zap.String("key", key), zap.Int("size", len(body)))
	return url.String(), nil
}

func (a *minioArchive) ensureBucket(ctx context.Context) error {
	found, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !found {
		return a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

type disabledArchive struct{}

func (disabledArchive) Enabled() bool { return false }

func (disabledArchive) Put(context.Context, string, string, []byte) (string, error) {
	return "", nil
}
