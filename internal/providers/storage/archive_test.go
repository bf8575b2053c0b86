package storage

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/timesheet/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewArchiveDisabledWithoutEndpoint(t *testing.T) {
	archive, err := NewArchive(fxtest.NewLifecycle(t), config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, archive.Enabled())

	url, err := archive.Put(context.Background(), "invoices/1/a.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestNewArchiveEnabled(t *testing.T) {
	archive, err := NewArchive(nil, config.Config{Archive: config.ArchiveConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "minio",
		SecretKey:  "minio123",
		Bucket:     "invoices",
		PresignTTL: time.Minute,
	}}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, archive.Enabled())

	_, err = archive.Put(context.Background(), " / ", "application/pdf", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
