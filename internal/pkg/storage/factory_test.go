package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDriver(t *testing.T) {
	stg, err := NewFromDriver(context.Background(), " MinIO", FactoryOptions{
		MinIO: MinIOOptions{Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123"},
	})
	require.NoError(t, err)
	assert.IsType(t, &MinIO{}, stg)
	assert.NoError(t, stg.Close())

	stg, err = NewFromDriver(context.Background(), "s3", FactoryOptions{
		S3: S3Options{Endpoint: "http://localhost:4566", AccessKey: "test", SecretKey: "test", UsePathStyle: true},
	})
	require.NoError(t, err)
	assert.IsType(t, &S3{}, stg)

	_, err = NewFromDriver(context.Background(), "gcs", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestObjectDisposition(t *testing.T) {
	assert.Empty(t, Object{}.disposition())
	assert.Equal(t, `attachment; filename=otp-tokens.csv`, Object{Filename: "otp-tokens.csv"}.disposition())
}

func TestMinIOPresignGet(t *testing.T) {
	m, err := NewMinIO(MinIOOptions{Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123", Region: "us-east-1"})
	require.NoError(t, err)

	u, err := m.PresignGet(context.Background(), "bgv-exports", "otp-tokens/a.csv", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "http://localhost:9000/bgv-exports/otp-tokens/a.csv?")
	assert.Contains(t, u, "X-Amz-Expires=60")
}
