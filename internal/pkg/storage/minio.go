package storage

import (
	"bytes"
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOOptions struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	UseSSL       bool
}

// MinIO is used for local development and on-prem deployments.
type MinIO struct {
	client *minio.Client
	region string
}

func NewMinIO(opts MinIOOptions) (*MinIO, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}
	return &MinIO{client: client, region: opts.Region}, nil
}

func (m *MinIO) EnsureBucket(ctx context.Context, bucket string) error {
	ok, err := m.client.BucketExists(ctx, bucket)
	if err != nil || ok {
		return err
	}
	return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.region})
}

func (m *MinIO) Put(ctx context.Context, obj Object) error {
	_, err := m.client.PutObject(ctx, obj.Bucket, obj.Key, bytes.NewReader(obj.Body), int64(len(obj.Body)), minio.PutObjectOptions{
		ContentType:        obj.ContentType,
		ContentDisposition: obj.disposition(),
		UserMetadata:       obj.Metadata,
	})
	return err
}

func (m *MinIO) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m *MinIO) Close() error { return nil }
