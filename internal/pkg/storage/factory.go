package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownDriver = errors.New("storage: unknown driver")

type FactoryOptions struct {
	S3    S3Options
	MinIO MinIOOptions
}

// NewFromDriver picks the backend named by storage.driver ("s3" or "minio").
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "s3":
		return NewS3(ctx, opts.S3)
	case "minio":
		return NewMinIO(opts.MinIO)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}
