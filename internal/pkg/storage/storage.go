// Package storage keeps audit exports in an S3 compatible bucket and hands out
// short-lived download links.
package storage

import (
	"context"
	"io"
	"mime"
	"time"
)

type Storage interface {
	io.Closer
	EnsureBucket(ctx context.Context, bucket string) error
	Put(ctx context.Context, obj Object) error
	// PresignGet returns a GET url valid for ttl.
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Object is a small, fully buffered upload.
type Object struct {
	Bucket      string
	Key         string
	Body        []byte
	ContentType string
	// Filename, when set, makes browsers save the download under that name.
	Filename string
	Metadata map[string]string
}

func (o Object) disposition() string {
	if o.Filename == "" {
		return ""
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": o.Filename})
}
