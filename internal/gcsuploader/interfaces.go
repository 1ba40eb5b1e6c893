package gcsuploader

import (
	"context"
	"io"
)

// ObjectStore stores export files. GCSStore is the production
// implementation; tests substitute an in-memory one.
type ObjectStore interface {
	// Upload writes r to bucket/object and returns its gs:// URI.
	Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (string, error)

	// Fetch reads back the object at a gs:// URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}
