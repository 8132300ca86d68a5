// Package storage keeps profile pictures in an S3-compatible bucket.
package storage

import "context"

type ObjectStore interface {
	// Put stores data under key and returns the key it was stored under.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the object. An empty key is a no-op.
	Delete(ctx context.Context, key string) error
}
