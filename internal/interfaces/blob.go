package interfaces

import "context"

// BlobStore persists uploaded images
type BlobStore interface {
	// Upload stores a base64 payload under key and returns its public URL
	Upload(ctx context.Context, key string, payload string) (string, error)
}
