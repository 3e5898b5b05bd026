package ticket

import "context"

// BlobStore abstracts attachment byte storage so the use case stays
// storage-agnostic.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
