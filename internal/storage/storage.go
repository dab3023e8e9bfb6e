// Package storage provides write-once blob storage for uploaded
// documents. Blobs are addressed by key, written exactly once at
// upload time, and never mutated in place.
package storage

import "context"

// System defines the blob storage operations.
type System interface {
	// Store persists data under key. Storing to an existing key
	// fails with ErrExists: blobs are write-once.
	Store(ctx context.Context, key string, data []byte) error

	// Retrieve reads the blob stored under key.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether a blob is present under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the blob under key. Missing blobs are not an
	// error; deletion only happens through administrative cleanup
	// or upload rollback.
	Delete(ctx context.Context, key string) error
}
