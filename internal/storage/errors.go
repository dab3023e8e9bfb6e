package storage

import "errors"

// Domain errors for blob storage operations.
var (
	ErrNotFound         = errors.New("blob not found")
	ErrExists           = errors.New("blob already exists")
	ErrInvalidKey       = errors.New("invalid storage key")
	ErrPermissionDenied = errors.New("storage permission denied")
)
