// Package integrity computes and validates content hashes for stored
// blobs so tampering and storage corruption are caught before a
// document is ever served.
package integrity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/notevault/notevault/internal/storage"
)

// Status is the outcome of a blob verification.
type Status int

const (
	// StatusOK means the blob digest matches the stored digest, or
	// no digest was recorded at upload time.
	StatusOK Status = iota

	// StatusMismatch means the blob content no longer matches the
	// digest recorded at upload time. Delivery must be blocked.
	StatusMismatch

	// StatusUnreadable means the blob is missing or cannot be read.
	// Delivery must be blocked, but this is distinct from tampering.
	StatusUnreadable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusMismatch:
		return "mismatch"
	case StatusUnreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result carries the verification status and the freshly computed
// digest (empty when the blob was unreadable).
type Result struct {
	Status   Status
	Computed string
}

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verifier re-hashes stored blobs and compares against the digest
// recorded at upload time.
type Verifier struct {
	blobs  storage.System
	logger *slog.Logger
}

// NewVerifier creates a Verifier backed by the given blob store.
func NewVerifier(blobs storage.System, logger *slog.Logger) *Verifier {
	return &Verifier{
		blobs:  blobs,
		logger: logger.With("system", "integrity"),
	}
}

// Verify re-reads the blob under key and compares its digest against
// storedDigest. An empty storedDigest means the document was never
// hashed; such legacy records verify as StatusOK.
func (v *Verifier) Verify(ctx context.Context, key, storedDigest string) Result {
	data, err := v.blobs.Retrieve(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			v.logger.Error("blob read failed during verification", "key", key, "error", err)
		}
		return Result{Status: StatusUnreadable}
	}

	computed := Digest(data)
	if storedDigest == "" {
		return Result{Status: StatusOK, Computed: computed}
	}

	if subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) != 1 {
		v.logger.Warn("content hash mismatch", "key", key, "expected", storedDigest, "computed", computed)
		return Result{Status: StatusMismatch, Computed: computed}
	}

	return Result{Status: StatusOK, Computed: computed}
}
