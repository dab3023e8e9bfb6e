package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/notevault/notevault/pkg/pagination"
	"github.com/notevault/notevault/pkg/repository"
)

// System defines the document catalog operations. Implementations
// handle blob storage and database persistence.
type System interface {
	// Register validates, persists, and catalogs a new document,
	// assigning a fresh identifier. Fails with ErrValidation,
	// ErrQuotaExceeded, or storage/database errors.
	Register(ctx context.Context, cmd CreateCommand) (*Document, error)

	// Find looks up a record by full identifier, including
	// soft-deleted records.
	Find(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindActive resolves an identifier prefix against active
	// records. See Match for the result shape.
	FindActive(ctx context.Context, prefix string) (Match, error)

	// SoftDelete marks a record inactive. Repeating a delete on an
	// already-inactive record is a no-op success.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// RecordDownload atomically increments the download counter and
	// stamps the last-download time. It runs against the supplied
	// executor so callers can pair it with an audit insert in one
	// transaction.
	RecordDownload(ctx context.Context, exec repository.Executor, id uuid.UUID) (*DownloadCounters, error)

	// List returns a page of active records ordered by
	// classification tags, then recency.
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Document], error)

	// Stats aggregates catalog counters for the admin surface.
	Stats(ctx context.Context) (*Stats, error)
}
