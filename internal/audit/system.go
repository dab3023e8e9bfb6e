package audit

import (
	"context"

	"github.com/notevault/notevault/pkg/repository"
)

// System defines the append-only audit trail. Records are never
// updated or deleted once written.
type System interface {
	// InsertDownload appends a download event. It runs against the
	// supplied executor so callers can pair it with the catalog
	// counter update in one transaction.
	InsertDownload(ctx context.Context, exec repository.Executor, ev DownloadEvent) (*DownloadEvent, error)

	// RecordAdminAction appends an administrative or security event.
	RecordAdminAction(ctx context.Context, action AdminAction) (*AdminAction, error)

	// Downloads returns recent download entries newest first,
	// optionally filtered. Limit is clamped to 50.
	Downloads(ctx context.Context, filters Filters, limit int) ([]DownloadEntry, error)

	// AdminActions returns recent admin events newest first.
	// Limit is clamped to 50.
	AdminActions(ctx context.Context, limit int) ([]AdminAction, error)
}
