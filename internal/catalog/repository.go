package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/notevault/notevault/internal/storage"
	"github.com/notevault/notevault/pkg/pagination"
	"github.com/notevault/notevault/pkg/query"
	"github.com/notevault/notevault/pkg/repository"
)

type repo struct {
	db          *sql.DB
	blobs       storage.System
	logger      *slog.Logger
	pagination  pagination.Config
	maxPerOwner int
}

// New creates a catalog repository with database and blob storage
// integration. maxPerOwner caps active documents per owner.
func New(db *sql.DB, blobs storage.System, logger *slog.Logger, pagination pagination.Config, maxPerOwner int) System {
	return &repo{
		db:          db,
		blobs:       blobs,
		logger:      logger.With("system", "catalog"),
		pagination:  pagination,
		maxPerOwner: maxPerOwner,
	}
}

func (r *repo) Register(ctx context.Context, cmd CreateCommand) (*Document, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var count int
	q := `SELECT COUNT(*) FROM public.documents WHERE owner_id = $1 AND is_active`
	if err := r.db.QueryRowContext(ctx, q, cmd.OwnerID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count owner documents: %w", err)
	}
	if count >= r.maxPerOwner {
		return nil, fmt.Errorf("%w: %d of %d", ErrQuotaExceeded, count, r.maxPerOwner)
	}

	id := uuid.New()
	storageKey := buildStorageKey(id)

	if err := r.blobs.Store(ctx, storageKey, cmd.Data); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	insert := `INSERT INTO public.documents
		(id, original_filename, course_code, lecture_label, contributor,
		 owner_id, owner_name, size_bytes, storage_key, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + returning

	doc, err := repository.QueryOne(ctx, r.db, insert, []any{
		id, cmd.OriginalFilename, cmd.CourseCode, cmd.LectureLabel, cmd.Contributor,
		cmd.OwnerID, cmd.OwnerName, int64(len(cmd.Data)), storageKey, nullable(cmd.Hash),
	}, scanDocument)
	if err != nil {
		// No catalog row may exist without its blob and vice versa.
		if delErr := r.blobs.Delete(ctx, storageKey); delErr != nil {
			r.logger.Error("blob cleanup failed after insert error", "storage_key", storageKey, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document registered",
		"id", doc.ID, "label", doc.Label(), "owner", doc.OwnerName, "size_bytes", doc.SizeBytes)
	return &doc, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("Id", id)

	doc, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &doc, nil
}

func (r *repo) FindActive(ctx context.Context, prefix string) (Match, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return Match{}, err
	}

	q, args := query.
		NewBuilder(projection, query.SortField{Field: "CreatedAt", Descending: true}).
		WherePrefix("Id", prefix).
		WhereEquals("Active", true).
		BuildSelect(maxCandidates + 1)

	docs, err := repository.QueryMany(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return Match{}, fmt.Errorf("prefix lookup: %w", err)
	}

	switch len(docs) {
	case 0:
		return Match{}, ErrNotFound
	case 1:
		return Match{Record: &docs[0]}, nil
	default:
		if len(docs) > maxCandidates {
			docs = docs[:maxCandidates]
		}
		return Match{Candidates: docs}, ErrAmbiguous
	}
}

func (r *repo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	// Already-inactive records re-set the flag and report success;
	// only a missing id is an error.
	q := `UPDATE public.documents SET is_active = FALSE WHERE id = $1`
	if err := repository.ExecExpectOne(ctx, r.db, q, id); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document soft-deleted", "id", id)
	return nil
}

func (r *repo) RecordDownload(ctx context.Context, exec repository.Executor, id uuid.UUID) (*DownloadCounters, error) {
	q := `UPDATE public.documents
		SET download_count = download_count + 1, last_downloaded = now()
		WHERE id = $1 AND is_active
		RETURNING download_count, last_downloaded`

	var c DownloadCounters
	if err := exec.QueryRowContext(ctx, q, id).Scan(&c.Downloads, &c.LastDownloaded); err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereEquals("Active", true).
		WhereSearch(page.Search, "CourseCode", "LectureLabel", "Contributor", "OriginalFilename")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{}

	counts := `SELECT
		COUNT(*) FILTER (WHERE is_active),
		COUNT(*) FILTER (WHERE NOT is_active),
		COALESCE(SUM(download_count), 0)
		FROM public.documents`
	if err := r.db.QueryRowContext(ctx, counts).Scan(
		&s.ActiveDocuments, &s.DeletedDocuments, &s.TotalDownloads); err != nil {
		return nil, fmt.Errorf("aggregate counts: %w", err)
	}

	owners := `SELECT owner_name, COUNT(*) FROM public.documents
		WHERE is_active GROUP BY owner_name ORDER BY COUNT(*) DESC LIMIT 5`
	topOwners, err := repository.QueryMany(ctx, r.db, owners, nil,
		func(sc repository.Scanner) (OwnerCount, error) {
			var o OwnerCount
			err := sc.Scan(&o.OwnerName, &o.Documents)
			return o, err
		})
	if err != nil {
		return nil, fmt.Errorf("top owners: %w", err)
	}
	s.TopOwners = topOwners

	docs := `SELECT course_code || '-' || lecture_label || '-' || contributor, download_count
		FROM public.documents WHERE is_active
		ORDER BY download_count DESC LIMIT 5`
	topDocs, err := repository.QueryMany(ctx, r.db, docs, nil,
		func(sc repository.Scanner) (DocumentCount, error) {
			var d DocumentCount
			err := sc.Scan(&d.Label, &d.Downloads)
			return d, err
		})
	if err != nil {
		return nil, fmt.Errorf("top documents: %w", err)
	}
	s.TopDocuments = topDocs

	return s, nil
}

const returning = `id, original_filename, course_code, lecture_label, contributor,
		owner_id, owner_name, created_at, size_bytes, storage_key, content_hash,
		is_active, download_count, last_downloaded`

func buildStorageKey(id uuid.UUID) string {
	return fmt.Sprintf("documents/%s.pdf", id.String())
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
