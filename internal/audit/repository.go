package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/notevault/notevault/pkg/repository"
)

const maxLogEntries = 50

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an audit repository backed by the shared database.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "audit"),
	}
}

func (r *repo) InsertDownload(ctx context.Context, exec repository.Executor, ev DownloadEvent) (*DownloadEvent, error) {
	q := `INSERT INTO public.download_events
		(document_id, downloader_id, downloader_name, channel)
		VALUES ($1, $2, $3, $4)
		RETURNING id, document_id, downloader_id, downloader_name, channel, created_at`

	inserted, err := repository.QueryOne(ctx, exec, q, []any{
		ev.DocumentID, ev.DownloaderID, ev.DownloaderName, nullable(ev.Channel),
	}, scanDownloadEvent)
	if err != nil {
		return nil, fmt.Errorf("insert download event: %w", err)
	}
	return &inserted, nil
}

func (r *repo) RecordAdminAction(ctx context.Context, action AdminAction) (*AdminAction, error) {
	q := `INSERT INTO public.admin_events
		(action, actor_id, actor_name, document_id, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, action, actor_id, actor_name, document_id, detail, created_at`

	var docID any
	if action.DocumentID != nil {
		docID = action.DocumentID.String()
	}

	inserted, err := repository.QueryOne(ctx, r.db, q, []any{
		action.Action, action.ActorID, action.ActorName, docID, nullable(action.Detail),
	}, scanAdminAction)
	if err != nil {
		return nil, fmt.Errorf("insert admin event: %w", err)
	}

	r.logger.Info("admin action recorded",
		"action", inserted.Action, "actor", inserted.ActorName, "event_id", inserted.ID)
	return &inserted, nil
}

func (r *repo) Downloads(ctx context.Context, filters Filters, limit int) ([]DownloadEntry, error) {
	var (
		where []string
		args  []any
	)

	if filters.DocumentPrefix != nil {
		args = append(args, *filters.DocumentPrefix)
		where = append(where, fmt.Sprintf("e.document_id LIKE $%d || '%%'", len(args)))
	}
	if filters.DownloaderID != nil {
		args = append(args, *filters.DownloaderID)
		where = append(where, fmt.Sprintf("e.downloader_id = $%d", len(args)))
	}

	q := `SELECT e.id, e.document_id, e.downloader_id, e.downloader_name, e.channel, e.created_at,
		d.course_code, d.lecture_label, d.contributor, d.original_filename
		FROM public.download_events e
		JOIN public.documents d ON d.id = e.document_id`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(limit))
	q += fmt.Sprintf(" ORDER BY e.created_at DESC, e.id DESC LIMIT $%d", len(args))

	entries, err := repository.QueryMany(ctx, r.db, q, args, scanDownloadEntry)
	if err != nil {
		return nil, fmt.Errorf("query download log: %w", err)
	}
	return entries, nil
}

func (r *repo) AdminActions(ctx context.Context, limit int) ([]AdminAction, error) {
	q := `SELECT id, action, actor_id, actor_name, document_id, detail, created_at
		FROM public.admin_events
		ORDER BY created_at DESC, id DESC LIMIT $1`

	actions, err := repository.QueryMany(ctx, r.db, q, []any{clampLimit(limit)}, scanAdminAction)
	if err != nil {
		return nil, fmt.Errorf("query admin log: %w", err)
	}
	return actions, nil
}

func clampLimit(limit int) int {
	if limit < 1 || limit > maxLogEntries {
		return maxLogEntries
	}
	return limit
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
