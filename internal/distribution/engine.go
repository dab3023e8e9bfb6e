// Package distribution orchestrates the upload and download pipelines:
// rate limiting, catalog registration, integrity verification,
// watermarking, and audit recording.
package distribution

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/notevault/notevault/internal/audit"
	"github.com/notevault/notevault/internal/catalog"
	"github.com/notevault/notevault/internal/config"
	"github.com/notevault/notevault/internal/integrity"
	"github.com/notevault/notevault/internal/ratelimit"
	"github.com/notevault/notevault/internal/storage"
	"github.com/notevault/notevault/internal/watermark"
	"github.com/notevault/notevault/pkg/repository"
)

// Actor identifies who is driving a pipeline operation.
type Actor struct {
	ID   string
	Name string
}

// UploadRequest carries everything needed to ingest a document.
type UploadRequest struct {
	OriginalFilename string
	CourseCode       string
	LectureLabel     string
	Contributor      string
	Data             []byte
}

// DownloadResult is a watermarked copy ready to serve.
type DownloadResult struct {
	Document *catalog.Document
	Filename string
	Data     []byte
	Event    *audit.DownloadEvent
}

// Engine wires the catalog, audit trail, limiter, blob store,
// verifier, and marker into the two user-facing pipelines.
type Engine struct {
	catalog  catalog.System
	audit    audit.System
	limiter  *ratelimit.Limiter
	blobs    storage.System
	verifier *integrity.Verifier
	marker   *watermark.Marker
	limits   config.LimitsConfig
	logger   *slog.Logger

	// runTx scopes the download counter update and its audit insert to
	// one transaction. Swappable so tests can run the pipeline without
	// a live database.
	runTx func(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// NewEngine assembles the distribution pipelines.
func NewEngine(
	db *sql.DB,
	cat catalog.System,
	aud audit.System,
	limiter *ratelimit.Limiter,
	blobs storage.System,
	verifier *integrity.Verifier,
	marker *watermark.Marker,
	limits config.LimitsConfig,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		catalog:  cat,
		audit:    aud,
		limiter:  limiter,
		blobs:    blobs,
		verifier: verifier,
		marker:   marker,
		limits:   limits,
		logger:   logger.With("system", "distribution"),
		runTx: func(ctx context.Context, fn func(tx *sql.Tx) error) error {
			_, err := repository.WithTx(ctx, db, func(tx *sql.Tx) (struct{}, error) {
				return struct{}{}, fn(tx)
			})
			return err
		},
	}
}

// Upload runs the ingest pipeline: size, format, and tag validation,
// then rate check, content hashing, and catalog registration. All
// validation happens before the rate slot is consumed, so rejected
// requests never burn quota.
func (e *Engine) Upload(ctx context.Context, actor Actor, req UploadRequest) (*catalog.Document, error) {
	if max := e.limits.MaxUploadSizeBytes(); int64(len(req.Data)) > max {
		return nil, fmt.Errorf("%w: %d bytes over the %d byte limit", ErrTooLarge, len(req.Data), max)
	}

	pages, err := watermark.PageCount(req.Data)
	if err != nil || pages < 1 {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	cmd := catalog.CreateCommand{
		OriginalFilename: req.OriginalFilename,
		CourseCode:       req.CourseCode,
		LectureLabel:     req.LectureLabel,
		Contributor:      req.Contributor,
		OwnerID:          actor.ID,
		OwnerName:        actor.Name,
		Hash:             integrity.Digest(req.Data),
		Data:             req.Data,
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if !e.limiter.Allow(actor.ID, ratelimit.ActionUpload, e.limits.UploadsPerWindow, e.limits.RateWindowDuration()) {
		return nil, e.rateLimited(actor, ratelimit.ActionUpload, e.limits.UploadsPerWindow)
	}

	doc, err := e.catalog.Register(ctx, cmd)
	if err != nil {
		return nil, err
	}

	e.logger.Info("upload accepted",
		"id", doc.ID, "label", doc.Label(), "pages", pages, "owner", actor.Name)
	return doc, nil
}

// Download runs the delivery pipeline: rate check, prefix resolution,
// blob retrieval, integrity verification, watermarking, then the
// counter update and audit insert in one transaction. The watermarked
// copy is only returned once its download event is durably recorded.
func (e *Engine) Download(ctx context.Context, actor Actor, prefix, channel string) (*DownloadResult, error) {
	if !e.limiter.Allow(actor.ID, ratelimit.ActionDownload, e.limits.DownloadsPerWindow, e.limits.RateWindowDuration()) {
		return nil, e.rateLimited(actor, ratelimit.ActionDownload, e.limits.DownloadsPerWindow)
	}

	match, err := e.catalog.FindActive(ctx, prefix)
	if err != nil {
		return nil, err
	}
	doc := match.Record

	data, err := e.blobs.Retrieve(ctx, doc.StorageKey)
	if err != nil {
		e.recordSecurityEvent(ctx, actor, doc, audit.ActionUnreadableDocument,
			fmt.Sprintf("blob %s unreadable: %v", doc.StorageKey, err))
		return nil, fmt.Errorf("%w: %s", ErrUnreadable, doc.StorageKey)
	}

	result := e.verifier.Verify(ctx, doc.StorageKey, doc.ContentHash)
	switch result.Status {
	case integrity.StatusMismatch:
		e.recordSecurityEvent(ctx, actor, doc, audit.ActionIntegrityMismatch,
			fmt.Sprintf("expected %s, computed %s", doc.ContentHash, result.Computed))
		return nil, fmt.Errorf("%w: %s", ErrIntegrityMismatch, doc.ID)
	case integrity.StatusUnreadable:
		return nil, fmt.Errorf("%w: %s", ErrUnreadable, doc.StorageKey)
	}

	if channel == "" {
		channel = "api"
	}

	downloadID := uuid.New().String()
	mark := watermark.NewMark(actor.Name, downloadID)

	marked, err := e.marker.Apply(ctx, data, mark)
	if err != nil {
		return nil, err
	}

	var event *audit.DownloadEvent
	err = e.runTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.catalog.RecordDownload(ctx, tx, doc.ID); err != nil {
			return err
		}
		inserted, err := e.audit.InsertDownload(ctx, tx, audit.DownloadEvent{
			DocumentID:     doc.ID,
			DownloaderID:   actor.ID,
			DownloaderName: actor.Name,
			Channel:        channel,
		})
		if err != nil {
			return err
		}
		event = inserted
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record download: %w", err)
	}

	e.logger.Info("download fulfilled",
		"id", doc.ID, "label", doc.Label(), "downloader", actor.Name, "download_id", downloadID)

	return &DownloadResult{
		Document: doc,
		Filename: downloadFilename(doc.CourseCode, doc.LectureLabel, doc.Contributor),
		Data:     marked,
		Event:    event,
	}, nil
}

// Delete resolves a prefix against active documents, soft-deletes the
// match, and records the administrative action.
func (e *Engine) Delete(ctx context.Context, actor Actor, prefix string) (*catalog.Document, error) {
	match, err := e.catalog.FindActive(ctx, prefix)
	if err != nil {
		return nil, err
	}
	doc := match.Record

	if err := e.catalog.SoftDelete(ctx, doc.ID); err != nil {
		return nil, err
	}

	if _, err := e.audit.RecordAdminAction(ctx, audit.AdminAction{
		Action:     audit.ActionDeleteFile,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		DocumentID: &doc.ID,
		Detail:     "Deleted " + doc.Label(),
	}); err != nil {
		e.logger.Error("admin action recording failed", "action", audit.ActionDeleteFile, "error", err)
	}
	return doc, nil
}

// RetryAfter reports how long the actor must wait before the action
// has a free slot again.
func (e *Engine) RetryAfter(actor Actor, action ratelimit.Action) time.Duration {
	limit := e.limits.UploadsPerWindow
	if action == ratelimit.ActionDownload {
		limit = e.limits.DownloadsPerWindow
	}
	return e.limiter.RetryAfter(actor.ID, action, limit, e.limits.RateWindowDuration())
}

func (e *Engine) rateLimited(actor Actor, action ratelimit.Action, limit int) error {
	retry := e.limiter.RetryAfter(actor.ID, action, limit, e.limits.RateWindowDuration())
	e.logger.Warn("rate limit exceeded",
		"actor", actor.ID, "action", action, "retry_after", retry)
	return fmt.Errorf("%w: %s quota of %d per %s reached, retry in %s",
		ErrRateLimited, action, limit, e.limits.RateWindow, retry.Round(time.Second))
}

func (e *Engine) recordSecurityEvent(ctx context.Context, actor Actor, doc *catalog.Document, action, detail string) {
	if _, err := e.audit.RecordAdminAction(ctx, audit.AdminAction{
		Action:     action,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		DocumentID: &doc.ID,
		Detail:     detail,
	}); err != nil {
		e.logger.Error("security event recording failed", "action", action, "error", err)
	}
}
