package distribution

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/notevault/notevault/internal/audit"
	"github.com/notevault/notevault/internal/catalog"
	"github.com/notevault/notevault/internal/ratelimit"
	"github.com/notevault/notevault/pkg/handlers"
	"github.com/notevault/notevault/pkg/pagination"
)

// Identity headers. Requests without an actor id are rejected; the
// name falls back to the id when absent.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorName = "X-Actor-Name"
)

// Handler exposes the distribution pipelines over HTTP.
type Handler struct {
	engine     *Engine
	pagination pagination.Config
	logger     *slog.Logger
}

// NewHandler creates an HTTP handler around the engine.
func NewHandler(engine *Engine, pageCfg pagination.Config, logger *slog.Logger) *Handler {
	return &Handler{
		engine:     engine,
		pagination: pageCfg,
		logger:     logger.With("system", "distribution-http"),
	}
}

// Register attaches the distribution routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /documents", h.upload)
	mux.HandleFunc("GET /documents", h.list)
	mux.HandleFunc("GET /documents/{prefix}/download", h.download)
	mux.HandleFunc("DELETE /admin/documents/{prefix}", h.remove)
	mux.HandleFunc("GET /admin/logs", h.logs)
	mux.HandleFunc("GET /admin/stats", h.stats)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	maxSize := h.engine.limits.MaxUploadSizeBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1)
	if err := r.ParseMultipartForm(maxSize + 1); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	doc, err := h.engine.Upload(r.Context(), actor, UploadRequest{
		OriginalFilename: header.Filename,
		CourseCode:       r.FormValue("course_code"),
		LectureLabel:     r.FormValue("lecture_label"),
		Contributor:      r.FormValue("contributor"),
		Data:             data,
	})
	if err != nil {
		h.respondPipelineError(w, actor, ratelimit.ActionUpload, err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, doc)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := catalog.FiltersFromQuery(r.URL.Query())

	result, err := h.engine.catalog.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, catalog.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Download(r.Context(), actor, r.PathValue("prefix"), r.URL.Query().Get("channel"))
	if err != nil {
		var ambiguous catalog.Match
		if errors.Is(err, catalog.ErrAmbiguous) {
			if m, findErr := h.engine.catalog.FindActive(r.Context(), r.PathValue("prefix")); errors.Is(findErr, catalog.ErrAmbiguous) {
				ambiguous = m
			}
			handlers.RespondJSON(w, http.StatusConflict, map[string]any{
				"error":      err.Error(),
				"candidates": ambiguous.Candidates,
			})
			return
		}
		h.respondPipelineError(w, actor, ratelimit.ActionDownload, err)
		return
	}

	handlers.RespondFile(w, result.Filename, "application/pdf", result.Data)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	doc, err := h.engine.Delete(r.Context(), actor, r.PathValue("prefix"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	downloads, err := h.engine.audit.Downloads(r.Context(), audit.FiltersFromQuery(r.URL.Query()), limit)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	actions, err := h.engine.audit.AdminActions(r.Context(), limit)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"downloads":     downloads,
		"admin_actions": actions,
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.catalog.Stats(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stats)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	id := r.Header.Get(HeaderActorID)
	if id == "" {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized,
			fmt.Errorf("missing %s header", HeaderActorID))
		return Actor{}, false
	}

	name := r.Header.Get(HeaderActorName)
	if name == "" {
		name = id
	}
	return Actor{ID: id, Name: name}, true
}

func (h *Handler) respondPipelineError(w http.ResponseWriter, actor Actor, action ratelimit.Action, err error) {
	status := MapHTTPStatus(err)
	if status == http.StatusTooManyRequests {
		retry := h.engine.RetryAfter(actor, action)
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
	}
	handlers.RespondError(w, h.logger, status, err)
}
