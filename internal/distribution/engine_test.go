package distribution

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/notevault/notevault/internal/audit"
	"github.com/notevault/notevault/internal/catalog"
	"github.com/notevault/notevault/internal/config"
	"github.com/notevault/notevault/internal/integrity"
	"github.com/notevault/notevault/internal/ratelimit"
	"github.com/notevault/notevault/internal/storage"
	"github.com/notevault/notevault/internal/watermark"
	"github.com/notevault/notevault/pkg/pagination"
	"github.com/notevault/notevault/pkg/repository"
)

type fakeCatalog struct {
	mu          sync.Mutex
	registered  []catalog.CreateCommand
	registerErr error
	match       catalog.Match
	matchErr    error
	deleted     []uuid.UUID
	downloads   []uuid.UUID
}

func (f *fakeCatalog) Register(ctx context.Context, cmd catalog.CreateCommand) (*catalog.Document, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.mu.Lock()
	f.registered = append(f.registered, cmd)
	f.mu.Unlock()
	return &catalog.Document{
		ID:               uuid.New(),
		OriginalFilename: cmd.OriginalFilename,
		CourseCode:       cmd.CourseCode,
		LectureLabel:     cmd.LectureLabel,
		Contributor:      cmd.Contributor,
		OwnerID:          cmd.OwnerID,
		OwnerName:        cmd.OwnerName,
		SizeBytes:        int64(len(cmd.Data)),
		ContentHash:      cmd.Hash,
		Active:           true,
	}, nil
}

func (f *fakeCatalog) Find(ctx context.Context, id uuid.UUID) (*catalog.Document, error) {
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) FindActive(ctx context.Context, prefix string) (catalog.Match, error) {
	return f.match, f.matchErr
}

func (f *fakeCatalog) SoftDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeCatalog) RecordDownload(ctx context.Context, exec repository.Executor, id uuid.UUID) (*catalog.DownloadCounters, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, id)
	count := len(f.downloads)
	f.mu.Unlock()
	return &catalog.DownloadCounters{Downloads: count, LastDownloaded: time.Now()}, nil
}

func (f *fakeCatalog) List(ctx context.Context, page pagination.PageRequest, filters catalog.Filters) (*pagination.PageResult[catalog.Document], error) {
	result := pagination.NewPageResult[catalog.Document](nil, 0, 1, 20)
	return &result, nil
}

func (f *fakeCatalog) Stats(ctx context.Context) (*catalog.Stats, error) {
	return &catalog.Stats{}, nil
}

type fakeAudit struct {
	mu        sync.Mutex
	downloads []audit.DownloadEvent
	actions   []audit.AdminAction
}

func (f *fakeAudit) InsertDownload(ctx context.Context, exec repository.Executor, ev audit.DownloadEvent) (*audit.DownloadEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev.ID = int64(len(f.downloads) + 1)
	ev.CreatedAt = time.Now()
	f.downloads = append(f.downloads, ev)
	return &ev, nil
}

func (f *fakeAudit) RecordAdminAction(ctx context.Context, action audit.AdminAction) (*audit.AdminAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	action.ID = int64(len(f.actions) + 1)
	action.CreatedAt = time.Now()
	f.actions = append(f.actions, action)
	return &action, nil
}

func (f *fakeAudit) Downloads(ctx context.Context, filters audit.Filters, limit int) ([]audit.DownloadEntry, error) {
	return nil, nil
}

func (f *fakeAudit) AdminActions(ctx context.Context, limit int) ([]audit.AdminAction, error) {
	return f.actions, nil
}

type engineFixture struct {
	engine  *Engine
	catalog *fakeCatalog
	audit   *fakeAudit
	blobs   storage.System
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{
		MaxUploadSize:        "10MB",
		MaxDocumentsPerOwner: 100,
		UploadsPerWindow:     20,
		DownloadsPerWindow:   50,
		RateWindow:           "1h",
	}
}

func testWatermark() config.WatermarkConfig {
	return config.WatermarkConfig{
		Opacity:       0.3,
		FontSize:      24,
		SmallFontSize: 12,
		ColorRed:      0.7,
		ColorGreen:    0.7,
		ColorBlue:     0.7,
		GridColumns:   4,
		GridRows:      5,
	}
}

func newFixture(t *testing.T, limits config.LimitsConfig) *engineFixture {
	t.Helper()
	logger := testLogger()

	blobs, err := storage.New(&config.StorageConfig{BasePath: t.TempDir()}, logger)
	if err != nil {
		t.Fatalf("storage.New() failed: %v", err)
	}

	cat := &fakeCatalog{}
	aud := &fakeAudit{}
	engine := NewEngine(
		nil,
		cat,
		aud,
		ratelimit.New(),
		blobs,
		integrity.NewVerifier(blobs, logger),
		watermark.NewMarker(testWatermark(), logger),
		limits,
		logger,
	)
	engine.runTx = func(ctx context.Context, fn func(tx *sql.Tx) error) error {
		return fn(nil)
	}

	return &engineFixture{engine: engine, catalog: cat, audit: aud, blobs: blobs}
}

// validPDF produces a real single-page PDF for pipeline tests.
func validPDF(t *testing.T) []byte {
	t.Helper()
	marker := watermark.NewMarker(testWatermark(), testLogger())
	data, err := marker.RenderOverlay(watermark.Mark{Text: "seed", Timestamp: time.Now()}, 612, 792)
	if err != nil {
		t.Fatalf("RenderOverlay() failed: %v", err)
	}
	return data
}

func uploadRequest(data []byte) UploadRequest {
	return UploadRequest{
		OriginalFilename: "notes.pdf",
		CourseCode:       "SYSC2006",
		LectureLabel:     "L05",
		Contributor:      "jamie_c",
		Data:             data,
	}
}

func TestUpload_Accepted(t *testing.T) {
	f := newFixture(t, testLimits())
	data := validPDF(t)
	actor := Actor{ID: "owner-1", Name: "Jamie"}

	doc, err := f.engine.Upload(context.Background(), actor, uploadRequest(data))
	if err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}

	if len(f.catalog.registered) != 1 {
		t.Fatalf("Register() called %d times, want 1", len(f.catalog.registered))
	}

	cmd := f.catalog.registered[0]
	if cmd.OwnerID != "owner-1" || cmd.OwnerName != "Jamie" {
		t.Errorf("Register() owner = %s/%s, want owner-1/Jamie", cmd.OwnerID, cmd.OwnerName)
	}
	if cmd.Hash != integrity.Digest(data) {
		t.Error("Register() command missing the content digest")
	}
	if doc.ContentHash != cmd.Hash {
		t.Error("Registered document missing the content digest")
	}
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	f := newFixture(t, testLimits())

	_, err := f.engine.Upload(context.Background(), Actor{ID: "owner-1"}, uploadRequest([]byte("plain text")))
	if !errors.Is(err, ErrNotPDF) {
		t.Errorf("Upload() = %v, want ErrNotPDF", err)
	}
	if len(f.catalog.registered) != 0 {
		t.Error("Register() called for a rejected upload")
	}
}

func TestUpload_RejectsOversize(t *testing.T) {
	limits := testLimits()
	limits.MaxUploadSize = "1KB"
	f := newFixture(t, limits)

	_, err := f.engine.Upload(context.Background(), Actor{ID: "owner-1"}, uploadRequest(make([]byte, 2000)))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Upload() = %v, want ErrTooLarge", err)
	}
}

func TestUpload_RateLimited(t *testing.T) {
	limits := testLimits()
	limits.UploadsPerWindow = 1
	f := newFixture(t, limits)

	data := validPDF(t)
	actor := Actor{ID: "owner-1", Name: "Jamie"}
	ctx := context.Background()

	if _, err := f.engine.Upload(ctx, actor, uploadRequest(data)); err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}

	_, err := f.engine.Upload(ctx, actor, uploadRequest(data))
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Upload() = %v, want ErrRateLimited", err)
	}
}

func TestDownload_RateLimited(t *testing.T) {
	limits := testLimits()
	limits.DownloadsPerWindow = 1
	f := newFixture(t, limits)
	f.catalog.matchErr = catalog.ErrNotFound

	actor := Actor{ID: "reader-1", Name: "Reader"}
	ctx := context.Background()

	if _, err := f.engine.Download(ctx, actor, "5f2b9c1e", ""); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Download() = %v, want ErrNotFound", err)
	}

	_, err := f.engine.Download(ctx, actor, "5f2b9c1e", "")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Download() = %v, want ErrRateLimited", err)
	}
}

func TestDownload_IntegrityMismatch(t *testing.T) {
	f := newFixture(t, testLimits())
	ctx := context.Background()

	stored := validPDF(t)
	f.blobs.Store(ctx, "documents/doc.pdf", stored)

	doc := &catalog.Document{
		ID:          uuid.New(),
		CourseCode:  "SYSC2006",
		StorageKey:  "documents/doc.pdf",
		ContentHash: integrity.Digest([]byte("different content")),
		Active:      true,
	}
	f.catalog.match = catalog.Match{Record: doc}

	_, err := f.engine.Download(ctx, Actor{ID: "reader-1", Name: "Reader"}, "5f2b9c1e", "")
	if !errors.Is(err, ErrIntegrityMismatch) {
		t.Fatalf("Download() = %v, want ErrIntegrityMismatch", err)
	}

	if len(f.audit.actions) != 1 || f.audit.actions[0].Action != audit.ActionIntegrityMismatch {
		t.Errorf("Security event not recorded, actions = %+v", f.audit.actions)
	}
}

func TestDownload_UnreadableBlob(t *testing.T) {
	f := newFixture(t, testLimits())

	doc := &catalog.Document{
		ID:         uuid.New(),
		StorageKey: "documents/gone.pdf",
		Active:     true,
	}
	f.catalog.match = catalog.Match{Record: doc}

	_, err := f.engine.Download(context.Background(), Actor{ID: "reader-1"}, "5f2b9c1e", "")
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("Download() = %v, want ErrUnreadable", err)
	}

	if len(f.audit.actions) != 1 || f.audit.actions[0].Action != audit.ActionUnreadableDocument {
		t.Errorf("Security event not recorded, actions = %+v", f.audit.actions)
	}
}

func TestDelete_RecordsAdminAction(t *testing.T) {
	f := newFixture(t, testLimits())

	doc := &catalog.Document{
		ID:           uuid.New(),
		CourseCode:   "SYSC2006",
		LectureLabel: "L05",
		Contributor:  "jamie_c",
		Active:       true,
	}
	f.catalog.match = catalog.Match{Record: doc}

	actor := Actor{ID: "admin-1", Name: "Admin"}
	deleted, err := f.engine.Delete(context.Background(), actor, "5f2b9c1e")
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if deleted.ID != doc.ID {
		t.Error("Delete() returned a different document")
	}

	if len(f.catalog.deleted) != 1 || f.catalog.deleted[0] != doc.ID {
		t.Errorf("SoftDelete() targets = %v, want [%s]", f.catalog.deleted, doc.ID)
	}

	if len(f.audit.actions) != 1 {
		t.Fatalf("Admin actions recorded = %d, want 1", len(f.audit.actions))
	}
	action := f.audit.actions[0]
	if action.Action != audit.ActionDeleteFile || action.ActorID != "admin-1" {
		t.Errorf("Admin action = %+v, want DELETE_FILE by admin-1", action)
	}
	if action.Detail != "Deleted SYSC2006-L05-jamie_c" {
		t.Errorf("Admin action detail = %q, want the document label", action.Detail)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrIntegrityMismatch, http.StatusConflict},
		{ErrUnreadable, http.StatusBadGateway},
		{ErrNotPDF, http.StatusBadRequest},
		{ErrTooLarge, http.StatusRequestEntityTooLarge},
		{catalog.ErrNotFound, http.StatusNotFound},
		{catalog.ErrAmbiguous, http.StatusConflict},
		{catalog.ErrQuotaExceeded, http.StatusForbidden},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		if got := MapHTTPStatus(c.err); got != c.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

// multiPagePDF builds a minimal n-page document for pipeline tests.
func multiPagePDF(t *testing.T, n int) []byte {
	t.Helper()

	var objects []string
	kids := make([]string, n)
	for i := 0; i < n; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i*2)
	}

	var kidList bytes.Buffer
	for i, k := range kids {
		if i > 0 {
			kidList.WriteByte(' ')
		}
		kidList.WriteString(k)
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kidList.String(), n),
	)

	for i := 0; i < n; i++ {
		content := fmt.Sprintf("BT (page %d) Tj ET", i+1)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R >>", 4+i*2),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)

	return buf.Bytes()
}

func activeDocument(t *testing.T, f *engineFixture, data []byte) *catalog.Document {
	t.Helper()

	doc := &catalog.Document{
		ID:               uuid.New(),
		OriginalFilename: "notes.pdf",
		CourseCode:       "SYSC2006",
		LectureLabel:     "L05",
		Contributor:      "jamie_c",
		OwnerID:          "owner-1",
		OwnerName:        "Jamie",
		StorageKey:       "documents/" + uuid.NewString() + ".pdf",
		ContentHash:      integrity.Digest(data),
		Active:           true,
	}
	if err := f.blobs.Store(context.Background(), doc.StorageKey, data); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	f.catalog.match = catalog.Match{Record: doc}
	return doc
}

func TestDownload_Success(t *testing.T) {
	f := newFixture(t, testLimits())
	source := multiPagePDF(t, 3)
	doc := activeDocument(t, f, source)

	actor := Actor{ID: "reader-1", Name: "Reader"}
	result, err := f.engine.Download(context.Background(), actor, "5f2b9c1e", "")
	if err != nil {
		t.Fatalf("Download() failed: %v", err)
	}

	if result.Filename != "SYSC2006-L05-jamie_c_watermarked.pdf" {
		t.Errorf("Filename = %q", result.Filename)
	}

	count, err := watermark.PageCount(result.Data)
	if err != nil {
		t.Fatalf("PageCount() on delivered copy failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Delivered page count = %d, want 3", count)
	}

	dims, err := watermark.PageDimensions(result.Data)
	if err != nil {
		t.Fatalf("PageDimensions() on delivered copy failed: %v", err)
	}
	for i, dim := range dims {
		if dim.Width != 612 || dim.Height != 792 {
			t.Errorf("Delivered page %d = %gx%g, want 612x792", i+1, dim.Width, dim.Height)
		}
	}

	if bytes.Equal(result.Data, source) {
		t.Error("Delivered copy is byte-identical to the source")
	}

	if len(f.catalog.downloads) != 1 || f.catalog.downloads[0] != doc.ID {
		t.Errorf("RecordDownload() targets = %v, want [%s]", f.catalog.downloads, doc.ID)
	}

	if len(f.audit.downloads) != 1 {
		t.Fatalf("Download events recorded = %d, want 1", len(f.audit.downloads))
	}
	event := f.audit.downloads[0]
	if event.DocumentID != doc.ID || event.DownloaderID != "reader-1" || event.DownloaderName != "Reader" {
		t.Errorf("Download event = %+v", event)
	}
	if event.Channel != "api" {
		t.Errorf("Event channel = %q, want api default", event.Channel)
	}
	if result.Event == nil || result.Event.ID != event.ID {
		t.Error("Result does not carry the recorded event")
	}
}

func TestDownload_FailedTransactionReturnsNothing(t *testing.T) {
	f := newFixture(t, testLimits())
	activeDocument(t, f, multiPagePDF(t, 2))

	f.engine.runTx = func(ctx context.Context, fn func(tx *sql.Tx) error) error {
		return errors.New("connection reset")
	}

	if _, err := f.engine.Download(context.Background(), Actor{ID: "reader-1"}, "5f2b9c1e", ""); err == nil {
		t.Error("Download() succeeded although the download could not be recorded")
	}
}

func TestDownload_ConcurrentCounts(t *testing.T) {
	f := newFixture(t, testLimits())
	doc := activeDocument(t, f, multiPagePDF(t, 1))

	const readers = 5
	var wg sync.WaitGroup
	errs := make(chan error, readers)

	for i := 0; i < readers; i++ {
		actor := Actor{ID: fmt.Sprintf("reader-%d", i), Name: fmt.Sprintf("Reader %d", i)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Download(context.Background(), actor, "5f2b9c1e", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Download() failed: %v", err)
		}
	}

	if len(f.catalog.downloads) != readers {
		t.Errorf("RecordDownload() calls = %d, want %d", len(f.catalog.downloads), readers)
	}
	if len(f.audit.downloads) != readers {
		t.Errorf("Download events = %d, want %d", len(f.audit.downloads), readers)
	}
	for _, id := range f.catalog.downloads {
		if id != doc.ID {
			t.Errorf("RecordDownload() target = %s, want %s", id, doc.ID)
		}
	}
}

func TestUpload_InvalidTagsPreserveQuota(t *testing.T) {
	limits := testLimits()
	limits.UploadsPerWindow = 1
	f := newFixture(t, limits)

	data := validPDF(t)
	actor := Actor{ID: "owner-1", Name: "Jamie"}
	ctx := context.Background()

	bad := uploadRequest(data)
	bad.CourseCode = "not-a-course"
	if _, err := f.engine.Upload(ctx, actor, bad); !errors.Is(err, catalog.ErrValidation) {
		t.Fatalf("Upload() = %v, want ErrValidation", err)
	}
	if len(f.catalog.registered) != 0 {
		t.Fatal("Register() called for invalid tags")
	}

	// The rejected upload must not have consumed the only rate slot.
	if _, err := f.engine.Upload(ctx, actor, uploadRequest(data)); err != nil {
		t.Errorf("Upload() after rejected request failed: %v", err)
	}
}
