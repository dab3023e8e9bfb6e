package watermark_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/notevault/notevault/internal/config"
	"github.com/notevault/notevault/internal/watermark"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() config.WatermarkConfig {
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

func fixedMark() watermark.Mark {
	return watermark.Mark{
		Text:       "Jamie Chen",
		DownloadID: "5f2b9c1e-0000-0000-0000-000000000000",
		Timestamp:  time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderOverlay_Deterministic(t *testing.T) {
	m := watermark.NewMarker(testConfig(), testLogger())
	mark := fixedMark()

	first, err := m.RenderOverlay(mark, 612, 792)
	if err != nil {
		t.Fatalf("RenderOverlay() failed: %v", err)
	}
	second, err := m.RenderOverlay(mark, 612, 792)
	if err != nil {
		t.Fatalf("RenderOverlay() failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("RenderOverlay() output differs for identical inputs")
	}
}

func TestRenderOverlay_ValidPDF(t *testing.T) {
	m := watermark.NewMarker(testConfig(), testLogger())

	overlay, err := m.RenderOverlay(fixedMark(), 612, 792)
	if err != nil {
		t.Fatalf("RenderOverlay() failed: %v", err)
	}

	count, err := watermark.PageCount(overlay)
	if err != nil {
		t.Fatalf("PageCount() on overlay failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Overlay page count = %d, want 1", count)
	}

	dims, err := watermark.PageDimensions(overlay)
	if err != nil {
		t.Fatalf("PageDimensions() on overlay failed: %v", err)
	}
	if dims[0].Width != 612 || dims[0].Height != 792 {
		t.Errorf("Overlay dimensions = %gx%g, want 612x792", dims[0].Width, dims[0].Height)
	}
}

func TestRenderOverlay_ContainsMarkElements(t *testing.T) {
	m := watermark.NewMarker(testConfig(), testLogger())
	mark := fixedMark()

	overlay, err := m.RenderOverlay(mark, 612, 792)
	if err != nil {
		t.Fatalf("RenderOverlay() failed: %v", err)
	}

	for _, want := range []string{
		"(Jamie Chen)",
		"(Jamie Chen - 20260824)",
		"(Downloaded: Jamie Chen)",
		"(Downloaded by: Jamie Chen)",
		"(Date: 2026-08-24 12:00:00)",
		"(ID: " + mark.ShortID() + ")",
		"(SEC:" + mark.ForensicToken() + ")",
	} {
		if !bytes.Contains(overlay, []byte(want)) {
			t.Errorf("Overlay missing element %q", want)
		}
	}
}

func TestRenderOverlay_NoForensicWithoutDownloadID(t *testing.T) {
	m := watermark.NewMarker(testConfig(), testLogger())
	mark := fixedMark()
	mark.DownloadID = ""

	overlay, err := m.RenderOverlay(mark, 612, 792)
	if err != nil {
		t.Fatalf("RenderOverlay() failed: %v", err)
	}

	if bytes.Contains(overlay, []byte("(SEC:")) {
		t.Error("Overlay contains forensic token without a download id")
	}
	if bytes.Contains(overlay, []byte("(ID:")) {
		t.Error("Overlay contains id annotation without a download id")
	}
}

func TestRenderOverlay_NarrowPageSkipsIDAnnotation(t *testing.T) {
	m := watermark.NewMarker(testConfig(), testLogger())

	overlay, err := m.RenderOverlay(fixedMark(), 180, 400)
	if err != nil {
		t.Fatalf("RenderOverlay() failed: %v", err)
	}

	if bytes.Contains(overlay, []byte("(ID:")) {
		t.Error("Narrow page carries the top-right id annotation")
	}
}

func TestRenderOverlay_InvalidDimensions(t *testing.T) {
	m := watermark.NewMarker(testConfig(), testLogger())

	for _, dims := range [][2]float64{{0, 792}, {612, 0}, {-1, 792}} {
		_, err := m.RenderOverlay(fixedMark(), dims[0], dims[1])
		if !errors.Is(err, watermark.ErrRender) {
			t.Errorf("RenderOverlay(%g, %g) = %v, want ErrRender", dims[0], dims[1], err)
		}
	}
}

func TestMark_ForensicToken(t *testing.T) {
	mark := fixedMark()

	token := mark.ForensicToken()
	if len(token) != 8 {
		t.Errorf("ForensicToken() length = %d, want 8", len(token))
	}
	if token != mark.ForensicToken() {
		t.Error("ForensicToken() not stable")
	}

	mark.DownloadID = ""
	if mark.ForensicToken() != "" {
		t.Error("ForensicToken() non-empty without a download id")
	}
}

func TestMark_ShortID(t *testing.T) {
	mark := fixedMark()
	if got := mark.ShortID(); got != "5f2b9c1e" {
		t.Errorf("ShortID() = %q, want first 8 chars", got)
	}

	mark.DownloadID = "abc"
	if got := mark.ShortID(); got != "abc" {
		t.Errorf("ShortID() = %q for short id, want unchanged", got)
	}
}
