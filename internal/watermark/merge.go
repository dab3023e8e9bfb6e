package watermark

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/notevault/notevault/internal/config"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// overlayStampDesc composites the overlay page 1:1 onto its target
// page: centered, unscaled, unrotated, fully opaque (the overlay
// carries its own transparency).
const overlayStampDesc = "pos:c, scale:1 abs, rot:0, op:1"

// Marker renders overlays and composites them onto source documents.
type Marker struct {
	cfg    config.WatermarkConfig
	logger *slog.Logger
}

// NewMarker creates a Marker with the given overlay settings.
func NewMarker(cfg config.WatermarkConfig, logger *slog.Logger) *Marker {
	return &Marker{
		cfg:    cfg,
		logger: logger.With("system", "watermark"),
	}
}

// PageDimensions reads the per-page media box dimensions of a PDF,
// in points, in page order.
func PageDimensions(source []byte) ([]types.Dim, error) {
	dims, err := api.PageDims(bytes.NewReader(source), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: read page geometry: %v", ErrRender, err)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrRender)
	}
	return dims, nil
}

// PageCount reports the number of pages in a PDF.
func PageCount(source []byte) (int, error) {
	return api.PageCount(bytes.NewReader(source), model.NewDefaultConfiguration())
}

// Apply composites a per-page overlay onto every page of source, in
// original order, preserving page count and dimensions. The operation
// is all-or-nothing: any page that cannot be parsed or composited
// fails the whole call with ErrRender and no output.
func (m *Marker) Apply(ctx context.Context, source []byte, mark Mark) ([]byte, error) {
	dims, err := PageDimensions(source)
	if err != nil {
		return nil, err
	}

	// Overlays land on disk because pdfcpu resolves PDF stamps by
	// file name; the directory is removed whatever the outcome.
	tmpDir, err := os.MkdirTemp("", "overlay-")
	if err != nil {
		return nil, fmt.Errorf("create overlay dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	stamps := make(map[int]*model.Watermark, len(dims))
	for i, dim := range dims {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		overlay, err := m.RenderOverlay(mark, dim.Width, dim.Height)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		path := filepath.Join(tmpDir, fmt.Sprintf("page-%d.pdf", i+1))
		if err := os.WriteFile(path, overlay, 0600); err != nil {
			return nil, fmt.Errorf("write overlay for page %d: %w", i+1, err)
		}

		stamp, err := api.PDFWatermark(path, overlayStampDesc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("%w: prepare stamp for page %d: %v", ErrRender, i+1, err)
		}
		stamps[i+1] = stamp
	}

	var out bytes.Buffer
	if err := api.AddWatermarksMap(bytes.NewReader(source), &out, stamps, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("%w: composite overlays: %v", ErrRender, err)
	}

	// Geometry invariant check on the result before anyone sees it.
	count, err := PageCount(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: verify output: %v", ErrRender, err)
	}
	if count != len(dims) {
		return nil, fmt.Errorf("%w: page count changed from %d to %d", ErrRender, len(dims), count)
	}

	m.logger.Debug("watermark applied", "pages", len(dims), "mark", mark.Text)
	return out.Bytes(), nil
}
