// Package watermark renders per-download overlay pages and composites
// them onto every page of a source document. Overlay rendering is a
// pure function of its inputs; compositing preserves page order,
// count, and dimensions.
package watermark

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Mark carries everything stamped onto a downloaded document. The
// timestamp is captured once at construction so every page of one
// download renders identically.
type Mark struct {
	// Text is the downloader label tiled across each page.
	Text string

	// DownloadID ties the copy back to a specific download event.
	// Empty means the forensic annotations are omitted.
	DownloadID string

	// Timestamp is the render time shown in the corner block.
	Timestamp time.Time
}

// NewMark creates a Mark for the given downloader label and download
// identifier, capturing the current time.
func NewMark(text, downloadID string) Mark {
	return Mark{
		Text:       text,
		DownloadID: downloadID,
		Timestamp:  time.Now().UTC(),
	}
}

// ShortID returns the first eight characters of the download
// identifier for the visible corner annotation.
func (m Mark) ShortID() string {
	if len(m.DownloadID) <= 8 {
		return m.DownloadID
	}
	return m.DownloadID[:8]
}

// ForensicToken derives the low-visibility tamper-tracing token from
// the download identifier. Empty when no identifier is present.
func (m Mark) ForensicToken() string {
	if m.DownloadID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(m.DownloadID))
	return hex.EncodeToString(sum[:])[:8]
}
