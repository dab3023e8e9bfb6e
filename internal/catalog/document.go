// Package catalog is the authoritative metadata store for distributed
// documents: one record per upload, its lifecycle state, and derived
// download counters. Records are soft-deleted only; the audit trail
// stays intact.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a stored document with classification metadata
// and lifecycle state.
type Document struct {
	ID               uuid.UUID  `json:"id"`
	OriginalFilename string     `json:"original_filename"`
	CourseCode       string     `json:"course_code"`
	LectureLabel     string     `json:"lecture_label"`
	Contributor      string     `json:"contributor"`
	OwnerID          string     `json:"owner_id"`
	OwnerName        string     `json:"owner_name"`
	CreatedAt        time.Time  `json:"created_at"`
	SizeBytes        int64      `json:"size_bytes"`
	StorageKey       string     `json:"storage_key"`
	ContentHash      string     `json:"content_hash,omitempty"`
	Active           bool       `json:"active"`
	DownloadCount    int        `json:"download_count"`
	LastDownloaded   *time.Time `json:"last_downloaded,omitempty"`
}

// Label returns the human-facing classification label.
func (d *Document) Label() string {
	return d.CourseCode + "-" + d.LectureLabel + "-" + d.Contributor
}

// CreateCommand contains the data required to register a document.
// Data holds the raw file bytes; Hash is the content digest computed
// over Data before registration.
type CreateCommand struct {
	OriginalFilename string
	CourseCode       string
	LectureLabel     string
	Contributor      string
	OwnerID          string
	OwnerName        string
	Hash             string
	Data             []byte
}

// DownloadCounters carries the post-increment download state of a
// record.
type DownloadCounters struct {
	Downloads      int       `json:"downloads"`
	LastDownloaded time.Time `json:"last_downloaded"`
}

// OwnerCount pairs an owner with their active document count.
type OwnerCount struct {
	OwnerName string `json:"owner_name"`
	Documents int    `json:"documents"`
}

// DocumentCount pairs a document label with its download count.
type DocumentCount struct {
	Label     string `json:"label"`
	Downloads int    `json:"downloads"`
}

// Stats aggregates catalog counters for the admin surface.
type Stats struct {
	ActiveDocuments  int             `json:"active_documents"`
	DeletedDocuments int             `json:"deleted_documents"`
	TotalDownloads   int             `json:"total_downloads"`
	TopOwners        []OwnerCount    `json:"top_owners"`
	TopDocuments     []DocumentCount `json:"top_documents"`
}
