package audit

import (
	"time"

	"github.com/google/uuid"
)

// Admin action kinds recorded in the trail.
const (
	ActionDeleteFile         = "DELETE_FILE"
	ActionIntegrityMismatch  = "INTEGRITY_MISMATCH"
	ActionUnreadableDocument = "UNREADABLE_DOCUMENT"
)

// DownloadEvent is one fulfilled download, keyed to the document it
// served and the identity it was watermarked for.
type DownloadEvent struct {
	ID             int64     `json:"id"`
	DocumentID     uuid.UUID `json:"document_id"`
	DownloaderID   string    `json:"downloader_id"`
	DownloaderName string    `json:"downloader_name"`
	Channel        string    `json:"channel,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// DownloadEntry is a download event joined with catalog context for
// the admin log surface.
type DownloadEntry struct {
	DownloadEvent
	CourseCode       string `json:"course_code"`
	LectureLabel     string `json:"lecture_label"`
	Contributor      string `json:"contributor"`
	OriginalFilename string `json:"original_filename"`
}

// AdminAction is one administrative or security event.
type AdminAction struct {
	ID         int64      `json:"id"`
	Action     string     `json:"action"`
	ActorID    string     `json:"actor_id"`
	ActorName  string     `json:"actor_name"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
