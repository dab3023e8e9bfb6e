package catalog

import "github.com/notevault/notevault/pkg/query"

var projection = query.NewProjectionMap("public", "documents", "d").
	Project("id", "Id").
	Project("original_filename", "OriginalFilename").
	Project("course_code", "CourseCode").
	Project("lecture_label", "LectureLabel").
	Project("contributor", "Contributor").
	Project("owner_id", "OwnerId").
	Project("owner_name", "OwnerName").
	Project("created_at", "CreatedAt").
	Project("size_bytes", "SizeBytes").
	Project("storage_key", "StorageKey").
	Project("content_hash", "ContentHash").
	Project("is_active", "Active").
	Project("download_count", "DownloadCount").
	Project("last_downloaded", "LastDownloaded")

// Browse order: course, then lecture, then most recent first.
var defaultSort = []query.SortField{
	{Field: "CourseCode"},
	{Field: "LectureLabel"},
	{Field: "CreatedAt", Descending: true},
}
