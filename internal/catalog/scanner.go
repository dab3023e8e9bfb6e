package catalog

import (
	"database/sql"

	"github.com/notevault/notevault/pkg/repository"
)

func scanDocument(s repository.Scanner) (Document, error) {
	var (
		d    Document
		hash sql.NullString
		last sql.NullTime
	)

	err := s.Scan(
		&d.ID,
		&d.OriginalFilename,
		&d.CourseCode,
		&d.LectureLabel,
		&d.Contributor,
		&d.OwnerID,
		&d.OwnerName,
		&d.CreatedAt,
		&d.SizeBytes,
		&d.StorageKey,
		&hash,
		&d.Active,
		&d.DownloadCount,
		&last,
	)
	if err != nil {
		return d, err
	}

	if hash.Valid {
		d.ContentHash = hash.String
	}
	if last.Valid {
		t := last.Time
		d.LastDownloaded = &t
	}
	return d, nil
}
