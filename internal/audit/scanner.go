package audit

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/notevault/notevault/pkg/repository"
)

func scanDownloadEvent(s repository.Scanner) (DownloadEvent, error) {
	var (
		ev      DownloadEvent
		channel sql.NullString
	)

	err := s.Scan(
		&ev.ID,
		&ev.DocumentID,
		&ev.DownloaderID,
		&ev.DownloaderName,
		&channel,
		&ev.CreatedAt,
	)
	if err != nil {
		return ev, err
	}

	if channel.Valid {
		ev.Channel = channel.String
	}
	return ev, nil
}

func scanDownloadEntry(s repository.Scanner) (DownloadEntry, error) {
	var (
		e       DownloadEntry
		channel sql.NullString
	)

	err := s.Scan(
		&e.ID,
		&e.DocumentID,
		&e.DownloaderID,
		&e.DownloaderName,
		&channel,
		&e.CreatedAt,
		&e.CourseCode,
		&e.LectureLabel,
		&e.Contributor,
		&e.OriginalFilename,
	)
	if err != nil {
		return e, err
	}

	if channel.Valid {
		e.Channel = channel.String
	}
	return e, nil
}

func scanAdminAction(s repository.Scanner) (AdminAction, error) {
	var (
		a      AdminAction
		docID  sql.NullString
		detail sql.NullString
	)

	err := s.Scan(
		&a.ID,
		&a.Action,
		&a.ActorID,
		&a.ActorName,
		&docID,
		&detail,
		&a.CreatedAt,
	)
	if err != nil {
		return a, err
	}

	if docID.Valid {
		if id, parseErr := uuid.Parse(docID.String); parseErr == nil {
			a.DocumentID = &id
		}
	}
	if detail.Valid {
		a.Detail = detail.String
	}
	return a, nil
}
