package distribution

import (
	"fmt"
	"strings"
)

// sanitizeTag strips everything but letters, digits, hyphens, and
// underscores, then truncates to max runes. Empty results collapse to
// "x" so the assembled filename never has a hollow segment.
func sanitizeTag(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= max {
			break
		}
	}
	if b.Len() == 0 {
		return "x"
	}
	return b.String()
}

// downloadFilename assembles the attachment name for a watermarked
// copy from the document's classification tags.
func downloadFilename(courseCode, lectureLabel, contributor string) string {
	return fmt.Sprintf("%s-%s-%s_watermarked.pdf",
		sanitizeTag(courseCode, 20),
		sanitizeTag(lectureLabel, 10),
		sanitizeTag(contributor, 20))
}
