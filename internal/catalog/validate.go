package catalog

import (
	"fmt"
	"regexp"
)

// Classification tag formats. Course codes follow the institutional
// pattern (3-4 letters + 4 digits); lecture and contributor labels
// are short filename-safe tokens.
var (
	courseCodePattern   = regexp.MustCompile(`^[A-Z]{3,4}[0-9]{4}$`)
	lectureLabelPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,10}$`)
	contributorPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,30}$`)
	prefixPattern       = regexp.MustCompile(`^[a-f0-9-]{4,36}$`)
)

// Validate checks the classification tags and file content of a
// create command. All failures wrap ErrValidation.
func (c CreateCommand) Validate() error {
	if !courseCodePattern.MatchString(c.CourseCode) {
		return fmt.Errorf("%w: course code must look like SYSC2006 (3-4 letters + 4 digits)", ErrValidation)
	}
	if !lectureLabelPattern.MatchString(c.LectureLabel) {
		return fmt.Errorf("%w: lecture label may only contain letters, numbers, hyphens, and underscores (max 10 chars)", ErrValidation)
	}
	if !contributorPattern.MatchString(c.Contributor) {
		return fmt.Errorf("%w: contributor may only contain letters, numbers, hyphens, and underscores (max 30 chars)", ErrValidation)
	}
	if len(c.Data) == 0 {
		return fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if c.OwnerID == "" {
		return fmt.Errorf("%w: owner identity required", ErrValidation)
	}
	return nil
}

// ValidatePrefix checks an identifier prefix before it reaches the
// database: lowercase hex and hyphens, at least 4 characters.
func ValidatePrefix(prefix string) error {
	if !prefixPattern.MatchString(prefix) {
		return fmt.Errorf("%w: identifier prefix must be 4-36 characters of lowercase hex and hyphens", ErrValidation)
	}
	return nil
}
