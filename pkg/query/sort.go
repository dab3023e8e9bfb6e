package query

import "strings"

// SortField identifies a logical field and sort direction.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// ParseSortFields parses a comma-separated sort expression where a
// leading "-" marks a descending field, e.g. "CourseCode,-CreatedAt".
func ParseSortFields(expr string) []SortField {
	if expr == "" {
		return nil
	}

	var fields []SortField
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		desc := strings.HasPrefix(part, "-")
		fields = append(fields, SortField{
			Field:      strings.TrimPrefix(part, "-"),
			Descending: desc,
		})
	}
	return fields
}
