package catalog

import (
	"net/url"

	"github.com/notevault/notevault/pkg/query"
)

// Filters contains optional criteria for browsing the catalog.
type Filters struct {
	CourseCode  *string
	Contributor *string
	OwnerID     *string
}

// FiltersFromQuery extracts catalog filters from URL query values.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("course_code"); v != "" {
		f.CourseCode = &v
	}
	if v := values.Get("contributor"); v != "" {
		f.Contributor = &v
	}
	if v := values.Get("owner_id"); v != "" {
		f.OwnerID = &v
	}
	return f
}

// Apply adds filter conditions to the query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.WhereContains("CourseCode", f.CourseCode).
		WhereContains("Contributor", f.Contributor)

	if f.OwnerID != nil {
		b.WhereEquals("OwnerId", *f.OwnerID)
	}
	return b
}
