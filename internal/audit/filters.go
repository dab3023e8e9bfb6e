package audit

import "net/url"

// Filters narrows the download log query.
type Filters struct {
	DocumentPrefix *string
	DownloaderID   *string
}

// FiltersFromQuery extracts log filters from URL query values.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("document"); v != "" {
		f.DocumentPrefix = &v
	}
	if v := values.Get("downloader"); v != "" {
		f.DownloaderID = &v
	}
	return f
}
