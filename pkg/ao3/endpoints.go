package ao3

import "fmt"

const (
	// BaseURL is the base URL for the archive
	BaseURL = "https://archiveofourown.org"

	// LoginPath serves the login form and accepts the login POST
	LoginPath = "/users/login"

	// BookmarksPath is the paginated bookmark listing
	BookmarksPath = "/bookmarks"

	// WorksPath prefixes work detail pages
	WorksPath = "/works"

	// SeriesPath prefixes series listing pages
	SeriesPath = "/series"

	// loginErrorMarker appears in the login response body when credentials are
	// rejected. The archive returns 200 on both success and failure, so the
	// marker's absence is the only success signal.
	loginErrorMarker = "auth_error"
)

// WorkPath returns the detail page path for a work
func WorkPath(workID string) string {
	return fmt.Sprintf("%s/%s", WorksPath, workID)
}

// SeriesPagePath returns the listing page path for a series
func SeriesPagePath(seriesID string) string {
	return fmt.Sprintf("%s/%s", SeriesPath, seriesID)
}
