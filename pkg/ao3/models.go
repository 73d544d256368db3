package ao3

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// ItemType distinguishes bookmark targets: a single work or a series of works.
type ItemType string

const (
	ItemTypeWork   ItemType = "work"
	ItemTypeSeries ItemType = "series"
)

// Item is a bookmark target. Identity is (Type, ID).
type Item struct {
	Type  ItemType
	ID    string
	Title string
}

// Bookmark is one row in the user's bookmark feed. The ID is stable and
// monotonically ordered in feed order: newer bookmarks sort after older ones.
type Bookmark struct {
	ID   string
	Item Item
}

// Format is an AO3 download format
type Format string

const (
	FormatHTML Format = "html"
	FormatEPUB Format = "epub"
	FormatMOBI Format = "mobi"
	FormatPDF  Format = "pdf"
	FormatAZW3 Format = "azw3"
)

// knownFormats lists every format AO3 offers
var knownFormats = map[Format]bool{
	FormatHTML: true,
	FormatEPUB: true,
	FormatMOBI: true,
	FormatPDF:  true,
	FormatAZW3: true,
}

// FormatFilter selects which download formats to fetch for an item: either
// every format the item offers, or an explicit set. The filter is resolved
// once at the API boundary; downstream code only calls Matches.
type FormatFilter struct {
	all     bool
	formats map[Format]bool
}

// AllFormats returns a filter that keeps every available download link.
func AllFormats() FormatFilter {
	return FormatFilter{all: true}
}

// Formats returns a filter that keeps only the given formats.
func Formats(formats ...Format) FormatFilter {
	set := make(map[Format]bool, len(formats))
	for _, f := range formats {
		set[f] = true
	}
	return FormatFilter{formats: set}
}

// ParseFormats builds a FormatFilter from user-supplied format names.
// The name "all" anywhere in the list selects every format.
func ParseFormats(names []string) (FormatFilter, error) {
	if len(names) == 0 {
		return AllFormats(), nil
	}

	set := make(map[Format]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "all" {
			return AllFormats(), nil
		}
		f := Format(name)
		if !knownFormats[f] {
			return FormatFilter{}, fmt.Errorf("unknown download format: %q", name)
		}
		set[f] = true
	}

	return FormatFilter{formats: set}, nil
}

// All reports whether the filter is the wildcard.
func (f FormatFilter) All() bool {
	return f.all
}

// Matches reports whether a file extension (with or without the leading dot)
// is selected by the filter.
func (f FormatFilter) Matches(ext string) bool {
	if f.all {
		return true
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return f.formats[Format(ext)]
}

// MatchesLink reports whether a download link's filename extension is
// selected. The link's query string is ignored.
func (f FormatFilter) MatchesLink(link string) bool {
	if parsed, err := url.Parse(link); err == nil {
		link = parsed.Path
	}
	return f.Matches(path.Ext(path.Base(link)))
}

func (f FormatFilter) String() string {
	if f.all {
		return "all"
	}
	names := make([]string, 0, len(f.formats))
	for format := range f.formats {
		names = append(names, string(format))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// BookmarkPage is the parsed content of one bookmark listing page.
// Rows are ordered newest-bookmark-first, as served by the feed.
type BookmarkPage struct {
	Bookmarks []Bookmark
	// HasNextPage reports whether the listing offered a next link. It is
	// informational; page traversal bounds come from Parser.PageCount.
	HasNextPage bool
}
