package ao3

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/thalida/ao3-sync/pkg/logger"
)

// PageParser extracts structured records from archive markup. The sync engine
// consumes this interface; Parser is the production implementation.
type PageParser interface {
	// BookmarksPage parses one bookmark listing page into ordered rows,
	// newest bookmark first. Rows missing required fields are skipped.
	BookmarksPage(body []byte) (*BookmarkPage, error)

	// PageCount reads the total page count from the pagination control of a
	// bookmark listing page. A listing short enough to have no pagination
	// control counts as zero pages.
	PageCount(body []byte) (int, error)

	// DownloadLinks extracts the download link paths from a work detail page,
	// one per offered format.
	DownloadLinks(body []byte) ([]string, error)

	// SeriesWorkIDs extracts the ordered member work ids from a series
	// listing page.
	SeriesWorkIDs(body []byte) ([]string, error)
}

// Parser implements PageParser against the archive's HTML
type Parser struct {
	logger logger.Logger
}

// NewParser creates a Parser
func NewParser(log logger.Logger) *Parser {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Parser{logger: log}
}

// BookmarksPage parses one bookmark listing page
func (p *Parser) BookmarksPage(body []byte) (*BookmarkPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks page: %w", err)
	}

	page := &BookmarkPage{
		HasNextPage: doc.Find("ol.pagination li.next a").Length() > 0,
	}

	doc.Find("ol.bookmark > li").Each(func(idx int, row *goquery.Selection) {
		bookmarkID, ok := row.Attr("id")
		if !ok || bookmarkID == "" {
			p.logger.WarnWithFields("skipping bookmark row with no id", map[string]interface{}{
				"row": idx + 1,
			})
			return
		}

		titleLink := row.Find("h4.heading a:not([rel])").First()
		itemHref, ok := titleLink.Attr("href")
		if !ok || itemHref == "" {
			p.logger.WarnWithFields("skipping bookmark row with no item link", map[string]interface{}{
				"row":         idx + 1,
				"bookmark_id": bookmarkID,
			})
			return
		}

		item, err := parseItemHref(itemHref, strings.TrimSpace(titleLink.Text()))
		if err != nil {
			p.logger.WarnWithFields("skipping bookmark row with unrecognized item link", map[string]interface{}{
				"row":         idx + 1,
				"bookmark_id": bookmarkID,
				"href":        itemHref,
			})
			return
		}

		page.Bookmarks = append(page.Bookmarks, Bookmark{ID: bookmarkID, Item: item})
	})

	return page, nil
}

// parseItemHref resolves an item link like /works/123 or /series/456
func parseItemHref(href, title string) (Item, error) {
	parts := strings.Split(strings.TrimPrefix(href, "/"), "/")
	if len(parts) < 2 || parts[1] == "" {
		return Item{}, fmt.Errorf("malformed item href: %q", href)
	}

	var itemType ItemType
	switch "/" + parts[0] {
	case WorksPath:
		itemType = ItemTypeWork
	case SeriesPath:
		itemType = ItemTypeSeries
	default:
		return Item{}, fmt.Errorf("unknown item type in href: %q", href)
	}

	return Item{Type: itemType, ID: parts[1], Title: title}, nil
}

// PageCount reads the total page count from the pagination control
func (p *Parser) PageCount(body []byte) (int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to parse bookmarks page: %w", err)
	}

	cells := doc.Find("ol.pagination li")

	// The control renders previous/next arrows around the page numbers, so
	// anything shorter than three cells means a single unpaginated listing.
	if cells.Length() < 3 {
		return 0, nil
	}

	lastPage := strings.TrimSpace(cells.Eq(cells.Length() - 2).Text())
	count, err := strconv.Atoi(lastPage)
	if err != nil {
		return 0, fmt.Errorf("unparseable page count %q: %w", lastPage, err)
	}

	return count, nil
}

// DownloadLinks extracts download link paths from a work detail page
func (p *Parser) DownloadLinks(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse work page: %w", err)
	}

	var links []string
	doc.Find("#main ul.work.navigation li.download ul li a").Each(func(_ int, link *goquery.Selection) {
		if href, ok := link.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})

	return links, nil
}

// SeriesWorkIDs extracts the ordered member work ids from a series page
func (p *Parser) SeriesWorkIDs(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse series page: %w", err)
	}

	var ids []string
	seen := make(map[string]bool)
	doc.Find("ul.series h4.heading a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !strings.HasPrefix(href, WorksPath+"/") {
			return
		}
		id := strings.SplitN(strings.TrimPrefix(href, WorksPath+"/"), "/", 2)[0]
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	})

	return ids, nil
}

// authenticityToken extracts the one-time anti-forgery token from a login form page
func authenticityToken(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse login page: %w", err)
	}

	token, ok := doc.Find("input[name='authenticity_token']").First().Attr("value")
	if !ok || token == "" {
		return "", fmt.Errorf("login page has no authenticity token")
	}

	return token, nil
}
