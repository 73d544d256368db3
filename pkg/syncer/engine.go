package syncer

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/thalida/ao3-sync/pkg/ao3"
	"github.com/thalida/ao3-sync/pkg/checkpoint"
	"github.com/thalida/ao3-sync/pkg/logger"
)

// Options configures one sync run
type Options struct {
	// StartPage is the first listing page to scan (1-based)
	StartPage int
	// EndPage is the last listing page to scan; zero means the last page
	EndPage int
	// SortColumn orders the bookmark listing; the checkpoint stop rule
	// assumes the default newest-first creation order
	SortColumn string
	// Formats selects which download formats to fetch per item
	Formats ao3.FormatFilter
	// ForceUpdate ignores the checkpoint and rescans everything
	ForceUpdate bool
}

// DefaultSortColumn is the listing order the checkpoint contract relies on
const DefaultSortColumn = "created_at"

// Result summarizes one sync run
type Result struct {
	// TotalPages is the page count reported by the pagination probe
	TotalPages int
	// Discovered holds the dispatched bookmarks, oldest first
	Discovered []ao3.Bookmark
	// Synced counts bookmarks whose assets all completed
	Synced int
	// Failed counts bookmarks with at least one failed asset
	Failed int
	// StoppedAtCheckpoint is true when the scan short-circuited on the
	// previously recorded bookmark id
	StoppedAtCheckpoint bool
}

// Progress receives sync lifecycle events for console display
type Progress interface {
	PagesFound(total int)
	PageScanned(page int, found int)
	ItemStarted(b ao3.Bookmark)
	ItemFinished(b ao3.Bookmark, complete bool)
}

type nopProgress struct{}

func (nopProgress) PagesFound(int)                  {}
func (nopProgress) PageScanned(int, int)            {}
func (nopProgress) ItemStarted(ao3.Bookmark)        {}
func (nopProgress) ItemFinished(ao3.Bookmark, bool) {}

// Engine orchestrates an incremental bookmark sync: paginate newest-first,
// stop at the recorded checkpoint, reorder oldest-first, download per item,
// and advance the checkpoint after each completed item.
type Engine struct {
	fetcher     ao3.Fetcher
	parser      ao3.PageParser
	checkpoints *checkpoint.Store
	downloader  *Downloader
	username    string
	logger      logger.Logger
	progress    Progress
}

// New creates a sync engine. username fills the listing's user_id parameter.
func New(fetcher ao3.Fetcher, parser ao3.PageParser, store *checkpoint.Store, downloader *Downloader, username string, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Engine{
		fetcher:     fetcher,
		parser:      parser,
		checkpoints: store,
		downloader:  downloader,
		username:    username,
		logger:      log,
		progress:    nopProgress{},
	}
}

// SetProgress installs a progress reporter
func (e *Engine) SetProgress(p Progress) {
	if p != nil {
		e.progress = p
	}
}

// Sync runs one full incremental sync
func (e *Engine) Sync(opts Options) (*Result, error) {
	if opts.StartPage < 1 {
		return nil, ao3.NewPreconditionError(fmt.Sprintf("start page must be at least 1, got %d", opts.StartPage))
	}
	if opts.SortColumn == "" {
		opts.SortColumn = DefaultSortColumn
	}

	cp, err := e.checkpoints.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	bookmarks, result, err := e.scanPages(opts, cp)
	if err != nil {
		return nil, err
	}

	// Rows were collected newest to oldest. Dispatch runs oldest to newest
	// so each checkpoint advance keeps the "everything at or before this id
	// is synced" boundary contiguous; the next run's stop rule depends on it.
	reverse(bookmarks)
	result.Discovered = bookmarks

	if err := e.download(bookmarks, opts.Formats, cp, result); err != nil {
		return result, err
	}

	e.logger.InfoWithFields("sync finished", map[string]interface{}{
		"discovered": len(result.Discovered),
		"synced":     result.Synced,
		"failed":     result.Failed,
	})

	return result, nil
}

// scanPages walks the listing newest-first, applying the checkpoint stop rule.
// Any fetch or parse failure aborts the run: an incompletely scanned page
// must not be treated as seen.
func (e *Engine) scanPages(opts Options, cp *checkpoint.Checkpoint) ([]ao3.Bookmark, *Result, error) {
	totalPages, err := e.fetchPageCount(opts.SortColumn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to probe page count: %w", err)
	}

	result := &Result{TotalPages: totalPages}
	e.progress.PagesFound(totalPages)

	e.logger.InfoWithFields("bookmark pages found", map[string]interface{}{
		"total_pages": totalPages,
	})

	if totalPages == 0 || opts.StartPage > totalPages {
		return nil, result, nil
	}

	endPage := opts.EndPage
	if endPage == 0 || endPage > totalPages {
		endPage = totalPages
	}

	var bookmarks []ao3.Bookmark
	for page := opts.StartPage; page <= endPage; page++ {
		body, err := e.fetchListing(page, opts.SortColumn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch bookmarks page %d: %w", page, err)
		}

		parsed, err := e.parser.BookmarksPage(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse bookmarks page %d: %w", page, err)
		}

		retained := 0
		for _, b := range parsed.Bookmarks {
			// The feed is ordered newest-first, so reaching the recorded id
			// means this row and everything after it is already synced.
			// Stopping here is what makes the sync incremental.
			if !opts.ForceUpdate && !cp.IsEmpty() && b.ID == cp.LastSyncedBookmarkID {
				e.logger.DebugWithFields("reached checkpoint, stopping scan", map[string]interface{}{
					"page":        page,
					"bookmark_id": b.ID,
				})
				result.StoppedAtCheckpoint = true
				break
			}
			bookmarks = append(bookmarks, b)
			retained++
		}

		e.progress.PageScanned(page, retained)

		if result.StoppedAtCheckpoint {
			break
		}
	}

	return bookmarks, result, nil
}

// download dispatches bookmarks oldest-first and advances the checkpoint
// after each completed item. Once an item fails, later successes are still
// downloaded but no longer advance the checkpoint: advancing past a failed
// item would silently drop it from every future run.
func (e *Engine) download(bookmarks []ao3.Bookmark, filter ao3.FormatFilter, cp *checkpoint.Checkpoint, result *Result) error {
	advance := true

	for _, b := range bookmarks {
		e.progress.ItemStarted(b)

		complete, err := e.downloader.SyncBookmark(b, filter)
		if err != nil {
			return err
		}

		e.progress.ItemFinished(b, complete)

		if !complete {
			e.logger.WarnWithFields("bookmark incomplete, checkpoint will not pass it", map[string]interface{}{
				"bookmark_id": b.ID,
				"item_type":   string(b.Item.Type),
				"item_id":     b.Item.ID,
			})
			result.Failed++
			advance = false
			continue
		}

		result.Synced++

		if advance {
			if err := e.checkpoints.Advance(cp, b.ID); err != nil {
				return fmt.Errorf("failed to save checkpoint: %w", err)
			}
		}
	}

	return nil
}

// fetchPageCount probes page 1 of the listing for the total page count
func (e *Engine) fetchPageCount(sortColumn string) (int, error) {
	body, err := e.fetchListing(1, sortColumn)
	if err != nil {
		return 0, err
	}
	return e.parser.PageCount(body)
}

// fetchListing fetches one page of the bookmark listing
func (e *Engine) fetchListing(page int, sortColumn string) ([]byte, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("user_id", e.username)
	query.Set("sort_column", sortColumn)

	return e.fetcher.Fetch(ao3.BookmarksPath, query)
}

func reverse(bookmarks []ao3.Bookmark) {
	for i, j := 0, len(bookmarks)-1; i < j; i, j = i+1, j-1 {
		bookmarks[i], bookmarks[j] = bookmarks[j], bookmarks[i]
	}
}
