package syncer

import (
	"errors"
	"fmt"

	"github.com/thalida/ao3-sync/pkg/ao3"
	"github.com/thalida/ao3-sync/pkg/logger"
	"github.com/thalida/ao3-sync/pkg/storage"
)

// Downloader fetches and persists the assets of one bookmarked item. Work
// items download one file per selected format; series items fan out to their
// member works. The returned complete flag tells the engine whether the
// checkpoint may advance past the item.
type Downloader struct {
	fetcher ao3.Fetcher
	parser  ao3.PageParser
	storage *storage.Manager
	logger  logger.Logger
}

// NewDownloader creates a Downloader
func NewDownloader(fetcher ao3.Fetcher, parser ao3.PageParser, store *storage.Manager, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Downloader{
		fetcher: fetcher,
		parser:  parser,
		storage: store,
		logger:  log,
	}
}

// SyncBookmark downloads every selected asset for the bookmark's item.
//
// complete is true only when every selected format succeeded or the item
// does not offer it; the engine advances the checkpoint on that basis.
// err is non-nil only for failures that poison the whole run (login,
// rate limiting); everything else is isolated to this item.
func (d *Downloader) SyncBookmark(b ao3.Bookmark, filter ao3.FormatFilter) (complete bool, err error) {
	switch b.Item.Type {
	case ao3.ItemTypeWork:
		return d.SyncWork(b.Item.ID, filter)
	case ao3.ItemTypeSeries:
		return d.SyncSeries(b.Item.ID, filter)
	default:
		return false, fmt.Errorf("unknown item type: %q", b.Item.Type)
	}
}

// SyncWork fetches a work's detail page and downloads each selected format
func (d *Downloader) SyncWork(workID string, filter ao3.FormatFilter) (bool, error) {
	page, err := d.fetcher.Fetch(ao3.WorkPath(workID), nil)
	if err != nil {
		if isRunFatal(err) {
			return false, err
		}
		d.logger.WarnWithFields("failed to fetch work page", map[string]interface{}{
			"work_id": workID,
			"error":   err.Error(),
		})
		return false, nil
	}

	links, err := d.parser.DownloadLinks(page)
	if err != nil {
		d.logger.WarnWithFields("failed to parse work page", map[string]interface{}{
			"work_id": workID,
			"error":   err.Error(),
		})
		return false, nil
	}

	// Formats the work does not offer count as confirmed unavailable, so a
	// work with no matching links is still complete.
	complete := true
	for _, link := range links {
		if !filter.MatchesLink(link) {
			continue
		}

		if err := d.downloadAsset(workID, link); err != nil {
			if isRunFatal(err) {
				return false, err
			}
			// One format's failure must not block sibling formats
			d.logger.WarnWithFields("failed to download asset", map[string]interface{}{
				"work_id": workID,
				"link":    link,
				"error":   err.Error(),
			})
			complete = false
		}
	}

	return complete, nil
}

// downloadAsset fetches one download link and saves it under the work's directory
func (d *Downloader) downloadAsset(workID, link string) error {
	filename, err := storage.FilenameFromLink(link)
	if err != nil {
		return err
	}

	data, err := d.fetcher.Fetch(link, nil)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return ao3.NewFailedDownload(fmt.Sprintf("empty payload for %s", link))
	}

	if err := d.storage.SaveAsset(workID, filename, data); err != nil {
		return err
	}

	d.logger.DebugWithFields("asset saved", map[string]interface{}{
		"work_id": workID,
		"file":    filename,
	})

	return nil
}

// SyncSeries fetches a series listing and recursively syncs each member work.
// The series is complete only when every member is complete; the series
// bookmark itself contributes exactly one checkpoint advance, decided by the
// engine after this returns.
func (d *Downloader) SyncSeries(seriesID string, filter ao3.FormatFilter) (bool, error) {
	page, err := d.fetcher.Fetch(ao3.SeriesPagePath(seriesID), nil)
	if err != nil {
		if isRunFatal(err) {
			return false, err
		}
		d.logger.WarnWithFields("failed to fetch series page", map[string]interface{}{
			"series_id": seriesID,
			"error":     err.Error(),
		})
		return false, nil
	}

	workIDs, err := d.parser.SeriesWorkIDs(page)
	if err != nil {
		d.logger.WarnWithFields("failed to parse series page", map[string]interface{}{
			"series_id": seriesID,
			"error":     err.Error(),
		})
		return false, nil
	}

	d.logger.InfoWithFields("syncing series", map[string]interface{}{
		"series_id": seriesID,
		"works":     len(workIDs),
	})

	complete := true
	for _, workID := range workIDs {
		workComplete, err := d.SyncWork(workID, filter)
		if err != nil {
			return false, err
		}
		if !workComplete {
			complete = false
		}
	}

	return complete, nil
}

// isRunFatal reports whether an error poisons the whole run rather than one
// item: rejected logins never recover, and hammering a rate-limited server
// with further items only makes it worse.
func isRunFatal(err error) bool {
	var apiErr *ao3.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Type == ao3.ErrorTypeLogin || apiErr.Type == ao3.ErrorTypeRateLimit
}
