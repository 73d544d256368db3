// Package syncer implements the incremental bookmark sync.
//
// The engine walks the paginated bookmark listing newest-first, stops as soon
// as it reaches the bookmark recorded in the checkpoint, reverses the
// collected rows to oldest-first, and hands each to the downloader. The
// checkpoint only advances after an item's assets are all durably saved, and
// never past an item that failed, so an interrupted run resumes without
// losing or re-fetching anything.
//
// The loop is deliberately sequential: page by page, item by item, format by
// format. That sequencing is what keeps the checkpoint a contiguous
// "everything at or before this id is synced" boundary.
package syncer
