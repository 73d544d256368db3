// Package ao3 provides the archive client: an authenticated, rate-limited
// fetch layer, the page parser, and the domain types shared by the sync
// engine and the downloader.
//
// A Client owns one logical session per run. It logs in lazily before the
// first fetch, shares a single cookie jar and pacing clock across every
// request, and maps response statuses onto a small typed error taxonomy.
// Fetch never retries; retry policy is an explicit wrapper (RetryingFetcher)
// so the core stays deterministic.
package ao3
