// Package retry provides bounded retry with pluggable backoff.
//
// The archive client itself never retries; rate-limit errors surface as-is so
// its behavior stays deterministic. Retry policy is layered on top of the
// fetch interface as an explicit wrapper, built from this package.
package retry
