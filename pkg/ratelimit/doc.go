// Package ratelimit paces outbound requests.
//
// The archive tolerates slow, polite clients and punishes bursts, so the
// limiter here enforces a fixed minimum spacing between requests rather than
// a token-bucket burst allowance. One Pacer instance is shared by every
// request a client issues during a run.
package ratelimit
