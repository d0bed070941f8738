// Package xetconfig holds the runtime configuration shared by the CAS
// client, upload session, and download session. Grounded on the teacher's
// pkg/content.Config / DefaultConfig pattern (a plain struct with a
// constructor filling in sane defaults, no file-format binding).
package xetconfig

import "time"

// Config configures a CAS client and the sessions built on top of it.
type Config struct {
	// ServerURL is the CAS server's base URL, e.g. "https://cas.example.com".
	ServerURL string

	// BearerToken is sent as "Authorization: Bearer <token>" on every
	// request, per §4.7's "bearer token pass-through".
	BearerToken string

	// RequestTimeout bounds every individual HTTP request, per §5's
	// "session-wide timeout (default 30s)".
	RequestTimeout time.Duration

	// ConcurrentDedupQueries bounds the worker pool used for phase-2 global
	// dedup queries (§4.8/§5).
	ConcurrentDedupQueries int

	// ConcurrentXorbUploads bounds the worker pool used for phase-4 xorb
	// uploads (§4.8/§5).
	ConcurrentXorbUploads int

	// ConcurrentRangeFetches bounds the worker pool used for the download
	// session's presigned-URL range fetches (§4.9).
	ConcurrentRangeFetches int

	// GlobalDedupEnabled toggles whether phase 2 issues dedup queries at
	// all, per §4.8 step 2 ("if global dedup is enabled").
	GlobalDedupEnabled bool

	// VerifyHashesOnDownload enables the optional integrity check of §7:
	// rechunk a whole-file download, recompute its file hash and compare it
	// with the requested one, failing with HashMismatch on disagreement.
	// Range-restricted downloads are not checked.
	VerifyHashesOnDownload bool
}

// DefaultConfig returns a Config with the defaults named in §5/§7.
func DefaultConfig() *Config {
	return &Config{
		RequestTimeout:         30 * time.Second,
		ConcurrentDedupQueries: 8,
		ConcurrentXorbUploads:  4,
		ConcurrentRangeFetches: 8,
		GlobalDedupEnabled:     true,
		VerifyHashesOnDownload: false,
	}
}
