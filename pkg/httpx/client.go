// Package httpx provides the shared HTTP transport used by the CAS client:
// a configured *http.Client with sane connection-pool and timeout defaults,
// bearer-token injection, and a bounded-concurrency worker pool for fanning
// out many small requests (dedup queries, xorb uploads, range fetches).
//
// Grounded on the teacher's pkg/transport/tcp construction style (explicit
// timeouts, TLS minimum version set once and reused) adapted from a raw TCP
// dialer to an http.Transport, since this spec's Non-goals exclude a custom
// wire transport in favor of plain HTTPS.
package httpx

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

// NewClient builds an *http.Client configured with requestTimeout as its
// overall deadline and a connection pool sized for concurrent fan-out, per
// §4.10.
func NewClient(requestTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
	return &http.Client{
		Transport: transport,
		Timeout:   requestTimeout,
	}
}

// NewRequest builds an http.Request with ctx attached and, when token is
// non-empty, a bearer Authorization header set per §4.7.
func NewRequest(ctx context.Context, method, url string, token string, body []byte) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("httpx: building request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	return req, nil
}
