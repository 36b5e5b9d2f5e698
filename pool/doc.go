// Package pool provides a bounded, route-aware connection pool exposed as an http.RoundTripper.
//
// The pool caps the total number of concurrent connections (default 10) and applies a per-route
// cap on top of it. The route of the configured API host gets the full total because it carries
// bursty, highly concurrent traffic; every other route (authorization host, redirect targets)
// falls back to a small default (2).
//
// Each checkout of a connection is paired with exactly one checkin: the slot is released when the
// response body is closed, or immediately when the round trip fails.
//
// # Transport Defaults
//
//   - 20s dial, TLS handshake, and response header timeouts
//   - 8 KiB read and write buffers
//   - 20s keep-alive and idle connection timeout
//   - no stale-connection pre-check; broken connections surface lazily on use
//   - no Expect: 100-continue wait
//
// Redirects are a client concern; clients built on this pool must not follow them.
//
// # Quick Start
//
//	p, err := pool.New(env)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := &http.Client{
//	    Transport: p,
//	    CheckRedirect: func(*http.Request, []*http.Request) error {
//	        return http.ErrUseLastResponse
//	    },
//	}
//
// Tests swap the per-route transport with WithTransportFactory.
package pool
