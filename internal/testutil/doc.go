// Package testutil provides test helpers for go-apiclient packages.
//
// It includes utilities to spin up IPv4-only local HTTP servers (avoiding IPv6 in sandboxes),
// a recording OAuth2 token endpoint, and self-signed certificates for TLS/mTLS tests.
//
// # Utilities
//
//   - NewLocalHTTPServer: start httptest server bound to 127.0.0.1
//   - TokenEndpoint and TokenJSON: stub the authorization endpoint and record grant requests
//   - LocalEnvironment: environment pointing at local API and auth servers
//   - RoundTripFunc and StaticResponse: inline http.RoundTripper implementations
//   - RecordingLogger: capture Printf-style log lines
//   - WriteTestCACert / WriteTestCertAndKey: generate temporary CA and leaf certificates for tests
package testutil
