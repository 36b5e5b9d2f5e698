// Package httpclient executes authenticated requests against the resource API.
//
// Transport attaches "Authorization: OAuth <token>" to every request and, when the server
// rejects the credential with 401, obtains a replacement and retries the request exactly once.
// Builder assembles an http.Client on top of a bounded pool.Pool with TLS/mTLS options and
// redirects disabled.
//
// # Features
//
//   - Authorize: pure header injection for manual composition
//   - One silent retry after 401, coalesced across concurrent requests
//   - Shared, bounded connection pool between the API and the authorization host
//   - TLS 1.2+ by default, with custom CA/mTLS and sandbox-only InsecureSkipVerify
//
// # Quick Start
//
//	client, err := httpclient.NewBuilder(env).
//	    WithManager(manager).
//	    WithTLS("/path/to/ca.crt", "", "").
//	    WithTimeout(60 * time.Second).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Get(env.APIURL().String() + "/me")
//
// # Manual Transport Wrapping
//
//	transport := httpclient.NewTransport(manager, nil)
//	client := &http.Client{Transport: transport}
//
// All components are safe for concurrent use.
package httpclient
