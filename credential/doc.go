// Package credential defines the OAuth2 credential value shared by the manager, the HTTP executor,
// and the gRPC interceptors.
//
// A Credential is treated as an immutable value: replacing it means storing a new pointer, never
// mutating the old one. Liveness is decided by the server, not by the local clock: a credential with
// a non-empty access token is considered usable until a request is rejected as unauthorized.
//
// # Header Format
//
//	c := credential.New("access", "refresh")
//	req.Header.Set("Authorization", c.AuthorizationHeader()) // "OAuth access"
//
//	var dead *credential.Credential
//	dead.AuthorizationHeader() // "OAuth invalidated"
//
// String and GoString redact token material so credentials can be passed to loggers safely.
package credential
