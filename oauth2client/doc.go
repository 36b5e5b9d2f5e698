// Package oauth2client manages the OAuth2 credential of an API client.
//
// A Manager is the single owner of the current credential. It performs grant exchanges against
// the token endpoint of the authorization host, stores the result, and replaces the credential
// when the resource API rejects it. Reads of the current credential never block.
//
// # Features
//
//   - Password, authorization-code, client-credentials, token-exchange and refresh grants
//   - Typed errors for rejected grants (401), other endpoint failures and scope mismatches
//   - Listener callbacks on every new credential and on invalidation
//   - Coalesced re-authentication: concurrent rejections of one credential cause one exchange
//   - gRPC unary and stream client interceptors that inject "authorization: OAuth <token>"
//   - Optional logging (WithLogger, WithLoggingEnabled) with redacted tokens
//
// # Quick Start
//
//	manager, err := oauth2client.NewManager(
//	    oauth2client.Identity{ClientID: "client-id", ClientSecret: "client-secret"},
//	    environment.New("live", "api.example.com", "example.com"),
//	    oauth2client.WithLoggingEnabled(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := manager.Login(ctx, "user", "password", credential.ScopeDefault); err != nil {
//	    log.Fatal(err)
//	}
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithUnaryInterceptor(manager.UnaryClientInterceptor()),
//	    grpc.WithStreamInterceptor(manager.StreamClientInterceptor()),
//	)
//
// # Notes
//
//   - Expiry is never checked locally; a credential is live until the server rejects it.
//   - Invalidate keeps the refresh token so Reauthenticate can still renew the credential.
//   - Listener callbacks run under the manager's lock and must not call SetListener or Invalidate.
package oauth2client
