// Package apiclient is an OAuth2-authenticated client for a remote resource API.
//
// A Client combines an oauth2client.Manager, an httpclient.Transport and a pool.Pool. Callers
// describe calls with Request and send them with Execute or the verb helpers; the client
// attaches the current credential and, when the API rejects it, replaces it once and retries.
//
//	client, err := apiclient.New(
//	    oauth2client.Identity{ClientID: "client-id", ClientSecret: "client-secret"},
//	    environment.New("live", "api.example.com", "example.com"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := client.Login(ctx, "user", "password", credential.ScopeDefault); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Get(ctx, apiclient.NewRequest("/me"))
package apiclient
