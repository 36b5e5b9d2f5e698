// Package grpcclient builds gRPC client connections to an environment's API host that carry the
// credential of an oauth2client.Manager.
//
// Unary calls rejected with codes.Unauthenticated are retried once after the manager
// re-authenticates. Streams only carry the credential.
//
//	conn, err := grpcclient.NewBuilder(env).
//	    WithManager(manager).
//	    WithTLS("/path/to/ca.crt", "", "", "").
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
// # TLS Behavior
//
// Connections use TLS 1.2+ with system roots unless the environment marks the API host as plain.
// WithInsecureSkipVerify is rejected outside sandbox environments.
package grpcclient
