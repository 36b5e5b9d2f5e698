package oauth2client

import (
	"context"

	"github.com/AmmannChristian/go-apiclient/credential"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// authorizationMetadataKey is the gRPC metadata key carrying the credential.
const authorizationMetadataKey = "authorization"

// UnaryClientInterceptor returns a gRPC unary client interceptor that adds the current
// credential as "authorization: OAuth <token>" to the outgoing metadata.
//
// When the server answers codes.Unauthenticated, the interceptor calls Reauthenticate and
// retries the call once with the replacement. If no replacement is available, the original
// error is returned.
//
// Usage:
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithUnaryInterceptor(manager.UnaryClientInterceptor()),
//	)
func (m *Manager) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		cred := m.Credential()

		err := invoker(withAuthorization(ctx, cred), method, req, reply, cc, opts...)
		if status.Code(err) != codes.Unauthenticated {
			return err
		}

		replacement, reauthErr := m.Reauthenticate(ctx, cred)
		if reauthErr != nil {
			m.logf("oauth2client: %s rejected, no replacement credential: %v", method, reauthErr)
			return err
		}

		return invoker(withAuthorization(ctx, replacement), method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that adds the current
// credential to the outgoing metadata. Streams are not retried.
//
// Usage:
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithStreamInterceptor(manager.StreamClientInterceptor()),
//	)
func (m *Manager) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		return streamer(withAuthorization(ctx, m.Credential()), desc, cc, method, opts...)
	}
}

func withAuthorization(ctx context.Context, cred *credential.Credential) context.Context {
	return metadata.AppendToOutgoingContext(ctx, authorizationMetadataKey, cred.AuthorizationHeader())
}
