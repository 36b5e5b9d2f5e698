package grpcclient

import (
	"errors"
	"fmt"

	"github.com/AmmannChristian/go-apiclient/environment"
	"github.com/AmmannChristian/go-apiclient/internal/tlsconfig"
	"github.com/AmmannChristian/go-apiclient/oauth2client"
	"github.com/AmmannChristian/go-apiclient/pool"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Builder provides a fluent interface for constructing gRPC client connections.
type Builder struct {
	env     environment.Environment
	address string
	manager *oauth2client.Manager

	tls                tlsconfig.Files
	insecureSkipVerify bool

	dialOpts []grpc.DialOption
}

// NewBuilder creates a builder targeting env's API host.
func NewBuilder(env environment.Environment) *Builder {
	return &Builder{env: env, address: env.APIHost}
}

// WithAddress overrides the target address (e.g., "grpc.example.com:9090").
func (b *Builder) WithAddress(address string) *Builder {
	b.address = address
	return b
}

// WithManager attaches the manager's credential to every call.
func (b *Builder) WithManager(m *oauth2client.Manager) *Builder {
	b.manager = m
	return b
}

// WithTLS configures a custom CA, an optional client certificate, and an optional server name
// override. certFile and keyFile must be given together.
func (b *Builder) WithTLS(caFile, certFile, keyFile, serverName string) *Builder {
	b.tls = tlsconfig.Files{
		CAFile:     caFile,
		CertFile:   certFile,
		KeyFile:    keyFile,
		ServerName: serverName,
	}
	return b
}

// WithInsecureSkipVerify disables certificate verification. Sandbox environments only.
func (b *Builder) WithInsecureSkipVerify() *Builder {
	b.insecureSkipVerify = true
	return b
}

// WithDialOptions adds custom gRPC dial options, applied after the builder's own.
func (b *Builder) WithDialOptions(opts ...grpc.DialOption) *Builder {
	b.dialOpts = append(b.dialOpts, opts...)
	return b
}

// Build creates the connection. The connection is established lazily by gRPC.
func (b *Builder) Build() (*grpc.ClientConn, error) {
	if b.address == "" {
		return nil, errors.New("grpcclient: server address is required")
	}
	if b.insecureSkipVerify && !b.env.Sandbox {
		return nil, fmt.Errorf("grpcclient: %w", pool.ErrInsecureProduction)
	}

	transportCreds, err := b.transportCredentials()
	if err != nil {
		return nil, err
	}

	opts := []grpc.DialOption{grpc.WithTransportCredentials(transportCreds)}
	if b.manager != nil {
		opts = append(opts,
			grpc.WithUnaryInterceptor(b.manager.UnaryClientInterceptor()),
			grpc.WithStreamInterceptor(b.manager.StreamClientInterceptor()),
		)
	}
	opts = append(opts, b.dialOpts...)

	conn, err := grpc.NewClient(b.address, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: dial failed: %w", err)
	}
	return conn, nil
}

func (b *Builder) transportCredentials() (credentials.TransportCredentials, error) {
	if !b.env.SecureAPI {
		return insecure.NewCredentials(), nil
	}

	cfg, err := tlsconfig.Load(b.tls)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: TLS config failed: %w", err)
	}
	cfg.InsecureSkipVerify = b.insecureSkipVerify // #nosec G402 -- sandbox only
	return credentials.NewTLS(cfg), nil
}
