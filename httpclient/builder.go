package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/AmmannChristian/go-apiclient/environment"
	"github.com/AmmannChristian/go-apiclient/internal/tlsconfig"
	"github.com/AmmannChristian/go-apiclient/pool"
)

// DefaultTimeout bounds a whole request, including reading the response body.
const DefaultTimeout = 30 * time.Second

// Builder provides a fluent interface for constructing HTTP clients that share one bounded
// connection pool, with optional credential injection and TLS/mTLS support.
type Builder struct {
	env environment.Environment

	// Authentication
	manager Credentials

	// TLS configuration
	tlsEnabled    bool
	tlsCAFile     string
	tlsCertFile   string
	tlsKeyFile    string
	tlsSkipVerify bool

	// Pool configuration
	pool             *pool.Pool
	maxTotal         int
	transportFactory pool.TransportFactory

	// HTTP client configuration
	timeout     time.Duration
	contentType string
	userAgent   string
	logger      Logger
}

// NewBuilder creates a new HTTP client builder for env.
func NewBuilder(env environment.Environment) *Builder {
	return &Builder{
		env:     env,
		timeout: DefaultTimeout,
	}
}

// WithManager enables credential injection and the single retry after 401.
func (b *Builder) WithManager(m Credentials) *Builder {
	b.manager = m
	return b
}

// WithPool uses an existing connection pool instead of building one.
// TLS and pool options of the builder are then ignored.
func (b *Builder) WithPool(p *pool.Pool) *Builder {
	b.pool = p
	return b
}

// WithTLS configures certificate verification and client certificates.
//
// Parameters:
//   - caFile: Path to CA certificate for server verification (optional, uses system roots if empty)
//   - certFile: Path to client certificate for mTLS (optional, must be paired with keyFile)
//   - keyFile: Path to client private key for mTLS (optional, must be paired with certFile)
func (b *Builder) WithTLS(caFile, certFile, keyFile string) *Builder {
	b.tlsEnabled = true
	b.tlsCAFile = caFile
	b.tlsCertFile = certFile
	b.tlsKeyFile = keyFile
	return b
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Build fails unless the environment is a sandbox.
func (b *Builder) WithInsecureSkipVerify() *Builder {
	b.tlsSkipVerify = true
	return b
}

// WithTimeout sets the request timeout for the HTTP client.
// Default is 30 seconds if not specified.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithMaxTotalConnections bounds concurrent connections across all routes (default 10).
func (b *Builder) WithMaxTotalConnections(n int) *Builder {
	b.maxTotal = n
	return b
}

// WithTransportFactory replaces how per-route transports are created.
func (b *Builder) WithTransportFactory(f pool.TransportFactory) *Builder {
	b.transportFactory = f
	return b
}

// WithContentType sets the default Accept value of authenticated requests.
func (b *Builder) WithContentType(contentType string) *Builder {
	b.contentType = contentType
	return b
}

// WithUserAgent sets the User-Agent of authenticated requests.
func (b *Builder) WithUserAgent(userAgent string) *Builder {
	b.userAgent = userAgent
	return b
}

// WithLogger sets the logger for authentication retries.
func (b *Builder) WithLogger(logger Logger) *Builder {
	b.logger = logger
	return b
}

// BuildPool returns the builder's connection pool, creating it on first use.
// Every client built afterwards shares it.
func (b *Builder) BuildPool() (*pool.Pool, error) {
	if b.pool != nil {
		return b.pool, nil
	}

	var opts []pool.Option
	if b.maxTotal != 0 {
		opts = append(opts, pool.WithMaxTotal(b.maxTotal))
	}
	if b.transportFactory != nil {
		opts = append(opts, pool.WithTransportFactory(b.transportFactory))
	}
	if b.tlsSkipVerify {
		opts = append(opts, pool.WithInsecureSkipVerify())
	}
	if b.tlsEnabled {
		tlsConfig, err := b.buildTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("httpclient: TLS config failed: %w", err)
		}
		opts = append(opts, pool.WithTLSConfig(tlsConfig))
	}

	p, err := pool.New(b.env, opts...)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}

	b.pool = p
	return p, nil
}

// Build constructs the HTTP client with the configured options. Redirects are never followed,
// so callers see 3xx responses as they are.
//
// Returns:
//   - *http.Client: Configured HTTP client
//   - error: Error if configuration is invalid
func (b *Builder) Build() (*http.Client, error) {
	p, err := b.BuildPool()
	if err != nil {
		return nil, err
	}

	var transport http.RoundTripper = p
	if b.manager != nil {
		transport = &Transport{
			Base:        p,
			Manager:     b.manager,
			ContentType: b.contentType,
			UserAgent:   b.userAgent,
			Logger:      b.logger,
		}
	}

	return &http.Client{
		Transport:     transport,
		Timeout:       b.timeout,
		CheckRedirect: noRedirects,
	}, nil
}

func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// buildTLSConfig constructs the TLS configuration for the pool.
func (b *Builder) buildTLSConfig() (*tls.Config, error) {
	return tlsconfig.Load(tlsconfig.Files{
		CAFile:   b.tlsCAFile,
		CertFile: b.tlsCertFile,
		KeyFile:  b.tlsKeyFile,
	})
}

// NewHTTPClient is a convenience function that creates an authenticated HTTP client with a
// default pool for env. For more configuration options, use Builder instead.
//
// Example:
//
//	client, err := httpclient.NewHTTPClient(env, manager)
//	resp, err := client.Get("https://api.example.com/me")
func NewHTTPClient(env environment.Environment, manager Credentials) (*http.Client, error) {
	return NewBuilder(env).WithManager(manager).Build()
}
