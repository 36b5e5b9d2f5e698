package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AmmannChristian/go-apiclient/credential"
	"github.com/AmmannChristian/go-apiclient/environment"
	"github.com/AmmannChristian/go-apiclient/httpclient"
	"github.com/AmmannChristian/go-apiclient/oauth2client"
	"github.com/AmmannChristian/go-apiclient/pool"
)

// ResolvePath is the API endpoint mapping a public URL to a resource id.
const ResolvePath = "/resolve"

// Logger is an interface for optional logging in Client.
type Logger interface {
	Printf(format string, args ...any)
}

// Client is an authenticated client for the resource API. It owns a credential manager and a
// bounded connection pool shared by API and token requests. Client is safe for concurrent use.
type Client struct {
	env     environment.Environment
	manager *oauth2client.Manager
	http    *http.Client
	pool    *pool.Pool
	logger  Logger
	debug   bool
}

type settings struct {
	logger       Logger
	debug        bool
	managerOpts  []oauth2client.Option
	builderSteps []func(*httpclient.Builder)
}

// Option is a functional option for configuring Client.
type Option func(*settings)

func withBuilder(step func(*httpclient.Builder)) Option {
	return func(s *settings) {
		s.builderSteps = append(s.builderSteps, step)
	}
}

// WithLogger sets a logger for the client, its manager and its transport.
func WithLogger(logger Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithLoggingEnabled enables logging using the default Go log package.
func WithLoggingEnabled() Option {
	return WithLogger(log.Default())
}

// WithDebugRequests logs the method and URL of every request, to the standard logger when no logger is set.
func WithDebugRequests() Option {
	return func(s *settings) {
		s.debug = true
	}
}

// WithCredential restores a previously obtained credential.
func WithCredential(c *credential.Credential) Option {
	return func(s *settings) {
		s.managerOpts = append(s.managerOpts, oauth2client.WithCredential(c))
	}
}

// WithListener registers the credential listener.
func WithListener(l oauth2client.Listener) Option {
	return func(s *settings) {
		s.managerOpts = append(s.managerOpts, oauth2client.WithListener(l))
	}
}

// WithTokenPath overrides the token endpoint path.
func WithTokenPath(p string) Option {
	return func(s *settings) {
		s.managerOpts = append(s.managerOpts, oauth2client.WithTokenPath(p))
	}
}

// WithContentType sets the default Accept value (default "application/json").
func WithContentType(contentType string) Option {
	return withBuilder(func(b *httpclient.Builder) { b.WithContentType(contentType) })
}

// WithUserAgent sets the User-Agent of API requests.
func WithUserAgent(userAgent string) Option {
	return withBuilder(func(b *httpclient.Builder) { b.WithUserAgent(userAgent) })
}

// WithTimeout sets the overall request timeout.
func WithTimeout(d time.Duration) Option {
	return withBuilder(func(b *httpclient.Builder) { b.WithTimeout(d) })
}

// WithMaxTotalConnections bounds concurrent connections across all hosts.
func WithMaxTotalConnections(n int) Option {
	return withBuilder(func(b *httpclient.Builder) { b.WithMaxTotalConnections(n) })
}

// WithTLS configures a custom CA and optional client certificate.
func WithTLS(caFile, certFile, keyFile string) Option {
	return withBuilder(func(b *httpclient.Builder) { b.WithTLS(caFile, certFile, keyFile) })
}

// WithInsecureSkipVerify disables certificate verification. Sandbox environments only.
func WithInsecureSkipVerify() Option {
	return withBuilder(func(b *httpclient.Builder) { b.WithInsecureSkipVerify() })
}

// WithTransportFactory replaces how per-route transports are created.
func WithTransportFactory(f pool.TransportFactory) Option {
	return withBuilder(func(b *httpclient.Builder) { b.WithTransportFactory(f) })
}

// New creates a client for the application identity in env.
func New(identity oauth2client.Identity, env environment.Environment, opts ...Option) (*Client, error) {
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}

	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	builder := httpclient.NewBuilder(env)
	for _, step := range s.builderSteps {
		step(builder)
	}

	managerOpts := s.managerOpts
	if s.logger != nil {
		builder.WithLogger(s.logger)
		managerOpts = append(managerOpts, oauth2client.WithLogger(s.logger))
	}

	// Token requests share the pool with API requests.
	tokenClient, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}
	managerOpts = append([]oauth2client.Option{oauth2client.WithHTTPClient(tokenClient)}, managerOpts...)

	manager, err := oauth2client.NewManager(identity, env, managerOpts...)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}

	apiClient, err := builder.WithManager(manager).Build()
	if err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}

	p, err := builder.BuildPool()
	if err != nil {
		return nil, fmt.Errorf("apiclient: %w", err)
	}

	// Debug output goes to the standard logger when no logger was given.
	logger := s.logger
	if s.debug && logger == nil {
		logger = log.Default()
	}

	return &Client{
		env:     env,
		manager: manager,
		http:    apiClient,
		pool:    p,
		logger:  logger,
		debug:   s.debug,
	}, nil
}

// Environment returns the client's environment.
func (c *Client) Environment() environment.Environment {
	return c.env
}

// Manager returns the credential manager.
func (c *Client) Manager() *oauth2client.Manager {
	return c.manager
}

// HTTPClient returns the authenticated *http.Client, e.g. for requests to absolute URLs.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Pool returns the connection pool.
func (c *Client) Pool() *pool.Pool {
	return c.pool
}

// Close releases idle connections.
func (c *Client) Close() {
	c.pool.CloseIdleConnections()
}

// Execute sends r with the given method to the API host. A rejected credential is replaced and
// the request retried once; every other response is returned as is. The caller must close the
// response body.
func (c *Client) Execute(ctx context.Context, method string, r *Request) (*http.Response, error) {
	if r == nil {
		return nil, errors.New("apiclient: request is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := r.build(ctx, method, c.env.APIURL())
	if err != nil {
		return nil, err
	}

	if c.debug {
		c.logf("apiclient: %s %s", req.Method, req.URL.Redacted())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: %w", method, r.Path, err)
	}

	if c.debug {
		c.logf("apiclient: %s %s -> %s", req.Method, req.URL.Redacted(), resp.Status)
	}

	return resp, nil
}

// Get executes r as GET.
func (c *Client) Get(ctx context.Context, r *Request) (*http.Response, error) {
	return c.Execute(ctx, http.MethodGet, r)
}

// Post executes r as POST.
func (c *Client) Post(ctx context.Context, r *Request) (*http.Response, error) {
	return c.Execute(ctx, http.MethodPost, r)
}

// Put executes r as PUT.
func (c *Client) Put(ctx context.Context, r *Request) (*http.Response, error) {
	return c.Execute(ctx, http.MethodPut, r)
}

// Delete executes r as DELETE.
func (c *Client) Delete(ctx context.Context, r *Request) (*http.Response, error) {
	return c.Execute(ctx, http.MethodDelete, r)
}

// Head executes r as HEAD.
func (c *Client) Head(ctx context.Context, r *Request) (*http.Response, error) {
	return c.Execute(ctx, http.MethodHead, r)
}

// Resolve maps a public URL to a resource id. It returns -1 when the API does not answer with
// a redirect to a numeric resource. Network failures are returned as errors.
func (c *Client) Resolve(ctx context.Context, rawURL string) (int64, error) {
	resp, err := c.Get(ctx, NewRequest(ResolvePath).With("url", rawURL))
	if err != nil {
		return -1, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusFound {
		return -1, nil
	}

	return resourceID(resp.Header.Get("Location")), nil
}

// resourceID parses the text after the last "/" of location, ignoring any query, as an id.
// It returns -1 when there is no "/" or the text is not an integer.
func resourceID(location string) int64 {
	location, _, _ = strings.Cut(location, "?")
	location, _, _ = strings.Cut(location, "#")

	slash := strings.LastIndex(location, "/")
	if slash < 0 {
		return -1
	}

	id, err := strconv.ParseInt(location[slash+1:], 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// AuthorizationURL builds the browser URL of the authorization-code flow. An empty endpoint
// means "/connect".
func (c *Client) AuthorizationURL(endpoint, scope string) string {
	return c.manager.AuthCodeURL(endpoint, scope)
}

// Credential returns the current credential.
func (c *Client) Credential() *credential.Credential {
	return c.manager.Credential()
}

// SetCredential replaces the current credential.
func (c *Client) SetCredential(cred *credential.Credential) {
	c.manager.SetCredential(cred)
}

// SetListener registers the credential listener, replacing any previous one.
func (c *Client) SetListener(l oauth2client.Listener) {
	c.manager.SetListener(l)
}

// Login obtains a credential with the password grant.
func (c *Client) Login(ctx context.Context, username, password, scope string) (*credential.Credential, error) {
	return c.manager.Login(ctx, username, password, scope)
}

// AuthorizationCode exchanges a code from the browser flow.
func (c *Client) AuthorizationCode(ctx context.Context, code, scope string) (*credential.Credential, error) {
	return c.manager.AuthorizationCode(ctx, code, scope)
}

// ClientCredentials obtains an application credential, by default with the "signup" scope.
func (c *Client) ClientCredentials(ctx context.Context, scope string) (*credential.Credential, error) {
	return c.manager.ClientCredentials(ctx, scope)
}

// ExchangeToken trades a foreign token for a native credential.
func (c *Client) ExchangeToken(ctx context.Context, foreignToken, scope string) (*credential.Credential, error) {
	return c.manager.ExchangeToken(ctx, foreignToken, scope)
}

// Refresh renews the credential with its refresh token.
func (c *Client) Refresh(ctx context.Context) (*credential.Credential, error) {
	return c.manager.Refresh(ctx)
}

// Invalidate marks the credential dead and returns the listener's replacement, if any.
func (c *Client) Invalidate() *credential.Credential {
	return c.manager.Invalidate()
}

// ETag returns the entity tag of resp for use with Request.IfNoneMatch.
func ETag(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Header.Get("ETag")
}

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
