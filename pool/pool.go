package pool

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AmmannChristian/go-apiclient/environment"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultMaxTotal is the default bound on concurrent connections across all routes.
	DefaultMaxTotal = 10

	// DefaultMaxPerRoute is the per-route bound for routes other than the API host.
	DefaultMaxPerRoute = 2

	// DefaultTimeout bounds connect, TLS handshake, and response header waits.
	DefaultTimeout = 20 * time.Second

	// DefaultKeepAlive is how long idle connections are kept for reuse.
	DefaultKeepAlive = 20 * time.Second

	// DefaultBufferSize is the socket read/write buffer size.
	DefaultBufferSize = 8 * 1024
)

// ErrInsecureProduction is returned when TLS verification is disabled for a production environment.
var ErrInsecureProduction = errors.New("pool: skipping TLS verification is only allowed in sandbox environments")

// Settings are the connection parameters handed to a TransportFactory for one route.
type Settings struct {
	// MaxConns is the connection limit of the route.
	MaxConns int

	Timeout    time.Duration
	KeepAlive  time.Duration
	BufferSize int
	TLSConfig  *tls.Config
}

// TransportFactory builds the transport serving a single route.
type TransportFactory func(route Route, settings Settings) http.RoundTripper

// Pool is a bounded, route-aware http.RoundTripper. It is safe for concurrent use.
type Pool struct {
	env             environment.Environment
	maxTotal        int
	defaultPerRoute int
	timeout         time.Duration
	keepAlive       time.Duration
	bufferSize      int
	tlsConfig       *tls.Config
	insecure        bool
	factory         TransportFactory

	total    *semaphore.Weighted
	inFlight atomic.Int64

	mu     sync.Mutex
	routes map[Route]*routeEntry
}

type routeEntry struct {
	route     Route
	max       int
	sem       *semaphore.Weighted
	transport http.RoundTripper
}

// Option is a functional option for configuring Pool.
type Option func(*Pool)

// WithMaxTotal sets the bound on concurrent connections across all routes.
func WithMaxTotal(n int) Option {
	return func(p *Pool) {
		p.maxTotal = n
	}
}

// WithDefaultMaxPerRoute sets the bound for routes other than the API host.
func WithDefaultMaxPerRoute(n int) Option {
	return func(p *Pool) {
		p.defaultPerRoute = n
	}
}

// WithTimeout sets the connect and read timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.timeout = d
	}
}

// WithKeepAlive sets the keep-alive duration of idle connections.
func WithKeepAlive(d time.Duration) Option {
	return func(p *Pool) {
		p.keepAlive = d
	}
}

// WithBufferSize sets the read and write buffer size.
func WithBufferSize(n int) Option {
	return func(p *Pool) {
		p.bufferSize = n
	}
}

// WithTLSConfig sets the base TLS configuration (custom CA, client certificates).
func WithTLSConfig(cfg *tls.Config) Option {
	return func(p *Pool) {
		p.tlsConfig = cfg
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// New rejects this option unless the environment is a sandbox.
func WithInsecureSkipVerify() Option {
	return func(p *Pool) {
		p.insecure = true
	}
}

// WithTransportFactory replaces the per-route transport construction.
func WithTransportFactory(f TransportFactory) Option {
	return func(p *Pool) {
		p.factory = f
	}
}

// New creates a pool for the given environment.
func New(env environment.Environment, opts ...Option) (*Pool, error) {
	p := &Pool{
		env:             env,
		maxTotal:        DefaultMaxTotal,
		defaultPerRoute: DefaultMaxPerRoute,
		timeout:         DefaultTimeout,
		keepAlive:       DefaultKeepAlive,
		bufferSize:      DefaultBufferSize,
		factory:         DefaultTransportFactory,
		routes:          make(map[Route]*routeEntry),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.maxTotal <= 0 {
		return nil, fmt.Errorf("pool: max total connections must be positive, got %d", p.maxTotal)
	}
	if p.defaultPerRoute <= 0 {
		return nil, fmt.Errorf("pool: max connections per route must be positive, got %d", p.defaultPerRoute)
	}
	if p.factory == nil {
		return nil, errors.New("pool: transport factory is nil")
	}
	if p.insecure && !env.Sandbox {
		return nil, ErrInsecureProduction
	}

	if p.tlsConfig != nil {
		p.tlsConfig = p.tlsConfig.Clone()
	} else {
		p.tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if p.insecure {
		p.tlsConfig.InsecureSkipVerify = true // #nosec G402 -- sandbox only
	}

	p.total = semaphore.NewWeighted(int64(p.maxTotal))

	return p, nil
}

// MaxTotal returns the bound on concurrent connections across all routes.
func (p *Pool) MaxTotal() int {
	return p.maxTotal
}

// MaxForRoute returns the connection limit of a route: the full total for the API host,
// the default per-route limit otherwise. It never exceeds the total.
func (p *Pool) MaxForRoute(route Route) int {
	if p.env.IsAPIHost(route.HostPort()) {
		return p.maxTotal
	}
	return min(p.defaultPerRoute, p.maxTotal)
}

// InFlight returns the number of checked-out connections.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// RoundTrip implements http.RoundTripper. The connection slot stays checked out until the
// response body is closed.
func (p *Pool) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil {
		closeRequestBody(req)
		return nil, errors.New("pool: request URL is nil")
	}

	entry := p.entry(RouteFor(req.URL))

	release, err := p.checkout(req.Context(), entry)
	if err != nil {
		closeRequestBody(req)
		return nil, fmt.Errorf("pool: checkout %s: %w", entry.route, err)
	}

	resp, err := entry.transport.RoundTrip(req)
	if err != nil {
		release()
		return nil, err
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		release()
		return resp, nil
	}

	resp.Body = &checkinBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

// CloseIdleConnections closes idle connections on every route transport that supports it.
func (p *Pool) CloseIdleConnections() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range p.routes {
		if closer, ok := entry.transport.(interface{ CloseIdleConnections() }); ok {
			closer.CloseIdleConnections()
		}
	}
}

// entry returns the route entry, creating its transport on first use.
func (p *Pool) entry(route Route) *routeEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.routes[route]; ok {
		return e
	}

	limit := p.MaxForRoute(route)
	e := &routeEntry{
		route: route,
		max:   limit,
		sem:   semaphore.NewWeighted(int64(limit)),
		transport: p.factory(route, Settings{
			MaxConns:   limit,
			Timeout:    p.timeout,
			KeepAlive:  p.keepAlive,
			BufferSize: p.bufferSize,
			TLSConfig:  p.tlsConfig.Clone(),
		}),
	}
	p.routes[route] = e

	return e
}

// checkout acquires the route slot, then the total slot. The returned release is idempotent.
func (p *Pool) checkout(ctx context.Context, e *routeEntry) (func(), error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := p.total.Acquire(ctx, 1); err != nil {
		e.sem.Release(1)
		return nil, err
	}
	p.inFlight.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.inFlight.Add(-1)
			p.total.Release(1)
			e.sem.Release(1)
		})
	}, nil
}

// checkinBody releases the connection slot when the body is closed.
type checkinBody struct {
	io.ReadCloser
	release func()
}

func (b *checkinBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}

func closeRequestBody(req *http.Request) {
	if req != nil && req.Body != nil {
		_ = req.Body.Close()
	}
}

// DefaultTransportFactory builds an *http.Transport sized for one route.
func DefaultTransportFactory(_ Route, s Settings) http.RoundTripper {
	dialer := &net.Dialer{
		Timeout:   s.Timeout,
		KeepAlive: s.KeepAlive,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       s.TLSConfig,
		TLSHandshakeTimeout:   s.Timeout,
		ResponseHeaderTimeout: s.Timeout,
		IdleConnTimeout:       s.KeepAlive,
		MaxConnsPerHost:       s.MaxConns,
		MaxIdleConns:          s.MaxConns,
		MaxIdleConnsPerHost:   s.MaxConns,
		ReadBufferSize:        s.BufferSize,
		WriteBufferSize:       s.BufferSize,
	}
}
