package oauth2client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AmmannChristian/go-apiclient/credential"
	"github.com/AmmannChristian/go-apiclient/environment"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTokenPath is the token endpoint path on the authorization host.
	DefaultTokenPath = "/oauth2/token"

	// DefaultConnectPath is the browser authorization endpoint path on the authorization host.
	DefaultConnectPath = "/connect"
)

// Logger is an interface for optional logging in Manager.
// Implementations receive grant and invalidation events; tokens are always redacted.
type Logger interface {
	Printf(format string, args ...any)
}

// Identity is the registered application identity sent with every grant.
type Identity struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Manager owns the current credential of an API client. It performs grant exchanges against the
// authorization host, handles invalidation after server rejection and notifies a Listener.
// Manager is safe for concurrent use.
type Manager struct {
	identity   Identity
	env        environment.Environment
	tokenPath  string
	httpClient *http.Client
	logger     Logger
	now        func() time.Time

	current atomic.Pointer[credential.Credential]

	// mu serializes credential replacement and guards listener.
	mu       sync.Mutex
	listener Listener

	flight singleflight.Group
}

// Option is a functional option for configuring Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for token requests.
// If not set, http.DefaultClient is used.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// WithLogger sets a custom logger for grant and invalidation events.
// If not set, no logging will occur.
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLoggingEnabled enables logging using the default Go log package.
func WithLoggingEnabled() Option {
	return func(m *Manager) {
		m.logger = log.Default()
	}
}

// WithCredential seeds the manager with a previously obtained credential.
func WithCredential(c *credential.Credential) Option {
	return func(m *Manager) {
		m.current.Store(c)
	}
}

// WithListener registers the initial listener.
func WithListener(l Listener) Option {
	return func(m *Manager) {
		m.listener = l
	}
}

// WithTokenPath overrides the token endpoint path (default "/oauth2/token").
func WithTokenPath(path string) Option {
	return func(m *Manager) {
		m.tokenPath = path
	}
}

// NewManager creates a credential manager for the given application identity and environment.
func NewManager(identity Identity, env environment.Environment, opts ...Option) (*Manager, error) {
	if identity.ClientID == "" {
		return nil, errors.New("oauth2client: client ID is required")
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("oauth2client: %w", err)
	}

	m := &Manager{
		identity:  identity,
		env:       env,
		tokenPath: DefaultTokenPath,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.tokenPath = normalizePath(m.tokenPath, DefaultTokenPath)

	return m, nil
}

// Identity returns the application identity.
func (m *Manager) Identity() Identity {
	return m.identity
}

// Environment returns the environment the manager authenticates against.
func (m *Manager) Environment() environment.Environment {
	return m.env
}

// Credential returns the current credential, which may be nil or dead. It never blocks.
func (m *Manager) Credential() *credential.Credential {
	return m.current.Load()
}

// SetCredential replaces the current credential without notifying the listener.
func (m *Manager) SetCredential(c *credential.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Store(c)
}

// SetListener registers l as the only listener, replacing any previous one. Nil removes it.
func (m *Manager) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// Acquire performs the grant exchange and stores the resulting credential. The listener's
// OnCredentialRefreshed is called exactly once on success.
//
// Errors:
//   - ErrInvalidGrant when the grant misses required fields (no request is sent)
//   - *InvalidCredentialError when the endpoint answers 401
//   - *TransportError for any other non-2xx answer
//   - *ScopeMismatchError when the granted scope does not cover the requested scope
//   - wrapped network errors otherwise
func (m *Manager) Acquire(ctx context.Context, grant Grant) (*credential.Credential, error) {
	if grant == nil {
		return nil, fmt.Errorf("%w: grant is nil", ErrInvalidGrant)
	}
	if err := grant.validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	tok, err := grant.exchange(ctx, m)
	if err != nil {
		err = classify(grant.GrantType(), err)
		m.logf("oauth2client: %s grant failed: %v", grant.GrantType(), err)
		return nil, err
	}

	cred := m.credentialFrom(tok)
	if requested := grant.RequestedScope(); !cred.Scoped(requested) {
		m.logf("oauth2client: %s grant returned scope %q, requested %q", grant.GrantType(), cred.Scope, requested)
		return nil, &ScopeMismatchError{Requested: requested, Granted: cred.Scope}
	}

	m.store(cred)
	m.logf("oauth2client: obtained credential via %s grant: %s", grant.GrantType(), cred)

	return cred, nil
}

// Login performs a password grant.
func (m *Manager) Login(ctx context.Context, username, password, scope string) (*credential.Credential, error) {
	return m.Acquire(ctx, PasswordGrant{Username: username, Password: password, Scope: scope})
}

// AuthorizationCode exchanges a browser-flow code using the identity's redirect URI.
func (m *Manager) AuthorizationCode(ctx context.Context, code, scope string) (*credential.Credential, error) {
	return m.Acquire(ctx, AuthorizationCodeGrant{Code: code, Scope: scope})
}

// ClientCredentials performs a client-credentials grant. An empty scope requests "signup",
// the scope needed to create user accounts.
func (m *Manager) ClientCredentials(ctx context.Context, scope string) (*credential.Credential, error) {
	if scope == "" {
		scope = credential.ScopeSignup
	}
	return m.Acquire(ctx, ClientCredentialsGrant{Scope: scope})
}

// ExchangeToken trades a foreign token for a native credential.
func (m *Manager) ExchangeToken(ctx context.Context, foreignToken, scope string) (*credential.Credential, error) {
	return m.Acquire(ctx, TokenExchangeGrant{ForeignToken: foreignToken, Scope: scope})
}

// Refresh renews the current credential with its refresh token. It returns ErrNoRefreshToken
// without any network call when there is nothing to refresh.
func (m *Manager) Refresh(ctx context.Context) (*credential.Credential, error) {
	current := m.current.Load()
	if !current.Renewable() {
		return nil, ErrNoRefreshToken
	}
	return m.Acquire(ctx, RefreshGrant{RefreshToken: current.Refresh})
}

// Invalidate marks the current credential dead and asks the listener for a replacement.
// It returns the live replacement, or nil when there is none. The refresh token of the dead
// credential is kept. No network call is made, and without a current credential the listener
// is not asked.
func (m *Manager) Invalidate() *credential.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.invalidateLocked()
}

// invalidateIfCurrent invalidates only while the current credential is still the one carrying
// seenAccess. A live credential stored by someone else in the meantime is returned untouched.
func (m *Manager) invalidateIfCurrent(seenAccess string) *credential.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.current.Load(); current.Live() && current.Access != seenAccess {
		return current
	}
	return m.invalidateLocked()
}

// invalidateLocked requires m.mu.
func (m *Manager) invalidateLocked() *credential.Credential {
	previous := m.current.Load()
	if previous == nil {
		return nil
	}

	m.current.Store(previous.Invalidated())
	m.logf("oauth2client: credential invalidated: %s", previous)

	if m.listener == nil {
		return nil
	}

	replacement := m.listener.OnCredentialInvalid(previous)
	if !replacement.Live() {
		return nil
	}

	m.current.Store(replacement)
	m.logf("oauth2client: listener supplied replacement credential: %s", replacement)

	return replacement
}

// Reauthenticate replaces a credential the server rejected. seen is the credential that was
// sent with the rejected request.
//
// If another caller already replaced seen, the current credential is returned right away.
// Otherwise the credential is invalidated, the listener is asked for a replacement and, failing
// that, a refresh is attempted. Concurrent callers that saw the same credential share one
// attempt. ErrNoReplacement is returned when no live credential could be obtained.
func (m *Manager) Reauthenticate(ctx context.Context, seen *credential.Credential) (*credential.Credential, error) {
	var seenAccess string
	if seen != nil {
		seenAccess = seen.Access
	}

	if current := m.current.Load(); current.Live() && current.Access != seenAccess {
		return current, nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	// The shared attempt must not fail because the first caller gave up.
	detached := context.WithoutCancel(ctx)

	result, err, _ := m.flight.Do(seenAccess, func() (any, error) {
		if replacement := m.invalidateIfCurrent(seenAccess); replacement != nil {
			return replacement, nil
		}

		if !m.current.Load().Renewable() {
			return nil, ErrNoReplacement
		}

		refreshed, err := m.Refresh(detached)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoReplacement, err)
		}
		return refreshed, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*credential.Credential), nil
}

// AuthCodeURL builds the browser URL of the authorization-code flow on the authorization host.
// An empty endpoint means "/connect"; an empty scope omits the scope parameter.
func (m *Manager) AuthCodeURL(endpoint, scope string) string {
	cfg := m.oauthConfig(scope)
	cfg.Endpoint.AuthURL = m.endpointURL(normalizePath(endpoint, DefaultConnectPath))
	return cfg.AuthCodeURL("")
}

// store replaces the current credential and notifies the listener.
func (m *Manager) store(c *credential.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current.Store(c)
	if m.listener != nil {
		m.listener.OnCredentialRefreshed(c)
	}
}

func (m *Manager) oauthConfig(scope string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.identity.ClientID,
		ClientSecret: m.identity.ClientSecret,
		RedirectURL:  m.identity.RedirectURI,
		Scopes:       strings.Fields(scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:   m.endpointURL(DefaultConnectPath),
			TokenURL:  m.endpointURL(m.tokenPath),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (m *Manager) clientCredentialsConfig(scope string, params url.Values) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:       m.identity.ClientID,
		ClientSecret:   m.identity.ClientSecret,
		TokenURL:       m.endpointURL(m.tokenPath),
		Scopes:         strings.Fields(scope),
		EndpointParams: params,
		AuthStyle:      oauth2.AuthStyleInParams,
	}
}

func (m *Manager) endpointURL(path string) string {
	u := m.env.AuthURL()
	u.Path = path
	return u.String()
}

func (m *Manager) credentialFrom(tok *oauth2.Token) *credential.Credential {
	c := &credential.Credential{
		Access:     tok.AccessToken,
		Refresh:    tok.RefreshToken,
		ObtainedAt: m.now(),
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		c.Scope = scope
	}
	c.ExpiresIn = expiresIn(tok, c.ObtainedAt)
	return c
}

// expiresIn reads the server-reported lifetime in seconds. Non-expiring credentials yield 0.
func expiresIn(tok *oauth2.Token, now time.Time) int {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	case int:
		return v
	case int64:
		return int(v)
	}

	if tok.Expiry.IsZero() {
		return 0
	}
	return int(tok.Expiry.Sub(now).Round(time.Second) / time.Second)
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

func normalizePath(path, fallback string) string {
	if path == "" {
		return fallback
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}
