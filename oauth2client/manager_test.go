package oauth2client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AmmannChristian/go-apiclient/credential"
	"github.com/AmmannChristian/go-apiclient/environment"
	"github.com/AmmannChristian/go-apiclient/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = Identity{
	ClientID:     "test-client",
	ClientSecret: "test-secret",
	RedirectURI:  "https://app.example.com/callback",
}

type recordingListener struct {
	mu          sync.Mutex
	refreshed   []*credential.Credential
	invalidated []*credential.Credential
	replacement *credential.Credential
}

func (l *recordingListener) OnCredentialRefreshed(c *credential.Credential) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshed = append(l.refreshed, c)
}

func (l *recordingListener) OnCredentialInvalid(dead *credential.Credential) *credential.Credential {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invalidated = append(l.invalidated, dead)
	return l.replacement
}

func (l *recordingListener) refreshCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.refreshed)
}

func (l *recordingListener) invalidCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.invalidated)
}

func testEnvironment(authHost string) environment.Environment {
	return environment.Environment{
		Name:     "test",
		APIHost:  "api.invalid",
		AuthHost: authHost,
		Sandbox:  true,
	}
}

func newTestManager(t *testing.T, te *testutil.TokenEndpoint, opts ...Option) *Manager {
	t.Helper()

	m, err := NewManager(testIdentity, testEnvironment(te.Host()), opts...)
	require.NoError(t, err)
	return m
}

func tokenResponse(access, refresh, scope string, expiresIn int) testutil.TokenHandler {
	return func(url.Values) (int, string) {
		return http.StatusOK, testutil.TokenJSON(access, refresh, scope, expiresIn)
	}
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		env      environment.Environment
		wantErr  bool
	}{
		{
			name:     "valid configuration",
			identity: testIdentity,
			env:      environment.New("live", "api.example.com", "example.com"),
		},
		{
			name:     "missing client id",
			identity: Identity{ClientSecret: "secret"},
			env:      environment.New("live", "api.example.com", "example.com"),
			wantErr:  true,
		},
		{
			name:     "missing auth host",
			identity: testIdentity,
			env:      environment.Environment{APIHost: "api.example.com"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(tt.identity, tt.env)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, m)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, DefaultTokenPath, m.tokenPath)
			assert.Nil(t, m.Credential())
			assert.Equal(t, tt.identity, m.Identity())
		})
	}
}

func TestNewManager_TokenPath(t *testing.T) {
	m, err := NewManager(testIdentity, environment.New("live", "api.example.com", "example.com"), WithTokenPath("oauth/token"))
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/oauth/token", m.endpointURL(m.tokenPath))
}

func TestManager_Acquire_GrantForms(t *testing.T) {
	tests := []struct {
		name  string
		grant Grant
		want  url.Values
	}{
		{
			name:  "password",
			grant: PasswordGrant{Username: "alice", Password: "s3cret", Scope: "*"},
			want: url.Values{
				"grant_type": {"password"},
				"username":   {"alice"},
				"password":   {"s3cret"},
				"scope":      {"*"},
			},
		},
		{
			name:  "authorization code",
			grant: AuthorizationCodeGrant{Code: "code-123"},
			want: url.Values{
				"grant_type":   {"authorization_code"},
				"code":         {"code-123"},
				"redirect_uri": {testIdentity.RedirectURI},
			},
		},
		{
			name:  "authorization code with redirect override",
			grant: AuthorizationCodeGrant{Code: "code-123", RedirectURI: "https://other.example.com/cb", Scope: "*"},
			want: url.Values{
				"grant_type":   {"authorization_code"},
				"code":         {"code-123"},
				"redirect_uri": {"https://other.example.com/cb"},
				"scope":        {"*"},
			},
		},
		{
			name:  "client credentials",
			grant: ClientCredentialsGrant{Scope: "*"},
			want: url.Values{
				"grant_type": {"client_credentials"},
				"scope":      {"*"},
			},
		},
		{
			name:  "token exchange",
			grant: TokenExchangeGrant{ForeignToken: "foreign-token"},
			want: url.Values{
				"grant_type":    {"oauth1_token"},
				"refresh_token": {"foreign-token"},
			},
		},
		{
			name:  "refresh",
			grant: RefreshGrant{RefreshToken: "refresh-1"},
			want: url.Values{
				"grant_type":    {"refresh_token"},
				"refresh_token": {"refresh-1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := testutil.NewTokenEndpoint(t, nil)
			m := newTestManager(t, te)

			cred, err := m.Acquire(context.Background(), tt.grant)
			require.NoError(t, err)
			assert.Equal(t, "mock-access-token", cred.Access)

			requests := te.Requests()
			require.Len(t, requests, 1)

			form := requests[0]
			assert.Equal(t, testIdentity.ClientID, form.Get("client_id"))
			assert.Equal(t, testIdentity.ClientSecret, form.Get("client_secret"))
			for key, values := range tt.want {
				assert.Equal(t, values, form[key], "form field %s", key)
			}
			if _, ok := tt.want["scope"]; !ok {
				assert.Empty(t, form.Get("scope"))
			}
		})
	}
}

func TestManager_Acquire_StoresAndNotifies(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, tokenResponse("access-1", "refresh-1", "* non-expiring", 3600))
	listener := &recordingListener{}
	m := newTestManager(t, te, WithListener(listener))

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return now }

	cred, err := m.Login(context.Background(), "alice", "s3cret", credential.ScopeNonExpiring)
	require.NoError(t, err)

	assert.Equal(t, "access-1", cred.Access)
	assert.Equal(t, "refresh-1", cred.Refresh)
	assert.Equal(t, "* non-expiring", cred.Scope)
	assert.Equal(t, 3600, cred.ExpiresIn)
	assert.Equal(t, now, cred.ObtainedAt)
	assert.Same(t, cred, m.Credential())

	require.Equal(t, 1, listener.refreshCount())
	assert.Same(t, cred, listener.refreshed[0])
	assert.Zero(t, listener.invalidCount())
}

func TestManager_Acquire_InvalidGrant(t *testing.T) {
	tests := []struct {
		name  string
		grant Grant
	}{
		{name: "nil grant", grant: nil},
		{name: "password without username", grant: PasswordGrant{Password: "x"}},
		{name: "password without password", grant: PasswordGrant{Username: "x"}},
		{name: "code without code", grant: AuthorizationCodeGrant{}},
		{name: "exchange without token", grant: TokenExchangeGrant{}},
	}

	te := testutil.NewTokenEndpoint(t, nil)
	m := newTestManager(t, te)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Acquire(context.Background(), tt.grant)
			assert.ErrorIs(t, err, ErrInvalidGrant)
		})
	}

	assert.Zero(t, te.Count(), "invalid grants must not reach the network")
}

func TestManager_Acquire_Unauthorized(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, func(url.Values) (int, string) {
		return http.StatusUnauthorized, testutil.ErrorJSON("invalid_client")
	})
	listener := &recordingListener{}
	previous := credential.New("old-access", "old-refresh")
	m := newTestManager(t, te, WithListener(listener), WithCredential(previous))

	_, err := m.Login(context.Background(), "alice", "wrong", "")
	require.Error(t, err)

	var invalid *InvalidCredentialError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, http.StatusUnauthorized, invalid.StatusCode)
	assert.Equal(t, "invalid_client", invalid.ServerError)
	assert.ErrorIs(t, err, ErrInvalidCredential)

	assert.Same(t, previous, m.Credential(), "failed grant must not replace the credential")
	assert.Zero(t, listener.refreshCount())
}

func TestManager_Acquire_TransportError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
		wantServer string
	}{
		{
			name:       "server error with json body",
			status:     http.StatusInternalServerError,
			body:       testutil.ErrorJSON("server_error"),
			wantReason: "Internal Server Error",
			wantServer: "server_error",
		},
		{
			name:       "bad request",
			status:     http.StatusBadRequest,
			body:       testutil.ErrorJSON("invalid_grant"),
			wantReason: "Bad Request",
			wantServer: "invalid_grant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := testutil.NewTokenEndpoint(t, func(url.Values) (int, string) {
				return tt.status, tt.body
			})
			m := newTestManager(t, te)

			_, err := m.Acquire(context.Background(), ClientCredentialsGrant{})
			require.Error(t, err)

			var transportErr *TransportError
			require.ErrorAs(t, err, &transportErr)
			assert.Equal(t, tt.status, transportErr.StatusCode)
			assert.Equal(t, tt.wantReason, transportErr.Reason)
			assert.Equal(t, tt.wantServer, transportErr.ServerError)
			assert.NotErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestManager_Acquire_NetworkError(t *testing.T) {
	failure := errors.New("connection reset")
	client := &http.Client{Transport: testutil.RoundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, failure
	})}

	m, err := NewManager(testIdentity, testEnvironment("auth.invalid"), WithHTTPClient(client))
	require.NoError(t, err)

	_, err = m.Acquire(context.Background(), ClientCredentialsGrant{})
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)

	var transportErr *TransportError
	assert.False(t, errors.As(err, &transportErr))
	assert.Nil(t, m.Credential())
}

func TestManager_Acquire_ScopeMismatch(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, tokenResponse("access-1", "", "other", 0))
	listener := &recordingListener{}
	m := newTestManager(t, te, WithListener(listener))

	_, err := m.ClientCredentials(context.Background(), credential.ScopeSignup)
	require.Error(t, err)

	var mismatch *ScopeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "signup", mismatch.Requested)
	assert.Equal(t, "other", mismatch.Granted)

	assert.Equal(t, 1, te.Count())
	assert.Nil(t, m.Credential())
	assert.Zero(t, listener.refreshCount())
}

func TestManager_ClientCredentials_DefaultScope(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, tokenResponse("signup-access", "", "signup", 0))
	m := newTestManager(t, te)

	cred, err := m.ClientCredentials(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "signup", te.Requests()[0].Get("scope"))
	assert.True(t, cred.Scoped(credential.ScopeSignup))
	assert.False(t, cred.Renewable())
}

func TestManager_ExchangeToken_DoesNotKeepForeignToken(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, tokenResponse("native-access", "", "*", 0))
	m := newTestManager(t, te)

	cred, err := m.ExchangeToken(context.Background(), "foreign-token", "")
	require.NoError(t, err)

	assert.Equal(t, "native-access", cred.Access)
	assert.Empty(t, cred.Refresh)
	assert.Zero(t, cred.ExpiresIn)
}

func TestManager_Refresh(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, tokenResponse("access-2", "refresh-2", "*", 3600))
	listener := &recordingListener{}
	m := newTestManager(t, te, WithListener(listener), WithCredential(credential.New("access-1", "refresh-1")))

	cred, err := m.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "access-2", cred.Access)
	assert.Equal(t, "refresh-2", cred.Refresh)
	assert.Equal(t, "refresh-1", te.Requests()[0].Get("refresh_token"))
	assert.Equal(t, 1, listener.refreshCount())
}

func TestManager_Refresh_NoRefreshToken(t *testing.T) {
	tests := []struct {
		name    string
		current *credential.Credential
	}{
		{name: "no credential", current: nil},
		{name: "non-expiring credential", current: credential.New("access-1", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := testutil.NewTokenEndpoint(t, nil)
			m := newTestManager(t, te, WithCredential(tt.current))

			_, err := m.Refresh(context.Background())
			assert.ErrorIs(t, err, ErrNoRefreshToken)
			assert.Zero(t, te.Count())
		})
	}
}

func TestManager_Invalidate_NoListener(t *testing.T) {
	m, err := NewManager(testIdentity, testEnvironment("auth.invalid"), WithCredential(credential.New("access-1", "refresh-1")))
	require.NoError(t, err)

	assert.Nil(t, m.Invalidate())

	current := m.Credential()
	assert.False(t, current.Live())
	assert.Equal(t, "refresh-1", current.Refresh, "refresh token survives invalidation")
	assert.Equal(t, "OAuth invalidated", current.AuthorizationHeader())
}

func TestManager_Invalidate_WithListener(t *testing.T) {
	replacement := credential.New("from-listener", "")
	listener := &recordingListener{replacement: replacement}

	m, err := NewManager(testIdentity, testEnvironment("auth.invalid"),
		WithCredential(credential.New("access-1", "refresh-1")),
		WithListener(listener),
	)
	require.NoError(t, err)

	got := m.Invalidate()
	assert.Same(t, replacement, got)
	assert.Same(t, replacement, m.Credential())

	require.Equal(t, 1, listener.invalidCount())
	assert.Equal(t, "access-1", listener.invalidated[0].Access, "listener receives the rejected credential")
	assert.Zero(t, listener.refreshCount())
}

func TestManager_Invalidate_ListenerReturnsDeadCredential(t *testing.T) {
	listener := &recordingListener{replacement: &credential.Credential{Refresh: "only-refresh"}}
	m, err := NewManager(testIdentity, testEnvironment("auth.invalid"),
		WithCredential(credential.New("access-1", "refresh-1")),
		WithListener(listener),
	)
	require.NoError(t, err)

	assert.Nil(t, m.Invalidate())
	assert.False(t, m.Credential().Live())
}

func TestManager_Invalidate_NoCredential(t *testing.T) {
	listener := &recordingListener{replacement: credential.New("from-listener", "")}
	m, err := NewManager(testIdentity, testEnvironment("auth.invalid"), WithListener(listener))
	require.NoError(t, err)

	assert.Nil(t, m.Invalidate())
	assert.Nil(t, m.Credential())
	assert.Zero(t, listener.invalidCount(), "nothing to invalidate, listener must not be asked")
}

func TestManager_InvalidateIfCurrent_KeepsNewerCredential(t *testing.T) {
	listener := &recordingListener{}
	fresh := credential.New("access-2", "refresh-2")
	m, err := NewManager(testIdentity, testEnvironment("auth.invalid"),
		WithCredential(fresh),
		WithListener(listener),
	)
	require.NoError(t, err)

	// A request rejected with access-1 arrives after access-2 was stored.
	got := m.invalidateIfCurrent("access-1")

	assert.Same(t, fresh, got)
	assert.Same(t, fresh, m.Credential())
	assert.Zero(t, listener.invalidCount())
}

func TestManager_InvalidateIfCurrent_InvalidatesSeenCredential(t *testing.T) {
	listener := &recordingListener{}
	seen := credential.New("access-1", "refresh-1")
	m, err := NewManager(testIdentity, testEnvironment("auth.invalid"),
		WithCredential(seen),
		WithListener(listener),
	)
	require.NoError(t, err)

	assert.Nil(t, m.invalidateIfCurrent("access-1"))
	assert.False(t, m.Credential().Live())
	assert.Equal(t, "refresh-1", m.Credential().Refresh)
	assert.Equal(t, 1, listener.invalidCount())
}

func TestManager_SetListener_Replaces(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, nil)
	first := &recordingListener{}
	second := &recordingListener{}
	m := newTestManager(t, te, WithListener(first))

	m.SetListener(second)
	_, err := m.ClientCredentials(context.Background(), "*")
	require.NoError(t, err)

	assert.Zero(t, first.refreshCount())
	assert.Equal(t, 1, second.refreshCount())

	m.SetListener(nil)
	assert.Nil(t, m.Invalidate())
}

func TestManager_SetCredential(t *testing.T) {
	listener := &recordingListener{}
	m, err := NewManager(testIdentity, testEnvironment("auth.invalid"), WithListener(listener))
	require.NoError(t, err)

	cred := credential.New("restored", "restored-refresh")
	m.SetCredential(cred)

	assert.Same(t, cred, m.Credential())
	assert.Zero(t, listener.refreshCount())
}

func TestManager_Reauthenticate_Refreshes(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, tokenResponse("access-2", "refresh-2", "*", 3600))
	listener := &recordingListener{}
	seen := credential.New("access-1", "refresh-1")
	m := newTestManager(t, te, WithCredential(seen), WithListener(listener))

	cred, err := m.Reauthenticate(context.Background(), seen)
	require.NoError(t, err)

	assert.Equal(t, "access-2", cred.Access)
	assert.Same(t, cred, m.Credential())
	assert.Equal(t, 1, listener.invalidCount())
	assert.Equal(t, 1, listener.refreshCount())
	assert.Equal(t, 1, te.Count())
}

func TestManager_Reauthenticate_ListenerReplacement(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, nil)
	replacement := credential.New("from-listener", "")
	seen := credential.New("access-1", "refresh-1")
	m := newTestManager(t, te, WithCredential(seen), WithListener(&recordingListener{replacement: replacement}))

	cred, err := m.Reauthenticate(context.Background(), seen)
	require.NoError(t, err)

	assert.Same(t, replacement, cred)
	assert.Zero(t, te.Count(), "listener replacement must not trigger a refresh")
}

func TestManager_Reauthenticate_AlreadyReplaced(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, nil)
	current := credential.New("access-2", "refresh-2")
	m := newTestManager(t, te, WithCredential(current))

	cred, err := m.Reauthenticate(context.Background(), credential.New("access-1", "refresh-1"))
	require.NoError(t, err)

	assert.Same(t, current, cred)
	assert.Zero(t, te.Count())
	assert.True(t, m.Credential().Live())
}

func TestManager_Reauthenticate_NoReplacement(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, nil)
	seen := credential.New("non-expiring-access", "")
	m := newTestManager(t, te, WithCredential(seen))

	_, err := m.Reauthenticate(context.Background(), seen)
	assert.ErrorIs(t, err, ErrNoReplacement)
	assert.Zero(t, te.Count())
	assert.False(t, m.Credential().Live())
}

func TestManager_Reauthenticate_RefreshRejected(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, func(url.Values) (int, string) {
		return http.StatusUnauthorized, testutil.ErrorJSON("invalid_grant")
	})
	seen := credential.New("access-1", "revoked-refresh")
	m := newTestManager(t, te, WithCredential(seen))

	_, err := m.Reauthenticate(context.Background(), seen)
	assert.ErrorIs(t, err, ErrNoReplacement)
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.False(t, m.Credential().Live())
}

func TestManager_Reauthenticate_Concurrent(t *testing.T) {
	var calls atomic.Int32
	te := testutil.NewTokenEndpoint(t, func(url.Values) (int, string) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return http.StatusOK, testutil.TokenJSON("access-2", "refresh-2", "*", 3600)
	})
	listener := &recordingListener{}
	seen := credential.New("access-1", "refresh-1")
	m := newTestManager(t, te, WithCredential(seen), WithListener(listener))

	const callers = 20
	results := make([]*credential.Credential, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = m.Reauthenticate(context.Background(), seen)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-2", results[i].Access)
	}

	assert.Equal(t, int32(1), calls.Load(), "concurrent re-authentication must collapse to one exchange")
	assert.Equal(t, 1, listener.refreshCount())
	assert.Equal(t, 1, listener.invalidCount())
}

func TestManager_Reauthenticate_CallerCancellation(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, tokenResponse("access-2", "refresh-2", "*", 3600))
	seen := credential.New("access-1", "refresh-1")
	m := newTestManager(t, te, WithCredential(seen))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cred, err := m.Reauthenticate(ctx, seen)
	require.NoError(t, err)
	assert.Equal(t, "access-2", cred.Access)
}

func TestManager_AuthCodeURL(t *testing.T) {
	m, err := NewManager(testIdentity, environment.New("live", "api.example.com", "example.com"))
	require.NoError(t, err)

	tests := []struct {
		name      string
		endpoint  string
		scope     string
		wantPath  string
		wantScope string
	}{
		{name: "defaults", wantPath: "/connect"},
		{name: "custom endpoint and scope", endpoint: "/authorize", scope: "non-expiring", wantPath: "/authorize", wantScope: "non-expiring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := m.AuthCodeURL(tt.endpoint, tt.scope)

			u, err := url.Parse(raw)
			require.NoError(t, err)

			assert.Equal(t, "https", u.Scheme)
			assert.Equal(t, "example.com", u.Host)
			assert.Equal(t, tt.wantPath, u.Path)

			q := u.Query()
			assert.Equal(t, "code", q.Get("response_type"))
			assert.Equal(t, testIdentity.ClientID, q.Get("client_id"))
			assert.Equal(t, testIdentity.RedirectURI, q.Get("redirect_uri"))
			assert.Equal(t, tt.wantScope, q.Get("scope"))
			assert.Empty(t, q.Get("state"))
			assert.Empty(t, q.Get("client_secret"))
		})
	}
}

func TestManager_WithLogger(t *testing.T) {
	te := testutil.NewTokenEndpoint(t, tokenResponse("very-secret-access-token", "very-secret-refresh", "*", 60))
	logger := &testutil.RecordingLogger{}
	m := newTestManager(t, te, WithLogger(logger))

	_, err := m.ClientCredentials(context.Background(), "*")
	require.NoError(t, err)
	m.Invalidate()

	assert.True(t, logger.Contains("obtained credential via client_credentials grant"))
	assert.True(t, logger.Contains("credential invalidated"))
	for _, msg := range logger.Messages() {
		assert.NotContains(t, msg, "very-secret-access-token")
		assert.NotContains(t, msg, "very-secret-refresh")
	}
}

func TestManager_WithLoggingEnabled(t *testing.T) {
	m, err := NewManager(testIdentity, testEnvironment("auth.invalid"), WithLoggingEnabled())
	require.NoError(t, err)
	assert.NotNil(t, m.logger)
}

func TestListenerFuncs(t *testing.T) {
	var refreshed *credential.Credential
	replacement := credential.New("next", "")

	l := ListenerFuncs{
		Refreshed: func(c *credential.Credential) { refreshed = c },
		Invalid:   func(*credential.Credential) *credential.Credential { return replacement },
	}

	c := credential.New("a", "r")
	l.OnCredentialRefreshed(c)
	assert.Same(t, c, refreshed)
	assert.Same(t, replacement, l.OnCredentialInvalid(c))

	var empty ListenerFuncs
	empty.OnCredentialRefreshed(c)
	assert.Nil(t, empty.OnCredentialInvalid(c))
}
