package oauth2client

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// Grant types sent in the grant_type form field.
const (
	GrantTypePassword          = "password"
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeTokenExchange     = "oauth1_token"
)

// Grant is an OAuth2 exchange mode. Client id and secret come from the manager's Identity.
// The set of grants is closed; use the types declared in this package.
type Grant interface {
	// GrantType returns the grant_type form value.
	GrantType() string

	// RequestedScope returns the scope the caller requires, or "" if any scope is acceptable.
	RequestedScope() string

	validate() error
	exchange(ctx context.Context, m *Manager) (*oauth2.Token, error)
}

// PasswordGrant exchanges user credentials for an access token.
type PasswordGrant struct {
	Username string
	Password string
	Scope    string
}

func (g PasswordGrant) GrantType() string      { return GrantTypePassword }
func (g PasswordGrant) RequestedScope() string { return g.Scope }

func (g PasswordGrant) validate() error {
	if g.Username == "" || g.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidGrant)
	}
	return nil
}

func (g PasswordGrant) exchange(ctx context.Context, m *Manager) (*oauth2.Token, error) {
	return m.oauthConfig(g.Scope).PasswordCredentialsToken(ctx, g.Username, g.Password)
}

// AuthorizationCodeGrant exchanges a code obtained through the browser flow.
// An empty RedirectURI falls back to the manager's Identity.
type AuthorizationCodeGrant struct {
	Code        string
	RedirectURI string
	Scope       string
}

func (g AuthorizationCodeGrant) GrantType() string      { return GrantTypeAuthorizationCode }
func (g AuthorizationCodeGrant) RequestedScope() string { return g.Scope }

func (g AuthorizationCodeGrant) validate() error {
	if g.Code == "" {
		return fmt.Errorf("%w: authorization code is required", ErrInvalidGrant)
	}
	return nil
}

func (g AuthorizationCodeGrant) exchange(ctx context.Context, m *Manager) (*oauth2.Token, error) {
	cfg := m.oauthConfig(g.Scope)
	if g.RedirectURI != "" {
		cfg.RedirectURL = g.RedirectURI
	}

	var opts []oauth2.AuthCodeOption
	if g.Scope != "" {
		opts = append(opts, oauth2.SetAuthURLParam("scope", g.Scope))
	}

	return cfg.Exchange(ctx, g.Code, opts...)
}

// ClientCredentialsGrant authenticates the application itself.
type ClientCredentialsGrant struct {
	Scope string
}

func (g ClientCredentialsGrant) GrantType() string      { return GrantTypeClientCredentials }
func (g ClientCredentialsGrant) RequestedScope() string { return g.Scope }
func (g ClientCredentialsGrant) validate() error        { return nil }

func (g ClientCredentialsGrant) exchange(ctx context.Context, m *Manager) (*oauth2.Token, error) {
	return m.clientCredentialsConfig(g.Scope, nil).Token(ctx)
}

// TokenExchangeGrant trades a token issued by a foreign system for a native credential.
// The foreign token travels in the refresh_token field.
type TokenExchangeGrant struct {
	ForeignToken string
	Scope        string
}

func (g TokenExchangeGrant) GrantType() string      { return GrantTypeTokenExchange }
func (g TokenExchangeGrant) RequestedScope() string { return g.Scope }

func (g TokenExchangeGrant) validate() error {
	if g.ForeignToken == "" {
		return fmt.Errorf("%w: foreign token is required", ErrInvalidGrant)
	}
	return nil
}

func (g TokenExchangeGrant) exchange(ctx context.Context, m *Manager) (*oauth2.Token, error) {
	params := url.Values{
		"grant_type":    {GrantTypeTokenExchange},
		"refresh_token": {g.ForeignToken},
	}

	tok, err := m.clientCredentialsConfig(g.Scope, params).Token(ctx)
	if err != nil {
		return nil, err
	}

	// The oauth2 package copies the request's refresh_token into responses lacking one.
	if tok.RefreshToken == g.ForeignToken {
		tok.RefreshToken = ""
	}
	return tok, nil
}

// RefreshGrant renews a credential using its refresh token.
type RefreshGrant struct {
	RefreshToken string
}

func (g RefreshGrant) GrantType() string      { return GrantTypeRefreshToken }
func (g RefreshGrant) RequestedScope() string { return "" }

func (g RefreshGrant) validate() error {
	if g.RefreshToken == "" {
		return ErrNoRefreshToken
	}
	return nil
}

func (g RefreshGrant) exchange(ctx context.Context, m *Manager) (*oauth2.Token, error) {
	return m.oauthConfig("").TokenSource(ctx, &oauth2.Token{RefreshToken: g.RefreshToken}).Token()
}
