package credential

import (
	"fmt"
	"strings"
	"time"
)

// Well-known scopes.
const (
	// ScopeDefault requests the server's default scope set.
	ScopeDefault = "*"

	// ScopeSignup allows creating new user accounts with a client-credentials grant.
	ScopeSignup = "signup"

	// ScopeNonExpiring requests a credential without expiry and without refresh token.
	ScopeNonExpiring = "non-expiring"
)

// Scheme is the authorization scheme used in the Authorization header.
const Scheme = "OAuth"

// invalidatedAccess is sent instead of an access token when no live credential is available,
// so the server deterministically rejects the request.
const invalidatedAccess = "invalidated"

// Credential is an access/refresh token pair plus scope and expiry metadata.
type Credential struct {
	// Access is the bearer token attached to requests. Empty means the credential is dead.
	Access string `json:"access_token"`

	// Refresh is used for silent renewal. Empty when the grant is not renewable.
	Refresh string `json:"refresh_token,omitempty"`

	// Scope is the space-separated scope set granted by the server.
	Scope string `json:"scope,omitempty"`

	// ExpiresIn is the server-reported lifetime in seconds, 0 when non-expiring or unknown.
	ExpiresIn int `json:"expires_in,omitempty"`

	// ObtainedAt records when the credential was issued to this client.
	ObtainedAt time.Time `json:"obtained_at"`
}

// New creates a credential obtained now.
func New(access, refresh string) *Credential {
	return &Credential{
		Access:     access,
		Refresh:    refresh,
		ObtainedAt: time.Now(),
	}
}

// Live reports whether the credential carries an access token. A nil credential is not live.
func (c *Credential) Live() bool {
	return c != nil && c.Access != ""
}

// Renewable reports whether the credential carries a refresh token.
func (c *Credential) Renewable() bool {
	return c != nil && c.Refresh != ""
}

// Invalidated returns a copy with the access token removed. The refresh token is kept so the
// credential can still be renewed.
func (c *Credential) Invalidated() *Credential {
	if c == nil {
		return nil
	}
	dead := *c
	dead.Access = ""
	return &dead
}

// Scopes returns the granted scopes as a slice.
func (c *Credential) Scopes() []string {
	if c == nil {
		return nil
	}
	return strings.Fields(c.Scope)
}

// Scoped reports whether every scope in the space-separated scope string was granted.
// An empty scope string is always satisfied.
func (c *Credential) Scoped(scope string) bool {
	required := strings.Fields(scope)
	if len(required) == 0 {
		return true
	}

	granted := make(map[string]bool)
	for _, s := range c.Scopes() {
		granted[s] = true
	}

	for _, s := range required {
		if !granted[s] {
			return false
		}
	}
	return true
}

// ExpiresAt returns when the server said the credential would expire, or the zero time for
// non-expiring credentials. It is informational only; expiry is detected by server rejection.
func (c *Credential) ExpiresAt() time.Time {
	if c == nil || c.ExpiresIn <= 0 || c.ObtainedAt.IsZero() {
		return time.Time{}
	}
	return c.ObtainedAt.Add(time.Duration(c.ExpiresIn) * time.Second)
}

// AuthorizationHeader returns the Authorization header value for the credential.
// Nil or dead credentials yield "OAuth invalidated".
func (c *Credential) AuthorizationHeader() string {
	if !c.Live() {
		return Scheme + " " + invalidatedAccess
	}
	return Scheme + " " + c.Access
}

// String implements fmt.Stringer without revealing token material.
func (c *Credential) String() string {
	if c == nil {
		return "Credential<nil>"
	}
	return fmt.Sprintf("Credential{access=%s, refresh=%s, scope=%q, expires_in=%d}",
		redact(c.Access), redact(c.Refresh), c.Scope, c.ExpiresIn)
}

// GoString implements fmt.GoStringer for %#v, also redacting tokens.
func (c *Credential) GoString() string {
	return "credential." + c.String()
}

func redact(token string) string {
	if token == "" {
		return "<none>"
	}
	return "[REDACTED]"
}
