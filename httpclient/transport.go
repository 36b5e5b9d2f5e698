package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/AmmannChristian/go-apiclient/credential"
)

const (
	// DefaultContentType is sent as Accept when a request does not set one.
	DefaultContentType = "application/json"

	// DefaultUserAgent is sent when a request does not set a User-Agent.
	DefaultUserAgent = "go-apiclient/1.0"
)

// maxRejectedBodyBytes bounds how much of a 401 body is kept in memory.
const maxRejectedBodyBytes = 64 << 10

// Credentials supplies the credential attached to each request and replaces it after rejection.
// *oauth2client.Manager implements Credentials.
type Credentials interface {
	Credential() *credential.Credential
	Reauthenticate(ctx context.Context, seen *credential.Credential) (*credential.Credential, error)
}

// Logger is an interface for optional logging of authentication retries.
type Logger interface {
	Printf(format string, args ...any)
}

// Authorize returns a clone of req carrying the credential's Authorization header. Accept is
// set to contentType (DefaultContentType if empty) and User-Agent to DefaultUserAgent, each
// only when the request does not set them. Neither req nor cred is modified.
func Authorize(req *http.Request, cred *credential.Credential, contentType string) *http.Request {
	if contentType == "" {
		contentType = DefaultContentType
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", cred.AuthorizationHeader())
	if out.Header.Get("Accept") == "" {
		out.Header.Set("Accept", contentType)
	}
	if out.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", DefaultUserAgent)
	}

	return out
}

// Transport is an http.RoundTripper that authenticates requests with the current credential.
//
// When the server answers 401, Transport asks Manager for a replacement credential and retries
// the request exactly once. A second 401 is returned to the caller. Transport errors are never
// retried, and requests whose body cannot be replayed are not retried either.
type Transport struct {
	// Base is the underlying transport, typically a *pool.Pool. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	// Manager provides and replaces credentials.
	Manager Credentials

	// ContentType is the default Accept value.
	ContentType string

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// Logger receives retry events. Optional.
	Logger Logger
}

// NewTransport creates a Transport with default content type and user agent.
func NewTransport(manager Credentials, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &Transport{
		Base:    base,
		Manager: manager,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Manager == nil {
		closeRequestBody(req)
		return nil, errors.New("httpclient: Manager is nil")
	}

	cred := t.Manager.Credential()

	resp, err := t.base().RoundTrip(t.authorize(req, cred))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if !replayable(req) {
		t.logf("httpclient: %s %s rejected, body cannot be replayed", req.Method, req.URL.Redacted())
		return resp, nil
	}

	// Release the connection first: re-authentication may need a slot from the same pool.
	resp.Body = buffer(resp.Body)

	replacement, err := t.Manager.Reauthenticate(req.Context(), cred)
	if err != nil {
		t.logf("httpclient: %s %s rejected: %v", req.Method, req.URL.Redacted(), err)
		return resp, nil
	}

	retry, err := rewind(req)
	if err != nil {
		t.logf("httpclient: %s %s rejected, rewinding body failed: %v", req.Method, req.URL.Redacted(), err)
		return resp, nil
	}

	_ = resp.Body.Close()
	t.logf("httpclient: retrying %s %s with replacement credential", req.Method, req.URL.Redacted())

	return t.base().RoundTrip(t.authorize(retry, replacement))
}

func (t *Transport) authorize(req *http.Request, cred *credential.Credential) *http.Request {
	out := Authorize(req, cred, t.ContentType)
	if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		out.Header.Set("User-Agent", t.UserAgent)
	}
	return out
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) logf(format string, args ...any) {
	if t.Logger != nil {
		t.Logger.Printf(format, args...)
	}
}

// replayable reports whether req can be sent a second time.
func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// rewind returns a copy of req with a fresh body.
func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("httpclient: get body: %w", err)
	}
	out.Body = body
	return out, nil
}

// buffer reads body into memory and closes it.
func buffer(body io.ReadCloser) io.ReadCloser {
	if body == nil || body == http.NoBody {
		return http.NoBody
	}
	data, _ := io.ReadAll(io.LimitReader(body, maxRejectedBodyBytes))
	_ = body.Close()
	return io.NopCloser(bytes.NewReader(data))
}

func closeRequestBody(req *http.Request) {
	if req != nil && req.Body != nil {
		_ = req.Body.Close()
	}
}
