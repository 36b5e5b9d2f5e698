package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AmmannChristian/go-apiclient/environment"
)

// TokenPath is the token endpoint path served by TokenEndpoint.
const TokenPath = "/oauth2/token"

// NewLocalHTTPServer starts an HTTP server bound to IPv4 loopback only.
// The sandbox blocks IPv6 listeners, so force tcp4 to keep tests runnable.
func NewLocalHTTPServer(tb testing.TB, handler http.Handler) *httptest.Server {
	tb.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to create IPv4 listener: %v", err)
	}

	server := httptest.NewUnstartedServer(handler)
	server.Listener = listener
	server.Start()
	tb.Cleanup(server.Close)

	return server
}

// Host returns the host:port of a test server.
func Host(server *httptest.Server) string {
	return strings.TrimPrefix(strings.TrimPrefix(server.URL, "http://"), "https://")
}

// LocalEnvironment returns a plain-HTTP sandbox environment for local API and auth servers.
func LocalEnvironment(api, auth *httptest.Server) environment.Environment {
	return environment.Environment{
		Name:     "test",
		APIHost:  Host(api),
		AuthHost: Host(auth),
		Sandbox:  true,
	}
}

// RoundTripFunc allows inlining http.RoundTripper implementations.
type RoundTripFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls the underlying function.
func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// StaticResponse returns a RoundTripper that always responds with the given status and body.
func StaticResponse(status int, body string) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		return NewResponse(req, status, body), nil
	}
}

// NewResponse builds an in-memory response for req.
func NewResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

// TokenJSON renders a token endpoint success body. Empty fields are omitted.
func TokenJSON(access, refresh, scope string, expiresIn int) string {
	body := map[string]any{
		"access_token": access,
		"token_type":   "OAuth",
	}
	if refresh != "" {
		body["refresh_token"] = refresh
	}
	if scope != "" {
		body["scope"] = scope
	}
	if expiresIn > 0 {
		body["expires_in"] = expiresIn
	}

	data, _ := json.Marshal(body)
	return string(data)
}

// ErrorJSON renders a token endpoint error body.
func ErrorJSON(code string) string {
	data, _ := json.Marshal(map[string]string{"error": code})
	return string(data)
}

// TokenHandler answers one token request given its form values.
type TokenHandler func(form url.Values) (status int, body string)

// TokenEndpoint is a local OAuth2 token endpoint that records grant requests.
type TokenEndpoint struct {
	Server *httptest.Server

	mu       sync.Mutex
	requests []url.Values
	handler  TokenHandler
}

// NewTokenEndpoint starts a token endpoint on TokenPath. If handler is nil, every grant
// succeeds with a fixed refreshable token.
func NewTokenEndpoint(tb testing.TB, handler TokenHandler) *TokenEndpoint {
	tb.Helper()

	if handler == nil {
		handler = func(url.Values) (int, string) {
			return http.StatusOK, TokenJSON("mock-access-token", "mock-refresh-token", "*", 3600)
		}
	}

	te := &TokenEndpoint{handler: handler}
	te.Server = NewLocalHTTPServer(tb, http.HandlerFunc(te.serveHTTP))

	return te
}

func (te *TokenEndpoint) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != TokenPath || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	te.mu.Lock()
	te.requests = append(te.requests, r.PostForm)
	handler := te.handler
	te.mu.Unlock()

	status, body := handler(r.PostForm)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// SetHandler replaces the response handler.
func (te *TokenEndpoint) SetHandler(handler TokenHandler) {
	te.mu.Lock()
	defer te.mu.Unlock()
	te.handler = handler
}

// Requests returns a copy of the recorded grant forms.
func (te *TokenEndpoint) Requests() []url.Values {
	te.mu.Lock()
	defer te.mu.Unlock()

	out := make([]url.Values, len(te.requests))
	copy(out, te.requests)
	return out
}

// Count returns the number of token requests received.
func (te *TokenEndpoint) Count() int {
	te.mu.Lock()
	defer te.mu.Unlock()
	return len(te.requests)
}

// Host returns the endpoint's host:port.
func (te *TokenEndpoint) Host() string {
	return Host(te.Server)
}

// RecordingLogger captures Printf calls.
type RecordingLogger struct {
	mu       sync.Mutex
	messages []string
}

// Printf records a formatted message.
func (l *RecordingLogger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf(format, args...))
}

// Messages returns a copy of the recorded messages.
func (l *RecordingLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := make([]string, len(l.messages))
	copy(msgs, l.messages)
	return msgs
}

// Contains reports whether any recorded message contains substr.
func (l *RecordingLogger) Contains(substr string) bool {
	for _, msg := range l.Messages() {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// WriteTestCACert writes a self-signed CA certificate to the provided path for TLS tests.
func WriteTestCACert(tb testing.TB, path string) {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate CA key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		Subject:               pkix.Name{CommonName: "test-ca"},
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	writeCert(tb, template, privateKey, path, "")
}

// WriteTestCertAndKey writes a self-signed certificate and key to the provided paths.
func WriteTestCertAndKey(tb testing.TB, certPath, keyPath string) {
	tb.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		Subject:      pkix.Name{CommonName: "test-cert"},
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	}

	writeCert(tb, template, privateKey, certPath, keyPath)
}

func writeCert(tb testing.TB, template *x509.Certificate, key *rsa.PrivateKey, certPath, keyPath string) {
	tb.Helper()

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		tb.Fatalf("failed to create certificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(certPath, certPEM, 0o600); err != nil {
		tb.Fatalf("failed to write certificate: %v", err)
	}

	if keyPath == "" {
		return
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		tb.Fatalf("failed to write key: %v", err)
	}
}
