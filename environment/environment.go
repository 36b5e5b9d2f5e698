// Package environment describes which hosts an API client talks to.
//
// An Environment separates the resource API host from the authorization host, records whether each
// is reached over TLS, and marks non-production (sandbox) deployments where relaxed TLS
// verification may be allowed. Values are immutable and safe to share.
package environment

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Environment configures API and authorization hosts.
type Environment struct {
	// Name identifies the environment in logs (e.g., "live", "sandbox").
	Name string

	// APIHost is the resource API host, optionally with port (e.g., "api.example.com").
	APIHost string

	// AuthHost is the authorization host serving the token and connect endpoints.
	AuthHost string

	// SecureAPI selects https for the API host.
	SecureAPI bool

	// SecureAuth selects https for the authorization host.
	SecureAuth bool

	// Sandbox marks a non-production environment. Only sandbox environments may skip
	// TLS certificate verification.
	Sandbox bool
}

// New returns a production environment using TLS for both hosts.
func New(name, apiHost, authHost string) Environment {
	return Environment{
		Name:       name,
		APIHost:    apiHost,
		AuthHost:   authHost,
		SecureAPI:  true,
		SecureAuth: true,
	}
}

// NewSandbox returns a non-production environment using TLS for both hosts.
func NewSandbox(name, apiHost, authHost string) Environment {
	env := New(name, apiHost, authHost)
	env.Sandbox = true
	return env
}

// Validate checks that both hosts are set and carry no scheme or path.
func (e Environment) Validate() error {
	if e.APIHost == "" {
		return errors.New("environment: API host is required")
	}
	if e.AuthHost == "" {
		return errors.New("environment: auth host is required")
	}
	for _, host := range []string{e.APIHost, e.AuthHost} {
		if strings.Contains(host, "/") {
			return fmt.Errorf("environment: host %q must not contain a scheme or path", host)
		}
	}
	return nil
}

// APIURL returns the base URL of the resource API.
func (e Environment) APIURL() *url.URL {
	return &url.URL{Scheme: scheme(e.SecureAPI), Host: e.APIHost}
}

// AuthURL returns the base URL of the authorization host.
func (e Environment) AuthURL() *url.URL {
	return &url.URL{Scheme: scheme(e.SecureAuth), Host: e.AuthHost}
}

// IsAPIHost reports whether host refers to the API host. The comparison ignores case and,
// when either side omits a port, the port.
func (e Environment) IsAPIHost(host string) bool {
	if host == "" || e.APIHost == "" {
		return false
	}
	if strings.EqualFold(host, e.APIHost) {
		return true
	}

	name, port := splitHostPort(host)
	apiName, apiPort := splitHostPort(e.APIHost)
	if !strings.EqualFold(name, apiName) {
		return false
	}
	return port == "" || apiPort == "" || port == apiPort
}

// String returns the environment name.
func (e Environment) String() string {
	if e.Name == "" {
		return e.APIHost
	}
	return e.Name
}

func scheme(secure bool) string {
	if secure {
		return "https"
	}
	return "http"
}

func splitHostPort(hostport string) (string, string) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return strings.Trim(hostport, "[]"), ""
	}
	return host, port
}
