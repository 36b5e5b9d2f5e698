package pool

import (
	"net/url"
	"strconv"
	"strings"
)

// Route identifies a connection destination.
type Route struct {
	Scheme string
	Host   string
	Port   int
}

// RouteFor derives the route for a request URL, filling in default ports.
func RouteFor(u *url.URL) Route {
	scheme := strings.ToLower(u.Scheme)
	port, err := strconv.Atoi(u.Port())
	if err != nil || port == 0 {
		port = defaultPort(scheme)
	}

	return Route{
		Scheme: scheme,
		Host:   strings.ToLower(u.Hostname()),
		Port:   port,
	}
}

// HostPort returns "host:port" for the route.
func (r Route) HostPort() string {
	host := r.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return host + ":" + strconv.Itoa(r.Port)
}

// String returns "scheme://host:port".
func (r Route) String() string {
	return r.Scheme + "://" + r.HostPort()
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}
