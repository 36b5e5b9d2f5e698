package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const formContentType = "application/x-www-form-urlencoded"

// Request describes a call to the resource API: a path relative to the API host, parameters and
// an optional body. Requests are built by the caller and consumed by Client.Execute.
type Request struct {
	Path   string
	Params url.Values
	Header http.Header

	body        []byte
	contentType string
}

// NewRequest creates a request for path.
func NewRequest(path string) *Request {
	return &Request{
		Path:   path,
		Params: make(url.Values),
		Header: make(http.Header),
	}
}

// To creates a request for a formatted path, e.g. To("/tracks/%d/comments", id).
func To(format string, args ...any) *Request {
	return NewRequest(fmt.Sprintf(format, args...))
}

// With adds a parameter. Values are formatted with fmt.Sprint.
func (r *Request) With(name string, value any) *Request {
	if r.Params == nil {
		r.Params = make(url.Values)
	}
	r.Params.Add(name, fmt.Sprint(value))
	return r
}

// Set replaces a parameter.
func (r *Request) Set(name string, value any) *Request {
	if r.Params == nil {
		r.Params = make(url.Values)
	}
	r.Params.Set(name, fmt.Sprint(value))
	return r
}

// WithHeader sets a request header.
func (r *Request) WithHeader(name, value string) *Request {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(name, value)
	return r
}

// WithBody sets a raw body. Parameters are then sent in the query string.
func (r *Request) WithBody(contentType string, body []byte) *Request {
	r.contentType = contentType
	r.body = body
	return r
}

// IfNoneMatch makes the request conditional on the resource having changed since etag.
func (r *Request) IfNoneMatch(etag string) *Request {
	if etag == "" {
		return r
	}
	return r.WithHeader("If-None-Match", etag)
}

// build turns the request into an *http.Request against base. Parameters travel in the query
// for GET, HEAD and DELETE or when a raw body is set, and as a form body otherwise. Bodies are
// always replayable.
func (r *Request) build(ctx context.Context, method string, base *url.URL) (*http.Request, error) {
	ref, err := url.Parse(r.Path)
	if err != nil {
		return nil, fmt.Errorf("apiclient: invalid path %q: %w", r.Path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("apiclient: path %q must be relative to the API host", r.Path)
	}

	u := *base
	u.Path = "/" + strings.TrimPrefix(ref.Path, "/")
	query := ref.Query()

	var body io.Reader
	contentType := r.contentType

	switch {
	case r.body != nil:
		body = bytes.NewReader(r.body)
		mergeValues(query, r.Params)
	case queryMethod(method) || len(r.Params) == 0:
		mergeValues(query, r.Params)
	default:
		body = strings.NewReader(r.Params.Encode())
		contentType = formContentType
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}

	for name, values := range r.Header {
		req.Header[name] = append([]string(nil), values...)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

func queryMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	}
	return false
}

func mergeValues(dst, src url.Values) {
	for name, values := range src {
		dst[name] = append(dst[name], values...)
	}
}
