package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CacheBustParam is the query parameter appended to every request URL.
const CacheBustParam = "_t"

// Template describes the request repeated by a run. It is read-only to the
// executor.
type Template struct {
	URL     string            `json:"url" yaml:"url"`
	Method  string            `json:"method" yaml:"method"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
}

// NormalizedMethod returns the upper-cased method, defaulting to GET.
func (t Template) NormalizedMethod() string {
	method := strings.ToUpper(strings.TrimSpace(t.Method))
	if method == "" {
		return http.MethodGet
	}
	return method
}

// HasBody reports whether the request carries a body. GET never does, and a
// blank or whitespace-only body counts as none.
func (t Template) HasBody() bool {
	return t.NormalizedMethod() != http.MethodGet && strings.TrimSpace(t.Body) != ""
}

// CloneHeaders returns a copy of the template headers.
func (t Template) CloneHeaders() map[string]string {
	if t.Headers == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(t.Headers))
	for k, v := range t.Headers {
		out[k] = v
	}
	return out
}

var noCacheHeaders = [...][2]string{
	{"Pragma", "no-cache"},
	{"Cache-Control", "no-cache, no-store, must-revalidate"},
}

// CacheBustedURL appends a timestamp parameter to raw. The existing query
// is kept byte for byte. When raw cannot be parsed it is returned unchanged.
func CacheBustedURL(raw string, now time.Time) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	param := CacheBustParam + "=" + strconv.FormatInt(now.UnixMilli(), 10)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String()
}

// buildRequest turns a template into an outgoing request.
func buildRequest(ctx context.Context, tmpl Template, now time.Time) (*http.Request, error) {
	target := strings.TrimSpace(tmpl.URL)
	if target == "" {
		return nil, errors.New("target URL is required")
	}
	method := tmpl.NormalizedMethod()

	var body io.Reader
	if tmpl.HasBody() {
		body = strings.NewReader(tmpl.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, CacheBustedURL(target, now), body)
	if err != nil {
		return nil, err
	}

	for key, value := range tmpl.Headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		req.Header.Set(canonicalKey, value)
	}

	for _, kv := range noCacheHeaders {
		if _, ok := req.Header[kv[0]]; !ok {
			req.Header.Set(kv[0], kv[1])
		}
	}

	return req, nil
}
