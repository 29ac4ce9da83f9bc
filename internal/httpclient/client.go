package httpclient

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// ErrCrossOrigin is returned by a same-origin client when a redirect leaves
// the origin of the original request.
var ErrCrossOrigin = errors.New("cross-origin redirect blocked")

const maxRedirects = 10

// ClientOptions tune the client returned by NewClient.
type ClientOptions struct {
	Timeout time.Duration
	// SameOriginOnly rejects redirects that change scheme, host or port.
	SameOriginOnly bool
}

// NewClient builds an HTTP client suited to repeated requests against one
// endpoint. Cookies are kept in a jar, so credentials are only replayed to
// the origin that issued them.
func NewClient(opts ClientOptions) *http.Client {
	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &http.Client{
		Timeout:       timeout,
		Transport:     transport,
		Jar:           jar,
		CheckRedirect: redirectPolicy(opts.SameOriginOnly),
	}
}

func redirectPolicy(sameOrigin bool) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if sameOrigin && len(via) > 0 && !SameOrigin(via[0].URL, req.URL) {
			return fmt.Errorf("%w: %s -> %s", ErrCrossOrigin, origin(via[0].URL), origin(req.URL))
		}
		return nil
	}
}

// SameOrigin reports whether a and b share scheme, host and port.
func SameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return origin(a) == origin(b)
}

func origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "80"
		case "https":
			port = "443"
		}
	}
	return scheme + "://" + net.JoinHostPort(host, port)
}
