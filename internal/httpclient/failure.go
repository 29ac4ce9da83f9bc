package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

const crossOriginMessage = `The request was blocked by a cross-origin restriction.

The target (or a redirect it issued) is served from a different origin than the one the request started from, and the client refused to follow it. Credentials and cookies are only sent to the originating origin, so the exchange could not be completed.

Ways to proceed:
  - Point the test directly at the final URL instead of one that redirects elsewhere.
  - Disable same-origin mode if following cross-origin redirects is intended.
  - Ask the API owner to allow the calling origin, or route the test through a proxy on the same origin.`

// diagnose maps a transport error to a failure kind and a human-readable
// explanation.
func diagnose(err error) (FailureKind, string) {
	if err == nil {
		return FailureTransport, "request failed for an unknown reason"
	}

	if isCrossOriginRejection(err) {
		return FailureCrossOrigin, crossOriginMessage
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded), isTimeout(err):
		return FailureTimeout, fmt.Sprintf("Request timed out: %v", err)
	case errors.Is(err, context.Canceled):
		return FailureCanceled, fmt.Sprintf("Request canceled before a response arrived: %v", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureDNS, fmt.Sprintf("Could not resolve host %q: %v", dnsErr.Name, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureConnectionRefused, fmt.Sprintf("Connection refused by the target: %v", err)
	}

	return FailureTransport, fmt.Sprintf("Network error: %v", err)
}

// isCrossOriginRejection reports whether err looks like a cross-origin
// rejection: either the same-origin redirect policy fired, or the error is a
// generic client error whose message says the fetch failed.
func isCrossOriginRejection(err error) bool {
	if errors.Is(err, ErrCrossOrigin) {
		return true
	}
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return false
	}
	return strings.Contains(strings.ToLower(urlErr.Error()), "failed to fetch")
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// FailureLabel returns a display label for a failure kind.
func FailureLabel(kind FailureKind) string {
	switch kind {
	case FailureNone:
		return "None"
	case FailureTimeout:
		return "Timeout"
	case FailureDNS:
		return "DNS lookup failed"
	case FailureConnectionRefused:
		return "Connection refused"
	case FailureCrossOrigin:
		return "Cross-origin rejection"
	case FailureCanceled:
		return "Canceled"
	case FailureBodyProcessing:
		return "Body processing error"
	case FailureTransport:
		return "Network error"
	default:
		return strings.ReplaceAll(string(kind), "_", " ")
	}
}
