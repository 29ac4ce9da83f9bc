package httpclient

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// MaxResponseBytes caps how much of a response body is read per attempt.
const MaxResponseBytes = 10 << 20

// ErrBodyTooLarge is returned when a response body is longer than
// MaxResponseBytes. The body is not truncated and decoded.
var ErrBodyTooLarge = fmt.Errorf("response body exceeds %d bytes", MaxResponseBytes)

// ErrInvalidJSON is returned when a response declares a JSON content type
// but its body does not parse.
var ErrInvalidJSON = errors.New("response body is not valid JSON")

// ResolveBody returns the request body from either an inline string or a
// file path. Supplying both is an error.
func ResolveBody(inline, path string) (string, error) {
	path = strings.TrimSpace(path)
	if inline != "" && path != "" {
		return "", errors.New("body and body file cannot both be provided")
	}
	if path == "" {
		return inline, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("body file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("body file %q is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("body file: %w", err)
	}
	return string(data), nil
}

// IsJSONContentType reports whether a Content-Type header denotes JSON.
func IsJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// readBody reads and decodes the response body. JSON bodies decode into
// maps, slices and scalars; everything else is returned as a string.
func readBody(resp *http.Response) (any, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(data) > MaxResponseBytes {
		return nil, ErrBodyTooLarge
	}

	if !IsJSONContentType(resp.Header.Get("Content-Type")) {
		return string(data), nil
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return gjson.ParseBytes(data).Value(), nil
}
