// Package config provides configuration loading and parsing for burstprobe.
package config

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// settings is one level of a config file with its keys folded, so
// "delayMs", "delay_ms" and "delay-ms" all resolve to the same entry.
type settings map[string]any

func foldKey(key string) string {
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(key)))
}

// newSettings folds the keys of a decoded config section. YAML may decode
// nested sections with non-string keys, so both map shapes are accepted.
func newSettings(value any) (settings, error) {
	out := settings{}
	switch v := value.(type) {
	case nil:
	case map[string]any:
		for key, val := range v {
			out[foldKey(key)] = val
		}
	case map[any]any:
		for key, val := range v {
			out[foldKey(fmt.Sprint(key))] = val
		}
	default:
		return nil, fmt.Errorf("expected a section, got %T", value)
	}
	return out, nil
}

func (s settings) get(key string) (any, bool) {
	val, ok := s[foldKey(key)]
	return val, ok
}

// stringValue accepts scalars only; a list or section where text is
// expected is a config mistake rather than something to stringify.
func stringValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("expected text, got %T", value)
	}
}

func numberValue(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// intValue rejects fractional numbers: "repetitions: 2.5" is an error,
// not two repetitions.
func intValue(value any) (int, error) {
	if value == nil {
		return 0, nil
	}
	if n, ok := numberValue(value); ok {
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not a whole number", value)
		}
		return int(n), nil
	}
	s, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("expected a whole number, got %T", value)
	}
	if s = strings.TrimSpace(s); s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func floatValue(value any) (float64, error) {
	if value == nil {
		return 0, nil
	}
	if n, ok := numberValue(value); ok {
		return n, nil
	}
	s, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
	if s = strings.TrimSpace(s); s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func boolValue(value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if v = strings.TrimSpace(v); v == "" {
			return false, nil
		}
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("expected true or false, got %T", value)
	}
}

// durationValue reads "250ms"-style strings as Go durations and bare
// numbers, quoted or not, as a count of unit. Delays are written in
// milliseconds and timeouts in seconds.
func durationValue(value any, unit time.Duration) (time.Duration, error) {
	if value == nil {
		return 0, nil
	}
	if d, ok := value.(time.Duration); ok {
		return d, nil
	}
	if n, ok := numberValue(value); ok {
		return time.Duration(n * float64(unit)), nil
	}
	s, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("expected a duration, got %T", value)
	}
	if s = strings.TrimSpace(s); s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(unit)), nil
	}
	return time.ParseDuration(s)
}

// parseHeaderLine splits "Key=Value" or "Key: Value" and canonicalises the key.
func parseHeaderLine(line string) (string, string, error) {
	sep := strings.IndexAny(line, "=:")
	if sep < 0 {
		return "", "", fmt.Errorf("header must be in key=value format: %s", line)
	}
	key := http.CanonicalHeaderKey(strings.TrimSpace(line[:sep]))
	if key == "" {
		return "", "", fmt.Errorf("header key cannot be empty")
	}
	return key, strings.TrimSpace(line[sep+1:]), nil
}

// headerValues accepts either a mapping of header names to values or a
// list of header lines. Keys come back canonicalised.
func headerValues(value any) (map[string]string, error) {
	out := map[string]string{}
	switch v := value.(type) {
	case nil:
		return out, nil
	case map[string]string:
		for key, val := range v {
			if err := putHeader(out, key, val); err != nil {
				return nil, err
			}
		}
	case map[string]any, map[any]any:
		section, err := newRawSection(v)
		if err != nil {
			return nil, err
		}
		for key, raw := range section {
			val, err := stringValue(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			if err := putHeader(out, key, val); err != nil {
				return nil, err
			}
		}
	default:
		lines, err := stringList(value)
		if err != nil {
			return nil, fmt.Errorf("expected a mapping or list of headers: %w", err)
		}
		for _, line := range lines {
			key, val, err := parseHeaderLine(line)
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
	}
	return out, nil
}

func putHeader(dst map[string]string, key, val string) error {
	key = http.CanonicalHeaderKey(strings.TrimSpace(key))
	if key == "" {
		return fmt.Errorf("header key cannot be empty")
	}
	dst[key] = val
	return nil
}

// newRawSection is newSettings without key folding; header names keep
// their hyphens.
func newRawSection(value any) (map[string]any, error) {
	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[fmt.Sprint(key)] = val
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a mapping, got %T", value)
}

func stringList(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, err := stringValue(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
}

// thresholdValues accepts one expression or a list of them; blank
// entries are dropped so a trailing "- " in YAML is harmless.
func thresholdValues(value any) ([]string, error) {
	list, err := stringList(value)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, expr := range list {
		if expr = strings.TrimSpace(expr); expr != "" {
			out = append(out, expr)
		}
	}
	return out, nil
}
