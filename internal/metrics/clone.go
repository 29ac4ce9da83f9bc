package metrics

import "maps"

// Clone returns a copy of e that shares no maps or slices with it.
func (e Entry) Clone() Entry {
	e.Request.Headers = maps.Clone(e.Request.Headers)
	e.Response.Headers = maps.Clone(e.Response.Headers)
	e.Response.Body = cloneValue(e.Response.Body)
	return e
}

// CloneEntries deep-copies entries. A nil slice yields an empty one.
func CloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

// cloneValue copies the containers produced by JSON decoding.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
