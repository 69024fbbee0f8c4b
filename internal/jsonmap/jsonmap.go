// Package jsonmap provides typed access to decoded JSON objects.
package jsonmap

import "fmt"

// Map asserts v as a JSON object.
func Map(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// Slice asserts v as a JSON array. Object and string slices built in Go are
// accepted too.
func Slice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []string:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	default:
		return nil, false
	}
}

// Get walks nested objects along path.
func Get(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetMap returns the object at path, or nil.
func GetMap(m map[string]any, path ...string) map[string]any {
	v, ok := Get(m, path...)
	if !ok {
		return nil
	}
	obj, _ := Map(v)
	return obj
}

// GetSlice returns the array at path, or nil.
func GetSlice(m map[string]any, path ...string) []any {
	v, ok := Get(m, path...)
	if !ok {
		return nil
	}
	s, _ := Slice(v)
	return s
}

// String renders scalars as text. nil becomes "".
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// Clone deep-copies objects and arrays. Scalars are shared.
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Clone(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
