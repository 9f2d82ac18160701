package util

import "strings"

// FlattenHeaders lower-cases header names and joins repeated values with ", ".
// The result owns its strings.
func FlattenHeaders(headers map[string][]string) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		key := strings.Clone(strings.ToLower(name))
		joined := strings.Join(values, ", ")
		if prev, ok := out[key]; ok {
			joined = prev + ", " + joined
		}
		out[key] = strings.Clone(joined)
	}
	return out
}

// CloneMap copies a string map so it survives buffer reuse after the request.
func CloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.Clone(k)] = strings.Clone(v)
	}
	return out
}
