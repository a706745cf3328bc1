package extract

import (
	"strconv"
	"strings"
)

// asMap returns v as a decoded JSON object, or nil.
func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asList returns v as a decoded JSON array, or nil.
func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

// scalarString renders a decoded JSON scalar as a string, the same way a CSV
// cell would read. Containers and nulls render empty.
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// firstScalar returns the first non-empty scalar among the named keys.
func firstScalar(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if v, ok := obj[k]; ok {
			if s := scalarString(v); s != "" {
				return s
			}
		}
	}
	return ""
}
