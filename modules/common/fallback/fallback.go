package fallback

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SafeString returns a trimmed string or the provided fallback.
// Numbers and booleans are formatted rather than dropped.
func SafeString(value interface{}, fallback string) string {
	switch v := value.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return fallback
}

// SafeStringList accepts a list of scalars or a single scalar and returns
// the non-empty string forms in order. Anything else yields an empty list.
func SafeStringList(value interface{}) []string {
	out := []string{}

	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if s := SafeString(item, ""); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case map[string]interface{}:
		// 객체 형태는 findings로 해석할 수 없음
	case nil:
	default:
		if s := SafeString(v, ""); s != "" {
			out = append(out, s)
		}
	}

	return out
}

// SafeObject returns value as a JSON object, or an empty one.
func SafeObject(value interface{}) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// Describe renders an arbitrary decoded JSON value for log lines.
func Describe(value interface{}) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}
