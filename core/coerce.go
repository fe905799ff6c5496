package core

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Helpers to coerce loosely typed JSON (as decoded into interface{}) into Go values.
// Models do not always honour the requested schema, so every reader falls back
// to a default instead of failing.

var numberRegex = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseJSONObject decodes `raw` into a map. Markdown code fences around the object are tolerated.
func ParseJSONObject(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	// models sometimes add prose around the object
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("not a JSON object")
	}
	return obj, nil
}

// AsString returns v as a trimmed string, or def when v is missing or empty.
func AsString(v interface{}, def string) string {
	var s string
	switch val := v.(type) {
	case nil:
		return def
	case string:
		s = val
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(val)
	case []interface{}:
		s = strings.Join(AsStringSlice(val, nil), ", ")
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return def
		}
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// AsStringSlice returns v as a list of non-empty strings, or def when nothing usable is found.
// A single string is treated as a one element list.
func AsStringSlice(v interface{}, def []string) []string {
	var out []string
	switch val := v.(type) {
	case []interface{}:
		out = make([]string, 0, len(val))
		for _, item := range val {
			var s string
			if m, ok := item.(map[string]interface{}); ok {
				// {"title": "...", "description": "..."} style items
				s = AsString(firstOf(m, "title", "name", "text", "description"), "")
			} else {
				s = AsString(item, "")
			}
			if s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = []string{s}
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// AsFloat returns v as a float64. Numeric strings such as "AUD 35,000" are parsed.
func AsFloat(v interface{}, def float64) float64 {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return def
		}
		return val
	case string:
		num := numberRegex.FindString(strings.ReplaceAll(val, ",", ""))
		if num == "" {
			return def
		}
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return def
		}
		return f
	case bool:
		if val {
			return 1
		}
		return 0
	}
	return def
}

// AsInt returns v as an int, rounding floats.
func AsInt(v interface{}, def int) int {
	f := AsFloat(v, math.NaN())
	if math.IsNaN(f) {
		return def
	}
	return int(math.Round(f))
}

// AsMap returns v as an object, or an empty map.
func AsMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok && m != nil {
		return m
	}
	return map[string]interface{}{}
}

// AsMapSlice returns the object items of v. Non-object items are dropped.
func AsMapSlice(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		if m, ok := v.(map[string]interface{}); ok {
			return []map[string]interface{}{m}
		}
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// OneOf returns s lowered if it is one of `allowed`, def otherwise.
func OneOf(s string, def string, allowed ...string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return def
}

// Clamp bounds n to [min, max].
func Clamp(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// firstOf returns the first present value among keys.
func firstOf(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Field looks up the first present key in m. Models alternate between camelCase and snake_case.
func Field(m map[string]interface{}, keys ...string) interface{} {
	return firstOf(m, keys...)
}
