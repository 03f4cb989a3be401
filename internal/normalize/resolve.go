// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Object returns v as a JSON object.
func Object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// AsList returns the items of a list payload: either a bare JSON array or an
// object carrying the array under Results/results. ok is false for any other
// shape; callers must treat that as a hard error, not as an empty list.
func AsList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case map[string]any:
		for _, key := range listAliases {
			if items, ok := t[key].([]any); ok {
				return items, true
			}
		}
	}
	return nil, false
}

// UserObject returns the nested user object when one is present under
// User/user, otherwise obj itself (flat payload).
func UserObject(obj map[string]any) map[string]any {
	for _, key := range userAliases {
		if nested, ok := obj[key].(map[string]any); ok {
			return nested
		}
	}
	return obj
}

// lookup walks the alias list and returns the first value that convert
// accepts. Null values and values convert rejects are skipped.
func lookup[T any](obj map[string]any, aliases []string, convert func(any) (T, bool)) (T, bool) {
	var zero T
	if obj == nil {
		return zero, false
	}
	for _, key := range aliases {
		raw, present := obj[key]
		if !present || raw == nil {
			continue
		}
		if v, ok := convert(raw); ok {
			return v, true
		}
	}
	return zero, false
}

// String resolves field to a string, "" when unresolved.
func String(obj map[string]any, field Field) string {
	s, _ := lookup(obj, Aliases[field], toString)
	return s
}

// Int resolves field to an int, 0 when unresolved.
func Int(obj map[string]any, field Field) int {
	f, _ := lookup(obj, Aliases[field], toFloat)
	return int(f)
}

// Int64 resolves field to an int64, 0 when unresolved.
func Int64(obj map[string]any, field Field) int64 {
	f, _ := lookup(obj, Aliases[field], toFloat)
	return int64(f)
}

// Float resolves field to a float64, 0 when unresolved.
func Float(obj map[string]any, field Field) float64 {
	f, _ := lookup(obj, Aliases[field], toFloat)
	return f
}

// Nested resolves field to a JSON object.
func Nested(obj map[string]any, field Field) (map[string]any, bool) {
	return lookup(obj, Aliases[field], func(v any) (map[string]any, bool) {
		m, ok := v.(map[string]any)
		return m, ok
	})
}

// IsHardcore reports whether any hardcore alias is truthy. Absence of every
// alias means softcore.
func IsHardcore(obj map[string]any) bool {
	for _, key := range hardcoreAliases {
		if truthy(obj[key]) {
			return true
		}
	}
	return false
}

func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "no", "off":
			return false
		default:
			return true
		}
	default:
		f, ok := toFloat(t)
		return ok && f != 0
	}
}
