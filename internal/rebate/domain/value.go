package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AsFloat coerces host and user values to a float64. Unparseable input
// yields 0; formatted amounts ("1,234.50") are accepted.
func AsFloat(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		s = strings.TrimSuffix(s, ".")
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// AsString coerces a cell value to its string form. nil yields "".
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// IsNumeric reports whether the value carries a number, directly or as a
// formatted amount string.
func IsNumeric(v any) bool {
	switch t := v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		s = strings.TrimSuffix(s, ".")
		if s == "" {
			return false
		}
		_, err := strconv.ParseFloat(s, 64)
		return err == nil
	default:
		return false
	}
}

// ValuesEqual compares two cell values, treating numeric representations of
// the same amount as equal ("-1" == -1).
func ValuesEqual(a, b any) bool {
	if IsNumeric(a) && IsNumeric(b) {
		return AsFloat(a) == AsFloat(b)
	}
	return AsString(a) == AsString(b)
}
