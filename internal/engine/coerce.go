package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// maxExactInt bounds integers parsed through float64. From 2^53 up, distinct
// integers round to the same float.
const maxExactInt = 1 << 53

// toFloat accepts numbers and numeric strings. Booleans, containers, NaN and
// infinities are rejected.
func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case nil, bool, map[string]interface{}, []interface{}:
		return 0, false
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return 0, false
		}
		v = t
	case json.Number:
		v = t.String()
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt64 is toFloat restricted to integral values. Integer literals and Go
// integers are taken exactly; only fractional notation such as 12.0 goes
// through float64, where values beyond 2^53 are rejected.
func toInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		if n, err := strconv.ParseInt(t.String(), 10, 64); err == nil {
			return n, true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n, true
		}
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) >= maxExactInt {
		return 0, false
	}
	return int64(f), true
}

// toText accepts only strings and trims them. Blank is absent.
func toText(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// toList unwraps the slice shapes that reach the engine: decoded JSON arrays
// and the typed slices Go callers build.
func toList(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []string:
		return toInterfaces(t), true
	case []int:
		return toInterfaces(t), true
	case []int64:
		return toInterfaces(t), true
	case []float64:
		return toInterfaces(t), true
	default:
		return nil, false
	}
}

func toInterfaces[T any](in []T) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// describe renders a raw value for diagnostics without dumping large payloads.
func describe(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return fmt.Sprintf("%q", s)
}
