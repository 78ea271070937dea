package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CoerceRaw normalises an arbitrary raw value into its canonical Go form.
//
// Precedence is fixed: boolean literal, then integer, then float, then
// trimmed string. Booleans and numeric types pass through unchanged;
// strings are tested case-insensitively for "true"/"false", then parsed as
// integer, then as float, and otherwise kept as a trimmed string.
//
// This is the single coercion used by both classification and write
// preparation, so the two sides can never disagree about what a raw value
// means.
func CoerceRaw(v any) any {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		text := strings.TrimSpace(t)
		switch strings.ToLower(text) {
		case "true":
			return true
		case "false":
			return false
		}
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return int(n)
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
		return text
	default:
		if _, ok := asNumber(v); ok {
			return v
		}
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// asNumber extracts a float64 from any numeric type. Booleans are not
// numbers here, even though Go and the backend both encode them as 0/1 in
// places.
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// collapseNumber folds a mathematically integral float back to int so the
// backend receives "200" rather than "200.0".
func collapseNumber(f float64) any {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < float64(math.MaxInt64) {
		return int(f)
	}
	return f
}

// rawKey renders a raw value as the canonical string used for units_source
// lookups and raw_to_label keys. Integral floats render as integers, so a
// JSON-decoded 1.0 and the backend's "1" key agree.
func rawKey(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return t
	default:
		if f, ok := asNumber(v); ok {
			if f == math.Trunc(f) && math.Abs(f) < float64(math.MaxInt64) {
				return strconv.FormatInt(int64(f), 10)
			}
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return fmt.Sprint(v)
	}
}

// valueToken normalises a value to a comparable token: booleans become
// "true"/"false", integral numerics become their integer string, everything
// else is case-folded and trimmed. Used by the switch-likeness test and by
// command-rule matching.
func valueToken(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	default:
		if f, ok := asNumber(v); ok {
			if f == math.Trunc(f) && math.Abs(f) < float64(math.MaxInt64) {
				return strconv.FormatInt(int64(f), 10)
			}
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	}
}

// valueEqual compares two raw values, treating numerics of different Go
// types (int vs float64) as equal when their values match. Booleans only
// equal booleans; strings only equal strings.
func valueEqual(a, b any) bool {
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	if _, ok := b.(bool); ok {
		return false
	}
	if af, ok := asNumber(a); ok {
		bf, bok := asNumber(b)
		return bok && af == bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	return aok && bok && as == bs
}
