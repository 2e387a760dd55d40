// Package normalize holds the pure field normalizers shared by every parser:
// timestamps, durations, and numeric values arrive in vendor-specific shapes
// and leave in one canonical form.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// A plausible per-record duration never exceeds one day of minutes; anything
// larger is taken to be milliseconds.
const dayMinutes = 1440

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp parses a raw timestamp string. Accepted shapes are
// "YYYY-MM-DD HH:MM:SS", ISO-8601 with a T separator, and bare epoch
// milliseconds. The second return is false when nothing parses.
func Timestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}

	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.UnixMilli(millis).UTC()
		if t.Year() < 1900 || t.Year() > 2200 {
			return time.Time{}, false
		}
		return t, true
	}

	return time.Time{}, false
}

// DateOnly derives the calendar-date portion (YYYY-MM-DD) of a parseable
// timestamp.
func DateOnly(raw string) (string, bool) {
	t, ok := Timestamp(raw)
	if !ok {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// Duration normalizes a raw duration value to minutes.
//
// Numeric input (or a purely numeric string) above one day of minutes is
// assumed to be milliseconds and floor-divided to minutes; at or below the
// threshold the raw number is returned unchanged, on the assumption it is
// already minutes. Colon-delimited strings parse as H:M:S or M:S. Anything
// unparseable yields 0.
func Duration(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return numericDuration(v)
	case float32:
		return numericDuration(float64(v))
	case int:
		return numericDuration(float64(v))
	case int64:
		return numericDuration(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		if strings.Contains(s, ":") {
			return clockDuration(s)
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return numericDuration(n)
		}
		return 0
	default:
		return 0
	}
}

func numericDuration(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	if n > dayMinutes {
		return math.Floor(n / 60000)
	}
	return n
}

// clockDuration parses "H:M:S" or "M:S" into whole minutes.
func clockDuration(s string) float64 {
	parts := strings.Split(s, ":")
	nums := make([]float64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0
		}
		nums = append(nums, n)
	}
	switch len(nums) {
	case 3:
		return math.Floor(nums[0]*60 + nums[1] + nums[2]/60)
	case 2:
		return math.Floor(nums[0] + nums[1]/60)
	default:
		return 0
	}
}

// Numeric parses a float out of a raw value. Empty, nil, and NaN inputs
// normalize to nil, which callers must treat as distinct from zero.
func Numeric(value interface{}) *float64 {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		return validFloat(v)
	case float32:
		return validFloat(float64(v))
	case int:
		return validFloat(float64(v))
	case int64:
		return validFloat(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return validFloat(n)
	default:
		return nil
	}
}

func validFloat(n float64) *float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}
