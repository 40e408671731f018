package utils

import (
	"math"
	"strconv"
	"strings"
)

// CoerceFloat converts heterogeneous payload values to a float64 using explicit
// type switching. Provider APIs wrap numbers inconsistently: plain numerics,
// string-encoded numbers, {"value": x} objects and one-element lists all occur
// in the wild. Unrecognized shapes return ok=false rather than an error so the
// caller can leave the field unset.
func CoerceFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case map[string]any:
		// Dict-wrapped value, e.g. {"value": 42}.
		if inner, found := v["value"]; found {
			return CoerceFloat(inner)
		}
		return 0, false
	case []any:
		// List-wrapped value: first element that coerces wins.
		for _, item := range v {
			if f, ok := CoerceFloat(item); ok {
				return f, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// CoerceInt converts heterogeneous payload values to an int, rounding half up.
// It accepts everything CoerceFloat accepts.
func CoerceInt(val any) (int, bool) {
	f, ok := CoerceFloat(val)
	if !ok {
		return 0, false
	}
	return int(roundHalfUp(f, 0)), true
}

// CoerceString converts payload values to a string. Numbers are formatted
// without a trailing ".0" when they are integral.
func CoerceString(val any) (string, bool) {
	switch v := val.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

// roundHalfUp rounds v to the given number of decimal places, halves away from
// zero. Rounding goes through the shortest decimal representation of v, so a
// value like 1005.0/1000.0 (stored as 1.004999...) still rounds to 1.01 the way
// a human reading "1.005" expects.
func roundHalfUp(v float64, places int) float64 {
	s := strconv.FormatFloat(v, 'f', -1, 64)

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if len(fracPart) <= places {
		return v
	}

	digits, err := strconv.ParseInt(intPart+fracPart[:places], 10, 64)
	if err != nil {
		// Out of int64 range; representation error no longer matters at
		// that magnitude.
		scale := math.Pow(10, float64(places))
		return math.Floor(math.Abs(v)*scale+0.5) / scale * math.Copysign(1, v)
	}
	if fracPart[places] >= '5' {
		digits++
	}

	out := float64(digits) / math.Pow(10, float64(places))
	if neg {
		out = -out
	}
	return out
}

// Round2 rounds to two decimal places, half up.
func Round2(v float64) float64 {
	return roundHalfUp(v, 2)
}

// SecondsToMinutes converts a duration in seconds to whole minutes, half up.
// SecondsToMinutes(90) == 2.
func SecondsToMinutes(seconds float64) int {
	return int(roundHalfUp(seconds/60.0, 0))
}

// MetersToKm converts meters to kilometers with two decimals, half up.
// MetersToKm(1005) == 1.01.
func MetersToKm(meters float64) float64 {
	return Round2(meters / 1000.0)
}

// SpeedAndPace converts a speed in m/s to (km/h, pace in min/km), both rounded
// to two decimals. A zero speed has no defined pace, so both results are nil.
func SpeedAndPace(mps float64) (kmh *float64, paceMinPerKm *float64) {
	if mps == 0 {
		return nil, nil
	}
	k := Round2(mps * 3.6)
	p := Round2(60.0 / (mps * 3.6))
	return &k, &p
}
