package provider

import (
	"strings"

	"health-sync/core/utils"
	"health-sync/feature/provider/models"
)

// workoutTypes is the fixed vocabulary for the workout_type column. Keys are
// lowercased with separators collapsed to underscores. Anything outside the
// table maps to "other"; unknown sports never raise and never get dropped.
var workoutTypes = map[string]string{
	"run":             "run",
	"running":         "run",
	"treadmill":       "run",
	"ride":            "ride",
	"cycling":         "ride",
	"bike":            "ride",
	"indoor_cycling":  "ride",
	"swim":            "swim",
	"swimming":        "swim",
	"strength":        "strength",
	"weight_training": "strength",
	"walk":            "walk",
	"walking":         "walk",
	"hike":            "hike",
	"hiking":          "hike",
	"yoga":            "yoga",
}

// WorkoutTypeOther is the fallback bucket for sports outside the vocabulary.
const WorkoutTypeOther = "other"

// NormalizeWorkoutType maps a provider sport string through the fixed
// vocabulary. Empty input means the field was absent and stays nil.
func NormalizeWorkoutType(value string) *string {
	if value == "" {
		return nil
	}
	key := strings.ToLower(value)
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")

	mapped, ok := workoutTypes[key]
	if !ok {
		mapped = WorkoutTypeOther
	}
	return &mapped
}

// PickFloat returns the first key in payload that coerces to a number.
// A nil result means no candidate resolved, distinct from a measured zero.
func PickFloat(payload map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if raw, found := payload[k]; found && raw != nil {
			if f, ok := utils.CoerceFloat(raw); ok {
				return &f
			}
		}
	}
	return nil
}

// PickInt returns the first key in payload that coerces to an int (half up).
func PickInt(payload map[string]any, keys ...string) *int {
	for _, k := range keys {
		if raw, found := payload[k]; found && raw != nil {
			if n, ok := utils.CoerceInt(raw); ok {
				return &n
			}
		}
	}
	return nil
}

// PickString returns the first key in payload with a non-empty string value.
func PickString(payload map[string]any, keys ...string) *string {
	for _, k := range keys {
		if raw, found := payload[k]; found && raw != nil {
			if s, ok := utils.CoerceString(raw); ok && s != "" {
				return &s
			}
		}
	}
	return nil
}

// PickClock parses the first timestamp-looking key and formats it as a
// HH:MM:SS wall-clock string for the bedtime/wake_time columns. Unparseable
// values are skipped, not fatal.
func PickClock(payload map[string]any, keys ...string) *string {
	for _, k := range keys {
		raw, found := payload[k]
		if !found || raw == nil {
			continue
		}
		s, ok := utils.CoerceString(raw)
		if !ok || s == "" {
			continue
		}
		t, err := models.ParseLocalTime(s)
		if err != nil {
			continue
		}
		clock := models.Clock(t)
		return &clock
	}
	return nil
}

// MinutesFromSeconds converts an optional seconds value to whole minutes.
func MinutesFromSeconds(sec *float64) *int {
	if sec == nil {
		return nil
	}
	m := utils.SecondsToMinutes(*sec)
	return &m
}

// KmFromMeters converts an optional meters value to kilometers.
func KmFromMeters(m *float64) *float64 {
	if m == nil {
		return nil
	}
	km := utils.MetersToKm(*m)
	return &km
}
