package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWorkoutType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"exact match", "run", "run"},
		{"alias", "running", "run"},
		{"uppercase", "Cycling", "ride"},
		{"space separator", "indoor cycling", "ride"},
		{"dash separator", "weight-training", "strength"},
		{"outside vocabulary", "crossfit", "other"},
		{"garbage", "???", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeWorkoutType(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNormalizeWorkoutTypeEmptyStaysNil(t *testing.T) {
	assert.Nil(t, NormalizeWorkoutType(""))
}

func TestPickFloat(t *testing.T) {
	payload := map[string]any{
		"miss":   nil,
		"speed":  2.5,
		"number": "7.25",
		"junk":   "fast",
	}

	got := PickFloat(payload, "absent", "miss", "speed", "number")
	require.NotNil(t, got)
	assert.Equal(t, 2.5, *got)

	got = PickFloat(payload, "number")
	require.NotNil(t, got)
	assert.Equal(t, 7.25, *got)

	assert.Nil(t, PickFloat(payload, "absent", "miss", "junk"))
}

func TestPickInt(t *testing.T) {
	payload := map[string]any{
		"score": 84.6,
		"steps": "10432",
	}

	got := PickInt(payload, "score")
	require.NotNil(t, got)
	assert.Equal(t, 85, *got, "fractional values round half up")

	got = PickInt(payload, "missing", "steps")
	require.NotNil(t, got)
	assert.Equal(t, 10432, *got)

	assert.Nil(t, PickInt(payload, "missing"))
}

func TestPickString(t *testing.T) {
	payload := map[string]any{
		"empty": "",
		"sport": "running",
	}

	got := PickString(payload, "empty", "sport")
	require.NotNil(t, got)
	assert.Equal(t, "running", *got, "empty strings are skipped")

	assert.Nil(t, PickString(payload, "empty", "missing"))
}

func TestPickClock(t *testing.T) {
	payload := map[string]any{
		"bad":           "not a time",
		"bedtime_start": "2026-01-05T23:41:12+02:00",
	}

	got := PickClock(payload, "bad", "bedtime_start")
	require.NotNil(t, got)
	assert.Equal(t, "23:41:12", *got, "offset is dropped, wall clock kept")

	assert.Nil(t, PickClock(payload, "bad", "missing"))
}

func TestMinutesFromSeconds(t *testing.T) {
	assert.Nil(t, MinutesFromSeconds(nil))

	sec := 27015.0
	got := MinutesFromSeconds(&sec)
	require.NotNil(t, got)
	assert.Equal(t, 450, *got)
}

func TestKmFromMeters(t *testing.T) {
	assert.Nil(t, KmFromMeters(nil))

	m := 10500.0
	got := KmFromMeters(&m)
	require.NotNil(t, got)
	assert.Equal(t, 10.5, *got)
}
