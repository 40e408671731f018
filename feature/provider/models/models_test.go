package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKey(t *testing.T) {
	daily := Record{Date: "2026-01-06", Source: "Oura"}
	assert.Equal(t, "2026-01-06|oura|daily", daily.Key(), "source is lowercased, empty id means daily")

	workout := Record{Date: "2026-01-06", Source: "oura", SourceRecordID: "w-9"}
	assert.Equal(t, "2026-01-06|oura|w-9", workout.Key())
}

func TestRowKeyMatchesRecordKey(t *testing.T) {
	score := 81
	rec := Record{Date: "2026-01-06", Source: "Polar", SleepScore: &score}
	assert.Equal(t, rec.Key(), RowKey(rec.Row()))

	// Short rows behave as if padded with empty cells.
	assert.Equal(t, "2026-01-06|polar|daily", RowKey([]string{"2026-01-06", "Polar"}))
	assert.Equal(t, "||daily", RowKey(nil))
}

func TestRecordRowWidthAndOrder(t *testing.T) {
	assert.Len(t, Header(), ColumnCount)

	clock := "23:41:12"
	minutes := 451
	km := 10.5
	rec := Record{
		Date:             "2026-01-06",
		Source:           "OURA",
		Bedtime:          &clock,
		SleepDurationMin: &minutes,
		DistanceKm:       &km,
	}
	row := rec.Row()
	require.Len(t, row, ColumnCount)
	assert.Equal(t, "2026-01-06", row[ColDate])
	assert.Equal(t, "oura", row[ColSource])
	assert.Equal(t, "23:41:12", row[2])
	assert.Equal(t, "451", row[4])
	assert.Equal(t, "10.5", row[18])
	assert.Equal(t, DailyRecordID, row[ColSourceRecordID])
	assert.Equal(t, "", row[3], "unset fields become empty cells")
}

func TestRecordEmpty(t *testing.T) {
	rec := Record{Date: "2026-01-06", Source: "garmin"}
	assert.True(t, rec.Empty(), "identity alone does not make a row")

	steps := 0
	rec.Steps = &steps
	assert.False(t, rec.Empty(), "a measured zero is a value")
}

func TestParseLocalTimeDropsOffset(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2026-01-05T23:41:12+02:00", "2026-01-05 23:41:12"},
		{"2026-01-05T23:41:12.123456-08:00", "2026-01-05 23:41:12"},
		{"2026-01-05T23:41:12", "2026-01-05 23:41:12"},
		{"2026-01-05 23:41:12", "2026-01-05 23:41:12"},
	}
	for _, tt := range tests {
		got, err := ParseLocalTime(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got.Format("2006-01-02 15:04:05"), tt.input)
	}

	_, err := ParseLocalTime("yesterday evening")
	assert.Error(t, err)
}

func TestUnixConversions(t *testing.T) {
	// 2026-01-06 06:30:00 UTC
	const sec = int64(1767681000)

	got := FromUnixMillis(sec * 1000)
	assert.Equal(t, "06:30:00", Clock(got))

	local := FromUnixSeconds(sec)
	want := time.Unix(sec, 0)
	assert.Equal(t, want.Format("15:04:05"), Clock(local), "epoch seconds keep the local wall clock")
}

func TestSessionHelpers(t *testing.T) {
	start, err := ParseLocalTime("2026-01-05T23:00:00")
	require.NoError(t, err)
	s := Session{Start: start, End: start.Add(7*time.Hour + 30*time.Minute), Kind: KindMain}

	assert.Equal(t, 7*time.Hour+30*time.Minute, s.Duration())
	assert.False(t, s.IsNap())
	assert.True(t, Session{Kind: KindNap}.IsNap())
}
