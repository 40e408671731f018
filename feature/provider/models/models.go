package models

import (
	"fmt"
	"strconv"
	"strings"
)

// DailyRecordID marks a row that aggregates a whole day, as opposed to a
// discrete workout which carries the provider's own record id.
const DailyRecordID = "daily"

// DateLayout is the wire format of the date column.
const DateLayout = "2006-01-02"

// Column positions that participate in the composite row identity.
const (
	ColDate           = 0
	ColSource         = 1
	ColSourceRecordID = 22
)

// ColumnCount is the width of the unified table. The order of Header is a
// wire contract: downstream consumers address columns by position, so it must
// never change without a migration.
const ColumnCount = 23

// Header returns the canonical column order of the unified table.
func Header() []string {
	return []string{
		"date", "source",
		"bedtime", "wake_time", "sleep_duration_min", "sleep_score",
		"rhr_bpm", "hrv_ms", "readiness_or_body_battery_score",
		"health_score",
		"steps", "active_calories", "activity_score",
		"workout_type", "workout_duration_min", "workout_active_calories",
		"workout_avg_hr_bpm", "workout_max_hr_bpm",
		"distance_km", "pace_min_per_km", "avg_speed_kmh",
		"workout_or_strain_score",
		"source_record_id",
	}
}

// Record is one row of the unified schema: one day (or one workout) of health
// data from one provider. Every metric field is optional; nil means the
// provider did not report a value, which is distinct from a measured zero.
type Record struct {
	Date   string // calendar date, ISO-8601
	Source string // provider identifier

	Bedtime          *string
	WakeTime         *string
	SleepDurationMin *int
	SleepScore       *int

	RHRBpm         *int
	HRVMs          *int
	ReadinessScore *int
	HealthScore    *int

	Steps          *int
	ActiveCalories *int
	ActivityScore  *int

	WorkoutType           *string
	WorkoutDurationMin    *int
	WorkoutActiveCalories *int
	WorkoutAvgHRBpm       *int
	WorkoutMaxHRBpm       *int
	DistanceKm            *float64
	PaceMinPerKm          *float64
	AvgSpeedKmh           *float64
	WorkoutOrStrainScore  *int

	// SourceRecordID identifies a discrete workout within a day. Empty
	// means the row is a daily aggregate.
	SourceRecordID string
}

// RecordID returns the source record id, defaulting to DailyRecordID for
// aggregate rows.
func (r *Record) RecordID() string {
	if r.SourceRecordID == "" {
		return DailyRecordID
	}
	return r.SourceRecordID
}

// Key returns the composite identity of the record. Two records sharing a key
// represent the same logical fact and collapse to one stored row.
func (r *Record) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.Date, strings.ToLower(r.Source), r.RecordID())
}

// RowKey computes the composite key for a raw table row. Rows shorter than the
// canonical width are treated as if padded with empty cells.
func RowKey(row []string) string {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	id := cell(ColSourceRecordID)
	if id == "" {
		id = DailyRecordID
	}
	return fmt.Sprintf("%s|%s|%s", cell(ColDate), strings.ToLower(cell(ColSource)), id)
}

// Row renders the record as a table row in canonical column order. Unset
// fields become empty cells.
func (r *Record) Row() []string {
	return []string{
		r.Date,
		strings.ToLower(r.Source),
		strPtr(r.Bedtime),
		strPtr(r.WakeTime),
		intPtr(r.SleepDurationMin),
		intPtr(r.SleepScore),
		intPtr(r.RHRBpm),
		intPtr(r.HRVMs),
		intPtr(r.ReadinessScore),
		intPtr(r.HealthScore),
		intPtr(r.Steps),
		intPtr(r.ActiveCalories),
		intPtr(r.ActivityScore),
		strPtr(r.WorkoutType),
		intPtr(r.WorkoutDurationMin),
		intPtr(r.WorkoutActiveCalories),
		intPtr(r.WorkoutAvgHRBpm),
		intPtr(r.WorkoutMaxHRBpm),
		floatPtr(r.DistanceKm),
		floatPtr(r.PaceMinPerKm),
		floatPtr(r.AvgSpeedKmh),
		intPtr(r.WorkoutOrStrainScore),
		r.RecordID(),
	}
}

// Empty reports whether the record carries no metric at all. Providers return
// empty payloads for days before the device was worn; those days produce no
// row rather than a row of blanks.
func (r *Record) Empty() bool {
	return r.Bedtime == nil && r.WakeTime == nil && r.SleepDurationMin == nil &&
		r.SleepScore == nil && r.RHRBpm == nil && r.HRVMs == nil &&
		r.ReadinessScore == nil && r.HealthScore == nil &&
		r.Steps == nil && r.ActiveCalories == nil && r.ActivityScore == nil &&
		r.WorkoutType == nil && r.WorkoutDurationMin == nil &&
		r.WorkoutActiveCalories == nil && r.WorkoutAvgHRBpm == nil &&
		r.WorkoutMaxHRBpm == nil && r.DistanceKm == nil &&
		r.PaceMinPerKm == nil && r.AvgSpeedKmh == nil &&
		r.WorkoutOrStrainScore == nil
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intPtr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func floatPtr(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
