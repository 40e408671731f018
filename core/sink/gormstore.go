package sink

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// unifiedRow is the database shape of one table row. Cells stay strings: the
// table is a wire artifact addressed by position, not a query model, so the
// database mirrors the CSV faithfully (blank cell = absent value).
type unifiedRow struct {
	ID                   uint   `gorm:"primaryKey;autoIncrement"`
	Date                 string `gorm:"column:date;size:10;index:idx_unified_date"`
	Source               string `gorm:"column:source;size:32"`
	Bedtime              string `gorm:"column:bedtime;size:16"`
	WakeTime             string `gorm:"column:wake_time;size:16"`
	SleepDurationMin     string `gorm:"column:sleep_duration_min;size:16"`
	SleepScore           string `gorm:"column:sleep_score;size:16"`
	RHRBpm               string `gorm:"column:rhr_bpm;size:16"`
	HRVMs                string `gorm:"column:hrv_ms;size:16"`
	ReadinessScore       string `gorm:"column:readiness_or_body_battery_score;size:16"`
	HealthScore          string `gorm:"column:health_score;size:16"`
	Steps                string `gorm:"column:steps;size:16"`
	ActiveCalories       string `gorm:"column:active_calories;size:16"`
	ActivityScore        string `gorm:"column:activity_score;size:16"`
	WorkoutType          string `gorm:"column:workout_type;size:32"`
	WorkoutDurationMin   string `gorm:"column:workout_duration_min;size:16"`
	WorkoutCalories      string `gorm:"column:workout_active_calories;size:16"`
	WorkoutAvgHR         string `gorm:"column:workout_avg_hr_bpm;size:16"`
	WorkoutMaxHR         string `gorm:"column:workout_max_hr_bpm;size:16"`
	DistanceKm           string `gorm:"column:distance_km;size:16"`
	PaceMinPerKm         string `gorm:"column:pace_min_per_km;size:16"`
	AvgSpeedKmh          string `gorm:"column:avg_speed_kmh;size:16"`
	WorkoutOrStrainScore string `gorm:"column:workout_or_strain_score;size:16"`
	SourceRecordID       string `gorm:"column:source_record_id;size:64"`
}

func (m *unifiedRow) fromRow(row []string) {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	m.Date = cell(0)
	m.Source = cell(1)
	m.Bedtime = cell(2)
	m.WakeTime = cell(3)
	m.SleepDurationMin = cell(4)
	m.SleepScore = cell(5)
	m.RHRBpm = cell(6)
	m.HRVMs = cell(7)
	m.ReadinessScore = cell(8)
	m.HealthScore = cell(9)
	m.Steps = cell(10)
	m.ActiveCalories = cell(11)
	m.ActivityScore = cell(12)
	m.WorkoutType = cell(13)
	m.WorkoutDurationMin = cell(14)
	m.WorkoutCalories = cell(15)
	m.WorkoutAvgHR = cell(16)
	m.WorkoutMaxHR = cell(17)
	m.DistanceKm = cell(18)
	m.PaceMinPerKm = cell(19)
	m.AvgSpeedKmh = cell(20)
	m.WorkoutOrStrainScore = cell(21)
	m.SourceRecordID = cell(22)
}

func (m *unifiedRow) toRow() []string {
	return []string{
		m.Date, m.Source,
		m.Bedtime, m.WakeTime, m.SleepDurationMin, m.SleepScore,
		m.RHRBpm, m.HRVMs, m.ReadinessScore,
		m.HealthScore,
		m.Steps, m.ActiveCalories, m.ActivityScore,
		m.WorkoutType, m.WorkoutDurationMin, m.WorkoutCalories,
		m.WorkoutAvgHR, m.WorkoutMaxHR,
		m.DistanceKm, m.PaceMinPerKm, m.AvgSpeedKmh,
		m.WorkoutOrStrainScore,
		m.SourceRecordID,
	}
}

// GormStore keeps the unified table in a MySQL table. ReadRows scans ordered
// by (date, id) and remembers each position's primary key, so updates address
// rows by key instead of position. SortByDate is free: the scan ordering IS
// the table order.
type GormStore struct {
	db    *gorm.DB
	table string

	ids []uint // position -> primary key, from the last ReadRows
}

// NewGormStore returns a store over the given table name.
func NewGormStore(db *gorm.DB, table string) *GormStore {
	return &GormStore{db: db, table: table}
}

func (s *GormStore) tx(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table)
}

func (s *GormStore) EnsureHeader(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&unifiedRow{}); err != nil {
		return fmt.Errorf("migrate table %s: %w", s.table, err)
	}
	return nil
}

func (s *GormStore) ReadRows(ctx context.Context) ([][]string, error) {
	var rows []unifiedRow
	if err := s.tx(ctx).Order("date, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("scan table %s: %w", s.table, err)
	}

	s.ids = make([]uint, len(rows))
	out := make([][]string, len(rows))
	for i, r := range rows {
		s.ids[i] = r.ID
		out[i] = r.toRow()
	}
	return out, nil
}

func (s *GormStore) UpdateRows(ctx context.Context, updates []RowUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if u.Position < 0 || u.Position >= len(s.ids) {
				return fmt.Errorf("update position %d out of range (%d rows)", u.Position, len(s.ids))
			}
			var m unifiedRow
			m.fromRow(u.Row)
			m.ID = s.ids[u.Position]
			if err := tx.Table(s.table).Save(&m).Error; err != nil {
				return fmt.Errorf("update row %d: %w", m.ID, err)
			}
		}
		return nil
	})
}

func (s *GormStore) AppendRows(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]unifiedRow, len(rows))
	for i, row := range rows {
		models[i].fromRow(row)
	}
	if err := s.tx(ctx).CreateInBatches(models, 100).Error; err != nil {
		return fmt.Errorf("insert %d rows: %w", len(rows), err)
	}
	return nil
}

// SortByDate is a no-op: ReadRows always scans in date order, there is no
// physical row order to maintain.
func (s *GormStore) SortByDate(ctx context.Context) error {
	return nil
}
