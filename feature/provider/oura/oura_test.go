package oura

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"health-sync/core/retry"
	"health-sync/feature/provider"
	"health-sync/feature/provider/models"
)

// ouraServer serves canned collection payloads keyed by collection name and
// records the token every request carried.
func ouraServer(t *testing.T, payloads map[string][]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		name := strings.TrimPrefix(r.URL.Path, "/v2/usercollection/")
		items, ok := payloads[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": items})
	}))
}

func newStrategy(t *testing.T, baseURL string) (*Strategy, *provider.HTTPClient) {
	t.Helper()
	s, err := New(provider.Settings{AccessToken: "test-token", BaseURL: baseURL})
	require.NoError(t, err)
	client := provider.NewHTTPClient(zap.NewNop(), 5, retry.Options{MaxAttempts: 1})
	return s, client
}

func testDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(provider.Settings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_token")
}

func TestListRawSessions(t *testing.T) {
	srv := ouraServer(t, map[string][]map[string]any{
		"sleep": {
			{
				"bedtime_start": "2026-01-05T23:12:00+02:00",
				"bedtime_end":   "2026-01-06T07:02:00+02:00",
				"type":          "long_sleep",
				"average_hrv":   52,
			},
			{
				"bedtime_start": "2026-01-06T14:00:00+02:00",
				"bedtime_end":   "2026-01-06T14:30:00+02:00",
				"type":          "sleep",
			},
			{
				// Unparseable timestamps are skipped, not fatal.
				"bedtime_start": "garbage",
				"bedtime_end":   "2026-01-06T07:02:00+02:00",
			},
		},
	})
	defer srv.Close()

	s, client := newStrategy(t, srv.URL)
	sessions, err := s.ListRawSessions(context.Background(), client, testDay(t, "2026-01-06"))
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, models.KindMain, sessions[0].Kind)
	assert.Equal(t, "23:12:00", models.Clock(sessions[0].Start))
	assert.Equal(t, "07:02:00", models.Clock(sessions[0].End))
	assert.Equal(t, models.KindNap, sessions[1].Kind, "anything but long_sleep counts as a nap")
}

func TestExtractDaily(t *testing.T) {
	srv := ouraServer(t, map[string][]map[string]any{
		"daily_sleep":     {{"score": 84}},
		"daily_readiness": {{"score": 77}},
		"daily_activity":  {{"score": 91, "steps": 10432, "active_calories": 523}},
	})
	defer srv.Close()

	s, client := newStrategy(t, srv.URL)

	chosen := &models.Session{
		Start: mustLocal(t, "2026-01-05T23:12:00"),
		End:   mustLocal(t, "2026-01-06T07:02:00"),
		Kind:  models.KindMain,
		Payload: map[string]any{
			"total_sleep_duration": 27015,
			"lowest_heart_rate":    48,
			"average_hrv":          52,
		},
	}

	rec, err := s.ExtractDaily(context.Background(), client, testDay(t, "2026-01-06"), chosen)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, 84, *rec.SleepScore)
	assert.Equal(t, 77, *rec.ReadinessScore)
	assert.Equal(t, 91, *rec.ActivityScore)
	assert.Equal(t, 10432, *rec.Steps)
	assert.Equal(t, 523, *rec.ActiveCalories)
	assert.Equal(t, "23:12:00", *rec.Bedtime)
	assert.Equal(t, "07:02:00", *rec.WakeTime)
	assert.Equal(t, 450, *rec.SleepDurationMin)
	assert.Equal(t, 48, *rec.RHRBpm)
	assert.Equal(t, 52, *rec.HRVMs)
}

func TestExtractDailyWithoutSession(t *testing.T) {
	srv := ouraServer(t, map[string][]map[string]any{
		"daily_sleep":     {},
		"daily_readiness": {},
		"daily_activity":  {{"steps": 980}},
	})
	defer srv.Close()

	s, client := newStrategy(t, srv.URL)
	rec, err := s.ExtractDaily(context.Background(), client, testDay(t, "2026-01-06"), nil)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Nil(t, rec.Bedtime)
	assert.Nil(t, rec.SleepScore)
	assert.Equal(t, 980, *rec.Steps)
}

func TestExtractWorkouts(t *testing.T) {
	srv := ouraServer(t, map[string][]map[string]any{
		"workout": {
			{
				"id":                 "w-123",
				"sport":              "running",
				"duration":           1830,
				"calories":           412,
				"average_heart_rate": 152,
				"max_heart_rate":     181,
				"distance":           5120,
				"average_speed":      2.5,
			},
			{
				// No id means no stable row identity: dropped.
				"sport": "yoga",
			},
		},
	})
	defer srv.Close()

	s, client := newStrategy(t, srv.URL)
	out, err := s.ExtractWorkouts(context.Background(), client, testDay(t, "2026-01-06"))
	require.NoError(t, err)
	require.Len(t, out, 1)

	w := out[0]
	assert.Equal(t, "w-123", w.SourceRecordID)
	assert.Equal(t, "run", *w.WorkoutType)
	assert.Equal(t, 31, *w.WorkoutDurationMin)
	assert.Equal(t, 412, *w.WorkoutActiveCalories)
	assert.Equal(t, 152, *w.WorkoutAvgHRBpm)
	assert.Equal(t, 181, *w.WorkoutMaxHRBpm)
	assert.Equal(t, 5.12, *w.DistanceKm)
	assert.Equal(t, 9.0, *w.AvgSpeedKmh)
	assert.Equal(t, 6.67, *w.PaceMinPerKm)
}

func mustLocal(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := models.ParseLocalTime(s)
	require.NoError(t, err)
	return parsed
}
