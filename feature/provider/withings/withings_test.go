package withings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"health-sync/core/retry"
	"health-sync/feature/provider"
	"health-sync/feature/provider/models"
)

// withingsServer answers the form-POST envelope protocol, routing on the
// "action" form field.
func withingsServer(t *testing.T, responses map[string]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		action := r.PostForm.Get("action")
		body, ok := responses[action]
		if !ok {
			// Unknown action: the API-level "no data" status.
			_ = json.NewEncoder(w).Encode(map[string]any{"status": 601})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 0, "body": body})
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
}

func TestDayBoundaryIsEvening(t *testing.T) {
	s := &Strategy{}
	assert.Equal(t, "18:00", s.DayBoundary())
}

func TestListRawSessions(t *testing.T) {
	start := time.Date(2026, 1, 5, 23, 15, 0, 0, time.Local).Unix()
	end := time.Date(2026, 1, 6, 6, 45, 0, 0, time.Local).Unix()

	srv := withingsServer(t, map[string]map[string]any{
		"getsummary": {
			"series": []any{
				map[string]any{
					"startdate": start,
					"enddate":   end,
					"data":      map[string]any{"sleep_score": 73},
				},
				map[string]any{"note": "no timestamps, skipped"},
			},
		},
	})
	defer srv.Close()

	s, client := newStrategy(t, srv.URL)
	sessions, err := s.ListRawSessions(context.Background(), client, testDay(t, "2026-01-06"))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "23:15:00", models.Clock(sessions[0].Start))
	assert.Equal(t, "06:45:00", models.Clock(sessions[0].End))
}

func TestListRawSessionsNonzeroStatus(t *testing.T) {
	srv := withingsServer(t, nil)
	defer srv.Close()

	s, client := newStrategy(t, srv.URL)
	sessions, err := s.ListRawSessions(context.Background(), client, testDay(t, "2026-01-06"))
	require.NoError(t, err, "a nonzero API status is no data, not a failure")
	assert.Nil(t, sessions)
}

func TestExtractDaily(t *testing.T) {
	srv := withingsServer(t, map[string]map[string]any{
		"getactivity": {
			"activities": []any{
				map[string]any{"steps": 7421, "calories": 389.4},
			},
		},
	})
	defer srv.Close()

	s, client := newStrategy(t, srv.URL)

	chosen := &models.Session{
		Start: models.FromUnixSeconds(time.Date(2026, 1, 5, 23, 15, 0, 0, time.Local).Unix()),
		End:   models.FromUnixSeconds(time.Date(2026, 1, 6, 6, 45, 0, 0, time.Local).Unix()),
		Kind:  models.KindMain,
		Payload: map[string]any{
			"data": map[string]any{
				"total_sleep_time": 25200,
				"sleep_score":      73,
				"hr_min":           49,
				"hr_average":       56,
			},
		},
	}

	rec, err := s.ExtractDaily(context.Background(), client, testDay(t, "2026-01-06"), chosen)
	require.NoError(t, err)

	assert.Equal(t, "23:15:00", *rec.Bedtime)
	assert.Equal(t, "06:45:00", *rec.WakeTime)
	assert.Equal(t, 420, *rec.SleepDurationMin)
	assert.Equal(t, 73, *rec.SleepScore)
	assert.Equal(t, 49, *rec.RHRBpm, "hr_min wins over hr_average")
	assert.Equal(t, 7421, *rec.Steps)
	assert.Equal(t, 389, *rec.ActiveCalories)
}

func TestExtractDailyNoActivity(t *testing.T) {
	srv := withingsServer(t, nil)
	defer srv.Close()

	s, client := newStrategy(t, srv.URL)
	rec, err := s.ExtractDaily(context.Background(), client, testDay(t, "2026-01-06"), nil)
	require.NoError(t, err)
	assert.True(t, rec.Empty())
}
