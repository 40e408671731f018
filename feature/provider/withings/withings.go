// Package withings pulls sleep and activity data from the Withings API. All
// calls are form-encoded POSTs answered by a status/body envelope; a nonzero
// status means "no data" rather than a transport failure.
package withings

import (
	"context"
	"errors"
	"net/url"
	"time"

	"health-sync/feature/provider"
	"health-sync/feature/provider/models"
)

const defaultBaseURL = "https://wbsapi.withings.net"

// sleepDataFields is what we ask getsummary to include per night.
const sleepDataFields = "total_sleep_time,asleepduration,sleep_score,hr_average,hr_min,hr_max,total_timeinbed,wakeupcount"

// Strategy implements provider.Strategy for Withings.
type Strategy struct {
	baseURL string
	token   string
}

func New(settings provider.Settings) (*Strategy, error) {
	if settings.AccessToken == "" {
		return nil, errors.New("withings: access_token is not configured")
	}
	base := settings.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Strategy{baseURL: base, token: settings.AccessToken}, nil
}

func (s *Strategy) Name() string { return "withings" }

// DayBoundary defaults to the evening: Withings files a night under the date
// sleep started, so the day window opens at 18:00 to catch it.
func (s *Strategy) DayBoundary() string { return "18:00" }

func (s *Strategy) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.token}
}

type envelope struct {
	Status int            `json:"status"`
	Body   map[string]any `json:"body"`
}

// call posts a form to path and unwraps the envelope. A nonzero API status
// yields a nil body and no error.
func (s *Strategy) call(ctx context.Context, client *provider.HTTPClient, label, path string, form url.Values) (map[string]any, error) {
	var env envelope
	if err := client.PostForm(ctx, label, s.baseURL+path, s.headers(), form, &env); err != nil {
		return nil, err
	}
	if env.Status != 0 {
		return nil, nil
	}
	return env.Body, nil
}

func (s *Strategy) ListRawSessions(ctx context.Context, client *provider.HTTPClient, day time.Time) ([]models.Session, error) {
	form := url.Values{}
	form.Set("action", "getsummary")
	form.Set("lastupdate", "0")
	form.Set("startdateymd", day.AddDate(0, 0, -1).Format(models.DateLayout))
	form.Set("enddateymd", day.AddDate(0, 0, 1).Format(models.DateLayout))
	form.Set("data_fields", sleepDataFields)

	body, err := s.call(ctx, client, "withings sleep", "/v2/sleep", form)
	if err != nil || body == nil {
		return nil, err
	}

	series, _ := body["series"].([]any)
	var sessions []models.Session
	for _, e := range series {
		item, ok := e.(map[string]any)
		if !ok {
			continue
		}
		start := provider.PickFloat(item, "startdate")
		end := provider.PickFloat(item, "enddate")
		if start == nil || end == nil {
			continue
		}
		sessions = append(sessions, models.Session{
			Start:   models.FromUnixSeconds(int64(*start)),
			End:     models.FromUnixSeconds(int64(*end)),
			Kind:    models.KindMain,
			Payload: item,
		})
	}
	return sessions, nil
}

func (s *Strategy) ExtractDaily(ctx context.Context, client *provider.HTTPClient, day time.Time, chosen *models.Session) (*models.Record, error) {
	rec := &models.Record{}

	if chosen != nil {
		bed := models.Clock(chosen.Start)
		wake := models.Clock(chosen.End)
		rec.Bedtime = &bed
		rec.WakeTime = &wake

		data, _ := chosen.Payload["data"].(map[string]any)
		if data != nil {
			rec.SleepDurationMin = provider.MinutesFromSeconds(
				provider.PickFloat(data, "total_sleep_time", "asleepduration", "duration"))
			rec.SleepScore = provider.PickInt(data, "sleep_score", "score")
			rec.RHRBpm = provider.PickInt(data, "hr_min", "hr_average")
		}
	}

	form := url.Values{}
	form.Set("action", "getactivity")
	form.Set("startdateymd", day.Format(models.DateLayout))
	form.Set("enddateymd", day.Format(models.DateLayout))

	body, err := s.call(ctx, client, "withings activity", "/v2/measure", form)
	if err != nil {
		return nil, err
	}
	if body != nil {
		if acts, ok := body["activities"].([]any); ok && len(acts) > 0 {
			if item, ok := acts[0].(map[string]any); ok {
				rec.Steps = provider.PickInt(item, "steps")
				rec.ActiveCalories = provider.PickInt(item, "calories", "caloriesactive", "totalcalories")
			}
		}
	}

	return rec, nil
}

func (s *Strategy) ExtractWorkouts(ctx context.Context, client *provider.HTTPClient, day time.Time) ([]models.Record, error) {
	return nil, nil
}
