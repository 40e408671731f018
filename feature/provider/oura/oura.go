// Package oura pulls sleep, readiness, activity and workout data from the
// Oura v2 API using a personal access token.
package oura

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"health-sync/core/utils"
	"health-sync/feature/provider"
	"health-sync/feature/provider/models"
)

const defaultBaseURL = "https://api.ouraring.com"

// Strategy implements provider.Strategy for Oura.
type Strategy struct {
	baseURL string
	token   string
}

// New returns the Oura strategy. A missing access token is a configuration
// error, not something to retry at fetch time.
func New(settings provider.Settings) (*Strategy, error) {
	if settings.AccessToken == "" {
		return nil, errors.New("oura: access_token is not configured")
	}
	base := settings.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Strategy{baseURL: base, token: settings.AccessToken}, nil
}

func (s *Strategy) Name() string        { return "oura" }
func (s *Strategy) DayBoundary() string { return "00:00" }

func (s *Strategy) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.token}
}

type collection struct {
	Data []map[string]any `json:"data"`
}

func (s *Strategy) collectionURL(path string, start, end time.Time) string {
	q := url.Values{}
	q.Set("start_date", start.Format(models.DateLayout))
	q.Set("end_date", end.Format(models.DateLayout))
	return fmt.Sprintf("%s/v2/usercollection/%s?%s", s.baseURL, path, q.Encode())
}

func (s *Strategy) list(ctx context.Context, client *provider.HTTPClient, path string, start, end time.Time) ([]map[string]any, error) {
	var out collection
	u := s.collectionURL(path, start, end)
	if err := client.GetJSON(ctx, "oura "+path, u, s.headers(), &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListRawSessions queries the sleep collection one day around the target so
// nights crossing midnight are all candidates.
func (s *Strategy) ListRawSessions(ctx context.Context, client *provider.HTTPClient, day time.Time) ([]models.Session, error) {
	items, err := s.list(ctx, client, "sleep", day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	var sessions []models.Session
	for _, item := range items {
		start := provider.PickString(item, "bedtime_start")
		end := provider.PickString(item, "bedtime_end")
		if start == nil || end == nil {
			continue
		}
		st, err := models.ParseLocalTime(*start)
		if err != nil {
			continue
		}
		et, err := models.ParseLocalTime(*end)
		if err != nil {
			continue
		}

		kind := models.KindNap
		if t := provider.PickString(item, "type"); t != nil && *t == "long_sleep" {
			kind = models.KindMain
		}
		sessions = append(sessions, models.Session{
			Start:   st,
			End:     et,
			Kind:    kind,
			Payload: item,
		})
	}
	return sessions, nil
}

func (s *Strategy) ExtractDaily(ctx context.Context, client *provider.HTTPClient, day time.Time, chosen *models.Session) (*models.Record, error) {
	end := day.AddDate(0, 0, 1)

	sleepDaily, err := s.first(ctx, client, "daily_sleep", day, end)
	if err != nil {
		return nil, err
	}
	readiness, err := s.first(ctx, client, "daily_readiness", day, end)
	if err != nil {
		return nil, err
	}
	activity, err := s.first(ctx, client, "daily_activity", day, end)
	if err != nil {
		return nil, err
	}

	rec := &models.Record{
		SleepScore:     provider.PickInt(sleepDaily, "score"),
		ReadinessScore: provider.PickInt(readiness, "score"),
		Steps:          provider.PickInt(activity, "steps"),
		ActiveCalories: provider.PickInt(activity, "active_calories"),
		ActivityScore:  provider.PickInt(activity, "score"),
	}

	if chosen != nil {
		bed := models.Clock(chosen.Start)
		wake := models.Clock(chosen.End)
		rec.Bedtime = &bed
		rec.WakeTime = &wake
		rec.SleepDurationMin = provider.MinutesFromSeconds(
			provider.PickFloat(chosen.Payload, "total_sleep_duration", "duration"))
		rec.RHRBpm = provider.PickInt(chosen.Payload, "lowest_heart_rate", "average_heart_rate", "average_bpm")
		rec.HRVMs = provider.PickInt(chosen.Payload, "average_hrv")
	}
	return rec, nil
}

func (s *Strategy) ExtractWorkouts(ctx context.Context, client *provider.HTTPClient, day time.Time) ([]models.Record, error) {
	items, err := s.list(ctx, client, "workout", day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	var out []models.Record
	for _, w := range items {
		id := provider.PickString(w, "id")
		if id == nil {
			continue
		}

		rec := models.Record{
			SourceRecordID:        *id,
			WorkoutDurationMin:    provider.MinutesFromSeconds(provider.PickFloat(w, "duration")),
			WorkoutActiveCalories: provider.PickInt(w, "calories"),
			WorkoutAvgHRBpm:       provider.PickInt(w, "average_heart_rate"),
			WorkoutMaxHRBpm:       provider.PickInt(w, "max_heart_rate"),
			DistanceKm:            provider.KmFromMeters(provider.PickFloat(w, "distance")),
		}
		if sport := provider.PickString(w, "sport", "activity"); sport != nil {
			rec.WorkoutType = provider.NormalizeWorkoutType(*sport)
		}
		if mps := provider.PickFloat(w, "average_speed"); mps != nil {
			rec.AvgSpeedKmh, rec.PaceMinPerKm = utils.SpeedAndPace(*mps)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Strategy) first(ctx context.Context, client *provider.HTTPClient, path string, start, end time.Time) (map[string]any, error) {
	items, err := s.list(ctx, client, path, start, end)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return map[string]any{}, nil
	}
	return items[0], nil
}
