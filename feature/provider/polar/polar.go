// Package polar pulls sleep, nightly recharge and activity data from the
// Polar AccessLink v3 API.
package polar

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"health-sync/feature/provider"
	"health-sync/feature/provider/models"
)

const defaultBaseURL = "https://www.polaraccesslink.com/v3"

// Strategy implements provider.Strategy for Polar AccessLink.
type Strategy struct {
	baseURL string
	token   string
}

func New(settings provider.Settings) (*Strategy, error) {
	if settings.AccessToken == "" {
		return nil, errors.New("polar: access_token is not configured")
	}
	base := settings.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Strategy{baseURL: base, token: settings.AccessToken}, nil
}

func (s *Strategy) Name() string        { return "polar" }
func (s *Strategy) DayBoundary() string { return "00:00" }

func (s *Strategy) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.token}
}

// listItems digs the item list out of AccessLink payloads, which nest it
// under different keys per endpoint.
func listItems(payload map[string]any) []map[string]any {
	for _, key := range []string{"data", "items", "sleep", "nights", "summaries", "activities", "recharges"} {
		if v, ok := payload[key].([]any); ok {
			var out []map[string]any
			for _, e := range v {
				if m, ok := e.(map[string]any); ok {
					out = append(out, m)
				}
			}
			return out
		}
	}
	return nil
}

func (s *Strategy) ListRawSessions(ctx context.Context, client *provider.HTTPClient, day time.Time) ([]models.Session, error) {
	q := url.Values{}
	q.Set("start_date", day.AddDate(0, 0, -1).Format(models.DateLayout))
	q.Set("end_date", day.AddDate(0, 0, 1).Format(models.DateLayout))

	var payload map[string]any
	u := fmt.Sprintf("%s/users/sleep?%s", s.baseURL, q.Encode())
	if err := client.GetJSON(ctx, "polar sleep", u, s.headers(), &payload); err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []models.Session
	for _, item := range listItems(payload) {
		start := provider.PickString(item, "sleep_start_time", "start_time", "bedtime_start")
		end := provider.PickString(item, "sleep_end_time", "end_time", "bedtime_end")
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
		sessions = append(sessions, models.Session{
			Start:   st,
			End:     et,
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
		rec.SleepDurationMin = provider.MinutesFromSeconds(sleepSeconds(chosen.Payload))
		rec.SleepScore = provider.PickInt(chosen.Payload, "sleep_score", "score")
		rec.RHRBpm = provider.PickInt(chosen.Payload, "lowest_heart_rate", "lowest_hr")
	}

	recharge, err := s.fetchRecharge(ctx, client, day)
	if err != nil {
		return nil, err
	}
	if recharge != nil {
		hrv, rhr, readiness := extractRecharge(recharge)
		rec.HRVMs = hrv
		if rec.RHRBpm == nil {
			rec.RHRBpm = rhr
		}
		rec.ReadinessScore = readiness
	}

	steps, calories, err := s.fetchActivity(ctx, client, day)
	if err != nil {
		return nil, err
	}
	rec.Steps = steps
	rec.ActiveCalories = calories

	return rec, nil
}

// ExtractWorkouts returns nothing: AccessLink exposes exercises through a
// transaction protocol that reports each workout exactly once, which cannot
// back an idempotent per-day fetch.
func (s *Strategy) ExtractWorkouts(ctx context.Context, client *provider.HTTPClient, day time.Time) ([]models.Record, error) {
	return nil, nil
}

func (s *Strategy) fetchRecharge(ctx context.Context, client *provider.HTTPClient, day time.Time) (map[string]any, error) {
	q := url.Values{}
	q.Set("start_date", day.AddDate(0, 0, -1).Format(models.DateLayout))
	q.Set("end_date", day.AddDate(0, 0, 1).Format(models.DateLayout))

	var payload map[string]any
	u := fmt.Sprintf("%s/users/nightly-recharge?%s", s.baseURL, q.Encode())
	if err := client.GetJSON(ctx, "polar nightly-recharge", u, s.headers(), &payload); err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	items := listItems(payload)
	if len(items) == 0 {
		if len(payload) > 0 {
			return payload, nil
		}
		return nil, nil
	}
	target := day.Format(models.DateLayout)
	for _, it := range items {
		if d := provider.PickString(it, "date"); d != nil && *d == target {
			return it, nil
		}
	}
	return items[len(items)-1], nil
}

func (s *Strategy) fetchActivity(ctx context.Context, client *provider.HTTPClient, day time.Time) (*int, *int, error) {
	var payload map[string]any
	u := fmt.Sprintf("%s/users/activities/%s?steps=true", s.baseURL, day.Format(models.DateLayout))
	if err := client.GetJSON(ctx, "polar activities", u, s.headers(), &payload); err != nil {
		if provider.IsNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	item := payload
	if items := listItems(payload); len(items) > 0 {
		item = items[len(items)-1]
		target := day.Format(models.DateLayout)
		for _, it := range items {
			if d := provider.PickString(it, "date"); d != nil && *d == target {
				item = it
				break
			}
		}
	}

	steps := provider.PickInt(item, "steps", "step_count", "stepCount")
	calories := provider.PickInt(item, "active_calories", "calories_active", "calories", "activeCalories")
	return steps, calories, nil
}

// sleepSeconds prefers the explicit totals and falls back to summing the
// sleep stages.
func sleepSeconds(payload map[string]any) *float64 {
	if sec := provider.PickFloat(payload, "total_sleep_time", "actual_sleep_time", "duration"); sec != nil {
		return sec
	}
	var sum float64
	var found bool
	for _, k := range []string{"light_sleep", "deep_sleep", "rem_sleep"} {
		if v := provider.PickFloat(payload, k); v != nil {
			sum += *v
			found = true
		}
	}
	if !found || sum == 0 {
		return nil
	}
	return &sum
}

// extractRecharge reads (hrv, rhr, readiness) out of a Nightly Recharge
// payload, covering the nesting variants the API has shipped: top level,
// "ans", "ans_charge" and "recharge.ans".
func extractRecharge(obj map[string]any) (hrv, rhr, readiness *int) {
	candidates := []map[string]any{obj}
	for _, key := range []string{"ans", "ans_charge"} {
		if m, ok := obj[key].(map[string]any); ok {
			candidates = append(candidates, m)
		}
	}
	if rc, ok := obj["recharge"].(map[string]any); ok {
		if m, ok := rc["ans"].(map[string]any); ok {
			candidates = append(candidates, m)
		}
	}

	for _, o := range candidates {
		if hrv == nil {
			hrv = provider.PickInt(o, "rmssd", "rmssd_ms", "hrv", "heart_rate_variability_avg")
		}
		if rhr == nil {
			rhr = provider.PickInt(o, "resting_hr", "resting_heart_rate")
		}
		if readiness == nil {
			readiness = provider.PickInt(o, "ans_charge_score", "overall_score", "recharge_score", "score", "nightly_recharge_status")
		}
	}
	return hrv, rhr, readiness
}
