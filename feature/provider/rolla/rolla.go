// Package rolla pulls health data from the Rolla API. Authentication is a
// session token from /api/login, sent both as a bearer header and a cookie;
// a 401 triggers exactly one re-login. Sleep comes as raw segments that are
// clustered into nights before window assignment.
package rolla

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"health-sync/core/retry"
	"health-sync/feature/provider"
	"health-sync/feature/provider/models"
)

const defaultBaseURL = "https://api.rolla.app"

// segmentGap is the largest pause between sleep segments that still belongs
// to the same night.
const segmentGap = 3 * time.Hour

// sessionTokenName is the token store entry for the cached session token.
const sessionTokenName = "rolla.session"

// Strategy implements provider.Strategy for Rolla.
type Strategy struct {
	baseURL  string
	email    string
	password string
	tokens   provider.TokenStore

	token string
}

func New(settings provider.Settings, tokens provider.TokenStore) (*Strategy, error) {
	if settings.Email == "" || settings.Password == "" {
		return nil, errors.New("rolla: email and password are not configured")
	}
	base := settings.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	s := &Strategy{
		baseURL:  base,
		email:    settings.Email,
		password: settings.Password,
		tokens:   tokens,
	}

	// Reuse the previous run's session when one is cached; a stale token
	// just causes one re-login.
	var saved struct {
		Token string `json:"token"`
	}
	if err := provider.LoadJSON(tokens, sessionTokenName, &saved); err == nil {
		s.token = saved.Token
	}
	return s, nil
}

func (s *Strategy) Name() string        { return "rolla" }
func (s *Strategy) DayBoundary() string { return "00:00" }

func (s *Strategy) login(ctx context.Context, client *provider.HTTPClient) error {
	var resp map[string]any
	body := map[string]string{"email": s.email, "password": s.password}
	if err := client.PostJSON(ctx, "rolla login", s.baseURL+"/api/login", nil, body, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	token := provider.PickString(resp, "token", "access_token")
	if token == nil {
		if data, ok := resp["data"].(map[string]any); ok {
			token = provider.PickString(data, "token")
		}
	}
	if token == nil {
		return errors.New("login: response carries no token")
	}

	s.token = *token
	if err := provider.SaveJSON(s.tokens, sessionTokenName, map[string]string{"token": s.token}); err != nil {
		return err
	}
	return nil
}

func (s *Strategy) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + s.token,
		"Cookie":        "token=" + s.token,
	}
}

// get performs an authenticated GET, logging in first when no session exists
// and once more when the session turns out to be expired.
func (s *Strategy) get(ctx context.Context, client *provider.HTTPClient, label, path string, q url.Values) (map[string]any, error) {
	if s.token == "" {
		if err := s.login(ctx, client); err != nil {
			return nil, err
		}
	}

	u := fmt.Sprintf("%s%s?%s", s.baseURL, path, q.Encode())
	var payload map[string]any
	err := client.GetJSON(ctx, label, u, s.headers(), &payload)
	if err != nil {
		var se *retry.StatusError
		if errors.As(err, &se) && se.Status == 401 {
			if err := s.login(ctx, client); err != nil {
				return nil, err
			}
			err = client.GetJSON(ctx, label, u, s.headers(), &payload)
		}
	}
	if err != nil {
		return nil, err
	}

	if ok, exists := payload["success"].(bool); exists && !ok {
		if reason := provider.PickString(payload, "reason"); reason != nil {
			return nil, fmt.Errorf("%s: %s", label, *reason)
		}
		return nil, fmt.Errorf("%s: request rejected", label)
	}
	return payload, nil
}

func rangeQuery(day time.Time, kind string) url.Values {
	q := url.Values{}
	q.Set("from", day.AddDate(0, 0, -1).Format(models.DateLayout))
	q.Set("to", day.Format(models.DateLayout))
	q.Set("type", kind)
	return q
}

// items tolerates the payload shape drifting between a few list keys.
func items(payload map[string]any, keys ...string) []map[string]any {
	for _, key := range keys {
		v, ok := payload[key]
		if !ok {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			if inner, ok := nested["items"].([]any); ok {
				v = inner
			}
		}
		if list, ok := v.([]any); ok {
			var out []map[string]any
			for _, e := range list {
				if m, ok := e.(map[string]any); ok {
					out = append(out, m)
				}
			}
			return out
		}
	}
	return nil
}

// itemDate extracts the calendar date an item belongs to.
func itemDate(item map[string]any) string {
	if v := provider.PickString(item, "period_start", "date", "day", "start_date"); v != nil {
		ds := *v
		if len(ds) >= 10 && ds[4] == '-' && ds[7] == '-' {
			return ds[:10]
		}
	}
	if ts := provider.PickFloat(item, "timestamp", "ts"); ts != nil {
		return models.FromUnixSeconds(int64(*ts)).Format(models.DateLayout)
	}
	return ""
}

// ListRawSessions clusters raw sleep segments into nights: segments sorted by
// start, a gap longer than segmentGap opens a new night. Awake segments count
// for the interval but not for the slept minutes.
func (s *Strategy) ListRawSessions(ctx context.Context, client *provider.HTTPClient, day time.Time) ([]models.Session, error) {
	q := rangeQuery(day, "all")
	payload, err := s.get(ctx, client, "rolla sleep segments", "/health/sleep/get", q)
	if err != nil {
		return nil, err
	}

	type segment struct {
		start, end time.Time
		awake      bool
	}
	var segments []segment
	for _, item := range items(payload, "sleep", "data", "items") {
		start := provider.PickString(item, "start_time", "start")
		end := provider.PickString(item, "end_time", "end")
		if start == nil || end == nil {
			continue
		}
		st, err := models.ParseLocalTime(*start)
		if err != nil {
			continue
		}
		et, err := models.ParseLocalTime(*end)
		if err != nil || !et.After(st) {
			continue
		}
		stage := ""
		if v := provider.PickString(item, "stage", "phase"); v != nil {
			stage = strings.ToLower(*v)
		}
		segments = append(segments, segment{
			start: st,
			end:   et,
			awake: stage == "awake" || stage == "wake" || stage == "awakenings",
		})
	}
	if len(segments) == 0 {
		return nil, nil
	}

	sort.Slice(segments, func(i, j int) bool { return segments[i].start.Before(segments[j].start) })

	var sessions []models.Session
	var cluster []segment
	flush := func() {
		if len(cluster) == 0 {
			return
		}
		var slept float64
		for _, seg := range cluster {
			if !seg.awake {
				slept += seg.end.Sub(seg.start).Minutes()
			}
		}
		sessions = append(sessions, models.Session{
			Start: cluster[0].start,
			End:   cluster[len(cluster)-1].end,
			Kind:  models.KindMain,
			Payload: map[string]any{
				"slept_minutes": slept,
			},
		})
		cluster = nil
	}

	for _, seg := range segments {
		if len(cluster) > 0 && seg.start.Sub(cluster[len(cluster)-1].end) > segmentGap {
			flush()
		}
		cluster = append(cluster, seg)
	}
	flush()

	return sessions, nil
}

func (s *Strategy) ExtractDaily(ctx context.Context, client *provider.HTTPClient, day time.Time, chosen *models.Session) (*models.Record, error) {
	rec := &models.Record{}
	target := day.Format(models.DateLayout)

	if chosen != nil {
		bed := models.Clock(chosen.Start)
		wake := models.Clock(chosen.End)
		rec.Bedtime = &bed
		rec.WakeTime = &wake
		if m := provider.PickFloat(chosen.Payload, "slept_minutes"); m != nil {
			min := int(*m + 0.5)
			rec.SleepDurationMin = &min
		}
	}

	daily, err := s.get(ctx, client, "rolla sleep daily", "/health/sleep/get", rangeQuery(day, "daily"))
	if err != nil {
		return nil, err
	}
	for _, item := range items(daily, "sleep", "data", "items") {
		if itemDate(item) != target {
			continue
		}
		rec.SleepScore = provider.PickInt(item, "sleep_score", "score", "sleep_quality_score")
		break
	}

	steps, err := s.get(ctx, client, "rolla steps", "/health/steps/get", rangeQuery(day, "daily"))
	if err != nil {
		return nil, err
	}
	for _, item := range items(steps, "steps", "steps_data", "data", "items") {
		if itemDate(item) != target {
			continue
		}
		rec.Steps = provider.PickInt(item, "steps", "count", "value")
		break
	}

	calories, err := s.get(ctx, client, "rolla calories", "/health/calories2/get", rangeQuery(day, "daily"))
	if err != nil {
		return nil, err
	}
	for _, item := range items(calories, "active_calories", "data", "items") {
		if itemDate(item) != target {
			continue
		}
		rec.ActiveCalories = provider.PickInt(item, "active_calories", "calories", "kcal", "value")
		break
	}

	hrv, err := s.get(ctx, client, "rolla hrv", "/health/hrv/get", rangeQuery(day, "daily"))
	if err != nil {
		return nil, err
	}
	for _, item := range items(hrv, "hrv_data", "items", "data") {
		if itemDate(item) != target {
			continue
		}
		rec.HRVMs = provider.PickInt(item, "avg", "hrv", "mean", "rmssd_ms", "value")
		break
	}

	return rec, nil
}

func (s *Strategy) ExtractWorkouts(ctx context.Context, client *provider.HTTPClient, day time.Time) ([]models.Record, error) {
	return nil, nil
}
