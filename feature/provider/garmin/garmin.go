// Package garmin pulls wellness data from Garmin Connect using a browser
// session exported as a storage-state file. There is no public API; the
// bearer token and the JWT_FGP cookie are mined from that state and sent the
// way the web app sends them.
package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"health-sync/feature/provider"
	"health-sync/feature/provider/models"
)

const (
	defaultModernURL = "https://connect.garmin.com/modern"
	defaultAPIURL    = "https://connectapi.garmin.com"

	// stateName is the token store entry holding the exported browser
	// storage state.
	stateName = "garmin"
)

// Strategy implements provider.Strategy for Garmin Connect.
type Strategy struct {
	modernURL string
	apiURL    string
	tokens    provider.TokenStore
}

func New(settings provider.Settings, tokens provider.TokenStore) (*Strategy, error) {
	s := &Strategy{
		modernURL: defaultModernURL,
		apiURL:    defaultAPIURL,
		tokens:    tokens,
	}
	if settings.BaseURL != "" {
		s.modernURL = settings.BaseURL
		s.apiURL = settings.BaseURL
	}
	return s, nil
}

func (s *Strategy) Name() string        { return "garmin" }
func (s *Strategy) DayBoundary() string { return "00:00" }

// storageState mirrors the browser export: the bearer token sits in
// localStorage under "token", the fingerprint in the JWT_FGP cookie.
type storageState struct {
	Cookies []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"cookies"`
	Origins []struct {
		LocalStorage []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"localStorage"`
	} `json:"origins"`
}

func (s *Strategy) credentials() (token, fgp string, err error) {
	var state storageState
	if err := provider.LoadJSON(s.tokens, stateName, &state); err != nil {
		return "", "", fmt.Errorf("load browser state (export a logged-in session first): %w", err)
	}

	for _, origin := range state.Origins {
		for _, kv := range origin.LocalStorage {
			if kv.Name != "token" {
				continue
			}
			var tok struct {
				AccessToken string `json:"access_token"`
			}
			if json.Unmarshal([]byte(kv.Value), &tok) == nil && tok.AccessToken != "" {
				token = tok.AccessToken
			}
		}
	}
	for _, ck := range state.Cookies {
		if ck.Name == "JWT_FGP" {
			fgp = ck.Value
			break
		}
	}

	if token == "" {
		return "", "", fmt.Errorf("browser state has no access token, session expired")
	}
	return token, fgp, nil
}

func (s *Strategy) headers() (map[string]string, error) {
	token, fgp, err := s.credentials()
	if err != nil {
		return nil, err
	}
	h := map[string]string{
		"Authorization":    "Bearer " + token,
		"di-auth":          "Bearer " + token,
		"Origin":           "https://connect.garmin.com",
		"Referer":          s.modernURL + "/",
		"User-Agent":       "Mozilla/5.0",
		"X-Requested-With": "XMLHttpRequest",
		"x-app-id":         "com.garmin.connect.web",
		"NK":               "NT",
	}
	if fgp != "" {
		h["DI-DEVICE-ID"] = fgp
		h["DI-APP-PLATFORM"] = "web"
	}
	return h, nil
}

// fetch tries the modern proxy path first and falls back to the connectapi
// host, which serves the same services without the /proxy prefix.
func (s *Strategy) fetch(ctx context.Context, client *provider.HTTPClient, label, path string, params url.Values) (map[string]any, error) {
	headers, err := s.headers()
	if err != nil {
		return nil, err
	}

	query := ""
	if len(params) > 0 {
		query = "?" + params.Encode()
	}
	urls := []string{
		s.modernURL + "/proxy" + path + query,
		s.apiURL + path + query,
	}

	var lastErr error
	answered := false
	for _, u := range urls {
		var payload map[string]any
		if err := client.GetJSON(ctx, label, u, headers, &payload); err != nil {
			lastErr = err
			continue
		}
		answered = true
		if len(payload) > 0 {
			return payload, nil
		}
	}
	if !answered && lastErr != nil && !provider.IsNotFound(lastErr) {
		return nil, lastErr
	}
	return nil, nil
}

// ListRawSessions returns the single night Garmin reports for the day.
// Garmin already assigns sleep to calendar days, so the window pass is a
// formality here.
func (s *Strategy) ListRawSessions(ctx context.Context, client *provider.HTTPClient, day time.Time) ([]models.Session, error) {
	params := url.Values{"date": {day.Format(models.DateLayout)}}
	payload, err := s.fetch(ctx, client, "garmin sleep", "/wellness-service/wellness/dailySleepData", params)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	startMs := provider.PickFloat(payload, "sleepStartTimestampGMT", "sleepStartTimestampUTC", "overallSleepStartTimestamp")
	endMs := provider.PickFloat(payload, "sleepEndTimestampGMT", "sleepEndTimestampUTC", "overallSleepEndTimestamp")
	if startMs == nil || endMs == nil {
		return nil, nil
	}

	return []models.Session{{
		Start:   models.FromUnixMillis(int64(*startMs)),
		End:     models.FromUnixMillis(int64(*endMs)),
		Kind:    models.KindMain,
		Payload: payload,
	}}, nil
}

func (s *Strategy) ExtractDaily(ctx context.Context, client *provider.HTTPClient, day time.Time, chosen *models.Session) (*models.Record, error) {
	params := url.Values{"date": {day.Format(models.DateLayout)}}
	rec := &models.Record{}

	if chosen != nil {
		bed := models.Clock(chosen.Start)
		wake := models.Clock(chosen.End)
		rec.Bedtime = &bed
		rec.WakeTime = &wake
		rec.SleepDurationMin = provider.MinutesFromSeconds(
			provider.PickFloat(chosen.Payload, "durationInSeconds", "sleepTimeSeconds", "sleepingSeconds"))
		rec.SleepScore = provider.PickInt(chosen.Payload, "overallSleepScore", "sleepScore")
		rec.RHRBpm = provider.PickInt(chosen.Payload, "lowestHeartRate", "lowestRespirationHeartRate", "minHeartRate")
	}

	summary, err := s.fetch(ctx, client, "garmin summary", "/wellness-service/wellness/dailySummary", params)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		rec.Steps = provider.PickInt(summary, "steps", "totalSteps")
		rec.ActiveCalories = provider.PickInt(summary, "activeKilocalories", "activeCalories")
		if rec.RHRBpm == nil {
			rec.RHRBpm = provider.PickInt(summary, "restingHeartRate", "minHeartRate")
		}
	}

	hrv, err := s.fetch(ctx, client, "garmin hrv", "/wellness-service/wellness/dailyHrv", params)
	if err != nil {
		return nil, err
	}
	if hrv != nil {
		rec.HRVMs = provider.PickInt(hrv, "avgRmssd", "rmssd", "averageRmssd")
		if rec.RHRBpm == nil {
			rec.RHRBpm = provider.PickInt(hrv, "restingHeartRate")
		}
	}

	// Body battery fills the readiness column; Garmin has no readiness score.
	bb, err := s.fetch(ctx, client, "garmin body battery", "/wellness-service/wellness/bodyBattery", params)
	if err != nil {
		return nil, err
	}
	if bb != nil {
		rec.ReadinessScore = provider.PickInt(bb, "mostRecentValue", "mostRecent", "bodyBatteryMostRecent", "bodyBatteryMax")
	}

	return rec, nil
}

// ExtractWorkouts returns nothing: workouts come from the activity service,
// which the exported browser session is not scoped for.
func (s *Strategy) ExtractWorkouts(ctx context.Context, client *provider.HTTPClient, day time.Time) ([]models.Record, error) {
	return nil, nil
}
