package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"health-sync/feature/provider/models"
)

// Strategy is what a single provider has to implement. Everything else, the
// retry schedule, the window assignment and the shared HTTP transport, lives
// in the Adapter so a new provider is only the three extraction methods.
type Strategy interface {
	// Name is the lowercase source identifier written into every row.
	Name() string

	// DayBoundary is the provider's default day-boundary wall-clock offset
	// ("00:00", "18:00"). Per-provider configuration can override it.
	DayBoundary() string

	// ListRawSessions returns every candidate sleep session the provider
	// reports near the given day. The adapter picks the one that belongs
	// to the day; strategies never pre-filter beyond the API's own range.
	ListRawSessions(ctx context.Context, client *HTTPClient, day time.Time) ([]models.Session, error)

	// ExtractDaily builds the aggregate row for the day. chosen is the
	// session the window assignment selected, nil when no session belongs
	// to the day; sleep fields stay nil in that case.
	ExtractDaily(ctx context.Context, client *HTTPClient, day time.Time, chosen *models.Session) (*models.Record, error)

	// ExtractWorkouts returns zero or more workout rows for the day, each
	// keyed by the provider's workout id.
	ExtractWorkouts(ctx context.Context, client *HTTPClient, day time.Time) ([]models.Record, error)
}

// Adapter runs one strategy for one day and yields finished canonical rows.
type Adapter struct {
	strategy Strategy
	client   *HTTPClient
	boundary time.Duration
	log      *zap.Logger
}

// NewAdapter wires a strategy to the shared client. boundaryOverride is the
// configured day boundary ("15:04" wall clock), empty means the strategy's
// default.
func NewAdapter(s Strategy, client *HTTPClient, boundaryOverride string, log *zap.Logger) (*Adapter, error) {
	spec := boundaryOverride
	if spec == "" {
		spec = s.DayBoundary()
	}
	boundary, err := ParseBoundary(spec)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", s.Name(), err)
	}
	return &Adapter{
		strategy: s,
		client:   client,
		boundary: boundary,
		log:      log.With(zap.String("source", s.Name())),
	}, nil
}

// Name returns the wrapped strategy's source identifier.
func (a *Adapter) Name() string {
	return a.strategy.Name()
}

// FetchDay produces every row this provider contributes for the day: at most
// one daily aggregate plus any workouts. An error here means retries are
// already exhausted; the caller decides whether to skip the unit.
func (a *Adapter) FetchDay(ctx context.Context, day time.Time) ([]models.Record, error) {
	sessions, err := a.strategy.ListRawSessions(ctx, a.client, day)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	chosen := SelectSession(sessions, day, a.boundary)
	if chosen == nil && len(sessions) > 0 {
		a.log.Debug("no session belongs to day",
			zap.String("date", day.Format(models.DateLayout)),
			zap.Int("candidates", len(sessions)),
		)
	}

	daily, err := a.strategy.ExtractDaily(ctx, a.client, day, chosen)
	if err != nil {
		return nil, fmt.Errorf("extract daily: %w", err)
	}

	workouts, err := a.strategy.ExtractWorkouts(ctx, a.client, day)
	if err != nil {
		return nil, fmt.Errorf("extract workouts: %w", err)
	}

	var rows []models.Record
	if daily != nil && !daily.Empty() {
		a.stamp(daily, day)
		rows = append(rows, *daily)
	}
	for i := range workouts {
		a.stamp(&workouts[i], day)
		rows = append(rows, workouts[i])
	}
	return rows, nil
}

// stamp fills the identity columns the strategy is allowed to leave blank.
func (a *Adapter) stamp(rec *models.Record, day time.Time) {
	if rec.Date == "" {
		rec.Date = day.Format(models.DateLayout)
	}
	if rec.Source == "" {
		rec.Source = a.strategy.Name()
	}
}

// ParseBoundary turns a "15:04" wall-clock string into an offset from local
// midnight.
func ParseBoundary(spec string) (time.Duration, error) {
	if spec == "" {
		return 0, nil
	}
	t, err := time.Parse("15:04", spec)
	if err != nil {
		return 0, fmt.Errorf("invalid day boundary %q (want HH:MM): %w", spec, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
