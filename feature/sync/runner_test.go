package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"health-sync/feature/provider"
	"health-sync/feature/provider/models"
)

// fakeFetcher yields one daily record per day and fails on scripted dates.
type fakeFetcher struct {
	name    string
	failOn  map[string]bool
	fetched []string
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) FetchDay(_ context.Context, day time.Time) ([]models.Record, error) {
	date := day.Format(models.DateLayout)
	f.fetched = append(f.fetched, date)
	if f.failOn[date] {
		return nil, errors.New("upstream down")
	}
	score := 50
	return []models.Record{{Date: date, Source: f.name, SleepScore: &score}}, nil
}

// captureSink records the single batch the runner hands over.
type captureSink struct {
	calls int
	rows  [][]string
	err   error
}

func (c *captureSink) AppendRows(_ context.Context, rows [][]string) (int, error) {
	c.calls++
	c.rows = rows
	if c.err != nil {
		return 0, c.err
	}
	return len(rows), nil
}

func testDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	require.NoError(t, err)
	return d
}

func newTestRunner(sink rowSink, fetchers ...fetcher) *Runner {
	return &Runner{fetchers: fetchers, sink: sink, log: zap.NewNop()}
}

func TestRunCollectsAllUnitsIntoOneBatch(t *testing.T) {
	a := &fakeFetcher{name: "oura"}
	b := &fakeFetcher{name: "polar"}
	snk := &captureSink{}

	written, err := newTestRunner(snk, a, b).Run(context.Background(),
		testDay(t, "2026-01-05"), testDay(t, "2026-01-07"))
	require.NoError(t, err)

	assert.Equal(t, 6, written, "3 days x 2 providers")
	assert.Equal(t, 1, snk.calls, "everything lands in a single sink call")
	assert.Equal(t, []string{"2026-01-05", "2026-01-06", "2026-01-07"}, a.fetched)
	assert.Equal(t, []string{"2026-01-05", "2026-01-06", "2026-01-07"}, b.fetched)
}

func TestRunSkipsFailedUnits(t *testing.T) {
	a := &fakeFetcher{name: "oura", failOn: map[string]bool{"2026-01-06": true}}
	b := &fakeFetcher{name: "polar"}
	snk := &captureSink{}

	written, err := newTestRunner(snk, a, b).Run(context.Background(),
		testDay(t, "2026-01-05"), testDay(t, "2026-01-07"))
	require.NoError(t, err, "one bad unit never fails the run")
	assert.Equal(t, 5, written)
	assert.Len(t, a.fetched, 3, "the provider is still asked for the other days")
}

func TestRunSinkFailureFailsRun(t *testing.T) {
	a := &fakeFetcher{name: "oura"}
	snk := &captureSink{err: errors.New("bucket gone")}

	_, err := newTestRunner(snk, a).Run(context.Background(),
		testDay(t, "2026-01-05"), testDay(t, "2026-01-05"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestRunRejectsInvertedRange(t *testing.T) {
	snk := &captureSink{}
	_, err := newTestRunner(snk, &fakeFetcher{name: "oura"}).Run(context.Background(),
		testDay(t, "2026-01-07"), testDay(t, "2026-01-05"))
	require.Error(t, err)
	assert.Zero(t, snk.calls)
}

func TestRunSingleDayRangeIsInclusive(t *testing.T) {
	a := &fakeFetcher{name: "oura"}
	snk := &captureSink{}

	written, err := newTestRunner(snk, a).Run(context.Background(),
		testDay(t, "2026-01-06"), testDay(t, "2026-01-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, written)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &fakeFetcher{name: "oura"}
	snk := &captureSink{}

	_, err := newTestRunner(snk, a).Run(ctx,
		testDay(t, "2026-01-05"), testDay(t, "2026-01-07"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, snk.calls)
}

func TestNewRunnerUnknownProvider(t *testing.T) {
	cfg := provider.Config{StateDir: t.TempDir(), TimeoutSeconds: 5}
	_, err := NewRunner(cfg, []string{"fitbit"}, nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "fitbit"`)
	assert.Contains(t, err.Error(), "oura")
}

func TestNewRunnerNoSources(t *testing.T) {
	_, err := NewRunner(provider.Config{StateDir: t.TempDir()}, nil, nil, zap.NewNop())
	require.Error(t, err)
}

func TestNewRunnerUnconfiguredProvider(t *testing.T) {
	cfg := provider.Config{StateDir: t.TempDir(), TimeoutSeconds: 5}
	_, err := NewRunner(cfg, []string{"oura"}, nil, zap.NewNop())
	require.Error(t, err, "a missing token surfaces at wiring time, not mid-run")
	assert.Contains(t, err.Error(), "access_token")
}

func TestSources(t *testing.T) {
	assert.Equal(t, []string{"garmin", "oura", "polar", "rolla", "withings"}, Sources())
}

func TestParseSources(t *testing.T) {
	assert.Equal(t, []string{"oura", "polar"}, ParseSources("Oura, polar"))
	assert.Equal(t, []string{"oura"}, ParseSources(",oura,,"))
	assert.Nil(t, ParseSources(""))
}

func TestParseSince(t *testing.T) {
	today := time.Date(2026, 1, 10, 14, 30, 0, 0, time.Local)

	got, err := ParseSince("2d", today)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 8, 0, 0, 0, 0, time.Local), got, "relative spans count from local midnight")

	got, err = ParseSince("0d", today)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.Local), got)

	got, err = ParseSince("2026-01-02", today)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.Local), got)

	_, err = ParseSince("-3d", today)
	assert.Error(t, err)

	_, err = ParseSince("yesterday", today)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2026-01-06 ")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-06", got.Format(models.DateLayout))

	_, err = ParseDate("06.01.2026")
	assert.Error(t, err)
}
