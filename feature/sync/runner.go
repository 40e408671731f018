// Package sync drives a run: it fans out over dates and providers, collects
// canonical rows and hands them to the reconciliation sink in one batch.
package sync

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"health-sync/core/logger"
	"health-sync/core/sink"
	"health-sync/feature/provider"
	"health-sync/feature/provider/models"
)

// fetcher is what the runner needs from a provider adapter.
type fetcher interface {
	Name() string
	FetchDay(ctx context.Context, day time.Time) ([]models.Record, error)
}

// rowSink is what the runner needs from the reconciliation sink.
type rowSink interface {
	AppendRows(ctx context.Context, rows [][]string) (int, error)
}

// Runner executes one sync over a date range. Fetching is strictly
// sequential: these are consumer APIs with aggressive rate limiters, and a
// run is minutes long at worst.
type Runner struct {
	fetchers []fetcher
	sink     rowSink
	log      *zap.Logger
}

// NewRunner wires adapters for the requested sources. Every run gets a fresh
// id on the logger so its lines correlate.
func NewRunner(cfg provider.Config, sources []string, snk *sink.Sink, log *zap.Logger) (*Runner, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources selected")
	}

	log = logger.WithRunID(log, uuid.NewString())

	tokens, err := provider.NewFileTokenStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	client := provider.NewHTTPClient(log, cfg.TimeoutSeconds, cfg.RetryOptions())

	var fetchers []fetcher
	for _, name := range sources {
		strategy, err := newStrategy(name, cfg, tokens)
		if err != nil {
			return nil, err
		}
		settings, _ := cfg.For(strategy.Name())
		adapter, err := provider.NewAdapter(strategy, client, settings.DayBoundary, log)
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, adapter)
	}

	return &Runner{fetchers: fetchers, sink: snk, log: log}, nil
}

// Run fetches every (date, provider) unit in the inclusive range and writes
// the collected rows in a single sink call. A failed unit is logged and
// skipped; a sink failure fails the run. Returns the rows-written count.
func (r *Runner) Run(ctx context.Context, start, end time.Time) (int, error) {
	if start.After(end) {
		return 0, fmt.Errorf("start date %s is after end date %s",
			start.Format(models.DateLayout), end.Format(models.DateLayout))
	}

	var rows [][]string
	units, failed := 0, 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, f := range r.fetchers {
			units++
			records, err := f.FetchDay(ctx, day)
			if err != nil {
				failed++
				logger.WithUnit(r.log, f.Name(), day.Format(models.DateLayout)).
					Warn("skipping unit", zap.Error(err))
				continue
			}
			for i := range records {
				rows = append(rows, records[i].Row())
			}
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
		}
	}

	written, err := r.sink.AppendRows(ctx, rows)
	if err != nil {
		return 0, err
	}

	r.log.Info("run finished",
		zap.Int("units", units),
		zap.Int("failed_units", failed),
		zap.Int("rows_written", written),
	)
	return written, nil
}

// ParseSources splits a comma-separated source list.
func ParseSources(spec string) []string {
	var out []string
	for _, part := range strings.Split(spec, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, strings.ToLower(name))
		}
	}
	return out
}

// ParseSince resolves a range start: either a relative "7d" or an ISO date.
func ParseSince(spec string, today time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	if strings.HasSuffix(s, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil {
			if days < 0 {
				return time.Time{}, fmt.Errorf("invalid since %q", spec)
			}
			return midnight(today).AddDate(0, 0, -days), nil
		}
	}
	return ParseDate(s)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
