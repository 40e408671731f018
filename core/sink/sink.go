package sink

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"health-sync/feature/provider/models"
)

// ErrUnavailable marks a sink failure caused by the backing store. Fetch
// problems degrade per unit; a store problem fails the whole run, so callers
// check for this sentinel.
var ErrUnavailable = errors.New("sink store unavailable")

// Sink reconciles incoming rows into the unified table.
type Sink struct {
	store Store
	log   *zap.Logger
}

// New returns a sink over the given store.
func New(store Store, log *zap.Logger) *Sink {
	return &Sink{store: store, log: log}
}

// AppendRows upserts the batch into the table and returns the number of rows
// written (updates plus appends, after in-batch deduplication).
//
// A row replaces the stored row sharing its composite key, whole-row, even
// where the new row has blanks the old one filled. Re-running the same batch
// is a no-op beyond rewriting identical rows. Any store error aborts the call.
func (s *Sink) AppendRows(ctx context.Context, rows [][]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if err := s.store.EnsureHeader(ctx); err != nil {
		return 0, fmt.Errorf("%w: ensure header: %w", ErrUnavailable, err)
	}

	existing, err := s.store.ReadRows(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: read rows: %w", ErrUnavailable, err)
	}

	// One linear scan over the stored table; no per-row lookups later.
	index := make(map[string]int, len(existing))
	for pos, row := range existing {
		index[models.RowKey(row)] = pos
	}

	var (
		updates   []RowUpdate
		updatePos = make(map[string]int) // key -> index into updates
		appends   [][]string
		appendPos = make(map[string]int) // key -> index into appends
		skipped   int
	)

	for _, raw := range rows {
		row := normalize(raw)
		if row[models.ColDate] == "" {
			skipped++
			continue
		}
		key := models.RowKey(row)

		// The later occurrence wins within one batch.
		if i, ok := updatePos[key]; ok {
			updates[i].Row = row
			continue
		}
		if i, ok := appendPos[key]; ok {
			appends[i] = row
			continue
		}

		if pos, ok := index[key]; ok {
			updatePos[key] = len(updates)
			updates = append(updates, RowUpdate{Position: pos, Row: row})
		} else {
			appendPos[key] = len(appends)
			appends = append(appends, row)
		}
	}

	if skipped > 0 {
		s.log.Warn("dropping rows without a date", zap.Int("count", skipped))
	}

	if len(updates) > 0 {
		if err := s.store.UpdateRows(ctx, updates); err != nil {
			return 0, fmt.Errorf("%w: update rows: %w", ErrUnavailable, err)
		}
	}
	if len(appends) > 0 {
		if err := s.store.AppendRows(ctx, appends); err != nil {
			return 0, fmt.Errorf("%w: append rows: %w", ErrUnavailable, err)
		}
	}
	if err := s.store.SortByDate(ctx); err != nil {
		return 0, fmt.Errorf("%w: sort: %w", ErrUnavailable, err)
	}

	written := len(updates) + len(appends)
	s.log.Info("reconciled batch",
		zap.Int("incoming", len(rows)),
		zap.Int("updated", len(updates)),
		zap.Int("appended", len(appends)),
	)
	return written, nil
}

// normalize pads or truncates a row to the canonical width.
func normalize(row []string) []string {
	out := make([]string, models.ColumnCount)
	copy(out, row)
	return out
}
