package models

import (
	"fmt"
	"time"
)

// Session kinds, in preference order. Providers tag their sleep periods
// differently ("long_sleep", "main", "sleep", "nap"); strategies map whatever
// they receive onto these two.
const (
	KindMain = "main"
	KindNap  = "nap"
)

// Session is a raw provider interval: one sleep period or activity block as
// the provider reported it. Sessions only live long enough for one of them to
// be assigned to a calendar date; after that the normalized record is all
// that remains.
type Session struct {
	// Start and End are naive local wall-clock times (offset parsed and
	// dropped, see ParseLocalTime).
	Start time.Time
	End   time.Time

	// Kind is KindMain or KindNap. Empty counts as main.
	Kind string

	// Payload carries the provider-native fields for the normalizer.
	Payload map[string]any
}

// Duration returns the session length.
func (s Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// IsNap reports whether the session is tagged as a nap.
func (s Session) IsNap() bool {
	return s.Kind == KindNap
}

// timestampLayouts covers the formats seen across provider APIs: RFC 3339
// with and without sub-second precision, and bare local timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseLocalTime parses a provider timestamp and normalizes it to naive local
// wall clock: any timezone offset in the literal is parsed and then dropped,
// keeping the clock reading as written. All window comparisons happen on these
// naive values, which avoids off-by-one-day errors around DST transitions.
func ParseLocalTime(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return stripZone(t), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FromUnixMillis converts an epoch-milliseconds value (Garmin style) to a
// naive UTC wall-clock time.
func FromUnixMillis(ms int64) time.Time {
	return stripZone(time.UnixMilli(ms).UTC())
}

// FromUnixSeconds converts an epoch-seconds value (Withings style) to a naive
// local wall-clock time.
func FromUnixSeconds(sec int64) time.Time {
	return stripZone(time.Unix(sec, 0))
}

func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Clock formats a naive time as HH:MM:SS for the bedtime/wake_time columns.
func Clock(t time.Time) string {
	return t.Format("15:04:05")
}
