package provider

import (
	"time"

	"health-sync/feature/provider/models"
)

// SelectSession picks the one raw session that belongs to the given calendar
// day, or nil when no session does.
//
// The day window is [B, B+24h) where B is local midnight of day plus the
// provider's day-boundary offset (midnight for most providers; some count the
// "sleep day" from an evening cutoff such as 18:00).
//
// Selection runs in two phases. The containment pass keeps sessions whose end
// falls inside the window; among those, main sleep beats naps, then longer
// duration wins, then the later end. If nothing ends inside the window, the
// fallback ranks sessions by seconds of overlap with the window using the same
// tie-breaks, and a best overlap of zero means there is no data for that day.
//
// A session ending exactly at the window start is deliberately excluded from
// the containment pass even though the start instant itself lies in [B, B+24h):
// such a session has zero overlap with the day, and a selected session must
// always overlap its day.
func SelectSession(sessions []models.Session, day time.Time, boundary time.Duration) *models.Session {
	windowStart := midnight(day).Add(boundary)
	windowEnd := windowStart.Add(24 * time.Hour)

	var best *models.Session

	// Containment pass: end inside the window.
	for i := range sessions {
		s := &sessions[i]
		if !valid(s) {
			continue
		}
		// End strictly after the window start: a session that only
		// touches the boundary has zero overlap with the day.
		if !s.End.After(windowStart) || !s.End.Before(windowEnd) {
			continue
		}
		if best == nil || preferred(s, best) {
			best = s
		}
	}
	if best != nil {
		return best
	}

	// Overlap fallback.
	var bestOverlap time.Duration
	for i := range sessions {
		s := &sessions[i]
		if !valid(s) {
			continue
		}
		ov := overlap(s, windowStart, windowEnd)
		if ov <= 0 {
			continue
		}
		if best == nil || ov > bestOverlap || (ov == bestOverlap && preferred(s, best)) {
			best = s
			bestOverlap = ov
		}
	}
	return best
}

// valid rejects sessions whose timestamps failed to parse or are inverted.
// A bad session is skipped on its own; it never fails the whole selection.
func valid(s *models.Session) bool {
	return !s.Start.IsZero() && !s.End.IsZero() && s.End.After(s.Start)
}

// preferred reports whether a should win over b: main sleep over naps, then
// longer duration, then later end.
func preferred(a, b *models.Session) bool {
	if a.IsNap() != b.IsNap() {
		return !a.IsNap()
	}
	if a.Duration() != b.Duration() {
		return a.Duration() > b.Duration()
	}
	return a.End.After(b.End)
}

func overlap(s *models.Session, windowStart, windowEnd time.Time) time.Duration {
	start := s.Start
	if start.Before(windowStart) {
		start = windowStart
	}
	end := s.End
	if end.After(windowEnd) {
		end = windowEnd
	}
	return end.Sub(start)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
