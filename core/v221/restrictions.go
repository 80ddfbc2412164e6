package v221

import (
	"time"

	"ocpi-cost/core/types"
)

// Restriction predicates are ANDed together; an absent bound is vacuously
// true. The calendar predicates evaluate against local wall-clock time at
// the charge point (see timezone.Localize); localStart is already
// converted by the caller. Duration bounds are half-open [min, max): a
// session duration exactly equal to max belongs to the next element.

// isActive reports whether the element applies at the given local period
// start and elapsed session duration.
func (e *TariffElement) isActive(localStart time.Time, sessionSeconds int64) bool {
	if e.Restrictions == nil {
		return true
	}
	return e.Restrictions.active(localStart, sessionSeconds)
}

func (r *Restrictions) active(localStart time.Time, sessionSeconds int64) bool {
	if len(r.DayOfWeek) > 0 && !r.onDay(localStart) {
		return false
	}

	if r.StartTime != nil && r.EndTime != nil {
		if !types.ClockAt(localStart).InWindow(*r.StartTime, *r.EndTime) {
			return false
		}
	}

	if r.StartDate != nil && r.EndDate != nil {
		// ISO dates compare correctly as strings
		day := localStart.Format("2006-01-02")
		if day < *r.StartDate || day >= *r.EndDate {
			return false
		}
	}

	if r.MinDuration != nil && sessionSeconds < *r.MinDuration {
		return false
	}
	if r.MaxDuration != nil && sessionSeconds >= *r.MaxDuration {
		return false
	}

	return true
}

func (r *Restrictions) onDay(localStart time.Time) bool {
	day := types.DayOfWeekAt(localStart)
	for _, d := range r.DayOfWeek {
		if d == day {
			return true
		}
	}
	return false
}
