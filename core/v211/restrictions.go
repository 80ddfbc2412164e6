package v211

import (
	"time"

	"github.com/shopspring/decimal"

	"ocpi-cost/core/types"
)

// Restriction predicates are ANDed together; an absent bound is vacuously
// true. Ranges are half-open: minimum inclusive, maximum exclusive, so
// adjacent elements partition their axis without overlap at the boundary.

var secondsPerHour = decimal.NewFromInt(3600)

// isActive reports whether the element applies in the given evaluation
// context: the period's start timestamp, cumulative session energy in kWh,
// and cumulative charging/parking time in hours.
func (e *TariffElement) isActive(st *State) bool {
	if e.Restrictions == nil {
		return true
	}
	r := e.Restrictions
	sessionTime := st.ChargingTime.Add(st.ParkingTime)
	return r.validAtStartDateTime(st.StartDateTime) &&
		r.validAtEnergy(st.Energy) &&
		durationWithin(sessionTime, r.MinSessionDuration, r.MaxSessionDuration) &&
		durationWithin(st.ChargingTime, r.MinChargeDuration, r.MaxChargeDuration) &&
		durationWithin(st.ParkingTime, r.MinParkingDuration, r.MaxParkingDuration)
}

// validAtStartDateTime checks the calendar predicates: time-of-day window,
// date window, and day-of-week set. The time and date windows each need
// both bounds to apply.
func (r *Restrictions) validAtStartDateTime(at time.Time) bool {
	if r.StartTime != nil && r.EndTime != nil {
		if !types.ClockAt(at).InWindow(*r.StartTime, *r.EndTime) {
			return false
		}
	}

	if r.StartDate != nil && r.EndDate != nil {
		day := dateOnly(at)
		if day.Before(dateOnly(*r.StartDate)) || !day.Before(dateOnly(*r.EndDate)) {
			return false
		}
	}

	if len(r.DayOfWeek) > 0 {
		day := types.DayOfWeekAt(at)
		found := false
		for _, d := range r.DayOfWeek {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// validAtEnergy checks [min_kwh, max_kwh) against cumulative session energy
func (r *Restrictions) validAtEnergy(energy decimal.Decimal) bool {
	if r.MinKwh != nil && energy.LessThan(*r.MinKwh) {
		return false
	}
	if r.MaxKwh != nil && energy.GreaterThanOrEqual(*r.MaxKwh) {
		return false
	}
	return true
}

// durationWithin checks [min, max) seconds against a duration in hours
func durationWithin(hours decimal.Decimal, minSec, maxSec *int64) bool {
	if minSec == nil && maxSec == nil {
		return true
	}
	seconds := hours.Mul(secondsPerHour)
	if minSec != nil && seconds.LessThan(decimal.NewFromInt(*minSec)) {
		return false
	}
	if maxSec != nil && seconds.GreaterThanOrEqual(decimal.NewFromInt(*maxSec)) {
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
