// Package types - shared CDR and tariff value types
package types

import (
	"fmt"
	"strings"
	"time"
)

// DimensionType identifies what a price component or CDR dimension measures.
// OCPI uses the same tag set for tariff dimensions and CDR dimensions.
type DimensionType string

const (
	// DimensionFlat is a fixed fee, charged at most once per session
	DimensionFlat DimensionType = "FLAT"

	// DimensionEnergy is energy delivered, in kWh
	DimensionEnergy DimensionType = "ENERGY"

	// DimensionTime is charging time, in hours
	DimensionTime DimensionType = "TIME"

	// DimensionParkingTime is time not charging, in hours
	DimensionParkingTime DimensionType = "PARKING_TIME"

	// DimensionSessionTime is the whole session duration, in hours
	DimensionSessionTime DimensionType = "SESSION_TIME"
)

// Valid reports whether the tag is a known dimension type
func (d DimensionType) Valid() bool {
	switch d {
	case DimensionFlat, DimensionEnergy, DimensionTime, DimensionParkingTime, DimensionSessionTime:
		return true
	}
	return false
}

// String returns the string representation
func (d DimensionType) String() string {
	return string(d)
}

// DayOfWeek is an uppercase English weekday name, as used in tariff restrictions
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// Valid reports whether the tag is a known weekday name
func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// DayOfWeekAt returns the weekday name for a timestamp
func DayOfWeekAt(t time.Time) DayOfWeek {
	return DayOfWeek(strings.ToUpper(t.Weekday().String()))
}

// ClockMinutes is a time of day expressed as minutes since midnight.
// Seconds within the minute are ignored, matching the HH:MM resolution
// of tariff restriction windows.
type ClockMinutes int

// ParseClock parses an "HH:MM" string. The whole string must be the
// clock value; trailing text is rejected.
func ParseClock(s string) (ClockMinutes, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("clock time %q: not HH:MM", s)
	}
	return ClockMinutes(t.Hour()*60 + t.Minute()), nil
}

// ClockAt returns the minutes-since-midnight of a timestamp
func ClockAt(t time.Time) ClockMinutes {
	return ClockMinutes(t.Hour()*60 + t.Minute())
}

// InWindow reports whether c falls in [start, end). A window whose start is
// after its end wraps midnight: active iff c >= start or c < end.
func (c ClockMinutes) InWindow(start, end ClockMinutes) bool {
	if start < end {
		return c >= start && c < end
	}
	return c >= start || c < end
}

// timestampLayouts are accepted on decode. OCPI payloads in the wild omit
// the zone suffix; such timestamps are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses an OCPI timestamp string
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: not an OCPI date-time", s)
}
