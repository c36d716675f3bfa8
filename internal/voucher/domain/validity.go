package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidValidity = errors.New("invalid_validity")
	ErrUnknownUnit     = errors.New("unknown_validity_unit")
	ErrProfileMissing  = errors.New("voucher_profile_missing")
)

// ComputeExpiry adds a profile validity window to the first login.
// Minutes, hours and days are fixed durations. Months follow the calendar
// in loc and clamp the day, so Jan 31 + 1 month lands on the last day of
// February. The result is UTC.
func ComputeExpiry(start time.Time, value int, unit ValidityUnit, loc *time.Location) (time.Time, error) {
	if value <= 0 {
		return time.Time{}, ErrInvalidValidity
	}

	switch unit {
	case UnitMinutes:
		return start.Add(time.Duration(value) * time.Minute).UTC(), nil
	case UnitHours:
		return start.Add(time.Duration(value) * time.Hour).UTC(), nil
	case UnitDays:
		return start.Add(time.Duration(value) * 24 * time.Hour).UTC(), nil
	case UnitMonths:
		return addMonths(start, value, loc).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
}

func addMonths(t time.Time, months int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	year, month, day := local.Date()
	hour, min, sec := local.Clock()

	lastDay := time.Date(year, month+time.Month(months)+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month+time.Month(months), day, hour, min, sec, local.Nanosecond(), loc)
}
