package utils

import (
	"time"
)

const DefaultExchangeTimezone = "Asia/Shanghai"

// Clock abstracts wall-clock time so services can be driven from tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// LoadLocation loads name, falling back to a fixed UTC+8 zone when the tz
// database is unavailable.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultExchangeTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// CivilDate truncates t to midnight UTC of its calendar date in loc.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from start to end,
// never negative. Both values are civil dates stored at midnight UTC; drivers
// may hand them back in another zone, so the date is read in UTC.
func DaysBetween(start, end time.Time) int {
	s := CivilDate(start, time.UTC)
	e := CivilDate(end, time.UTC)
	days := int(e.Sub(s).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
