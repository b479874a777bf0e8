package progress

import (
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar day key in YYYY-MM-DD form. The zero value means "never".
type Day string

// DayOf returns the calendar day of t in t's location.
func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

// ParseDay validates a YYYY-MM-DD key.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(dayLayout, s); err != nil {
		return "", err
	}
	return Day(s), nil
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool {
	return d == ""
}

// Time returns midnight UTC of the day. Unparseable or zero days map to the zero time.
func (d Day) Time() time.Time {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool {
	return d.Time().Before(other.Time())
}

// AddDays returns the day n calendar days after d.
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n))
}

// DaysUntil returns the number of calendar days from d to other.
// Negative when other is earlier.
func (d Day) DaysUntil(other Day) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

func (d Day) String() string {
	return string(d)
}

// Clock supplies the current time. Services take one so tests can pin "today".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time {
	return c.T
}

// Set moves the clock.
func (c *FixedClock) Set(t time.Time) {
	c.T = t
}

// Today returns the calendar day of the clock's current time.
func Today(c Clock) Day {
	return DayOf(c.Now())
}
