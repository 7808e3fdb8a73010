// Package dates provides civil-date helpers and business-day arithmetic
// for milestone deadlines.
//
// All dates are represented as time.Time values at midnight UTC. Callers
// should pass values through Truncate (or build them with Of/Parse) so that
// day differences are exact.
package dates

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Layout is the ISO calendar-date layout used for storage and input.
const Layout = "2006-01-02"

var (
	// ErrInvalidDate is returned for strings that are not YYYY-MM-DD dates.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidOffset is returned for day offsets that are not finite integers.
	ErrInvalidOffset = errors.New("invalid day offset")
)

// Sentinel orders dateless milestones after every dated one. It is only
// used for comparisons and is never shown.
var Sentinel = Of(2999, time.December, 31)

// Of returns the given calendar day.
func Of(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time of day, keeping the wall-clock date of t in its
// own location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Of(y, m, d)
}

// Today returns the current calendar day in loc (local time if nil).
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return Truncate(time.Now().In(loc))
}

// Parse reads a YYYY-MM-DD string. Surrounding whitespace is ignored.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseOptional parses s, treating "", "TBD" and "null" as no date.
func ParseOptional(s string) (*time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tbd", "null":
		return nil, nil
	}
	t, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Key returns the day-bucket key for t.
func Key(t time.Time) string {
	return Truncate(t).Format(Layout)
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DaysBetween returns the signed number of calendar days from -> to. Both
// sides are civil days at UTC midnight, so the difference in Unix seconds is
// a whole number of days and does not saturate like time.Duration.
func DaysBetween(from, to time.Time) int {
	return int((Truncate(to).Unix() - Truncate(from).Unix()) / 86400)
}

// AddOffsetDays moves base by count days.
//
// With businessDaysOnly false the result is exactly base+count calendar
// days, weekends included. With businessDaysOnly true the walk advances one
// calendar day at a time and only Monday-Friday increment the counter; the
// result is the day the counter reaches count, so it is always a weekday.
// Negative counts walk backward with the same rule. A zero count returns
// base unchanged, even when base is itself a weekend day.
func AddOffsetDays(base time.Time, count int, businessDaysOnly bool) time.Time {
	base = Truncate(base)
	if !businessDaysOnly || count == 0 {
		return base.AddDate(0, 0, count)
	}

	step := 1
	if count < 0 {
		step = -1
		count = -count
	}

	d := base
	for counted := 0; counted < count; {
		d = d.AddDate(0, 0, step)
		if !IsWeekend(d) {
			counted++
		}
	}
	return d
}

// NextWeekday pushes a weekend date forward to the following Monday.
// Weekdays are returned unchanged.
func NextWeekday(t time.Time) time.Time {
	t = Truncate(t)
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

// OffsetFromFloat converts a day offset received as a float (JSON/YAML
// numbers, extraction output) into an int, rejecting NaN, infinities and
// fractional values.
func OffsetFromFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidOffset, f)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not a whole number of days", ErrInvalidOffset, f)
	}
	if math.Abs(f) > 36500 {
		return 0, fmt.Errorf("%w: %v is out of range", ErrInvalidOffset, f)
	}
	return int(f), nil
}

// ParseOffset parses a day offset typed by a user.
func ParseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidOffset)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, s)
	}
	return OffsetFromFloat(f)
}
