package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day is a calendar date with no time-of-day component.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf strips the time-of-day from t, keeping t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// Today returns the current local date.
func Today() Day {
	return DayOf(time.Now())
}

// ParseDay parses the DD/MM/YYYY format used by the HEN backend.
func ParseDay(s string) (Day, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Day{}, fmt.Errorf("invalid date %q: want DD/MM/YYYY", s)
	}
	d, err := strconv.Atoi(parts[0])
	if err != nil {
		return Day{}, fmt.Errorf("invalid day in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return Day{}, fmt.Errorf("invalid month in %q: %w", s, err)
	}
	y, err := strconv.Atoi(parts[2])
	if err != nil {
		return Day{}, fmt.Errorf("invalid year in %q: %w", s, err)
	}
	day := Day{Year: y, Month: time.Month(m), Day: d}
	if m < 1 || m > 12 || d < 1 || d > daysIn(day.Year, day.Month) {
		return Day{}, fmt.Errorf("invalid date %q: out of range", s)
	}
	return day, nil
}

// ParseISODay parses YYYY-MM-DD.
func ParseISODay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Time returns midnight UTC of d.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n days, normalizing across month and year ends.
func (d Day) AddDays(n int) Day {
	return DayOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d == Day{}
}

// String formats d as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// HENString formats d as DD/MM/YYYY.
func (d Day) HENString() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// Equal compares the (year, month, day) triples.
func (d Day) Equal(o Day) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// LessOrEqual orders by year, then month, then day.
func (d Day) LessOrEqual(o Day) bool {
	return d.Equal(o) || d.Before(o)
}

// Before reports whether d is strictly earlier than o.
func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// DateRange is an inclusive span of days tagged with the reservation it came from.
type DateRange struct {
	Start         Day
	End           Day
	ReservationID string
}

// Contains reports whether d lies on or between the range end points.
func (r DateRange) Contains(d Day) bool {
	return r.Start.LessOrEqual(d) && d.LessOrEqual(r.End)
}

// InRange checks year, month and day independently against both end points.
// This is weaker than Contains: a range from 20 Feb to 10 Mar does not match
// 5 Mar because 5 < 20. Allocation coloring depends on this behavior.
func InRange(d Day, r DateRange) bool {
	return d.Day >= r.Start.Day &&
		d.Month >= r.Start.Month &&
		d.Year >= r.Start.Year &&
		d.Day <= r.End.Day &&
		d.Month <= r.End.Month &&
		d.Year <= r.End.Year
}
