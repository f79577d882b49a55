package valueobject

import (
	"errors"
	"fmt"
	"time"
)

// Period is a value object representing an inclusive day-granular date range.
// It is immutable; both bounds are normalized to midnight UTC.
type Period struct {
	start time.Time
	end   time.Time
}

// NewPeriod creates a new Period from inclusive start and end dates
func NewPeriod(start, end time.Time) (Period, error) {
	s := NormalizeDate(start)
	e := NormalizeDate(end)
	if s.After(e) {
		return Period{}, errors.New("period start cannot be after period end")
	}
	return Period{start: s, end: e}, nil
}

// NormalizeDate truncates a timestamp to midnight UTC
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Start returns the inclusive start date
func (p Period) Start() time.Time {
	return p.start
}

// End returns the inclusive end date
func (p Period) End() time.Time {
	return p.end
}

// ContainsDate returns true if the date falls within the period
func (p Period) ContainsDate(t time.Time) bool {
	d := NormalizeDate(t)
	return !d.Before(p.start) && !d.After(p.end)
}

// Contains returns true if the other period lies entirely within this one
func (p Period) Contains(other Period) bool {
	return !p.start.After(other.start) && !p.end.Before(other.end)
}

// Overlaps returns true if the two periods share at least one day
func (p Period) Overlaps(other Period) bool {
	return !p.start.After(other.end) && !p.end.Before(other.start)
}

// Days returns the number of days in the period, inclusive of both bounds
func (p Period) Days() int {
	return int(p.end.Sub(p.start).Hours()/24) + 1
}

// WeekOf returns the week period containing the given date, with the week
// starting on Sunday. Billing breakdowns bucket entries by these weeks.
func WeekOf(t time.Time) Period {
	d := NormalizeDate(t)
	start := d.AddDate(0, 0, -int(d.Weekday()))
	return Period{start: start, end: start.AddDate(0, 0, 6)}
}

// String returns a string representation of the period
func (p Period) String() string {
	return fmt.Sprintf("[%s, %s]", p.start.Format("2006-01-02"), p.end.Format("2006-01-02"))
}
