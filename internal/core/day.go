package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the persisted form of a calendar day.
const DayLayout = "2006-01-02"

var ErrInvalidDay = errors.New("invalid day")

// Day is a calendar date with no time or zone. Two Days compare with ==.
type Day struct {
	year  int
	month time.Month
	day   int
}

// NewDay normalizes out of range values the way time.Date does.
func NewDay(year int, month time.Month, day int) Day {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Day{year: t.Year(), month: t.Month(), day: t.Day()}
}

// DayOf returns the calendar day of t as seen in loc. A nil loc keeps t's own zone.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc != nil {
		t = t.In(loc)
	}
	return Day{year: t.Year(), month: t.Month(), day: t.Day()}
}

func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return DayOf(t, nil), nil
}

func (d Day) Year() int { return d.year }
func (d Day) Month() time.Month { return d.month }
func (d Day) DayOfMonth() int { return d.day }
func (d Day) IsZero() bool { return d == Day{} }
func (d Day) AddDays(n int) Day { return NewDay(d.year, d.month, d.day+n) }
func (d Day) Before(o Day) bool { return d.compare(o) < 0 }
func (d Day) After(o Day) bool { return d.compare(o) > 0 }

// Start returns local midnight of d in loc.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, loc)
}

// String formats d as YYYY-MM-DD, the zero Day formats as "".
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

func (d Day) compare(o Day) int {
	switch {
	case d.year != o.year:
		return d.year - o.year
	case d.month != o.month:
		return int(d.month) - int(o.month)
	default:
		return d.day - o.day
	}
}
