package shared

import (
	"errors"
	"fmt"
	"time"
)

// DayLayout is the wire format for calendar days on filters and payloads.
const DayLayout = "2006-01-02"

// ErrInvalidRange indicates an inverted date range.
var ErrInvalidRange = errors.New("date range invalid: to precedes from")

// DayKey formats a day as the sortable YYYYMMDD key used for snapshots and cache keys.
func DayKey(t time.Time) string {
	return t.Format("20060102")
}

// ParseDay parses a YYYY-MM-DD value into a UTC midnight timestamp.
func ParseDay(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", value, err)
	}
	return Day(t), nil
}

// Day truncates a timestamp to UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange builds a validated inclusive range from YYYY-MM-DD bounds.
func NewDateRange(from, to string) (DateRange, error) {
	f, err := ParseDay(from)
	if err != nil {
		return DateRange{}, err
	}
	t, err := ParseDay(to)
	if err != nil {
		return DateRange{}, err
	}
	return RangeOf(f, t)
}

// RangeOf validates that to does not precede from.
func RangeOf(from, to time.Time) (DateRange, error) {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{From: from, To: to}, nil
}

// SingleDay reports whether the range covers exactly one calendar day.
func (r DateRange) SingleDay() bool {
	return r.From.Equal(r.To)
}

// Days returns every calendar day in the range, in order.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for cur := r.From; !cur.After(r.To); cur = cur.AddDate(0, 0, 1) {
		days = append(days, cur)
	}
	return days
}

// Length returns the number of days covered, inclusive of both bounds.
func (r DateRange) Length() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// Previous returns the immediately preceding range of equal length.
func (r DateRange) Previous() DateRange {
	length := r.Length()
	return DateRange{
		From: r.From.AddDate(0, 0, -length),
		To:   r.From.AddDate(0, 0, -1),
	}
}

// MonthKey formats a month as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthStart truncates a timestamp to the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EnumerateMonths lists the first day of every month between from and to inclusive.
func EnumerateMonths(from, to time.Time) []time.Time {
	if from.After(to) {
		return nil
	}
	var months []time.Time
	current := MonthStart(from)
	end := MonthStart(to)
	for !current.After(end) {
		months = append(months, current)
		current = current.AddDate(0, 1, 0)
	}
	return months
}

// ClampRange narrows a month window to the operating bounds.
func ClampRange(monthStart, lower, upper time.Time) (DateRange, bool) {
	from := monthStart
	to := monthStart.AddDate(0, 1, -1)
	if from.Before(lower) {
		from = lower
	}
	if to.After(upper) {
		to = upper
	}
	if to.Before(from) {
		return DateRange{}, false
	}
	return DateRange{From: Day(from), To: Day(to)}, true
}
