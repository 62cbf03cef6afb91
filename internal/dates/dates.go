package dates

import (
	"fmt"
	"time"
)

// ISO is the wire format for due dates.
const ISO = "2006-01-02"

// Date is a calendar date with no time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New builds a Date, clamping the day into the valid range for the month.
func New(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: clampDay(year, month, day)}
}

// FromTime truncates t to its calendar date in t's location.
func FromTime(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

// Parse reads an ISO YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(ISO, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return FromTime(t), nil
}

func (d Date) String() string {
	return d.Time().Format(ISO)
}

// Time returns the date at midnight UTC, for arithmetic and formatting.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalJSON encodes the date as an ISO string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes an ISO date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("date must be a JSON string, got %s", data)
	}
	parsed, err := Parse(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Before reports whether d falls earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// DaysUntil returns the number of whole calendar days from d to other,
// negative when other is in the past.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// NextMonth moves the date one month forward, clamping the day to the last
// valid day of the target month (Jan 31 becomes Feb 28, or Feb 29 in leap
// years).
func NextMonth(d Date) Date {
	year, month := d.Year, d.Month+1
	if month > time.December {
		month = time.January
		year++
	}
	return New(year, month, d.Day)
}

// ForDayOfMonth computes the due date for a user-supplied day of month. When
// today's day has not yet passed the supplied day, the due date lands in the
// current month; otherwise it rolls forward to the next month.
func ForDayOfMonth(today Date, day int) Date {
	due := New(today.Year, today.Month, day)
	if today.Day <= day {
		return due
	}
	return NextMonth(due)
}

func clampDay(year int, month time.Month, day int) int {
	if day < 1 {
		return 1
	}
	if last := lastDay(year, month); day > last {
		return last
	}
	return day
}

// lastDay returns the number of days in the given month.
func lastDay(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
