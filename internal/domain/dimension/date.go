package dimension

import (
	"context"
	"fmt"
	"time"

	"retaildw/internal/core/apperror"
)

// DateLayout is the calendar date format used on every API boundary.
const DateLayout = "2006-01-02"

// DateDim is one calendar day. Its key is derived from the date, so loading
// the same day twice is a no-op.
type DateDim struct {
	Key       Key       `db:"date_key" json:"dateKey"`
	FullDate  time.Time `db:"full_date" json:"fullDate"`
	Year      int       `db:"year" json:"year"`
	Month     int       `db:"month" json:"month"`
	Day       int       `db:"day" json:"day"`
	DayName   string    `db:"day_name" json:"dayName"`
	MonthName string    `db:"month_name" json:"monthName"`
}

func (DateDim) Kind() Kind { return KindDate }

// Validate checks that the stored attributes agree with the calendar date.
func (d DateDim) Validate(_ context.Context) error {
	if d.FullDate.IsZero() {
		return apperror.NewValidation("full_date is required").WithDetail("dimension", string(KindDate))
	}
	if d.Key != DateKeyOf(d.FullDate) {
		return apperror.NewValidation("date_key does not match full_date").
			WithDetail("date_key", int64(d.Key)).
			WithDetail("full_date", d.FullDate.Format(DateLayout))
	}
	return nil
}

// NewDateDim builds the date row for the calendar day of t.
func NewDateDim(t time.Time) DateDim {
	day := calendarDay(t)
	return DateDim{
		Key:       DateKeyOf(day),
		FullDate:  day,
		Year:      day.Year(),
		Month:     int(day.Month()),
		Day:       day.Day(),
		DayName:   day.Format("Mon"),
		MonthName: day.Format("Jan"),
	}
}

// DateRows returns one DateDim per day in [from, to].
func DateRows(from, to time.Time) []DateDim {
	var rows []DateDim
	for d := calendarDay(from); !d.After(calendarDay(to)); d = d.AddDate(0, 0, 1) {
		rows = append(rows, NewDateDim(d))
	}
	return rows
}

// DateKeyOf returns the YYYYMMDD surrogate key of t's calendar day.
func DateKeyOf(t time.Time) Key {
	return Key(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// Time converts a YYYYMMDD key back to a UTC calendar date.
func (k Key) Time() (time.Time, error) {
	v := int(k)
	year, month, day := v/10000, (v/100)%100, v%100
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date key %d", v)
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// calendarDay truncates t to midnight UTC of its own calendar date.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
