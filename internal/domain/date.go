package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the ISO calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time component. The zero value is an
// absent date: it is not Valid and sorts after every valid date.
type Date struct {
	civil.Date
}

// NewDate builds a date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{civil.Date{Year: year, Month: month, Day: day}}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date{civil.DateOf(t)}
}

// Today returns the current local calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO "YYYY-MM-DD" date. A time suffix ("T...") is
// tolerated and dropped.
func ParseDate(s string) (Date, error) {
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		s = s[:len(DateLayout)]
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("ParseDate: %w", err)
	}
	return Date{d}, nil
}

// Valid reports whether the date is present and well-formed.
func (d Date) Valid() bool { return d.Date.IsValid() }

// String returns "YYYY-MM-DD", or "" for an absent date.
func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return d.Date.String()
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date { return Date{d.Date.AddDays(n)} }

// DaysUntil returns the number of days from d to other (negative if other is earlier).
func (d Date) DaysUntil(other Date) int { return other.Date.DaysSince(d.Date) }

// SortsBefore orders dates ascending with absent dates last.
func (d Date) SortsBefore(o Date) bool {
	switch {
	case !d.Valid():
		return false
	case !o.Valid():
		return true
	default:
		return d.Date.Before(o.Date)
	}
}

// MarshalJSON writes an ISO date string, or null for an absent date.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Date.String())
}

// UnmarshalJSON accepts an ISO date string, "" or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("Date.UnmarshalJSON: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
