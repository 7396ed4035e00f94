package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoPublicationDate is returned when an article has no date to compare against.
var ErrNoPublicationDate = errors.New("publication date is missing")

// PartialDate is a calendar date whose month and day may be unknown (zero).
type PartialDate struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// String renders the known components only: 2013, 2013-10 or 2013-10-10.
func (d PartialDate) String() string {
	switch {
	case d.Month == 0:
		return fmt.Sprintf("%04d", d.Year)
	case d.Day == 0:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
}

// Floor resolves unknown components to their minimum (month 1, day 1) and
// fails when the result is not a real calendar date.
func (d PartialDate) Floor() (time.Time, error) {
	month, day := d.Month, d.Day
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	if d.Year <= 0 || month < 1 || month > 12 || day < 1 {
		return time.Time{}, fmt.Errorf("%s is not a calendar date", d)
	}
	t := time.Date(d.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("%s is not a calendar date", d)
	}
	return t, nil
}

// TryBefore reports whether the floored date falls strictly before the
// UTC calendar day of published. A non-nil error means the two could not be
// compared and the caller decides how to degrade.
func (d PartialDate) TryBefore(published time.Time) (bool, error) {
	if published.IsZero() {
		return false, ErrNoPublicationDate
	}
	floor, err := d.Floor()
	if err != nil {
		return false, err
	}
	published = published.UTC()
	pubDay := time.Date(published.Year(), published.Month(), published.Day(), 0, 0, 0, 0, time.UTC)
	return floor.Before(pubDay), nil
}
