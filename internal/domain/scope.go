package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Scope is the calendar key of a collection request. Zero Month or Day means
// the component is absent. Matching is exact field-wise: an absent month only
// matches an absent month.
type Scope struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// ParseScope reads up to three positional components (year, month, day).
func ParseScope(parts ...string) (Scope, error) {
	if len(parts) == 0 || len(parts) > 3 {
		return Scope{}, fmt.Errorf("scope needs between 1 and 3 components, got %d", len(parts))
	}

	values := make([]int, 3)
	for i, part := range parts {
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return Scope{}, fmt.Errorf("scope component %q: %w", part, err)
		}
		values[i] = v
	}

	scope := Scope{Year: values[0], Month: values[1], Day: values[2]}
	if err := scope.Validate(); err != nil {
		return Scope{}, err
	}
	return scope, nil
}

// Validate checks the scope describes a real year, month or day.
func (s Scope) Validate() error {
	if s.Year <= 0 {
		return fmt.Errorf("scope year must be positive, got %d", s.Year)
	}
	if s.Month < 0 || s.Month > 12 {
		return fmt.Errorf("scope month must be between 1 and 12, got %d", s.Month)
	}
	if s.Day != 0 {
		if s.Month == 0 {
			return fmt.Errorf("scope day %d given without a month", s.Day)
		}
		if _, err := (PartialDate{Year: s.Year, Month: s.Month, Day: s.Day}).Floor(); err != nil {
			return fmt.Errorf("scope: %w", err)
		}
	}
	return nil
}

// Range returns the half-open UTC interval [from, to) covered by the scope.
func (s Scope) Range() (time.Time, time.Time) {
	switch {
	case s.Month == 0:
		from := time.Date(s.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0)
	case s.Day == 0:
		from := time.Date(s.Year, time.Month(s.Month), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0)
	default:
		from := time.Date(s.Year, time.Month(s.Month), s.Day, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 0, 1)
	}
}

// Contains reports whether t falls inside the scope interval.
func (s Scope) Contains(t time.Time) bool {
	from, to := s.Range()
	t = t.UTC()
	return !t.Before(from) && t.Before(to)
}

func (s Scope) String() string {
	return PartialDate{Year: s.Year, Month: s.Month, Day: s.Day}.String()
}
