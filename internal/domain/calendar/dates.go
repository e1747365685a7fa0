package calendar

import (
	"errors"
	"math"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DateOf drops the time-of-day, keeping the calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts RFC3339 or YYYY-MM-DD and returns the calendar date.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return DateOf(parsed), nil
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Overlaps reports whether the inclusive date ranges [s1,e1] and [s2,e2]
// share at least one day. Time-of-day is ignored.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	s1, e1, s2, e2 = DateOf(s1), DateOf(e1), DateOf(s2), DateOf(e2)
	return !s1.After(e2) && !s2.After(e1)
}

// InclusiveDays returns floor((end-start)/1 day)+1.
func InclusiveDays(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, errors.New("end date before start date")
	}
	return int(math.Floor(end.Sub(start).Hours()/24)) + 1, nil
}
