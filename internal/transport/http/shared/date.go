package shared

import (
	"net/http"
	"strings"
	"time"

	"hrflow/internal/domain/calendar"
)

// ParseDate is calendar.ParseDate with an empty value mapping to the zero time.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return calendar.ParseDate(value)
}

// QueryDate reads a date query parameter, defaulting to today's date.
func QueryDate(r *http.Request, key string, now time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if strings.TrimSpace(raw) == "" {
		return calendar.DateOf(now), nil
	}
	return ParseDate(raw)
}
