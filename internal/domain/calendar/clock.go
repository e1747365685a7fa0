package calendar

import (
	"fmt"
	"strings"
	"time"

	"hrflow/internal/domain/apperr"
)

// ClockTime is a time of day in minutes since midnight.
type ClockTime int

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock accepts HH:MM or HH:MM:SS; seconds are dropped.
func ParseClock(raw string) (ClockTime, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return NewClockTime(parsed.Hour(), parsed.Minute()), nil
		}
	}
	return 0, apperr.Validation("invalid clock time %q, expected HH:MM", raw)
}

// ParseOptionalClock returns nil for a blank value.
func ParseOptionalClock(raw string) (*ClockTime, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	c, err := ParseClock(raw)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (c ClockTime) Minutes() int {
	return int(c)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// FormatClock renders an optional clock time, empty when absent.
func FormatClock(c *ClockTime) string {
	if c == nil {
		return ""
	}
	return c.String()
}
