package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

// ParseDate reads a calendar day as YYYY-MM-DD or in natural language
// ("yesterday", "last friday") relative to now. Empty input means today.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day(now), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, now.Location()); err == nil {
		return t, nil
	}

	t, err := naturaldate.Parse(s, now, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	// naturaldate echoes the reference time for input it does not understand.
	if t.Equal(now) {
		switch strings.ToLower(s) {
		case "now", "today":
		default:
			return time.Time{}, fmt.Errorf("parsing date %q: not a recognizable day", s)
		}
	}
	return Day(t), nil
}
