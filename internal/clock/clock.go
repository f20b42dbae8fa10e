// Package clock provides the wall clock and the HH:MM time-of-day format
// used by push schedules.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the time-of-day layout stored on schedule entries.
const Layout = "15:04"

// ErrInvalidTimeFormat is returned for any time of day that is not a valid 24-hour HH:MM.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Local is a Clock reporting the wall clock in a fixed location.
type Local struct {
	Location *time.Location
}

// Now returns the current time in the configured location, or the process
// local time when no location is set.
func (l Local) Now() time.Time {
	if l.Location == nil {
		return time.Now()
	}
	return time.Now().In(l.Location)
}

// Fixed is a Clock that always reports the same instant.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time { return time.Time(f) }

// TimeOfDay formats t as HH:MM, discarding seconds.
func TimeOfDay(t time.Time) string {
	return t.Format(Layout)
}

// ParseTimeOfDay validates s as HH:MM with 00<=HH<=23 and 00<=MM<=59.
// Surrounding whitespace is ignored; the returned string is the canonical form.
func ParseTimeOfDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != ':' {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
		}
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[3]-'0')*10 + int(s[4]-'0')
	if hour > 23 || minute > 59 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return s, nil
}
