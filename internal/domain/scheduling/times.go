package scheduling

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

// NormalizeTime canonicalizes a clock time to zero-padded HH:MM.
// "9:5" becomes "09:05". Returns an error for anything that is not a
// valid 24-hour time.
func NormalizeTime(t string) (string, error) {
	h, m, err := parseClock(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// TimeToMinutes converts an HH:MM clock time to minutes since midnight.
func TimeToMinutes(t string) (int, error) {
	h, m, err := parseClock(t)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// DurationMinutes returns the length of the interval [start, end) in
// minutes. A zero or negative duration is rejected.
func DurationMinutes(start, end string) (int, error) {
	s, err := TimeToMinutes(start)
	if err != nil {
		return 0, err
	}
	e, err := TimeToMinutes(end)
	if err != nil {
		return 0, err
	}
	if e <= s {
		return 0, apperror.BadRequest("end time must be after start time")
	}
	return e - s, nil
}

func parseClock(t string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(t), ":")
	if len(parts) != 2 {
		return 0, 0, apperror.BadRequest("invalid time %q, expected HH:MM", t)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, apperror.BadRequest("invalid time %q, expected HH:MM", t)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, apperror.BadRequest("invalid time %q, expected HH:MM", t)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, apperror.BadRequest("invalid time %q, expected HH:MM", t)
	}
	return h, m, nil
}

// Overlaps reports whether two half-open minute intervals intersect.
// Back-to-back intervals (one ending exactly when the other starts)
// do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}
