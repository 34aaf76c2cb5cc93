package scheduling

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

// defaultHorizonMonths bounds open-ended series.
const defaultHorizonMonths = 6

// maxSeriesCount is the largest occurrence count a caller may request.
const maxSeriesCount = 52

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NewSeriesID mints a recurrence series identifier. Every occurrence
// of a series shares one.
func NewSeriesID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("REC-%d-%x", time.Now().UnixMilli(), time.Now().UnixNano()&0xffffffff)
	}
	return fmt.Sprintf("REC-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// GenerateDates expands a recurrence pattern into the calendar dates
// of the series, starting at and including the anchor date. The
// returned dates are in ascending order.
func GenerateDates(anchor time.Time, pattern RecurrencePattern) ([]time.Time, error) {
	if !pattern.Frequency.Valid() {
		return nil, apperror.BadRequest("invalid recurrence frequency %q", pattern.Frequency)
	}
	if pattern.Count != 0 && (pattern.Count < 2 || pattern.Count > maxSeriesCount) {
		return nil, apperror.BadRequest("recurrence count must be between 2 and %d", maxSeriesCount)
	}
	if pattern.EndDate != nil && pattern.EndDate.Before(anchor) {
		return nil, apperror.BadRequest("recurrence end date is before the start date")
	}

	anchor = dateOnly(anchor)
	end, err := seriesEnd(anchor, pattern)
	if err != nil {
		return nil, err
	}

	switch pattern.Frequency {
	case FreqWeekly:
		return stepDates(anchor, end, 7), nil
	case FreqBiWeekly:
		return stepDates(anchor, end, 14), nil
	case FreqMonthly:
		return monthlyDates(anchor, end), nil
	case FreqTwiceWeekly:
		days := pattern.DaysOfWeek
		if len(days) == 0 {
			days = []string{"Monday", "Thursday"}
		}
		return weekdayDates(anchor, end, days)
	case FreqCustom:
		if len(pattern.DaysOfWeek) == 0 {
			return nil, apperror.BadRequest("custom recurrence requires daysOfWeek")
		}
		return weekdayDates(anchor, end, pattern.DaysOfWeek)
	}
	return nil, apperror.BadRequest("invalid recurrence frequency %q", pattern.Frequency)
}

// seriesEnd resolves the inclusive last date of the series. An
// explicit end date wins; otherwise a count is converted to an
// estimated span at the frequency's cadence; with neither the series
// runs for six months.
func seriesEnd(anchor time.Time, pattern RecurrencePattern) (time.Time, error) {
	if pattern.EndDate != nil {
		return dateOnly(*pattern.EndDate), nil
	}
	if pattern.Count > 0 {
		n := pattern.Count
		switch pattern.Frequency {
		case FreqWeekly:
			return anchor.AddDate(0, 0, (n-1)*7), nil
		case FreqBiWeekly:
			return anchor.AddDate(0, 0, (n-1)*14), nil
		case FreqMonthly:
			return anchor.AddDate(0, n-1, 0), nil
		case FreqTwiceWeekly:
			return anchor.AddDate(0, 0, int(math.Ceil(float64(n)*3.5))), nil
		case FreqCustom:
			return anchor.AddDate(0, 0, n*7), nil
		}
	}
	return anchor.AddDate(0, defaultHorizonMonths, 0), nil
}

func stepDates(anchor, end time.Time, stepDays int) []time.Time {
	var out []time.Time
	for d := anchor; !d.After(end); d = d.AddDate(0, 0, stepDays) {
		out = append(out, d)
	}
	return out
}

// monthlyDates repeats on the anchor's day of month, clamping to the
// last day of shorter months. A series anchored on the 31st lands on
// the 30th in June and the 28th in a non-leap February.
func monthlyDates(anchor, end time.Time) []time.Time {
	var out []time.Time
	day := anchor.Day()
	for i := 0; ; i++ {
		first := time.Date(anchor.Year(), anchor.Month()+time.Month(i), 1, 0, 0, 0, 0, anchor.Location())
		last := first.AddDate(0, 1, -1).Day()
		d := day
		if d > last {
			d = last
		}
		occ := time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, anchor.Location())
		if occ.After(end) {
			return out
		}
		out = append(out, occ)
	}
}

func weekdayDates(anchor, end time.Time, days []string) ([]time.Time, error) {
	want := make(map[time.Weekday]bool, len(days))
	for _, name := range days {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, apperror.BadRequest("invalid day of week %q", name)
		}
		want[wd] = true
	}
	var out []time.Time
	for d := anchor; !d.After(end); d = d.AddDate(0, 0, 1) {
		if want[d.Weekday()] {
			out = append(out, d)
		}
	}
	return out, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
