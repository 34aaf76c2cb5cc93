package scheduling

import (
	"regexp"
	"testing"
	"time"

	"github.com/mentalspace/practice-api/internal/platform/apperror"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// 2024-01-15 is a Monday.
var anchor = date(2024, time.January, 15)

func TestNewSeriesID(t *testing.T) {
	pat := regexp.MustCompile(`^REC-\d+-\w+$`)
	a, b := NewSeriesID(), NewSeriesID()
	if !pat.MatchString(a) {
		t.Errorf("series id %q does not match expected format", a)
	}
	if a == b {
		t.Errorf("consecutive series ids collided: %q", a)
	}
}

func TestGenerateDatesWeekly(t *testing.T) {
	dates, err := GenerateDates(anchor, RecurrencePattern{Frequency: FreqWeekly, Count: 4})
	if err != nil {
		t.Fatalf("GenerateDates: %v", err)
	}
	if len(dates) < 4 {
		t.Fatalf("expected at least 4 dates, got %d", len(dates))
	}
	if !dates[0].Equal(anchor) {
		t.Errorf("first date = %v, want anchor %v", dates[0], anchor)
	}
	for i, d := range dates {
		if d.Weekday() != time.Monday {
			t.Errorf("date %v is not a Monday", d)
		}
		if i > 0 {
			if gap := d.Sub(dates[i-1]); gap != 7*24*time.Hour {
				t.Errorf("gap between %v and %v = %v, want 168h", dates[i-1], d, gap)
			}
		}
	}
}

func TestGenerateDatesBiWeekly(t *testing.T) {
	end := date(2024, time.March, 15)
	dates, err := GenerateDates(anchor, RecurrencePattern{Frequency: FreqBiWeekly, EndDate: &end})
	if err != nil {
		t.Fatalf("GenerateDates: %v", err)
	}
	if len(dates) < 2 {
		t.Fatalf("expected multiple dates, got %d", len(dates))
	}
	for i := 1; i < len(dates); i++ {
		if gap := dates[i].Sub(dates[i-1]); gap != 14*24*time.Hour {
			t.Errorf("gap = %v, want 336h", gap)
		}
	}
	for _, d := range dates {
		if d.After(end) {
			t.Errorf("date %v past end date %v", d, end)
		}
	}
}

func TestGenerateDatesMonthlyClampsShortMonths(t *testing.T) {
	end := date(2024, time.June, 30)
	dates, err := GenerateDates(date(2024, time.January, 31), RecurrencePattern{Frequency: FreqMonthly, EndDate: &end})
	if err != nil {
		t.Fatalf("GenerateDates: %v", err)
	}
	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
		date(2024, time.April, 30),
		date(2024, time.May, 31),
		date(2024, time.June, 30),
	}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d: %v", len(dates), len(want), dates)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, dates[i], want[i])
		}
	}
}

func TestGenerateDatesTwiceWeeklyDefaultsMondayThursday(t *testing.T) {
	end := date(2024, time.January, 28)
	dates, err := GenerateDates(anchor, RecurrencePattern{Frequency: FreqTwiceWeekly, EndDate: &end})
	if err != nil {
		t.Fatalf("GenerateDates: %v", err)
	}
	want := []time.Time{
		date(2024, time.January, 15), // Monday
		date(2024, time.January, 18), // Thursday
		date(2024, time.January, 22),
		date(2024, time.January, 25),
	}
	if len(dates) != len(want) {
		t.Fatalf("got %v, want %v", dates, want)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, dates[i], want[i])
		}
	}
}

func TestGenerateDatesCustomWeekdays(t *testing.T) {
	end := date(2024, time.January, 31)
	dates, err := GenerateDates(anchor, RecurrencePattern{
		Frequency:  FreqCustom,
		DaysOfWeek: []string{"Tuesday", "Friday"},
		EndDate:    &end,
	})
	if err != nil {
		t.Fatalf("GenerateDates: %v", err)
	}
	if len(dates) == 0 {
		t.Fatal("expected dates")
	}
	for _, d := range dates {
		if wd := d.Weekday(); wd != time.Tuesday && wd != time.Friday {
			t.Errorf("date %v falls on %v, want Tuesday or Friday", d, wd)
		}
	}
}

func TestGenerateDatesCustomRequiresDays(t *testing.T) {
	_, err := GenerateDates(anchor, RecurrencePattern{Frequency: FreqCustom, Count: 4})
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request, got %v", err)
	}
}

func TestGenerateDatesOpenEndedStopsAtSixMonths(t *testing.T) {
	dates, err := GenerateDates(anchor, RecurrencePattern{Frequency: FreqWeekly})
	if err != nil {
		t.Fatalf("GenerateDates: %v", err)
	}
	horizon := anchor.AddDate(0, 6, 0)
	if len(dates) == 0 {
		t.Fatal("expected dates")
	}
	for _, d := range dates {
		if d.After(horizon) {
			t.Errorf("date %v past six month horizon %v", d, horizon)
		}
	}
	if last := dates[len(dates)-1]; horizon.Sub(last) > 7*24*time.Hour {
		t.Errorf("series stops early: last date %v, horizon %v", last, horizon)
	}
}

func TestGenerateDatesRejectsBadPatterns(t *testing.T) {
	end := anchor.AddDate(0, 0, -1)
	cases := []struct {
		name    string
		pattern RecurrencePattern
	}{
		{"unknown frequency", RecurrencePattern{Frequency: "daily"}},
		{"count too small", RecurrencePattern{Frequency: FreqWeekly, Count: 1}},
		{"count too large", RecurrencePattern{Frequency: FreqWeekly, Count: 53}},
		{"end before start", RecurrencePattern{Frequency: FreqWeekly, EndDate: &end}},
		{"invalid weekday", RecurrencePattern{Frequency: FreqCustom, DaysOfWeek: []string{"Funday"}, Count: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := GenerateDates(anchor, tc.pattern); !apperror.IsKind(err, apperror.KindBadRequest) {
				t.Errorf("expected bad request, got %v", err)
			}
		})
	}
}
