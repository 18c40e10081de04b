package engine

import (
	"errors"
	"testing"
	"time"
)

func TestRebalanceDates_MonthlyPreset(t *testing.T) {
	dates, err := RebalanceDates(CalendarConfig{
		Frequency: "monthly",
		Start:     day(2021, time.January, 1),
		End:       day(2021, time.June, 30),
	})
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	if len(dates) != 6 {
		t.Fatalf("got %d dates, want 6", len(dates))
	}
	// Start sits exactly on a tick and must be included.
	if !dates[0].Equal(day(2021, time.January, 1)) {
		t.Errorf("first date = %v, want 2021-01-01", dates[0])
	}
	for _, dt := range dates {
		if dt.Day() != 1 {
			t.Errorf("monthly tick on day %d, want 1", dt.Day())
		}
	}
}

func TestRebalanceDates_WeeklyPreset(t *testing.T) {
	dates, err := RebalanceDates(CalendarConfig{
		Frequency: "weekly",
		Start:     day(2021, time.March, 1), // a Monday
		End:       day(2021, time.March, 31),
	})
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	if len(dates) != 5 {
		t.Fatalf("got %d dates, want 5 Mondays", len(dates))
	}
	for _, dt := range dates {
		if dt.Weekday() != time.Monday {
			t.Errorf("tick on %v, want Monday", dt.Weekday())
		}
	}
}

func TestRebalanceDates_RawCron(t *testing.T) {
	dates, err := RebalanceDates(CalendarConfig{
		Frequency: "0 0 15 * *",
		Start:     day(2021, time.January, 1),
		End:       day(2021, time.March, 31),
	})
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	if len(dates) != 3 {
		t.Fatalf("got %d dates, want 3", len(dates))
	}
	for _, dt := range dates {
		if dt.Day() != 15 {
			t.Errorf("tick on day %d, want 15", dt.Day())
		}
	}
}

func TestRebalanceDates_Invalid(t *testing.T) {
	var cfgErr ConfigError
	_, err := RebalanceDates(CalendarConfig{
		Frequency: "not a cron",
		Start:     day(2021, time.January, 1),
		End:       day(2021, time.December, 31),
	})
	if !errors.As(err, &cfgErr) {
		t.Errorf("bad cron: expected ConfigError, got %v", err)
	}

	_, err = RebalanceDates(CalendarConfig{
		Frequency: "monthly",
		Start:     day(2021, time.June, 1),
		End:       day(2021, time.January, 1),
	})
	if !errors.As(err, &cfgErr) {
		t.Errorf("end before start: expected ConfigError, got %v", err)
	}
}
