package reminder

import (
	"testing"
	"time"
)

func TestParseWhen(t *testing.T) {
	cases := []struct {
		in   string
		want When
	}{
		{"", When{DayOffset: 1, Hour: 9}},
		{"tomorrow", When{DayOffset: 1, Hour: 9}},
		{"mañana", When{DayOffset: 1, Hour: 9}},
		{"manana a las 10", When{DayOffset: 1, Hour: 10}},
		{"Mañana a las 10:30", When{DayOffset: 1, Hour: 10, Minute: 30}},
		{"hoy a las 6 de la tarde", When{DayOffset: 0, Hour: 18}},
		{"hoy", When{DayOffset: 0, Hour: 9}},
		{"pasado mañana", When{DayOffset: 2, Hour: 9}},
		{"a las 8 de la mañana", When{DayOffset: 1, Hour: 8}},
		{"mañana a las 12 am", When{DayOffset: 1, Hour: 0}},
		{"2026-05-02", When{DayOffset: 1, Year: 2026, Month: time.May, Day: 2, Hour: 9}},
		{"2026-05-02 a las 7:15", When{DayOffset: 1, Year: 2026, Month: time.May, Day: 2, Hour: 7, Minute: 15}},
		{"a las 19:45", When{DayOffset: 1, Hour: 19, Minute: 45}},
		{"7 pm", When{DayOffset: 1, Hour: 19}},
		{"a las 99", When{DayOffset: 1, Hour: 9}},
		{"cuando sea", When{DayOffset: 1, Hour: 9}},
		{"2026-02-30", When{DayOffset: 1, Hour: 9}},
	}
	for _, c := range cases {
		if got := ParseWhen(c.in, 9); got != c.want {
			t.Errorf("ParseWhen(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestTomorrowIsNextCalendarDayInZone(t *testing.T) {
	// 23:30 in Mexico City is already the next day in UTC
	zone := time.FixedZone("CST", -6*3600)
	now := time.Date(2026, 3, 10, 5, 30, 0, 0, time.UTC) // 2026-03-09 23:30 local

	at := ParseWhen("tomorrow", 9).In(now, zone)
	y, m, d := at.Date()
	if y != 2026 || m != time.March || d != 10 {
		t.Fatalf("date = %d-%02d-%02d, want 2026-03-10", y, m, d)
	}
	if at.Hour() != 9 || at.Minute() != 0 || at.Location() != zone {
		t.Fatalf("at = %v", at)
	}
}

func TestTomorrowAcrossMonthEnd(t *testing.T) {
	now := time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC)
	at := ParseWhen("mañana", 9).In(now, time.UTC)
	if at.Format("2006-01-02 15:04") != "2027-01-01 09:00" {
		t.Fatalf("at = %v", at)
	}
}

func TestExplicitDateIgnoresNow(t *testing.T) {
	at := ParseWhen("2026-05-02 a las 10", 9).In(time.Now(), time.UTC)
	if at.Format("2006-01-02T15:04:05") != "2026-05-02T10:00:00" {
		t.Fatalf("at = %v", at)
	}
}
