package market

import (
	"testing"
	"time"
)

func TestCalendarIsOpen(t *testing.T) {
	cal := NewCalendar()
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		// 2026-03-02 is a Monday.
		{"monday mid session", time.Date(2026, 3, 2, 11, 0, 0, 0, ist), true},
		{"monday at open", time.Date(2026, 3, 2, 9, 15, 0, 0, ist), true},
		{"monday before open", time.Date(2026, 3, 2, 9, 14, 0, 0, ist), false},
		{"monday at close", time.Date(2026, 3, 2, 15, 30, 0, 0, ist), true},
		{"monday after close", time.Date(2026, 3, 2, 15, 31, 0, 0, ist), false},
		{"saturday", time.Date(2026, 3, 7, 11, 0, 0, 0, ist), false},
		{"sunday", time.Date(2026, 3, 8, 11, 0, 0, 0, ist), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.IsOpen(tt.at); got != tt.want {
				t.Errorf("IsOpen(%s) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestCalendarIsOpenConvertsZone(t *testing.T) {
	cal := NewCalendar()
	// 05:30 UTC on a Monday is 11:00 IST, inside the session.
	at := time.Date(2026, 3, 2, 5, 30, 0, 0, time.UTC)
	if !cal.IsOpen(at) {
		t.Errorf("IsOpen(%s) = false, want true after zone conversion", at)
	}
}
