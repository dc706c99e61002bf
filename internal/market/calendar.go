// Package market implements the NSE trading-hours calendar used to gate
// inbound signals.
package market

import "time"

// NSE cash-market session bounds, minutes from midnight IST.
const (
	openMinute  = 9*60 + 15  // 09:15
	closeMinute = 15*60 + 30 // 15:30
)

// Calendar reports whether the NSE cash market is open: 09:15–15:30 IST,
// Monday through Friday. Exchange holidays are not modelled; the broker
// rejects orders on those days anyway.
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads the IST time zone. It falls back to a fixed +05:30 zone
// if the tzdata lookup fails.
func NewCalendar() *Calendar {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	return &Calendar{loc: loc}
}

// IsOpen reports whether orders are accepted at the given instant.
func (c *Calendar) IsOpen(at time.Time) bool {
	ist := at.In(c.loc)

	switch ist.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minute := ist.Hour()*60 + ist.Minute()
	return minute >= openMinute && minute <= closeMinute
}
