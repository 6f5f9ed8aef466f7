// Package scheduling computes bookable appointment slots and books them.
package scheduling

import (
	"time"

	"github.com/medivuno/telehealth-server/internal/availability"
)

// GenerateSlots returns the candidate start times on date's calendar day for
// an appointment of the given duration, spaced by granularity, that end no
// later than the working window they start in. The year, month and day of date
// are read as-is and interpreted in the schedule's location. The result is
// strictly ascending and empty when the provider does not work that weekday.
func GenerateSlots(hours availability.WeeklyHours, date time.Time, duration, granularity time.Duration) []time.Time {
	if duration <= 0 || granularity <= 0 {
		return nil
	}
	loc := hours.Location
	if loc == nil {
		loc = time.UTC
	}

	y, m, d := date.Date()
	weekday := time.Date(y, m, d, 12, 0, 0, 0, loc).Weekday()
	durMin := int(duration / time.Minute)
	stepMin := int(granularity / time.Minute)
	if durMin <= 0 || stepMin <= 0 {
		return nil
	}

	var slots []time.Time
	for _, span := range hours.SpansFor(weekday) {
		for minute := span.Start; minute+durMin <= span.End; minute += stepMin {
			// time.Date normalises wall clocks that fall in a DST gap, which can
			// map two minutes to one instant.
			start := time.Date(y, m, d, 0, minute, 0, 0, loc)
			if n := len(slots); n > 0 && !start.After(slots[n-1]) {
				continue
			}
			slots = append(slots, start)
		}
	}
	return slots
}

func containsInstant(slots []time.Time, t time.Time) bool {
	for _, s := range slots {
		if s.Equal(t) {
			return true
		}
	}
	return false
}
