package scheduling

import (
	"time"

	"github.com/medivuno/telehealth-server/internal/models"
)

// FilterConflicts drops candidates that overlap a non-cancelled existing
// appointment, and candidates at or before now. Order is preserved.
func FilterConflicts(candidates []time.Time, duration time.Duration, existing []models.Appointment, now time.Time) []time.Time {
	free := make([]time.Time, 0, len(candidates))
	for _, c := range candidates {
		if !c.After(now) {
			continue
		}
		if overlapsAny(c, duration, existing) {
			continue
		}
		free = append(free, c)
	}
	return free
}

func overlapsAny(start time.Time, duration time.Duration, existing []models.Appointment) bool {
	for i := range existing {
		if existing[i].Blocks() && existing[i].Overlaps(start, duration) {
			return true
		}
	}
	return false
}
