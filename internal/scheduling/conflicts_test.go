package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/medivuno/telehealth-server/internal/models"
)

func TestFilterConflictsDropsOverlaps(t *testing.T) {
	candidates := []time.Time{
		clock(monday, 9, 0), clock(monday, 9, 30), clock(monday, 10, 0),
		clock(monday, 10, 30), clock(monday, 11, 0),
	}
	existing := []models.Appointment{
		{DoctorID: "doc", DateTime: clock(monday, 10, 0), Duration: 30, Status: models.StatusScheduled},
	}
	before := clock(monday, 8, 0)

	assert.Equal(t,
		[]time.Time{clock(monday, 9, 0), clock(monday, 9, 30), clock(monday, 10, 30), clock(monday, 11, 0)},
		FilterConflicts(candidates, 30*time.Minute, existing, before))

	// A 60 minute request starting 09:30 would run into the 10:00 booking.
	assert.Equal(t,
		[]time.Time{clock(monday, 9, 0), clock(monday, 10, 30), clock(monday, 11, 0)},
		FilterConflicts(candidates, 60*time.Minute, existing, before))
}

func TestFilterConflictsHonoursExistingDuration(t *testing.T) {
	candidates := []time.Time{clock(monday, 9, 0), clock(monday, 9, 30), clock(monday, 10, 0), clock(monday, 10, 30)}
	existing := []models.Appointment{
		{DateTime: clock(monday, 9, 0), Duration: 90, Status: models.StatusConfirmed},
	}

	assert.Equal(t, []time.Time{clock(monday, 10, 30)},
		FilterConflicts(candidates, 30*time.Minute, existing, clock(monday, 0, 0)))
}

func TestFilterConflictsIgnoresCancelled(t *testing.T) {
	candidates := []time.Time{clock(monday, 10, 0)}
	existing := []models.Appointment{
		{DateTime: clock(monday, 10, 0), Duration: 30, Status: models.StatusCancelled},
	}
	assert.Equal(t, candidates, FilterConflicts(candidates, 30*time.Minute, existing, clock(monday, 0, 0)))
}

func TestFilterConflictsDropsPastAndNow(t *testing.T) {
	candidates := []time.Time{clock(monday, 9, 0), clock(monday, 9, 30), clock(monday, 10, 0)}

	free := FilterConflicts(candidates, 30*time.Minute, nil, clock(monday, 9, 30))

	assert.Equal(t, []time.Time{clock(monday, 10, 0)}, free)
}
