// Package availability holds the per-provider weekly working hours that seed
// slot generation.
package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/medivuno/telehealth-server/internal/apperr"
)

// Window is one block of working time within a day, "HH:MM" in 24-hour format.
type Window struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// Schedule is a provider's weekly working-hours configuration. Weekly is keyed
// by lower-case English weekday name; a missing day means no working hours.
type Schedule struct {
	ProviderID string              `json:"providerId"`
	Timezone   string              `json:"timezone"`
	Weekly     map[string][]Window `json:"weekly"`
	UpdatedAt  *time.Time          `json:"updatedAt,omitempty"`
}

// Span is a parsed window in minutes after local midnight, End exclusive.
type Span struct {
	Start int
	End   int
}

// WeeklyHours is the parsed form of a Schedule consumed by the slot generator.
type WeeklyHours struct {
	Location *time.Location
	Days     map[time.Weekday][]Span
}

// SpansFor returns the working spans on the given weekday, sorted by start.
func (w WeeklyHours) SpansFor(day time.Weekday) []Span {
	return w.Days[day]
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DefaultSchedule is used for providers who never configured their hours:
// Monday to Friday, 09:00-17:00.
func DefaultSchedule(providerID, timezone string) *Schedule {
	day := []Window{{Start: "09:00", End: "17:00"}}
	return &Schedule{
		ProviderID: providerID,
		Timezone:   timezone,
		Weekly: map[string][]Window{
			"monday":    day,
			"tuesday":   day,
			"wednesday": day,
			"thursday":  day,
			"friday":    day,
		},
	}
}

// Validate checks every window and the timezone.
func (s *Schedule) Validate() error {
	_, err := s.Hours()
	return err
}

// Hours parses the schedule. Errors are ValidationErrors naming the bad field.
func (s *Schedule) Hours() (WeeklyHours, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil || s.Timezone == "" {
		return WeeklyHours{}, apperr.Invalid("timezone", "unknown timezone %q", s.Timezone)
	}

	hours := WeeklyHours{Location: loc, Days: make(map[time.Weekday][]Span, len(s.Weekly))}
	for name, windows := range s.Weekly {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return WeeklyHours{}, apperr.Invalid("weekly", "unknown weekday %q", name)
		}
		if _, dup := hours.Days[day]; dup {
			return WeeklyHours{}, apperr.Invalid("weekly", "duplicate weekday %q", name)
		}

		spans := make([]Span, 0, len(windows))
		for i, w := range windows {
			field := fmt.Sprintf("weekly.%s[%d]", strings.ToLower(name), i)
			start, err := parseClock(w.Start)
			if err != nil {
				return WeeklyHours{}, apperr.Invalid(field+".start", "%v", err)
			}
			end, err := parseClock(w.End)
			if err != nil {
				return WeeklyHours{}, apperr.Invalid(field+".end", "%v", err)
			}
			if start >= end {
				return WeeklyHours{}, apperr.Invalid(field, "start %s must be before end %s", w.Start, w.End)
			}
			spans = append(spans, Span{Start: start, End: end})
		}

		sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
		for i := 1; i < len(spans); i++ {
			if spans[i].Start < spans[i-1].End {
				return WeeklyHours{}, apperr.Invalid("weekly."+strings.ToLower(name), "working windows overlap")
			}
		}
		hours.Days[day] = spans
	}
	return hours, nil
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}
