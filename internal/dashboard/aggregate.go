// Package dashboard computes the per-provider summaries shown on the doctor
// dashboard. Everything is recomputed from the store on each call.
package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/medivuno/telehealth-server/internal/models"
)

// StartCount is one grouped row of appointments sharing a start instant and
// status.
type StartCount struct {
	StartsAt time.Time
	Status   models.AppointmentStatus
	Total    int64
}

// GenderCount is one grouped row of distinct patients per gender.
type GenderCount struct {
	Gender string
	Total  int64
}

// Counts are the headline numbers of the dashboard.
type Counts struct {
	TodaysAppointments int64 `json:"todaysAppointments"`
	TotalPatients      int64 `json:"totalPatients"`
	CompletionRate     int   `json:"completionRate"`
	NewMessages        int64 `json:"newMessages"`
}

// DaySummary is one bar of the weekly chart.
type DaySummary struct {
	Day       string `json:"day"`
	Completed int64  `json:"completed"`
	Scheduled int64  `json:"scheduled"`
}

// Demographic is one slice of the patient gender chart.
type Demographic struct {
	Category models.Gender `json:"category"`
	Count    int64         `json:"count"`
}

// TaskView is a task as shown on the dashboard, with overdue applied.
type TaskView struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	DueDate     time.Time         `json:"dueDate"`
	PatientID   *string           `json:"patientId,omitempty"`
}

// CompletionRate returns round(100*completed/(completed+scheduled)), or 0
// when there is nothing to rate.
func CompletionRate(completed, scheduled int64) int {
	if completed < 0 {
		completed = 0
	}
	if scheduled < 0 {
		scheduled = 0
	}
	total := completed + scheduled
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// isoWeekday numbers Monday=1 .. Sunday=7.
func isoWeekday(d time.Weekday) int {
	return (int(d)+6)%7 + 1
}

var isoDayNames = [...]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// workWeek is how many leading ISO days the weekly chart shows.
const workWeek = 5

// isOpen reports whether a status counts as booked but not yet done.
func isOpen(s models.AppointmentStatus) bool {
	return s == models.StatusPending || s == models.StatusScheduled || s == models.StatusConfirmed
}

// BuildWeeklySummary folds grouped rows into Monday..Friday by the weekday
// each start falls on in loc. Weekend rows are computed and then dropped.
func BuildWeeklySummary(rows []StartCount, loc *time.Location) []DaySummary {
	week := make([]DaySummary, 7)
	for i := range week {
		week[i].Day = isoDayNames[i+1]
	}
	for _, r := range rows {
		iso := isoWeekday(r.StartsAt.In(loc).Weekday())
		switch {
		case r.Status == models.StatusCompleted:
			week[iso-1].Completed += r.Total
		case isOpen(r.Status):
			week[iso-1].Scheduled += r.Total
		}
	}
	return week[:workWeek]
}

// BuildDemographics always returns Male, Female and Other in that order.
// Patients with no or an unrecognised gender are counted as Other.
func BuildDemographics(rows []GenderCount) []Demographic {
	counts := make(map[models.Gender]int64, len(models.Genders))
	for _, r := range rows {
		g, ok := models.ParseGender(r.Gender)
		if !ok {
			g = models.GenderOther
		}
		if r.Total > 0 {
			counts[g] += r.Total
		}
	}
	out := make([]Demographic, len(models.Genders))
	for i, g := range models.Genders {
		out[i] = Demographic{Category: g, Count: counts[g]}
	}
	return out
}

// LabelTasks keeps open tasks, sorts them by due date and reports pending
// tasks past due as overdue. The input is not modified.
func LabelTasks(tasks []models.Task, now time.Time) []TaskView {
	out := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		status := tasks[i].EffectiveStatus(now)
		if status != models.TaskPending && status != models.TaskOverdue {
			continue
		}
		out = append(out, TaskView{
			ID:          tasks[i].ID,
			Description: tasks[i].Description,
			Status:      status,
			DueDate:     tasks[i].DueDate,
			PatientID:   tasks[i].PatientID,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out
}

// dayBounds returns local midnight of t's day and of the next day.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// weekBounds returns local midnight of the Monday starting t's ISO week and
// of the following Monday.
func weekBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	dayStart, _ := dayBounds(t, loc)
	offset := (int(dayStart.Weekday()) + 6) % 7
	monday := dayStart.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 7)
}
