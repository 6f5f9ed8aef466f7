// Package schedtest provides in-memory stores for scheduling tests.
package schedtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/availability"
	"github.com/medivuno/telehealth-server/internal/models"
)

// Appointments is a mutex-guarded appointment store. Its conditional writes
// hold the lock across check and write, like the row lock of the SQL store.
type Appointments struct {
	mu    sync.Mutex
	byID  map[string]models.Appointment
	order []string
}

func NewAppointments(seed ...models.Appointment) *Appointments {
	a := &Appointments{byID: make(map[string]models.Appointment)}
	for _, appt := range seed {
		a.put(appt)
	}
	return a
}

func (a *Appointments) put(appt models.Appointment) models.Appointment {
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	if _, ok := a.byID[appt.ID]; !ok {
		a.order = append(a.order, appt.ID)
	}
	a.byID[appt.ID] = appt
	return appt
}

func (a *Appointments) ActiveForDoctor(_ context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.Appointment
	for _, id := range a.order {
		appt := a.byID[id]
		if appt.DoctorID == doctorID && appt.Blocks() && !appt.DateTime.Before(from) && appt.DateTime.Before(to) {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (a *Appointments) CreateIfFree(_ context.Context, appt *models.Appointment, _ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conflicts(appt, "") {
		return apperr.ErrSlotNoLongerAvailable
	}
	*appt = a.put(*appt)
	return nil
}

func (a *Appointments) MoveIfFree(_ context.Context, appt *models.Appointment, _ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byID[appt.ID]; !ok {
		return apperr.NotFound("appointment")
	}
	if a.conflicts(appt, appt.ID) {
		return apperr.ErrSlotNoLongerAvailable
	}
	a.put(*appt)
	return nil
}

func (a *Appointments) TransitionStatus(_ context.Context, appt *models.Appointment, from models.AppointmentStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	stored, ok := a.byID[appt.ID]
	if !ok {
		return apperr.NotFound("appointment")
	}
	if stored.Status != from {
		return apperr.ErrInvalidTransition
	}
	a.put(*appt)
	return nil
}

func (a *Appointments) Get(_ context.Context, id string) (*models.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	appt, ok := a.byID[id]
	if !ok {
		return nil, apperr.NotFound("appointment")
	}
	return &appt, nil
}

func (a *Appointments) List(_ context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []models.Appointment{}
	for _, id := range a.order {
		appt := a.byID[id]
		switch {
		case f.DoctorID != "" && appt.DoctorID != f.DoctorID:
		case f.PatientID != "" && appt.PatientID != f.PatientID:
		case f.Status != "" && appt.Status != f.Status:
		case f.From != nil && appt.DateTime.Before(*f.From):
		case f.To != nil && !appt.DateTime.Before(*f.To):
		default:
			out = append(out, appt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out, nil
}

// All returns every stored appointment in insertion order.
func (a *Appointments) All() []models.Appointment {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Appointment, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.byID[id])
	}
	return out
}

func (a *Appointments) conflicts(appt *models.Appointment, skipID string) bool {
	for _, id := range a.order {
		other := a.byID[id]
		if id == skipID || other.DoctorID != appt.DoctorID || !other.Blocks() {
			continue
		}
		if other.Overlaps(appt.DateTime, appt.Length()) {
			return true
		}
	}
	return false
}

// Hours serves fixed schedules, falling back to the default calendar in UTC.
type Hours struct {
	mu        sync.Mutex
	schedules map[string]*availability.Schedule
}

func NewHours() *Hours {
	return &Hours{schedules: make(map[string]*availability.Schedule)}
}

func (h *Hours) Set(sched *availability.Schedule) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.schedules[sched.ProviderID] = sched
}

func (h *Hours) Get(_ context.Context, providerID string) (*availability.Schedule, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.schedules[providerID]; ok {
		return s, nil
	}
	return availability.DefaultSchedule(providerID, "UTC"), nil
}

// Users is a fixed user directory.
type Users struct {
	mu    sync.Mutex
	users map[string]models.User
}

func NewUsers(users ...models.User) *Users {
	u := &Users{users: make(map[string]models.User)}
	for _, user := range users {
		u.users[user.ID] = user
	}
	return u
}

func (u *Users) GetUser(_ context.Context, id string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return &user, nil
}

// Doctor and Patient build directory entries.
func Doctor(id string) models.User {
	return models.User{BaseModel: models.BaseModel{ID: id}, Role: models.RoleDoctor, FirstName: "Doc", LastName: id}
}

func Patient(id string) models.User {
	return models.User{BaseModel: models.BaseModel{ID: id}, Role: models.RolePatient, FirstName: "Pat", LastName: id}
}
