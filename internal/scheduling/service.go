package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/availability"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/metrics"
	"github.com/medivuno/telehealth-server/internal/models"
)

// AppointmentStore is the persistence the scheduler needs. CreateIfFree and
// MoveIfFree must run the overlap check and the write atomically per provider
// and return apperr.ErrSlotNoLongerAvailable when the window is taken.
type AppointmentStore interface {
	ActiveForDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error)
	CreateIfFree(ctx context.Context, appt *models.Appointment, maxDuration time.Duration) error
	MoveIfFree(ctx context.Context, appt *models.Appointment, maxDuration time.Duration) error
	// TransitionStatus persists appt's status and notes only if the stored
	// status still equals from.
	TransitionStatus(ctx context.Context, appt *models.Appointment, from models.AppointmentStatus) error
	Get(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
}

// HoursSource resolves a provider's working-hours schedule.
type HoursSource interface {
	Get(ctx context.Context, providerID string) (*availability.Schedule, error)
}

// UserLookup finds users by id, returning apperr.NotFound when absent.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Options tunes the scheduler.
type Options struct {
	Granularity time.Duration
	MaxDuration time.Duration
	Metrics     *metrics.SchedulingMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

// Service implements slot lookup, booking and the appointment lifecycle.
type Service struct {
	appointments AppointmentStore
	hours        HoursSource
	users        UserLookup
	granularity  time.Duration
	maxDuration  time.Duration
	metrics      *metrics.SchedulingMetrics
	log          *logger.Logger
	now          func() time.Time
}

func NewService(appointments AppointmentStore, hours HoursSource, users UserLookup, opts Options) *Service {
	if opts.Granularity <= 0 {
		opts.Granularity = 30 * time.Minute
	}
	if opts.MaxDuration < opts.Granularity {
		opts.MaxDuration = 4 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		appointments: appointments,
		hours:        hours,
		users:        users,
		granularity:  opts.Granularity,
		maxDuration:  opts.MaxDuration,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		now:          opts.Now,
	}
}

// Slot is a free appointment window.
type Slot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// AvailableSlots lists the free start times for providerID on date's calendar
// day. Slots are recomputed on every call so a duration change always yields
// a fresh set.
func (s *Service) AvailableSlots(ctx context.Context, providerID string, date time.Time, durationMinutes int) ([]Slot, error) {
	duration, err := s.checkDuration(durationMinutes)
	if err != nil {
		return nil, err
	}
	if _, err := s.provider(ctx, providerID); err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			return nil, apperr.NotFound("provider")
		}
		return nil, err
	}

	hours, err := s.weeklyHours(ctx, providerID)
	if err != nil {
		return nil, err
	}

	candidates := GenerateSlots(hours, date, duration, s.granularity)
	if len(candidates) == 0 {
		s.metrics.ObserveSlotQuery(0)
		return []Slot{}, nil
	}

	existing, err := s.appointments.ActiveForDoctor(ctx, providerID,
		candidates[0].Add(-s.maxDuration), candidates[len(candidates)-1].Add(duration))
	if err != nil {
		return nil, apperr.Storage("list provider appointments", err)
	}

	free := FilterConflicts(candidates, duration, existing, s.now())
	s.metrics.ObserveSlotQuery(len(free))

	slots := make([]Slot, len(free))
	for i, start := range free {
		slots[i] = Slot{StartTime: start, EndTime: start.Add(duration)}
	}
	return slots, nil
}

// CreateAppointmentRequest carries a booking submission.
type CreateAppointmentRequest struct {
	DoctorID  string
	PatientID string
	DateTime  time.Time
	Duration  int
	Type      string
	Reason    string
	Symptoms  string
	Notes     string
}

// CreateAppointment validates the request, re-checks the slot and books it.
// Patients book for themselves and start pending; doctors and admins start
// scheduled.
func (s *Service) CreateAppointment(ctx context.Context, actor models.Actor, req CreateAppointmentRequest) (*models.Appointment, error) {
	appt, err := s.buildAppointment(ctx, actor, req)
	if err != nil {
		if errors.Is(err, apperr.ErrForbidden) || isValidation(err) {
			s.metrics.ObserveBooking("invalid")
		} else {
			s.metrics.ObserveBooking("error")
		}
		return nil, err
	}

	if err := s.appointments.CreateIfFree(ctx, appt, s.maxDuration); err != nil {
		if errors.Is(err, apperr.ErrSlotNoLongerAvailable) {
			s.metrics.ObserveBooking("conflict")
			s.log.WithFields(logrus.Fields{
				"doctor_id": appt.DoctorID,
				"date_time": appt.DateTime,
				"duration":  appt.Duration,
			}).Info("Booking rejected: slot taken")
			return nil, err
		}
		s.metrics.ObserveBooking("error")
		return nil, apperr.Storage("create appointment", err)
	}

	s.metrics.ObserveBooking("created")
	s.log.WithFields(logrus.Fields{
		"appointment_id": appt.ID,
		"doctor_id":      appt.DoctorID,
		"patient_id":     appt.PatientID,
		"status":         appt.Status,
	}).Info("Appointment booked")
	return appt, nil
}

func (s *Service) buildAppointment(ctx context.Context, actor models.Actor, req CreateAppointmentRequest) (*models.Appointment, error) {
	doctorID := strings.TrimSpace(req.DoctorID)
	patientID := strings.TrimSpace(req.PatientID)

	switch actor.Role {
	case models.RolePatient:
		if patientID != "" && patientID != actor.UserID {
			return nil, apperr.ErrForbidden
		}
		patientID = actor.UserID
	case models.RoleDoctor:
		if doctorID != "" && doctorID != actor.UserID {
			return nil, apperr.ErrForbidden
		}
		doctorID = actor.UserID
	case models.RoleAdmin:
	default:
		return nil, apperr.ErrForbidden
	}

	if doctorID == "" {
		return nil, apperr.Invalid("doctorId", "is required")
	}
	if patientID == "" {
		return nil, apperr.Invalid("patientId", "is required")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperr.Invalid("reason", "is required")
	}
	duration, err := s.checkDuration(req.Duration)
	if err != nil {
		return nil, err
	}
	if req.DateTime.IsZero() {
		return nil, apperr.Invalid("dateTime", "is required")
	}
	if !req.DateTime.After(s.now()) {
		return nil, apperr.Invalid("dateTime", "must be in the future")
	}

	if _, err := s.provider(ctx, doctorID); err != nil {
		return nil, err
	}
	patient, err := s.users.GetUser(ctx, patientID)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			return nil, apperr.Invalid("patientId", "does not reference a patient")
		}
		return nil, apperr.Storage("get patient", err)
	}
	if patient.Role != models.RolePatient {
		return nil, apperr.Invalid("patientId", "does not reference a patient")
	}

	if err := s.checkBookable(ctx, doctorID, req.DateTime, duration); err != nil {
		return nil, err
	}

	status := models.StatusScheduled
	if actor.Role == models.RolePatient {
		status = models.StatusPending
	}
	return &models.Appointment{
		DoctorID:  doctorID,
		PatientID: patientID,
		DateTime:  req.DateTime.UTC(),
		Duration:  req.Duration,
		Status:    status,
		Type:      strings.TrimSpace(req.Type),
		Reason:    strings.TrimSpace(req.Reason),
		Symptoms:  req.Symptoms,
		Notes:     req.Notes,
	}, nil
}

// StatusUpdate carries a requested lifecycle change.
type StatusUpdate struct {
	Status       string
	DoctorNotes  string
	CancelReason string
}

// UpdateStatus applies one step of the appointment lifecycle. Patients may
// only cancel; doctors act on their own appointments; admins on any.
func (s *Service) UpdateStatus(ctx context.Context, actor models.Actor, id string, upd StatusUpdate) (*models.Appointment, error) {
	next, ok := models.ParseAppointmentStatus(upd.Status)
	if !ok {
		return nil, apperr.Invalid("status", "unknown status %q", upd.Status)
	}

	appt, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RolePatient && next != models.StatusCancelled {
		return nil, apperr.ErrForbidden
	}

	from := appt.Status
	if !from.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", apperr.ErrInvalidTransition, from, next)
	}

	appt.Status = next
	switch next {
	case models.StatusCompleted:
		if notes := strings.TrimSpace(upd.DoctorNotes); notes != "" {
			appt.DoctorNotes = notes
		}
	case models.StatusCancelled:
		appt.CancelReason = strings.TrimSpace(upd.CancelReason)
	}

	if err := s.appointments.TransitionStatus(ctx, appt, from); err != nil {
		return nil, apperr.Storage("update appointment status", err)
	}

	s.log.WithFields(logrus.Fields{
		"appointment_id": appt.ID,
		"from":           from,
		"to":             next,
		"user_id":        actor.UserID,
	}).Info("Appointment status changed")
	return appt, nil
}

// RescheduleRequest moves an appointment. A zero Duration keeps the current one.
type RescheduleRequest struct {
	DateTime time.Time
	Duration int
}

// Reschedule moves a non-terminal appointment to a new free window. A
// patient-initiated move puts the appointment back to pending.
func (s *Service) Reschedule(ctx context.Context, actor models.Actor, id string, req RescheduleRequest) (*models.Appointment, error) {
	appt, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot reschedule a %s appointment", apperr.ErrInvalidTransition, appt.Status)
	}

	minutes := req.Duration
	if minutes == 0 {
		minutes = appt.Duration
	}
	duration, err := s.checkDuration(minutes)
	if err != nil {
		return nil, err
	}
	if req.DateTime.IsZero() {
		return nil, apperr.Invalid("dateTime", "is required")
	}
	if !req.DateTime.After(s.now()) {
		return nil, apperr.Invalid("dateTime", "must be in the future")
	}
	if err := s.checkBookable(ctx, appt.DoctorID, req.DateTime, duration); err != nil {
		return nil, err
	}

	appt.DateTime = req.DateTime.UTC()
	appt.Duration = minutes
	if actor.Role == models.RolePatient {
		appt.Status = models.StatusPending
	}

	if err := s.appointments.MoveIfFree(ctx, appt, s.maxDuration); err != nil {
		if errors.Is(err, apperr.ErrSlotNoLongerAvailable) {
			return nil, err
		}
		return nil, apperr.Storage("reschedule appointment", err)
	}

	s.log.WithFields(logrus.Fields{
		"appointment_id": appt.ID,
		"date_time":      appt.DateTime,
		"user_id":        actor.UserID,
	}).Info("Appointment rescheduled")
	return appt, nil
}

// Get returns an appointment visible to actor. Appointments belonging to
// someone else are reported as not found.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.Appointment, error) {
	appt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get appointment", err)
	}
	if !canSee(actor, appt) {
		return nil, apperr.NotFound("appointment")
	}
	return appt, nil
}

// List returns the appointments visible to actor, scoped by role.
func (s *Service) List(ctx context.Context, actor models.Actor, filter models.AppointmentFilter) ([]models.Appointment, error) {
	switch actor.Role {
	case models.RolePatient:
		filter.PatientID = actor.UserID
	case models.RoleDoctor:
		filter.DoctorID = actor.UserID
	case models.RoleAdmin:
	default:
		return nil, apperr.ErrForbidden
	}

	appts, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, apperr.Storage("list appointments", err)
	}
	return appts, nil
}

func canSee(actor models.Actor, appt *models.Appointment) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDoctor:
		return appt.DoctorID == actor.UserID
	case models.RolePatient:
		return appt.PatientID == actor.UserID
	}
	return false
}

func (s *Service) checkDuration(minutes int) (time.Duration, error) {
	d := time.Duration(minutes) * time.Minute
	if minutes <= 0 || d > s.maxDuration {
		return 0, apperr.Invalid("duration", "must be between 1 and %d minutes", int(s.maxDuration/time.Minute))
	}
	return d, nil
}

// provider returns the doctor with the given id; unknown ids and non-doctors
// are validation failures on doctorId.
func (s *Service) provider(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			return nil, apperr.Invalid("doctorId", "does not reference a provider")
		}
		return nil, apperr.Storage("get provider", err)
	}
	if u.Role != models.RoleDoctor {
		return nil, apperr.Invalid("doctorId", "does not reference a provider")
	}
	return u, nil
}

func (s *Service) weeklyHours(ctx context.Context, providerID string) (availability.WeeklyHours, error) {
	sched, err := s.hours.Get(ctx, providerID)
	if err != nil {
		return availability.WeeklyHours{}, apperr.Storage("get working hours", err)
	}
	hours, err := sched.Hours()
	if err != nil {
		// Stored schedules were validated on write; a failure here is corruption.
		return availability.WeeklyHours{}, &apperr.StorageError{Op: "parse working hours", Err: err}
	}
	return hours, nil
}

// checkBookable requires start to be one of the provider's generated slots for
// that local day.
func (s *Service) checkBookable(ctx context.Context, providerID string, start time.Time, duration time.Duration) error {
	hours, err := s.weeklyHours(ctx, providerID)
	if err != nil {
		return err
	}
	local := start.In(hours.Location)
	if !containsInstant(GenerateSlots(hours, local, duration, s.granularity), start) {
		return apperr.Invalid("dateTime", "is outside the provider's working hours")
	}
	return nil
}

func isValidation(err error) bool {
	var ve *apperr.ValidationError
	return errors.As(err, &ve)
}
