package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/models"
)

// AppointmentStore persists appointments. Conditional writes lock the
// provider's user row so concurrent bookings for one provider serialize.
type AppointmentStore struct {
	db *gorm.DB
}

func NewAppointmentStore(db *gorm.DB) *AppointmentStore {
	return &AppointmentStore{db: db}
}

// ActiveForDoctor lists non-cancelled appointments starting in [from, to).
func (s *AppointmentStore) ActiveForDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND status <> ? AND date_time >= ? AND date_time < ?",
			doctorID, models.StatusCancelled, from.UTC(), to.UTC()).
		Order("date_time asc").
		Find(&appts).Error
	return appts, err
}

// CreateIfFree inserts appt unless it overlaps an active appointment of the
// same provider. maxDuration bounds how far back an overlapping appointment
// can start.
func (s *AppointmentStore) CreateIfFree(ctx context.Context, appt *models.Appointment, maxDuration time.Duration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProvider(tx, appt.DoctorID); err != nil {
			return err
		}
		if err := ensureFree(tx, appt, maxDuration, ""); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(appt).Error
	})
}

// MoveIfFree updates the time window and status of a non-terminal
// appointment unless the new window overlaps another active appointment.
func (s *AppointmentStore) MoveIfFree(ctx context.Context, appt *models.Appointment, maxDuration time.Duration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProvider(tx, appt.DoctorID); err != nil {
			return err
		}
		if err := ensureFree(tx, appt, maxDuration, appt.ID); err != nil {
			return err
		}
		res := tx.Model(&models.Appointment{}).
			Where("id = ? AND status NOT IN ?", appt.ID, []models.AppointmentStatus{models.StatusCompleted, models.StatusCancelled}).
			Updates(map[string]interface{}{
				"date_time": appt.DateTime,
				"duration":  appt.Duration,
				"status":    appt.Status,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrInvalidTransition
		}
		return nil
	})
}

// TransitionStatus writes the new status and notes only if the stored status
// is still from.
func (s *AppointmentStore) TransitionStatus(ctx context.Context, appt *models.Appointment, from models.AppointmentStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", appt.ID, from).
		Updates(map[string]interface{}{
			"status":        appt.Status,
			"doctor_notes":  appt.DoctorNotes,
			"cancel_reason": appt.CancelReason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrInvalidTransition
	}
	return nil
}

func (s *AppointmentStore) Get(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Preload("Patient").Preload("Doctor").First(&appt, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "appointment")
	}
	return &appt, nil
}

func (s *AppointmentStore) List(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	q := s.db.WithContext(ctx).Preload("Patient").Preload("Doctor").Order("date_time asc")
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("date_time >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("date_time < ?", f.To.UTC())
	}

	appts := []models.Appointment{}
	err := q.Find(&appts).Error
	return appts, err
}

func lockProvider(tx *gorm.DB, doctorID string) error {
	var provider models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ? AND role = ?", doctorID, models.RoleDoctor).
		Take(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Invalid("doctorId", "does not reference a provider")
	}
	return err
}

func ensureFree(tx *gorm.DB, appt *models.Appointment, maxDuration time.Duration, skipID string) error {
	q := tx.Where("doctor_id = ? AND status <> ? AND date_time > ? AND date_time < ?",
		appt.DoctorID, models.StatusCancelled, appt.DateTime.Add(-maxDuration).UTC(), appt.EndTime().UTC())
	if skipID != "" {
		q = q.Where("id <> ?", skipID)
	}

	var existing []models.Appointment
	if err := q.Find(&existing).Error; err != nil {
		return err
	}
	for i := range existing {
		if existing[i].Overlaps(appt.DateTime, appt.Length()) {
			return apperr.ErrSlotNoLongerAvailable
		}
	}
	return nil
}
