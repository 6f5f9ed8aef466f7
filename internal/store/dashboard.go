package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/medivuno/telehealth-server/internal/dashboard"
	"github.com/medivuno/telehealth-server/internal/models"
)

// DashboardStore runs the grouped queries behind the doctor dashboard and
// stores doctor tasks.
type DashboardStore struct {
	db *gorm.DB
}

func NewDashboardStore(db *gorm.DB) *DashboardStore {
	return &DashboardStore{db: db}
}

// CountAppointmentsBetween counts non-cancelled appointments starting in [from, to).
func (s *DashboardStore) CountAppointmentsBetween(ctx context.Context, doctorID string, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ? AND status <> ? AND date_time >= ? AND date_time < ?",
			doctorID, models.StatusCancelled, from.UTC(), to.UTC()).
		Count(&n).Error
	return n, err
}

func (s *DashboardStore) CountDistinctPatients(ctx context.Context, doctorID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("doctor_id = ?", doctorID).
		Distinct("patient_id").
		Count(&n).Error
	return n, err
}

func (s *DashboardStore) CountByStatusBetween(ctx context.Context, doctorID string, from, to time.Time) (map[models.AppointmentStatus]int64, error) {
	var rows []struct {
		Status models.AppointmentStatus
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Select("status, COUNT(*) AS total").
		Where("doctor_id = ? AND date_time >= ? AND date_time < ?", doctorID, from.UTC(), to.UTC()).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.AppointmentStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

// StartStatusCounts groups appointments in [from, to) by start instant and
// status. Weekday bucketing is left to the caller, which knows the timezone.
func (s *DashboardStore) StartStatusCounts(ctx context.Context, doctorID string, from, to time.Time) ([]dashboard.StartCount, error) {
	var rows []dashboard.StartCount
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Select("date_time AS starts_at, status, COUNT(*) AS total").
		Where("doctor_id = ? AND date_time >= ? AND date_time < ?", doctorID, from.UTC(), to.UTC()).
		Group("date_time, status").
		Scan(&rows).Error
	return rows, err
}

// GenderCounts groups the doctor's distinct patients by gender.
func (s *DashboardStore) GenderCounts(ctx context.Context, doctorID string) ([]dashboard.GenderCount, error) {
	var rows []dashboard.GenderCount
	err := s.db.WithContext(ctx).Table("users").
		Select("users.gender AS gender, COUNT(DISTINCT users.id) AS total").
		Joins("JOIN appointments ON appointments.patient_id = users.id").
		Where("appointments.doctor_id = ? AND users.role = ?", doctorID, models.RolePatient).
		Group("users.gender").
		Scan(&rows).Error
	return rows, err
}

func (s *DashboardStore) CountUnreadMessages(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND status <> ?", userID, models.MessageStatusRead).
		Count(&n).Error
	return n, err
}

// OpenTasks returns pending and overdue tasks ordered by due date.
func (s *DashboardStore) OpenTasks(ctx context.Context, doctorID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND status IN ?", doctorID, []models.TaskStatus{models.TaskPending, models.TaskOverdue}).
		Order("due_date asc").
		Find(&tasks).Error
	return tasks, err
}

func (s *DashboardStore) CreateTask(ctx context.Context, task *models.Task) error {
	return s.db.WithContext(ctx).Create(task).Error
}

func (s *DashboardStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "task")
	}
	return &task, nil
}

func (s *DashboardStore) CompleteTask(ctx context.Context, task *models.Task) error {
	return s.db.WithContext(ctx).Model(task).
		Updates(map[string]interface{}{"status": task.Status, "completed_at": task.CompletedAt}).Error
}
