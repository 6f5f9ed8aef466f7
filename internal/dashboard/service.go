package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/models"
)

// Store is the read side the dashboard aggregates over, plus task writes.
type Store interface {
	CountAppointmentsBetween(ctx context.Context, doctorID string, from, to time.Time) (int64, error)
	CountDistinctPatients(ctx context.Context, doctorID string) (int64, error)
	CountByStatusBetween(ctx context.Context, doctorID string, from, to time.Time) (map[models.AppointmentStatus]int64, error)
	StartStatusCounts(ctx context.Context, doctorID string, from, to time.Time) ([]StartCount, error)
	GenderCounts(ctx context.Context, doctorID string) ([]GenderCount, error)
	CountUnreadMessages(ctx context.Context, userID string) (int64, error)

	OpenTasks(ctx context.Context, doctorID string) ([]models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CompleteTask(ctx context.Context, task *models.Task) error
}

// Service answers dashboard queries for one provider at a time.
type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time
	log   *logger.Logger
}

// NewService builds a dashboard service. Day and week boundaries are taken in
// loc.
func NewService(store Store, loc *time.Location, log *logger.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: store, loc: loc, now: time.Now, log: log}
}

// WithClock replaces the wall clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Counts returns today's appointments, assigned patients, the trailing seven
// day completion rate and unread messages for providerID.
func (s *Service) Counts(ctx context.Context, providerID string) (*Counts, error) {
	now := s.now()
	todayStart, todayEnd := dayBounds(now, s.loc)

	today, err := s.store.CountAppointmentsBetween(ctx, providerID, todayStart, todayEnd)
	if err != nil {
		return nil, apperr.Storage("count today's appointments", err)
	}
	patients, err := s.store.CountDistinctPatients(ctx, providerID)
	if err != nil {
		return nil, apperr.Storage("count patients", err)
	}
	byStatus, err := s.store.CountByStatusBetween(ctx, providerID, now.AddDate(0, 0, -7), now)
	if err != nil {
		return nil, apperr.Storage("count appointments by status", err)
	}
	unread, err := s.store.CountUnreadMessages(ctx, providerID)
	if err != nil {
		return nil, apperr.Storage("count unread messages", err)
	}

	var completed, open int64
	for status, n := range byStatus {
		switch {
		case status == models.StatusCompleted:
			completed += n
		case isOpen(status):
			open += n
		}
	}

	return &Counts{
		TodaysAppointments: today,
		TotalPatients:      patients,
		CompletionRate:     CompletionRate(completed, open),
		NewMessages:        unread,
	}, nil
}

// WeeklySummary returns Monday..Friday completed/scheduled counts for the
// current week.
func (s *Service) WeeklySummary(ctx context.Context, providerID string) ([]DaySummary, error) {
	from, to := weekBounds(s.now(), s.loc)
	rows, err := s.store.StartStatusCounts(ctx, providerID, from, to)
	if err != nil {
		return nil, apperr.Storage("weekly appointment summary", err)
	}
	return BuildWeeklySummary(rows, s.loc), nil
}

// Demographics returns assigned patients per gender, all categories present.
func (s *Service) Demographics(ctx context.Context, providerID string) ([]Demographic, error) {
	rows, err := s.store.GenderCounts(ctx, providerID)
	if err != nil {
		return nil, apperr.Storage("patient demographics", err)
	}
	return BuildDemographics(rows), nil
}

// PendingTasks returns open tasks by due date. Overdue labelling is applied
// on read and never written back.
func (s *Service) PendingTasks(ctx context.Context, providerID string) ([]TaskView, error) {
	tasks, err := s.store.OpenTasks(ctx, providerID)
	if err != nil {
		return nil, apperr.Storage("list pending tasks", err)
	}
	return LabelTasks(tasks, s.now()), nil
}

// NewTask carries a task creation request.
type NewTask struct {
	Description string
	DueDate     time.Time
	PatientID   *string
}

// CreateTask adds a pending task for doctorID.
func (s *Service) CreateTask(ctx context.Context, doctorID string, req NewTask) (*models.Task, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, apperr.Invalid("description", "is required")
	}
	if req.DueDate.IsZero() {
		return nil, apperr.Invalid("dueDate", "is required")
	}

	task := &models.Task{
		DoctorID:    doctorID,
		PatientID:   req.PatientID,
		Description: desc,
		Status:      models.TaskPending,
		DueDate:     req.DueDate.UTC(),
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, apperr.Storage("create task", err)
	}
	s.log.WithFields(logrus.Fields{"task_id": task.ID, "doctor_id": doctorID}).Info("Task created")
	return task, nil
}

// CompleteTask marks a task done. Doctors may only complete their own.
func (s *Service) CompleteTask(ctx context.Context, actor models.Actor, taskID string) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, apperr.Storage("get task", err)
	}
	if actor.Role != models.RoleAdmin && task.DoctorID != actor.UserID {
		return nil, apperr.NotFound("task")
	}
	if task.Status == models.TaskCompleted {
		return task, nil
	}

	now := s.now().UTC()
	task.Status = models.TaskCompleted
	task.CompletedAt = &now
	if err := s.store.CompleteTask(ctx, task); err != nil {
		return nil, apperr.Storage("complete task", err)
	}
	return task, nil
}
