package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/metrics"
	"github.com/medivuno/telehealth-server/internal/models"
)

// Store persists report records.
type Store interface {
	Create(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	MarkReviewed(ctx context.Context, id string) error
}

// UserLookup finds users by id, returning apperr.NotFound when absent.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// AppointmentLookup finds appointments by id, returning apperr.NotFound when
// absent.
type AppointmentLookup interface {
	Get(ctx context.Context, id string) (*models.Appointment, error)
}

// Service creates and serves medical reports.
type Service struct {
	store        Store
	users        UserLookup
	appointments AppointmentLookup
	files        FileStore
	metrics *metrics.ReportMetrics
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store Store, users UserLookup, appointments AppointmentLookup, files FileStore, m *metrics.ReportMetrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:        store,
		users:        users,
		appointments: appointments,
		files:        files,
		metrics:      m,
		log:          log,
		now:          time.Now,
	}
}

// NewReport carries a report submission from a doctor.
type NewReport struct {
	PatientID       string
	AppointmentID   *string
	Type            string
	Title           string
	Date            time.Time
	Findings        string
	Recommendations string
}

// Create renders the report PDF, stores it and persists the record. If the
// record cannot be saved the stored file is removed again.
func (s *Service) Create(ctx context.Context, actor models.Actor, req NewReport) (*models.Report, error) {
	report, doc, err := s.prepare(ctx, actor, req)
	if err != nil {
		s.metrics.ObserveGenerated("invalid")
		return nil, err
	}

	data, err := Render(doc)
	if err != nil {
		s.metrics.ObserveGenerated("error")
		return nil, &apperr.StorageError{Op: "render report", Err: err}
	}

	if err := s.files.Save(ctx, report.PdfPath, data); err != nil {
		s.metrics.ObserveGenerated("error")
		return nil, apperr.Storage("store report pdf", err)
	}

	if err := s.store.Create(ctx, report); err != nil {
		if rmErr := s.files.Remove(ctx, report.PdfPath); rmErr != nil {
			s.log.WithError(rmErr).WithField("pdf_path", report.PdfPath).Error("Failed to remove orphaned report pdf")
		}
		s.metrics.ObserveGenerated("error")
		return nil, apperr.Storage("create report", err)
	}

	s.metrics.ObserveGenerated("created")
	s.log.WithFields(logrus.Fields{
		"report_id":  report.ID,
		"doctor_id":  report.DoctorID,
		"patient_id": report.PatientID,
		"size":       len(data),
	}).Info("Report generated")
	return report, nil
}

func (s *Service) prepare(ctx context.Context, actor models.Actor, req NewReport) (*models.Report, Document, error) {
	if actor.Role != models.RoleDoctor {
		return nil, Document{}, apperr.ErrForbidden
	}
	if strings.TrimSpace(req.PatientID) == "" {
		return nil, Document{}, apperr.Invalid("patientId", "is required")
	}
	if strings.TrimSpace(req.Type) == "" {
		return nil, Document{}, apperr.Invalid("type", "is required")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, Document{}, apperr.Invalid("title", "is required")
	}
	if strings.TrimSpace(req.Findings) == "" {
		return nil, Document{}, apperr.Invalid("findings", "is required")
	}

	patient, err := s.users.GetUser(ctx, req.PatientID)
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			return nil, Document{}, apperr.Invalid("patientId", "does not reference a patient")
		}
		return nil, Document{}, apperr.Storage("get patient", err)
	}
	if patient.Role != models.RolePatient {
		return nil, Document{}, apperr.Invalid("patientId", "does not reference a patient")
	}
	doctor, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, Document{}, apperr.Storage("get doctor", err)
	}
	appointmentID, err := s.checkAppointment(ctx, req.AppointmentID, doctor.ID, patient.ID)
	if err != nil {
		return nil, Document{}, err
	}

	now := s.now().UTC()
	date := req.Date
	if date.IsZero() {
		date = now
	}
	id := uuid.New().String()
	report := &models.Report{
		BaseModel:       models.BaseModel{ID: id, CreatedAt: now},
		PatientID:       patient.ID,
		DoctorID:        doctor.ID,
		AppointmentID:   appointmentID,
		Type:            strings.TrimSpace(req.Type),
		Title:           strings.TrimSpace(req.Title),
		Date:            date.UTC(),
		Status:          models.ReportCompleted,
		Findings:        req.Findings,
		Recommendations: req.Recommendations,
		PdfPath:         fmt.Sprintf("%s/%s.pdf", patient.ID, id),
	}
	return report, Document{Report: report, Patient: patient, Doctor: doctor}, nil
}

// checkAppointment resolves an optional appointment reference. It must name
// an appointment between doctorID and patientID.
func (s *Service) checkAppointment(ctx context.Context, id *string, doctorID, patientID string) (*string, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	appt, err := s.appointments.Get(ctx, strings.TrimSpace(*id))
	if err != nil {
		var nf *apperr.NotFoundError
		if errors.As(err, &nf) {
			return nil, apperr.Invalid("appointmentId", "does not reference an appointment")
		}
		return nil, apperr.Storage("get appointment", err)
	}
	if appt.DoctorID != doctorID || appt.PatientID != patientID {
		return nil, apperr.Invalid("appointmentId", "is not an appointment between this doctor and patient")
	}
	return &appt.ID, nil
}

// Get returns a report visible to actor: its patient, its author or an admin.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.Report, error) {
	report, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get report", err)
	}
	switch {
	case actor.Role == models.RoleAdmin:
	case actor.Role == models.RoleDoctor && report.DoctorID == actor.UserID:
	case actor.Role == models.RolePatient && report.PatientID == actor.UserID:
	default:
		return nil, apperr.NotFound("report")
	}
	return report, nil
}

// List returns the reports visible to actor, newest first.
func (s *Service) List(ctx context.Context, actor models.Actor, filter models.ReportFilter) ([]models.Report, error) {
	switch actor.Role {
	case models.RolePatient:
		filter.PatientID = actor.UserID
	case models.RoleDoctor:
		filter.DoctorID = actor.UserID
	case models.RoleAdmin:
	default:
		return nil, apperr.ErrForbidden
	}
	reports, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, apperr.Storage("list reports", err)
	}
	return reports, nil
}

// OpenPDF streams the stored PDF of a visible report. The caller closes it.
func (s *Service) OpenPDF(ctx context.Context, actor models.Actor, id string) (*models.Report, io.ReadCloser, error) {
	report, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Open(ctx, report.PdfPath)
	if err != nil {
		return nil, nil, apperr.Storage("open report pdf", err)
	}
	return report, rc, nil
}

// MarkReviewed lets the patient acknowledge a completed report.
func (s *Service) MarkReviewed(ctx context.Context, actor models.Actor, id string) (*models.Report, error) {
	report, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RolePatient {
		return nil, apperr.ErrForbidden
	}
	if report.Status == models.ReportReviewed {
		return report, nil
	}
	if err := s.store.MarkReviewed(ctx, id); err != nil {
		return nil, apperr.Storage("mark report reviewed", err)
	}
	report.Status = models.ReportReviewed
	return report, nil
}
