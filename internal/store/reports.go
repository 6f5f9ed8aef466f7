package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/models"
)

// ReportStore persists medical report records; the PDFs live in a file store.
type ReportStore struct {
	db *gorm.DB
}

func NewReportStore(db *gorm.DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) Create(ctx context.Context, report *models.Report) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(report).Error
}

func (s *ReportStore) Get(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "report")
	}
	return &report, nil
}

func (s *ReportStore) List(ctx context.Context, f models.ReportFilter) ([]models.Report, error) {
	q := s.db.WithContext(ctx).Order("date desc")
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.PatientID != "" {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	reports := []models.Report{}
	err := q.Find(&reports).Error
	return reports, err
}

// MarkReviewed flips a completed report to reviewed.
func (s *ReportStore) MarkReviewed(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.ReportCompleted).
		Update("status", models.ReportReviewed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrInvalidTransition
	}
	return nil
}
