// Package reporttest provides an in-memory report store for tests.
package reporttest

import (
	"context"
	"sort"
	"sync"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/models"
)

// Store keeps reports in a map. CreateErr, when set, fails every Create.
type Store struct {
	mu        sync.Mutex
	reports   map[string]models.Report
	CreateErr error
}

func NewStore() *Store {
	return &Store{reports: make(map[string]models.Report)}
}

func (s *Store) Create(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.reports[r.ID] = *r
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, apperr.NotFound("report")
	}
	return &r, nil
}

func (s *Store) List(_ context.Context, f models.ReportFilter) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Report{}
	for _, r := range s.reports {
		if (f.DoctorID == "" || r.DoctorID == f.DoctorID) && (f.PatientID == "" || r.PatientID == f.PatientID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// MarkReviewed only moves completed reports, like the SQL store.
func (s *Store) MarkReviewed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return apperr.NotFound("report")
	}
	if r.Status != models.ReportCompleted {
		return apperr.ErrInvalidTransition
	}
	r.Status = models.ReportReviewed
	s.reports[id] = r
	return nil
}

// Len returns the number of stored reports.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}
