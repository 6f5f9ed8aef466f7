package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/models"
)

// UserStore persists user accounts.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// PatientsOfDoctor returns the distinct patients with at least one
// appointment with doctorID.
func (s *UserStore) PatientsOfDoctor(ctx context.Context, doctorID string) ([]models.User, error) {
	db := s.db.WithContext(ctx)
	sub := db.Model(&models.Appointment{}).Select("patient_id").Where("doctor_id = ?", doctorID)

	patients := []models.User{}
	err := db.Where("role = ? AND id IN (?)", models.RolePatient, sub).
		Order("last_name asc, first_name asc").
		Find(&patients).Error
	return patients, err
}

// FindByEmail returns the user registered with email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// EmailTaken reports whether another user than exceptID already uses email.
func (s *UserStore) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *UserStore) Save(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

// List returns every user, or only those with role when it is set.
func (s *UserStore) List(ctx context.Context, role models.Role) ([]models.User, error) {
	q := s.db.WithContext(ctx).Order("last_name asc, first_name asc")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	users := []models.User{}
	err := q.Find(&users).Error
	return users, err
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user")
	}
	return nil
}
