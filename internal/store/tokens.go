package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/medivuno/telehealth-server/internal/models"
)

// TokenStore keeps issued refresh tokens so they can be rotated and revoked.
type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) Create(ctx context.Context, token *models.RefreshToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

// FindActive returns the unrevoked, unexpired token issued to userID.
func (s *TokenStore) FindActive(ctx context.Context, token, userID string, now time.Time) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := s.db.WithContext(ctx).
		Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", token, userID, false, now.UTC()).
		First(&rt).Error
	if err != nil {
		return nil, notFound(err, "refresh token")
	}
	return &rt, nil
}

// Revoke marks token revoked. It reports false when the token was unknown or
// already revoked.
func (s *TokenStore) Revoke(ctx context.Context, token string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", token, false).
		Updates(map[string]interface{}{"is_revoked": true, "expires_at": now.UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
