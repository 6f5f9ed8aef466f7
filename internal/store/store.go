// Package store implements the service persistence interfaces on GORM/MySQL.
package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/medivuno/telehealth-server/internal/apperr"
)

// notFound converts gorm.ErrRecordNotFound into an apperr.NotFoundError for
// entity and leaves other errors alone.
func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity)
	}
	return err
}
