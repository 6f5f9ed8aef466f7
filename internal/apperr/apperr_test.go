package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("create appointment", cause)

	var se *StorageError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, "create appointment", se.Op)
	assert.ErrorIs(t, err, cause)
}

func TestStoragePassesDomainErrorsThrough(t *testing.T) {
	wrapped := fmt.Errorf("book: %w", ErrSlotNoLongerAvailable)
	assert.Same(t, wrapped, Storage("op", wrapped))

	nf := NotFound("appointment")
	assert.Equal(t, nf, Storage("op", nf))

	assert.Nil(t, Storage("op", nil))
}

func TestValidationErrorNamesField(t *testing.T) {
	err := Invalid("reason", "is required")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "reason", ve.Field)
	assert.Equal(t, "reason: is required", err.Error())
}
