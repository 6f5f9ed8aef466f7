package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/logger"
)

var validate = validator.New()

// Validate performs validation on a struct.
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			msg := fmt.Sprintf("%s failed on '%s'", e.Field(), e.Tag())
			if e.Param() != "" {
				msg = fmt.Sprintf("%s failed on '%s=%s'", e.Field(), e.Tag(), e.Param())
			}
			messages = append(messages, msg)
		}
		return strings.Join(messages, ", ")
	}
	return err.Error()
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		BadRequest(c, "Invalid request payload: "+FormatValidationError(err))
		return false
	}
	if err := Validate(obj); err != nil {
		BadRequest(c, "Validation failed: "+FormatValidationError(err))
		return false
	}
	return true
}

// DecodeError turns a JSON body decode failure into a ValidationError naming
// the offending field. encoding/json does not attribute timestamp errors to a
// field, so they are reported under timeField.
func DecodeError(err error, timeField string) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var parseErr *time.ParseError

	switch {
	case errors.Is(err, io.EOF):
		return apperr.Invalid("body", "is required")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperr.Invalid(typeErr.Field, "must be of type %s", typeErr.Type)
	case timeField != "" && (errors.As(err, &parseErr) || strings.HasPrefix(err.Error(), "Time.UnmarshalJSON")):
		return apperr.Invalid(timeField, "must be an RFC 3339 timestamp")
	case errors.As(err, &syntaxErr):
		return apperr.Invalid("body", "is not valid JSON")
	}
	return apperr.Invalid("body", "%v", err)
}

// BindJSON binds the request body into obj. Decode failures are answered
// through RespondError with the field named; binding tag failures as a
// plain BadRequest.
func BindJSON(c *gin.Context, log *logger.Logger, obj interface{}, timeField string) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		BadRequest(c, "Validation failed: "+FormatValidationError(err))
		return false
	}
	RespondError(c, log, DecodeError(err, timeField))
	return false
}
