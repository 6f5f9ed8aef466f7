package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/logger"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Field   string      `json:"field,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Error:   errorMessage,
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}

// RespondError maps a service error to the matching HTTP response. Storage and
// unknown errors are logged and reported without internal detail.
func RespondError(c *gin.Context, log *logger.Logger, err error) {
	var ve *apperr.ValidationError
	var nf *apperr.NotFoundError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ResponseData{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Error:   ve.Error(),
			Field:   ve.Field,
		})
	case errors.As(err, &nf):
		NotFound(c, nf.Error())
	case errors.Is(err, apperr.ErrSlotNoLongerAvailable):
		Error(c, http.StatusConflict, apperr.ErrSlotNoLongerAvailable.Error()+", please pick another time")
	case errors.Is(err, apperr.ErrInvalidTransition):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		Forbidden(c, apperr.ErrForbidden.Error())
	default:
		log.WithFields(map[string]interface{}{
			"request_id": c.GetString("requestID"),
			"path":       c.FullPath(),
		}).WithError(err).Error("Request failed")
		InternalServerError(c, "Something went wrong, please try again")
	}
}
