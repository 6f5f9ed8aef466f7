package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(t *testing.T, err error) (int, ResponseData) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	RespondError(c, logger.Discard(), err)

	var body ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperr.Invalid("duration", "must be positive"), http.StatusBadRequest},
		{"not found", apperr.NotFound("appointment"), http.StatusNotFound},
		{"slot taken", fmt.Errorf("book: %w", apperr.ErrSlotNoLongerAvailable), http.StatusConflict},
		{"transition", fmt.Errorf("%w: completed to cancelled", apperr.ErrInvalidTransition), http.StatusConflict},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden},
		{"storage", apperr.Storage("create appointment", errors.New("connection reset")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := respond(t, tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.status, body.Status)
		})
	}
}

func TestRespondErrorNamesFieldAndHidesInternals(t *testing.T) {
	_, body := respond(t, apperr.Invalid("dateTime", "must be in the future"))
	assert.Equal(t, "dateTime", body.Field)
	assert.Equal(t, "dateTime: must be in the future", body.Error)

	_, body = respond(t, apperr.Storage("create appointment", errors.New("dial tcp 10.0.0.5:3306: refused")))
	assert.NotContains(t, body.Error, "10.0.0.5")
}

type signup struct {
	Email string `json:"email" binding:"required,email"`
	Age   int    `json:"age" validate:"gte=18"`
}

func TestBindAndValidate(t *testing.T) {
	cases := map[string]struct {
		body string
		ok   bool
	}{
		"valid":          {`{"email":"a@b.co","age":30}`, true},
		"missing email":  {`{"age":30}`, false},
		"validate tag":   {`{"email":"a@b.co","age":12}`, false},
		"malformed json": {`{"email":`, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var s signup
			assert.Equal(t, tc.ok, BindAndValidate(c, &s))
			if !tc.ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}

type booking struct {
	When     time.Time `json:"when"`
	Duration int       `json:"duration"`
	Email    string    `json:"email" binding:"required"`
}

func TestBindJSONNamesDecodeField(t *testing.T) {
	cases := map[string]struct {
		body  string
		code  int
		field string
	}{
		"valid":           {`{"when":"2025-03-03T10:00:00Z","duration":30,"email":"a@b.co"}`, http.StatusOK, ""},
		"bad timestamp":   {`{"when":"tomorrow","email":"a@b.co"}`, http.StatusBadRequest, "when"},
		"number as time":  {`{"when":12,"email":"a@b.co"}`, http.StatusBadRequest, "when"},
		"wrong type":      {`{"duration":"long","email":"a@b.co"}`, http.StatusBadRequest, "duration"},
		"empty body":      {``, http.StatusBadRequest, "body"},
		"broken json":     {`{"email" "a"}`, http.StatusBadRequest, "body"},
		"missing binding": {`{"duration":30}`, http.StatusBadRequest, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var b booking
			ok := BindJSON(c, logger.Discard(), &b, "when")
			if tc.code == http.StatusOK {
				assert.True(t, ok)
				return
			}
			require.False(t, ok)
			assert.Equal(t, tc.code, w.Code)
			var resp ResponseData
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.field, resp.Field)
		})
	}
}

func TestFormatValidationError(t *testing.T) {
	err := Validate(&signup{Email: "a@b.co", Age: 3})
	assert.Equal(t, "Age failed on 'gte=18'", FormatValidationError(err))
	assert.Equal(t, "plain", FormatValidationError(errors.New("plain")))
}
