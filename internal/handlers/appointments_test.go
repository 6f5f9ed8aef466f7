package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/scheduling"
	"github.com/medivuno/telehealth-server/internal/scheduling/schedtest"
)

// Sunday noon; the Monday after is 2025-03-03.
var sundayNoon = time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

func newAppointmentRouter(t *testing.T) (*gin.Engine, *schedtest.Appointments) {
	t.Helper()
	appts := schedtest.NewAppointments()
	users := schedtest.NewUsers(
		schedtest.Doctor("doc-1"),
		schedtest.Patient("pat-1"), schedtest.Patient("pat-2"),
	)
	svc := scheduling.NewService(appts, schedtest.NewHours(), users, scheduling.Options{
		Granularity: 30 * time.Minute,
		MaxDuration: 4 * time.Hour,
		Now:         func() time.Time { return sundayNoon },
	})
	h := NewAppointmentHandler(svc, logger.Discard())

	r := newRouter()
	r.GET("/providers/:id/available-slots", h.GetAvailableSlots)
	r.POST("/appointments", h.CreateAppointment)
	r.GET("/appointments", h.GetAppointmentsForUser)
	r.GET("/appointments/:id", h.GetAppointmentByID)
	r.PATCH("/appointments/:id/status", h.UpdateAppointmentStatus)
	r.PATCH("/appointments/:id/reschedule", h.RescheduleAppointment)
	return r, appts
}

func TestGetAvailableSlotsDefaultCalendar(t *testing.T) {
	r, _ := newAppointmentRouter(t)

	w, resp := do(t, r, patient, http.MethodGet, "/providers/doc-1/available-slots?date=2025-03-03&duration=60", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var slots []scheduling.Slot
	decode(t, resp.Data, &slots)
	require.Len(t, slots, 15)
	assert.Equal(t, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), slots[0].StartTime.UTC())
	assert.Equal(t, time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC), slots[14].EndTime.UTC())
}

func TestGetAvailableSlotsRequiresDate(t *testing.T) {
	r, _ := newAppointmentRouter(t)

	w, resp := do(t, r, patient, http.MethodGet, "/providers/doc-1/available-slots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date", resp.Field)

	w, resp = do(t, r, patient, http.MethodGet, "/providers/doc-1/available-slots?date=03/03/2025", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date", resp.Field)
}

func TestGetAvailableSlotsUnknownProvider(t *testing.T) {
	r, _ := newAppointmentRouter(t)

	w, _ := do(t, r, patient, http.MethodGet, "/providers/nobody/available-slots?date=2025-03-03", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, patient, http.MethodGet, "/providers/pat-2/available-slots?date=2025-03-03", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAppointmentThenConflict(t *testing.T) {
	r, appts := newAppointmentRouter(t)
	body := CreateAppointmentRequest{
		DoctorID: "doc-1",
		DateTime: time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		Duration: 30,
		Reason:   "follow-up",
	}

	w, resp := do(t, r, patient, http.MethodPost, "/appointments", body)
	require.Equal(t, http.StatusCreated, w.Code, resp.Error)

	var created models.Appointment
	decode(t, resp.Data, &created)
	assert.Equal(t, "pat-1", created.PatientID)
	assert.Equal(t, models.StatusPending, created.Status)

	w, resp = do(t, r, stranger, http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, resp.Error, "no longer available")
	assert.Len(t, appts.All(), 1)
}

func TestCreateAppointmentValidationNamesField(t *testing.T) {
	r, _ := newAppointmentRouter(t)

	w, resp := do(t, r, patient, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID: "doc-1",
		DateTime: time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		Duration: 30,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "reason", resp.Field)
}

func TestAppointmentBodyDecodeErrorsNameField(t *testing.T) {
	r, _ := newAppointmentRouter(t)

	w, resp := do(t, r, patient, http.MethodPost, "/appointments", map[string]interface{}{
		"doctorId": "doc-1",
		"dateTime": "next tuesday",
		"duration": 30,
		"reason":   "checkup",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "dateTime", resp.Field)

	w, resp = do(t, r, patient, http.MethodPost, "/appointments", map[string]interface{}{
		"doctorId": "doc-1",
		"dateTime": "2025-03-03T10:00:00Z",
		"duration": "half an hour",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "duration", resp.Field)

	w, resp = do(t, r, doctor, http.MethodPatch, "/appointments/any/reschedule", map[string]interface{}{
		"dateTime": 1741000000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "dateTime", resp.Field)
}

func TestCreateAppointmentForOtherPatientIsForbidden(t *testing.T) {
	r, _ := newAppointmentRouter(t)

	w, _ := do(t, r, patient, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID:  "doc-1",
		PatientID: "pat-2",
		DateTime:  time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		Duration:  30,
		Reason:    "checkup",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateAppointmentRequiresAuthentication(t *testing.T) {
	r, _ := newAppointmentRouter(t)
	w, _ := do(t, r, models.Actor{}, http.MethodPost, "/appointments", CreateAppointmentRequest{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAppointmentLifecycleOverHTTP(t *testing.T) {
	r, _ := newAppointmentRouter(t)

	w, resp := do(t, r, patient, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID: "doc-1",
		DateTime: time.Date(2025, 3, 3, 11, 0, 0, 0, time.UTC),
		Duration: 30,
		Reason:   "checkup",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var appt models.Appointment
	decode(t, resp.Data, &appt)
	path := "/appointments/" + appt.ID

	w, _ = do(t, r, stranger, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, patient, http.MethodPatch, path+"/status", UpdateAppointmentStatusRequest{Status: "confirmed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = do(t, r, doctor, http.MethodPatch, path+"/status", UpdateAppointmentStatusRequest{Status: "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, resp.Error)
	decode(t, resp.Data, &appt)
	assert.Equal(t, models.StatusConfirmed, appt.Status)

	w, resp = do(t, r, doctor, http.MethodPatch, path+"/reschedule", RescheduleAppointmentRequest{
		DateTime: time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusOK, w.Code, resp.Error)

	w, _ = do(t, r, doctor, http.MethodPatch, path+"/status", UpdateAppointmentStatusRequest{Status: "completed", DoctorNotes: "all good"})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, r, doctor, http.MethodPatch, path+"/status", UpdateAppointmentStatusRequest{Status: "cancelled"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, resp.Error, "invalid status transition")

	w, _ = do(t, r, doctor, http.MethodPatch, path+"/reschedule", RescheduleAppointmentRequest{
		DateTime: time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetAppointmentsFiltersByStatus(t *testing.T) {
	r, _ := newAppointmentRouter(t)
	for _, hour := range []int{9, 10} {
		w, _ := do(t, r, patient, http.MethodPost, "/appointments", CreateAppointmentRequest{
			DoctorID: "doc-1",
			DateTime: time.Date(2025, 3, 3, hour, 0, 0, 0, time.UTC),
			Duration: 30,
			Reason:   "checkup",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, resp := do(t, r, doctor, http.MethodGet, "/appointments?status=pending&from=2025-03-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Appointment
	decode(t, resp.Data, &list)
	assert.Len(t, list, 2)

	w, resp = do(t, r, stranger, http.MethodGet, "/appointments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, resp.Data, &list)
	assert.Empty(t, list)

	w, resp = do(t, r, doctor, http.MethodGet, "/appointments?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status", resp.Field)
}
