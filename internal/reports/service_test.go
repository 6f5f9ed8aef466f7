package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/reports/reporttest"
	"github.com/medivuno/telehealth-server/internal/scheduling/schedtest"
)

var (
	doctor  = models.Actor{UserID: "doc-1", Role: models.RoleDoctor}
	patient = models.Actor{UserID: "pat-1", Role: models.RolePatient}
)

func newTestService(t *testing.T) (*Service, *reporttest.Store, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := NewLocalStore(dir)
	require.NoError(t, err)
	store := reporttest.NewStore()
	users := schedtest.NewUsers(schedtest.Doctor("doc-1"), schedtest.Patient("pat-1"), schedtest.Patient("pat-2"))
	appts := schedtest.NewAppointments(
		models.Appointment{BaseModel: models.BaseModel{ID: "appt-1"}, DoctorID: "doc-1", PatientID: "pat-1"},
		models.Appointment{BaseModel: models.BaseModel{ID: "appt-2"}, DoctorID: "doc-1", PatientID: "pat-2"},
	)
	return NewService(store, users, appts, files, nil, nil), store, dir
}

func validReport() NewReport {
	return NewReport{
		PatientID:       "pat-1",
		Type:            "Blood Test",
		Title:           "Complete blood count",
		Date:            time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		Findings:        "Hemoglobin within normal range.\nWhite cell count slightly elevated.",
		Recommendations: "Repeat in three months.",
	}
}

func TestCreateReportWritesPDFAndRecord(t *testing.T) {
	svc, store, dir := newTestService(t)

	report, err := svc.Create(context.Background(), doctor, validReport())
	require.NoError(t, err)

	assert.Equal(t, models.ReportCompleted, report.Status)
	assert.Equal(t, "doc-1", report.DoctorID)
	assert.Equal(t, "pat-1/"+report.ID+".pdf", report.PdfPath)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(report.PdfPath)))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, err = store.Get(context.Background(), report.ID)
	assert.NoError(t, err)
}

func TestCreateReportRemovesFileWhenRecordFails(t *testing.T) {
	svc, store, dir := newTestService(t)
	store.CreateErr = errors.New("deadlock")

	_, err := svc.Create(context.Background(), doctor, validReport())
	var se *apperr.StorageError
	require.ErrorAs(t, err, &se)

	entries, err := os.ReadDir(filepath.Join(dir, "pat-1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateReportValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, patient, validReport())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	cases := map[string]func(*NewReport){
		"patientId": func(r *NewReport) { r.PatientID = "" },
		"type":      func(r *NewReport) { r.Type = " " },
		"title":     func(r *NewReport) { r.Title = "" },
		"findings":  func(r *NewReport) { r.Findings = "" },
	}
	for field, mutate := range cases {
		req := validReport()
		mutate(&req)
		_, err := svc.Create(ctx, doctor, req)
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve, field)
		assert.Equal(t, field, ve.Field)
	}

	req := validReport()
	req.PatientID = "doc-1"
	_, err = svc.Create(ctx, doctor, req)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "patientId", ve.Field)
}

func TestCreateReportChecksAppointment(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	ref := func(id string) *string { return &id }

	req := validReport()
	req.AppointmentID = ref("appt-1")
	report, err := svc.Create(ctx, doctor, req)
	require.NoError(t, err)
	require.NotNil(t, report.AppointmentID)
	assert.Equal(t, "appt-1", *report.AppointmentID)

	req.AppointmentID = ref("  ")
	report, err = svc.Create(ctx, doctor, req)
	require.NoError(t, err)
	assert.Nil(t, report.AppointmentID)

	for name, id := range map[string]string{"unknown": "appt-404", "other patient": "appt-2"} {
		req := validReport()
		req.AppointmentID = ref(id)
		_, err := svc.Create(ctx, doctor, req)
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve, name)
		assert.Equal(t, "appointmentId", ve.Field, name)
	}
}

func TestReportVisibilityAndReview(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	report, err := svc.Create(ctx, doctor, validReport())
	require.NoError(t, err)

	_, err = svc.Get(ctx, models.Actor{UserID: "pat-2", Role: models.RolePatient}, report.ID)
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, rc, err := svc.OpenPDF(ctx, patient, report.ID)
	require.NoError(t, err)
	head := make([]byte, 5)
	_, err = io.ReadFull(rc, head)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-", string(head))

	_, err = svc.MarkReviewed(ctx, doctor, report.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	reviewed, err := svc.MarkReviewed(ctx, patient, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportReviewed, reviewed.Status)

	again, err := svc.MarkReviewed(ctx, patient, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportReviewed, again.Status)

	mine, err := svc.List(ctx, patient, models.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	others, err := svc.List(ctx, models.Actor{UserID: "pat-2", Role: models.RolePatient}, models.ReportFilter{PatientID: "pat-1"})
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, "../outside.pdf", []byte("x")))
	assert.Error(t, store.Save(ctx, "/etc/passwd", []byte("x")))

	_, err = store.Open(ctx, "missing.pdf")
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.NoError(t, store.Remove(ctx, "missing.pdf"))
}

func TestRenderIncludesOptionalFields(t *testing.T) {
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	p := schedtest.Patient("pat-1")
	p.DateOfBirth = &dob
	d := schedtest.Doctor("doc-1")
	d.Specialty = "Cardiology"

	data, err := Render(Document{
		Report:  &models.Report{Title: "Echo – résumé", Type: "Imaging", Findings: "Normal", Date: dob},
		Patient: &p,
		Doctor:  &d,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}
