package models

import (
	"strings"
	"time"
)

// ReportStatus represents the review state of a medical report
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportCompleted ReportStatus = "completed"
	ReportReviewed  ReportStatus = "reviewed"
)

// ParseReportStatus accepts any casing of a known report status.
func ParseReportStatus(s string) (ReportStatus, bool) {
	st := ReportStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case ReportPending, ReportCompleted, ReportReviewed:
		return st, true
	}
	return "", false
}

// Report is a doctor-authored medical report with its generated PDF.
type Report struct {
	BaseModel
	PatientID       string       `gorm:"size:36;index" json:"patientId"`
	DoctorID        string       `gorm:"size:36;index" json:"doctorId"`
	AppointmentID   *string      `gorm:"size:36;index" json:"appointmentId,omitempty"`
	Type            string       `gorm:"size:100;not null" json:"type"`
	Title           string       `gorm:"size:255;not null" json:"title"`
	Date            time.Time    `json:"date"`
	Status          ReportStatus `gorm:"size:20;default:'completed'" json:"status"`
	Findings        string       `gorm:"type:text" json:"findings"`
	Recommendations string       `gorm:"type:text" json:"recommendations,omitempty"`
	PdfPath         string       `gorm:"size:512" json:"pdfPath"`

	Patient *User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"-"`
}

// ReportFilter narrows report listings.
type ReportFilter struct {
	DoctorID  string
	PatientID string
}
