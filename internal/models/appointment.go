package models

import (
	"strings"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// allowedTransitions is the full lifecycle. Completed and cancelled are terminal.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusScheduled, StatusConfirmed, StatusCancelled},
	StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// ParseAppointmentStatus accepts any casing of a known status.
func ParseAppointmentStatus(s string) (AppointmentStatus, bool) {
	st := AppointmentStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further transitions are possible.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment represents a scheduled medical appointment
type Appointment struct {
	BaseModel
	PatientID    string            `gorm:"size:36;index" json:"patientId"`
	DoctorID     string            `gorm:"size:36;index:idx_doctor_date_time" json:"doctorId"`
	DateTime     time.Time         `gorm:"index:idx_doctor_date_time;not null" json:"dateTime"`
	Duration     int               `gorm:"not null;default:30" json:"duration"` // minutes
	Status       AppointmentStatus `gorm:"size:20;default:'pending';index" json:"status"`
	Type         string            `gorm:"size:50" json:"type"`
	Reason       string            `gorm:"size:255" json:"reason"`
	Symptoms     string            `gorm:"type:text" json:"symptoms,omitempty"`
	Notes        string            `gorm:"type:text" json:"notes,omitempty"`
	DoctorNotes  string            `gorm:"type:text" json:"doctorNotes,omitempty"`
	CancelReason string            `gorm:"size:255" json:"cancelReason,omitempty"`

	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

// Length returns the appointment duration.
func (a *Appointment) Length() time.Duration {
	return time.Duration(a.Duration) * time.Minute
}

// EndTime is the exclusive end of the appointment.
func (a *Appointment) EndTime() time.Time {
	return a.DateTime.Add(a.Length())
}

// Blocks reports whether the appointment still occupies its time window.
func (a *Appointment) Blocks() bool {
	return a.Status != StatusCancelled
}

// Overlaps reports whether [start, start+length) intersects this appointment's
// half-open window. Back-to-back windows do not overlap.
func (a *Appointment) Overlaps(start time.Time, length time.Duration) bool {
	return start.Before(a.EndTime()) && a.DateTime.Before(start.Add(length))
}

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	DoctorID  string
	PatientID string
	Status    AppointmentStatus
	From      *time.Time
	To        *time.Time
}
