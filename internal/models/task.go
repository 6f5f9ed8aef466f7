package models

import (
	"time"
)

// TaskStatus represents the status of a doctor's follow-up task
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskOverdue   TaskStatus = "overdue"
	TaskCompleted TaskStatus = "completed"
)

// Task is a to-do item assigned to a doctor.
type Task struct {
	BaseModel
	DoctorID    string     `gorm:"size:36;index" json:"doctorId"`
	PatientID   *string    `gorm:"size:36" json:"patientId,omitempty"`
	Description string     `gorm:"size:500;not null" json:"description"`
	Status      TaskStatus `gorm:"size:20;default:'pending';index" json:"status"`
	DueDate     time.Time  `gorm:"index" json:"dueDate"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// EffectiveStatus reports a pending task whose due date has passed as overdue.
// The stored status is left untouched.
func (t *Task) EffectiveStatus(now time.Time) TaskStatus {
	if t.Status == TaskPending && t.DueDate.Before(now) {
		return TaskOverdue
	}
	return t.Status
}
