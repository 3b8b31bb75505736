package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Appointment represents a booked consultation slot.
// At most one scheduled appointment may exist per (doctor_name, date, time_slot);
// the partial unique index in the schema enforces this.
type Appointment struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	DoctorName     string            `gorm:"type:varchar(100);not null;index:idx_appointments_doctor_day" json:"doctor_name"`
	Specialization string            `gorm:"type:varchar(100);not null" json:"specialization"`
	Date           time.Time         `gorm:"type:date;not null;index:idx_appointments_doctor_day" json:"date"`
	TimeSlot       string            `gorm:"type:varchar(20);not null" json:"time_slot"`
	PatientName    string            `gorm:"type:varchar(255);not null" json:"patient_name"`
	PatientPhone   string            `gorm:"type:varchar(20);not null" json:"patient_phone"`
	Reason         string            `gorm:"type:text" json:"reason,omitempty"`
	Status         AppointmentStatus `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	MeetLink       string            `gorm:"type:text" json:"meet_link,omitempty"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsScheduled checks if the appointment is still active
func (a *Appointment) IsScheduled() bool {
	return a.Status == AppointmentStatusScheduled
}

// IsCancelled checks if the appointment has been cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// IsOwnedBy checks whether the appointment was created by the given user
func (a *Appointment) IsOwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}

// IsPast reports whether the appointment day is strictly before today.
// Dates are stored truncated to midnight UTC, so comparison is day-granular.
func (a *Appointment) IsPast(now time.Time) bool {
	today := now.UTC().Truncate(24 * time.Hour)
	return a.Date.Before(today)
}
