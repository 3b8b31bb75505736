package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CheckAvailabilityRequest struct {
	DoctorName string `json:"doctor_name" validate:"required"`
	Date       string `json:"date" validate:"required"` // Format: YYYY-MM-DD
	TimeSlot   string `json:"time_slot" validate:"omitempty"`
}

type BookAppointmentRequest struct {
	DoctorName     string `json:"doctor_name" validate:"required"`
	Specialization string `json:"specialization" validate:"required"`
	Date           string `json:"date" validate:"required"` // Format: YYYY-MM-DD
	TimeSlot       string `json:"time_slot" validate:"required"`
	PatientName    string `json:"patient_name" validate:"required"`
	PatientPhone   string `json:"patient_phone" validate:"required,min=10,max=20"`
	Reason         string `json:"reason" validate:"omitempty"`
}

type RescheduleAppointmentRequest struct {
	Date           string `json:"date" validate:"required"` // Format: YYYY-MM-DD
	TimeSlot       string `json:"time_slot" validate:"required"`
	DoctorName     string `json:"doctor_name" validate:"omitempty"`
	Specialization string `json:"specialization" validate:"omitempty"`
	PatientName    string `json:"patient_name" validate:"omitempty"`
	PatientPhone   string `json:"patient_phone" validate:"omitempty,min=10,max=20"`
	Reason         string `json:"reason" validate:"omitempty"`
}

// Response DTOs

type AvailabilityResponse struct {
	Available      bool     `json:"available"`
	Message        string   `json:"message"`
	AvailableSlots []string `json:"available_slots"`
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	DoctorName     string    `json:"doctor_name"`
	Specialization string    `json:"specialization"`
	Date           string    `json:"date"`
	TimeSlot       string    `json:"time_slot"`
	PatientName    string    `json:"patient_name"`
	PatientPhone   string    `json:"patient_phone"`
	Reason         string    `json:"reason,omitempty"`
	Status         string    `json:"status"`
	MeetLink       string    `json:"meet_link,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type MeetLinkResponse struct {
	MeetLink string `json:"meet_link"`
}

type DoctorResponse struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Shift          string `json:"shift"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int              `json:"total"`
}
