package converter

import (
	"health-companion-api/internal/delivery/dto"
	"health-companion-api/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to its response DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:             appointment.ID,
		UserID:         appointment.UserID,
		DoctorName:     appointment.DoctorName,
		Specialization: appointment.Specialization,
		Date:           appointment.Date.Format("2006-01-02"),
		TimeSlot:       appointment.TimeSlot,
		PatientName:    appointment.PatientName,
		PatientPhone:   appointment.PatientPhone,
		Reason:         appointment.Reason,
		Status:         string(appointment.Status),
		MeetLink:       appointment.MeetLink,
		CreatedAt:      appointment.CreatedAt,
		UpdatedAt:      appointment.UpdatedAt,
	}
}

// AppointmentsToResponses converts a slice of Appointment entities to DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i, appointment := range appointments {
		resp := AppointmentToResponse(&appointment)
		if resp != nil {
			responses[i] = *resp
		}
	}
	return responses
}
