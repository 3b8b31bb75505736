package repository

import (
	"errors"
	"time"

	"health-companion-api/internal/domain/entity"
	domainRepo "health-companion-api/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return db.Create(appointment).Error
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) FindByUserID(db *gorm.DB, userID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("user_id = ?", userID).
		Order("date ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindBookedSlots(db *gorm.DB, doctorName string, day time.Time) ([]string, error) {
	var slots []string
	err := db.Model(&entity.Appointment{}).
		Where("doctor_name = ? AND date >= ? AND date < ? AND status != ?",
			doctorName, day, day.Add(24*time.Hour), entity.AppointmentStatusCancelled).
		Pluck("time_slot", &slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *appointmentRepository) FindActiveBySlot(db *gorm.DB, doctorName string, day time.Time, timeSlot string, excludeID *uuid.UUID) (*entity.Appointment, error) {
	query := db.Where("doctor_name = ? AND date >= ? AND date < ? AND time_slot = ? AND status = ?",
		doctorName, day, day.Add(24*time.Hour), timeSlot, entity.AppointmentStatusScheduled)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	var appointment entity.Appointment
	err := query.First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

// MarkCancelled atomically cancels an appointment ONLY while it is still
// scheduled. Returns affected rows: 1 = success, 0 = already cancelled or
// completed (prevents double-cancel race).
func (r *appointmentRepository) MarkCancelled(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, entity.AppointmentStatusScheduled).
		Update("status", entity.AppointmentStatusCancelled)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) UpdateSchedule(db *gorm.DB, appointment *entity.Appointment) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", appointment.ID, entity.AppointmentStatusScheduled).
		Updates(map[string]interface{}{
			"doctor_name":    appointment.DoctorName,
			"specialization": appointment.Specialization,
			"date":           appointment.Date,
			"time_slot":      appointment.TimeSlot,
			"patient_name":   appointment.PatientName,
			"patient_phone":  appointment.PatientPhone,
			"reason":         appointment.Reason,
		})
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) SetMeetLinkIfAbsent(db *gorm.DB, id uuid.UUID, link string) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND (meet_link IS NULL OR meet_link = '')", id).
		Update("meet_link", link)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) MarkCompletedBefore(db *gorm.DB, day time.Time) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("status = ? AND date < ?", entity.AppointmentStatusScheduled, day).
		Update("status", entity.AppointmentStatusCompleted)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) FindScheduledFrom(db *gorm.DB, day time.Time, limit, offset int) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("status = ? AND date >= ?", entity.AppointmentStatusScheduled, day).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}
