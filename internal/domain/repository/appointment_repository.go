package repository

import (
	"time"

	"health-companion-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindByUserID(db *gorm.DB, userID uuid.UUID) ([]entity.Appointment, error)
	// FindBookedSlots returns the time slots occupied for a doctor on the given
	// day. Cancelled appointments do not occupy slots.
	FindBookedSlots(db *gorm.DB, doctorName string, day time.Time) ([]string, error)
	// FindActiveBySlot returns the scheduled appointment holding the exact
	// (doctor, day, slot) tuple, excluding excludeID when non-nil.
	FindActiveBySlot(db *gorm.DB, doctorName string, day time.Time, timeSlot string, excludeID *uuid.UUID) (*entity.Appointment, error)
	// MarkCancelled flips status to cancelled only while still scheduled.
	// Returns affected rows: 0 means the appointment already left the
	// scheduled state.
	MarkCancelled(db *gorm.DB, id uuid.UUID) (int64, error)
	// UpdateSchedule rewrites booking fields of a still-scheduled appointment.
	// A unique-index violation on the new slot tuple propagates as
	// gorm.ErrDuplicatedKey.
	UpdateSchedule(db *gorm.DB, appointment *entity.Appointment) (int64, error)
	// SetMeetLinkIfAbsent persists the link only when none is stored yet.
	// Returns affected rows: 0 means another call already won.
	SetMeetLinkIfAbsent(db *gorm.DB, id uuid.UUID, link string) (int64, error)
	// MarkCompletedBefore completes every scheduled appointment dated
	// strictly before the given day.
	MarkCompletedBefore(db *gorm.DB, day time.Time) (int64, error)
	// FindScheduledFrom pages through scheduled appointments dated on or
	// after the given day, ordered by id.
	FindScheduledFrom(db *gorm.DB, day time.Time, limit, offset int) ([]entity.Appointment, error)
}
