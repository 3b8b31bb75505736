package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"health-companion-api/config"
	"health-companion-api/internal/converter"
	"health-companion-api/internal/delivery/dto"
	"health-companion-api/internal/delivery/http/middleware"
	"health-companion-api/internal/domain/entity"
	"health-companion-api/internal/domain/repository"
	"health-companion-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrAppointmentNotOwned     = errors.New("appointment does not belong to you")
	ErrAppointmentNotScheduled = errors.New("appointment is no longer scheduled")
	ErrAlreadyCancelled        = errors.New("appointment is already cancelled")
	ErrPastAppointment         = errors.New("appointment date is in the past")
	ErrSlotAlreadyBooked       = errors.New("selected slot is not available")
	ErrUnknownTimeSlot         = errors.New("unknown time slot")
	ErrInvalidDateFormat       = errors.New("invalid date format, use YYYY-MM-DD")
)

// SlotConflictError rejects a booking whose slot is taken and carries the
// remaining free slots for the same doctor and day so the caller can offer
// alternatives without a second round trip.
type SlotConflictError struct {
	AvailableSlots []string
}

func (e *SlotConflictError) Error() string {
	return "this slot is already booked"
}

type AppointmentUsecase interface {
	CheckAvailability(ctx context.Context, req *dto.CheckAvailabilityRequest) (*dto.AvailabilityResponse, error)
	Book(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error)
	GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error)
	Cancel(ctx context.Context, appointmentID uuid.UUID) error
	Reschedule(ctx context.Context, appointmentID uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error)
	EnsureMeetLink(ctx context.Context, appointmentID uuid.UUID) (*dto.MeetLinkResponse, error)
	GetDoctors(ctx context.Context) (*dto.DoctorListResponse, error)
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	slotCache       service.SlotReserver
	auditService    service.AuditService
	catalog         *entity.DoctorCatalog
	meetCfg         config.MeetConfig
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	slotCache service.SlotReserver,
	auditService service.AuditService,
	catalog *entity.DoctorCatalog,
	meetCfg config.MeetConfig,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		slotCache:       slotCache,
		auditService:    auditService,
		catalog:         catalog,
		meetCfg:         meetCfg,
	}
}

// CheckAvailability reports whether the requested slot is free and always
// returns the full free-slot list for the doctor on that day, in slot-table
// order. Read-only; the booking path re-checks at write time.
func (u *appointmentUsecase) CheckAvailability(ctx context.Context, req *dto.CheckAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	if req.TimeSlot != "" && !entity.IsValidTimeSlot(req.TimeSlot) {
		return nil, ErrUnknownTimeSlot
	}

	day, err := parseDay(req.Date)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}

	booked, err := u.appointmentRepo.FindBookedSlots(u.db.WithContext(ctx), req.DoctorName, day)
	if err != nil {
		u.log.Warnf("Failed to find booked slots for %s on %s: %+v", req.DoctorName, req.Date, err)
		return nil, err
	}

	free := entity.FreeSlots(booked)

	available := len(free) > 0
	message := "Slots are available"
	if req.TimeSlot != "" {
		available = !slotTaken(booked, req.TimeSlot)
		if available {
			message = "Slot is available"
		} else {
			message = "Selected slot is not available"
		}
	}

	return &dto.AvailabilityResponse{
		Available:      available,
		Message:        message,
		AvailableSlots: free,
	}, nil
}

// Book creates a scheduled appointment after re-checking the slot at write
// time. The check and the insert are effectively atomic: a Redis reservation
// rejects most concurrent losers up front, and the partial unique index on
// active appointments is the authoritative guard. Exactly one of two
// simultaneous requests for the same tuple succeeds.
func (u *appointmentUsecase) Book(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	if !entity.IsValidTimeSlot(req.TimeSlot) {
		return nil, ErrUnknownTimeSlot
	}

	day, err := parseDay(req.Date)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}

	// Fast path: claim the slot in Redis. A failed claim is a definitive
	// conflict; a Redis outage only drops the fast path, the DB index still
	// guards the invariant.
	reserved := false
	if err := u.slotCache.Reserve(ctx, req.DoctorName, day, req.TimeSlot); err != nil {
		if errors.Is(err, service.ErrSlotReserved) {
			return nil, u.slotConflict(ctx, req.DoctorName, day)
		}
		u.log.Warnf("Slot reservation fast path unavailable, relying on DB index: %+v", err)
	} else {
		reserved = true
	}

	appointment := &entity.Appointment{
		UserID:         userID,
		DoctorName:     req.DoctorName,
		Specialization: req.Specialization,
		Date:           day,
		TimeSlot:       req.TimeSlot,
		PatientName:    req.PatientName,
		PatientPhone:   req.PatientPhone,
		Reason:         req.Reason,
		Status:         entity.AppointmentStatusScheduled,
	}

	if err := u.appointmentRepo.Create(u.db.WithContext(ctx), appointment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The slot was genuinely occupied and the cache just missed it;
			// the reservation now mirrors reality, so keep it.
			return nil, u.slotConflict(ctx, req.DoctorName, day)
		}

		u.log.Errorf("Failed to insert appointment, compensating slot cache: %+v", err)
		if reserved {
			u.slotCache.Release(ctx, req.DoctorName, day, req.TimeSlot)
		}
		return nil, err
	}

	u.auditService.LogAction(ctx, u.db.WithContext(ctx), &userID, entity.AuditActionAppointmentBook, entity.JSON{
		"appointment_id": appointment.ID.String(),
		"doctor_name":    appointment.DoctorName,
		"date":           req.Date,
		"time_slot":      appointment.TimeSlot,
	})

	u.log.Infof("Appointment booked: id=%s, doctor=%s, date=%s, slot=%s",
		appointment.ID, appointment.DoctorName, req.Date, appointment.TimeSlot)
	return converter.AppointmentToResponse(appointment), nil
}

// GetMyAppointments returns the caller's appointments ordered by date, then
// by slot-table position within the day.
func (u *appointmentUsecase) GetMyAppointments(ctx context.Context) (*dto.AppointmentListResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appointments, err := u.appointmentRepo.FindByUserID(u.db.WithContext(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for user %s: %+v", userID, err)
		return nil, err
	}

	sort.SliceStable(appointments, func(i, j int) bool {
		if !appointments[i].Date.Equal(appointments[j].Date) {
			return appointments[i].Date.Before(appointments[j].Date)
		}
		return entity.SlotIndex(appointments[i].TimeSlot) < entity.SlotIndex(appointments[j].TimeSlot)
	})

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// Cancel transitions a scheduled appointment to cancelled. Cancelling twice
// is an explicit error, not a silent no-op. The status flip is guarded by a
// conditional update, so a concurrent double cancel loses cleanly.
func (u *appointmentUsecase) Cancel(ctx context.Context, appointmentID uuid.UUID) error {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return errors.New("user not found in context")
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return err
	}
	if appointment == nil {
		return ErrAppointmentNotFound
	}
	if !appointment.IsOwnedBy(userID) {
		return ErrAppointmentNotOwned
	}
	if appointment.IsCancelled() {
		return ErrAlreadyCancelled
	}
	if appointment.IsPast(time.Now()) {
		return ErrPastAppointment
	}

	affected, err := u.appointmentRepo.MarkCancelled(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to cancel appointment %s: %+v", appointmentID, err)
		return err
	}
	if affected == 0 {
		return ErrAlreadyCancelled
	}

	u.slotCache.Release(ctx, appointment.DoctorName, appointment.Date, appointment.TimeSlot)

	u.auditService.LogAction(ctx, u.db.WithContext(ctx), &userID, entity.AuditActionAppointmentCancel, entity.JSON{
		"appointment_id": appointmentID.String(),
		"doctor_name":    appointment.DoctorName,
		"time_slot":      appointment.TimeSlot,
	})

	u.log.Infof("Appointment cancelled: id=%s, doctor=%s", appointmentID, appointment.DoctorName)
	return nil
}

// Reschedule moves a scheduled appointment to a new date/slot. The conflict
// search excludes the appointment's own id, so moving to the slot it already
// holds always succeeds. Optional fields refresh booking metadata when given.
func (u *appointmentUsecase) Reschedule(ctx context.Context, appointmentID uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	if !entity.IsValidTimeSlot(req.TimeSlot) {
		return nil, ErrUnknownTimeSlot
	}

	newDay, err := parseDay(req.Date)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !appointment.IsOwnedBy(userID) {
		return nil, ErrAppointmentNotOwned
	}
	if !appointment.IsScheduled() {
		return nil, ErrAppointmentNotScheduled
	}
	if appointment.IsPast(time.Now()) {
		return nil, ErrPastAppointment
	}

	oldDoctor, oldDay, oldSlot := appointment.DoctorName, appointment.Date, appointment.TimeSlot

	appointment.Date = newDay
	appointment.TimeSlot = req.TimeSlot
	if req.DoctorName != "" {
		appointment.DoctorName = req.DoctorName
	}
	if req.Specialization != "" {
		appointment.Specialization = req.Specialization
	}
	if req.PatientName != "" {
		appointment.PatientName = req.PatientName
	}
	if req.PatientPhone != "" {
		appointment.PatientPhone = req.PatientPhone
	}
	if req.Reason != "" {
		appointment.Reason = req.Reason
	}

	// Pre-check for a friendly rejection; the unique index below settles races
	existing, err := u.appointmentRepo.FindActiveBySlot(u.db.WithContext(ctx),
		appointment.DoctorName, newDay, appointment.TimeSlot, &appointment.ID)
	if err != nil {
		u.log.Warnf("Failed to check slot for reschedule of %s: %+v", appointmentID, err)
		return nil, err
	}
	if existing != nil {
		return nil, ErrSlotAlreadyBooked
	}

	affected, err := u.appointmentRepo.UpdateSchedule(u.db.WithContext(ctx), appointment)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlotAlreadyBooked
		}
		u.log.Warnf("Failed to reschedule appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAppointmentNotScheduled
	}

	tupleChanged := oldDoctor != appointment.DoctorName || !oldDay.Equal(newDay) || oldSlot != appointment.TimeSlot
	if tupleChanged {
		if err := u.slotCache.Reserve(ctx, appointment.DoctorName, newDay, appointment.TimeSlot); err != nil && !errors.Is(err, service.ErrSlotReserved) {
			u.log.Warnf("Failed to cache rescheduled slot (non-fatal): %+v", err)
		}
		u.slotCache.Release(ctx, oldDoctor, oldDay, oldSlot)
	}

	u.auditService.LogAction(ctx, u.db.WithContext(ctx), &userID, entity.AuditActionAppointmentReschedule, entity.JSON{
		"appointment_id": appointmentID.String(),
		"doctor_name":    appointment.DoctorName,
		"date":           req.Date,
		"time_slot":      appointment.TimeSlot,
	})

	// Reload so timestamps reflect the update; fall back to the local copy
	updated, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil || updated == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointmentID, err)
		return converter.AppointmentToResponse(appointment), nil
	}

	u.log.Infof("Appointment rescheduled: id=%s, date=%s, slot=%s", appointmentID, req.Date, appointment.TimeSlot)
	return converter.AppointmentToResponse(updated), nil
}

// EnsureMeetLink returns the appointment's meeting link, generating and
// persisting one on first request. Repeated calls return the identical link.
func (u *appointmentUsecase) EnsureMeetLink(ctx context.Context, appointmentID uuid.UUID) (*dto.MeetLinkResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}

	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if !appointment.IsOwnedBy(userID) {
		return nil, ErrAppointmentNotOwned
	}

	if appointment.MeetLink != "" {
		return &dto.MeetLinkResponse{MeetLink: appointment.MeetLink}, nil
	}

	link := u.generateMeetLink()

	affected, err := u.appointmentRepo.SetMeetLinkIfAbsent(u.db.WithContext(ctx), appointmentID, link)
	if err != nil {
		u.log.Warnf("Failed to store meet link for %s: %+v", appointmentID, err)
		return nil, err
	}
	if affected == 0 {
		// A concurrent request won; return the stored link
		stored, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, ErrAppointmentNotFound
		}
		return &dto.MeetLinkResponse{MeetLink: stored.MeetLink}, nil
	}

	u.auditService.LogAction(ctx, u.db.WithContext(ctx), &userID, entity.AuditActionAppointmentMeetLink, entity.JSON{
		"appointment_id": appointmentID.String(),
	})

	return &dto.MeetLinkResponse{MeetLink: link}, nil
}

// GetDoctors returns the configured provider directory
func (u *appointmentUsecase) GetDoctors(ctx context.Context) (*dto.DoctorListResponse, error) {
	doctors := u.catalog.All()
	responses := make([]dto.DoctorResponse, len(doctors))
	for i, d := range doctors {
		responses[i] = dto.DoctorResponse{
			Name:           d.Name,
			Specialization: d.Specialization,
			Shift:          d.Shift,
		}
	}
	return &dto.DoctorListResponse{
		Doctors: responses,
		Total:   len(responses),
	}, nil
}

// slotConflict builds the conflict error carrying current alternatives.
// A storage failure while collecting them still reports the conflict,
// just without the list.
func (u *appointmentUsecase) slotConflict(ctx context.Context, doctorName string, day time.Time) error {
	booked, err := u.appointmentRepo.FindBookedSlots(u.db.WithContext(ctx), doctorName, day)
	if err != nil {
		u.log.Warnf("Failed to collect alternative slots for %s: %+v", doctorName, err)
		return &SlotConflictError{AvailableSlots: []string{}}
	}
	return &SlotConflictError{AvailableSlots: entity.FreeSlots(booked)}
}

// generateMeetLink builds an opaque meeting URL: millisecond timestamp plus
// a random component. The format is not a compatibility surface, only
// uniqueness matters.
func (u *appointmentUsecase) generateMeetLink() string {
	randomBytes := make([]byte, 4)
	rand.Read(randomBytes)
	code := fmt.Sprintf("%d-%x", time.Now().UnixMilli(), randomBytes)
	return fmt.Sprintf("%s/%s?authuser=0", strings.TrimRight(u.meetCfg.BaseURL, "/"), code)
}

// parseDay parses a YYYY-MM-DD date into midnight UTC
func parseDay(date string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, err
	}
	return day.UTC().Truncate(24 * time.Hour), nil
}

func slotTaken(booked []string, slot string) bool {
	for _, s := range booked {
		if s == slot {
			return true
		}
	}
	return false
}
