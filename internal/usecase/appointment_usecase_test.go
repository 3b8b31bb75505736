package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"health-companion-api/config"
	"health-companion-api/internal/delivery/dto"
	"health-companion-api/internal/delivery/http/middleware"
	"health-companion-api/internal/domain/entity"
	"health-companion-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// fakeAppointmentRepo implements repository.AppointmentRepository with
// overridable behavior per method. The *gorm.DB argument is ignored.
type fakeAppointmentRepo struct {
	createFn              func(appointment *entity.Appointment) error
	findByIDFn            func(id uuid.UUID) (*entity.Appointment, error)
	findByUserIDFn        func(userID uuid.UUID) ([]entity.Appointment, error)
	findBookedSlotsFn     func(doctorName string, day time.Time) ([]string, error)
	findActiveBySlotFn    func(doctorName string, day time.Time, timeSlot string, excludeID *uuid.UUID) (*entity.Appointment, error)
	markCancelledFn       func(id uuid.UUID) (int64, error)
	updateScheduleFn      func(appointment *entity.Appointment) (int64, error)
	setMeetLinkIfAbsentFn func(id uuid.UUID, link string) (int64, error)

	createCalls      int
	setMeetLinkCalls int
}

func (f *fakeAppointmentRepo) Create(_ *gorm.DB, appointment *entity.Appointment) error {
	f.createCalls++
	if f.createFn != nil {
		return f.createFn(appointment)
	}
	appointment.ID = uuid.New()
	return nil
}

func (f *fakeAppointmentRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(id)
	}
	return nil, nil
}

func (f *fakeAppointmentRepo) FindByUserID(_ *gorm.DB, userID uuid.UUID) ([]entity.Appointment, error) {
	if f.findByUserIDFn != nil {
		return f.findByUserIDFn(userID)
	}
	return nil, nil
}

func (f *fakeAppointmentRepo) FindBookedSlots(_ *gorm.DB, doctorName string, day time.Time) ([]string, error) {
	if f.findBookedSlotsFn != nil {
		return f.findBookedSlotsFn(doctorName, day)
	}
	return nil, nil
}

func (f *fakeAppointmentRepo) FindActiveBySlot(_ *gorm.DB, doctorName string, day time.Time, timeSlot string, excludeID *uuid.UUID) (*entity.Appointment, error) {
	if f.findActiveBySlotFn != nil {
		return f.findActiveBySlotFn(doctorName, day, timeSlot, excludeID)
	}
	return nil, nil
}

func (f *fakeAppointmentRepo) MarkCancelled(_ *gorm.DB, id uuid.UUID) (int64, error) {
	if f.markCancelledFn != nil {
		return f.markCancelledFn(id)
	}
	return 1, nil
}

func (f *fakeAppointmentRepo) UpdateSchedule(_ *gorm.DB, appointment *entity.Appointment) (int64, error) {
	if f.updateScheduleFn != nil {
		return f.updateScheduleFn(appointment)
	}
	return 1, nil
}

func (f *fakeAppointmentRepo) SetMeetLinkIfAbsent(_ *gorm.DB, id uuid.UUID, link string) (int64, error) {
	f.setMeetLinkCalls++
	if f.setMeetLinkIfAbsentFn != nil {
		return f.setMeetLinkIfAbsentFn(id, link)
	}
	return 1, nil
}

func (f *fakeAppointmentRepo) MarkCompletedBefore(_ *gorm.DB, day time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeAppointmentRepo) FindScheduledFrom(_ *gorm.DB, day time.Time, limit, offset int) ([]entity.Appointment, error) {
	return nil, nil
}

// fakeSlotReserver records reservation traffic and can be primed to reject.
type fakeSlotReserver struct {
	reserveErr   error
	reserveCalls []string
	releaseCalls []string
}

func (f *fakeSlotReserver) Reserve(_ context.Context, doctorName string, day time.Time, timeSlot string) error {
	f.reserveCalls = append(f.reserveCalls, doctorName+"|"+day.Format("2006-01-02")+"|"+timeSlot)
	return f.reserveErr
}

func (f *fakeSlotReserver) Release(_ context.Context, doctorName string, day time.Time, timeSlot string) {
	f.releaseCalls = append(f.releaseCalls, doctorName+"|"+day.Format("2006-01-02")+"|"+timeSlot)
}

type fakeAuditService struct {
	actions []string
}

func (f *fakeAuditService) LogAction(_ context.Context, _ *gorm.DB, _ *uuid.UUID, action string, _ entity.JSON) error {
	f.actions = append(f.actions, action)
	return nil
}

func testDB() *gorm.DB {
	return &gorm.DB{Config: &gorm.Config{}, Statement: &gorm.Statement{}}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type usecaseFixture struct {
	usecase  AppointmentUsecase
	repo     *fakeAppointmentRepo
	reserver *fakeSlotReserver
	audit    *fakeAuditService
	userID   uuid.UUID
	ctx      context.Context
}

func newFixture() *usecaseFixture {
	repo := &fakeAppointmentRepo{}
	reserver := &fakeSlotReserver{}
	audit := &fakeAuditService{}
	userID := uuid.New()

	uc := NewAppointmentUsecase(
		testDB(),
		testLogger(),
		repo,
		reserver,
		audit,
		entity.NewDoctorCatalog(entity.DefaultDoctors),
		config.MeetConfig{BaseURL: "https://meet.google.com/lookup"},
	)

	return &usecaseFixture{
		usecase:  uc,
		repo:     repo,
		reserver: reserver,
		audit:    audit,
		userID:   userID,
		ctx:      middleware.ContextWithUserID(context.Background(), userID),
	}
}

func futureDay(days int) time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour).Add(time.Duration(days) * 24 * time.Hour)
}

func bookRequest(date string) *dto.BookAppointmentRequest {
	return &dto.BookAppointmentRequest{
		DoctorName:     "Dr. Naresh",
		Specialization: "Cardiology",
		Date:           date,
		TimeSlot:       "10:00 AM",
		PatientName:    "Jane Roe",
		PatientPhone:   "9876543210",
		Reason:         "checkup",
	}
}

func TestCheckAvailabilityListsFreeSlots(t *testing.T) {
	f := newFixture()
	f.repo.findBookedSlotsFn = func(string, time.Time) ([]string, error) {
		return []string{"09:00 AM", "01:00 PM"}, nil
	}

	resp, err := f.usecase.CheckAvailability(f.ctx, &dto.CheckAvailabilityRequest{
		DoctorName: "Dr. Naresh",
		Date:       "2026-09-10",
	})

	assert.NoError(t, err)
	assert.True(t, resp.Available)
	assert.Len(t, resp.AvailableSlots, 7)
	assert.NotContains(t, resp.AvailableSlots, "09:00 AM")
	assert.NotContains(t, resp.AvailableSlots, "01:00 PM")
}

func TestCheckAvailabilityForTakenSlot(t *testing.T) {
	f := newFixture()
	f.repo.findBookedSlotsFn = func(string, time.Time) ([]string, error) {
		return []string{"10:00 AM"}, nil
	}

	resp, err := f.usecase.CheckAvailability(f.ctx, &dto.CheckAvailabilityRequest{
		DoctorName: "Dr. Naresh",
		Date:       "2026-09-10",
		TimeSlot:   "10:00 AM",
	})

	assert.NoError(t, err)
	assert.False(t, resp.Available)
	// Alternatives still come back alongside the rejection
	assert.Len(t, resp.AvailableSlots, 8)
}

func TestCheckAvailabilityRejectsUnknownSlot(t *testing.T) {
	f := newFixture()

	_, err := f.usecase.CheckAvailability(f.ctx, &dto.CheckAvailabilityRequest{
		DoctorName: "Dr. Naresh",
		Date:       "2026-09-10",
		TimeSlot:   "08:00 AM",
	})

	assert.ErrorIs(t, err, ErrUnknownTimeSlot)
}

func TestCheckAvailabilityRejectsBadDate(t *testing.T) {
	f := newFixture()

	_, err := f.usecase.CheckAvailability(f.ctx, &dto.CheckAvailabilityRequest{
		DoctorName: "Dr. Naresh",
		Date:       "10-09-2026",
	})

	assert.ErrorIs(t, err, ErrInvalidDateFormat)
}

func TestBookSuccess(t *testing.T) {
	f := newFixture()

	resp, err := f.usecase.Book(f.ctx, bookRequest("2026-09-10"))

	assert.NoError(t, err)
	assert.Equal(t, "Dr. Naresh", resp.DoctorName)
	assert.Equal(t, "10:00 AM", resp.TimeSlot)
	assert.Equal(t, "2026-09-10", resp.Date)
	assert.Equal(t, string(entity.AppointmentStatusScheduled), resp.Status)
	assert.Equal(t, f.userID, resp.UserID)
	assert.Len(t, f.reserver.reserveCalls, 1)
	assert.Contains(t, f.audit.actions, entity.AuditActionAppointmentBook)
}

func TestBookRejectedByCacheReservation(t *testing.T) {
	f := newFixture()
	f.reserver.reserveErr = service.ErrSlotReserved
	f.repo.findBookedSlotsFn = func(string, time.Time) ([]string, error) {
		return []string{"10:00 AM"}, nil
	}

	_, err := f.usecase.Book(f.ctx, bookRequest("2026-09-10"))

	var conflict *SlotConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.NotContains(t, conflict.AvailableSlots, "10:00 AM")
	// The insert never ran
	assert.Equal(t, 0, f.repo.createCalls)
}

func TestBookConflictFromUniqueIndex(t *testing.T) {
	f := newFixture()
	f.repo.createFn = func(*entity.Appointment) error {
		return gorm.ErrDuplicatedKey
	}
	f.repo.findBookedSlotsFn = func(string, time.Time) ([]string, error) {
		return []string{"10:00 AM"}, nil
	}

	_, err := f.usecase.Book(f.ctx, bookRequest("2026-09-10"))

	var conflict *SlotConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Len(t, conflict.AvailableSlots, 8)
	// The reservation mirrors a genuinely occupied slot, so no compensation
	assert.Empty(t, f.reserver.releaseCalls)
}

func TestBookStorageFailureReleasesReservation(t *testing.T) {
	f := newFixture()
	f.repo.createFn = func(*entity.Appointment) error {
		return errors.New("connection reset")
	}

	_, err := f.usecase.Book(f.ctx, bookRequest("2026-09-10"))

	assert.Error(t, err)
	assert.Len(t, f.reserver.releaseCalls, 1)
}

func TestBookProceedsWhenCacheIsDown(t *testing.T) {
	f := newFixture()
	f.reserver.reserveErr = errors.New("redis: connection refused")

	resp, err := f.usecase.Book(f.ctx, bookRequest("2026-09-10"))

	assert.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
}

func TestBookRejectsUnknownSlot(t *testing.T) {
	f := newFixture()
	req := bookRequest("2026-09-10")
	req.TimeSlot = "11:30 AM"

	_, err := f.usecase.Book(f.ctx, req)

	assert.ErrorIs(t, err, ErrUnknownTimeSlot)
}

func TestGetMyAppointmentsOrdering(t *testing.T) {
	f := newFixture()
	dayOne := futureDay(1)
	dayTwo := futureDay(2)
	f.repo.findByUserIDFn = func(userID uuid.UUID) ([]entity.Appointment, error) {
		return []entity.Appointment{
			{ID: uuid.New(), UserID: userID, Date: dayTwo, TimeSlot: "09:00 AM", Status: entity.AppointmentStatusScheduled},
			{ID: uuid.New(), UserID: userID, Date: dayOne, TimeSlot: "01:00 PM", Status: entity.AppointmentStatusScheduled},
			{ID: uuid.New(), UserID: userID, Date: dayOne, TimeSlot: "09:00 AM", Status: entity.AppointmentStatusScheduled},
		}, nil
	}

	resp, err := f.usecase.GetMyAppointments(f.ctx)

	assert.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	// Same-day entries sort by slot-table position, not lexically
	assert.Equal(t, "09:00 AM", resp.Appointments[0].TimeSlot)
	assert.Equal(t, "01:00 PM", resp.Appointments[1].TimeSlot)
	assert.Equal(t, dayTwo.Format("2006-01-02"), resp.Appointments[2].Date)
}

func TestCancelSuccess(t *testing.T) {
	f := newFixture()
	apptID := uuid.New()
	f.repo.findByIDFn = func(id uuid.UUID) (*entity.Appointment, error) {
		return &entity.Appointment{
			ID: apptID, UserID: f.userID, DoctorName: "Dr. Siva",
			Date: futureDay(3), TimeSlot: "11:00 AM",
			Status: entity.AppointmentStatusScheduled,
		}, nil
	}

	err := f.usecase.Cancel(f.ctx, apptID)

	assert.NoError(t, err)
	assert.Len(t, f.reserver.releaseCalls, 1)
	assert.Contains(t, f.audit.actions, entity.AuditActionAppointmentCancel)
}

func TestCancelNotFound(t *testing.T) {
	f := newFixture()

	err := f.usecase.Cancel(f.ctx, uuid.New())

	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCancelForeignAppointment(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFn = func(id uuid.UUID) (*entity.Appointment, error) {
		return &entity.Appointment{
			ID: id, UserID: uuid.New(),
			Date: futureDay(3), TimeSlot: "11:00 AM",
			Status: entity.AppointmentStatusScheduled,
		}, nil
	}

	err := f.usecase.Cancel(f.ctx, uuid.New())

	assert.ErrorIs(t, err, ErrAppointmentNotOwned)
}

func TestCancelTwice(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFn = func(id uuid.UUID) (*entity.Appointment, error) {
		return &entity.Appointment{
			ID: id, UserID: f.userID,
			Date: futureDay(3), TimeSlot: "11:00 AM",
			Status: entity.AppointmentStatusCancelled,
		}, nil
	}

	err := f.usecase.Cancel(f.ctx, uuid.New())

	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestCancelPastAppointment(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFn = func(id uuid.UUID) (*entity.Appointment, error) {
		return &entity.Appointment{
			ID: id, UserID: f.userID,
			Date: futureDay(-2), TimeSlot: "11:00 AM",
			Status: entity.AppointmentStatusScheduled,
		}, nil
	}

	err := f.usecase.Cancel(f.ctx, uuid.New())

	assert.ErrorIs(t, err, ErrPastAppointment)
}

func TestCancelLosesRace(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFn = func(id uuid.UUID) (*entity.Appointment, error) {
		return &entity.Appointment{
			ID: id, UserID: f.userID,
			Date: futureDay(3), TimeSlot: "11:00 AM",
			Status: entity.AppointmentStatusScheduled,
		}, nil
	}
	// A concurrent cancel flipped the status between read and update
	f.repo.markCancelledFn = func(uuid.UUID) (int64, error) {
		return 0, nil
	}

	err := f.usecase.Cancel(f.ctx, uuid.New())

	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Empty(t, f.reserver.releaseCalls)
}

func rescheduleFixture(f *usecaseFixture, apptID uuid.UUID) {
	appointment := &entity.Appointment{
		ID: apptID, UserID: f.userID, DoctorName: "Dr. Raju",
		Specialization: "Neurology",
		Date:           futureDay(2), TimeSlot: "02:00 PM",
		PatientName: "Jane Roe", PatientPhone: "9876543210",
		Status: entity.AppointmentStatusScheduled,
	}
	f.repo.findByIDFn = func(id uuid.UUID) (*entity.Appointment, error) {
		return appointment, nil
	}
}

func TestRescheduleSuccess(t *testing.T) {
	f := newFixture()
	apptID := uuid.New()
	rescheduleFixture(f, apptID)
	newDate := futureDay(5).Format("2006-01-02")

	resp, err := f.usecase.Reschedule(f.ctx, apptID, &dto.RescheduleAppointmentRequest{
		Date:     newDate,
		TimeSlot: "03:00 PM",
	})

	assert.NoError(t, err)
	assert.Equal(t, "03:00 PM", resp.TimeSlot)
	// Old slot freed, new slot claimed
	assert.Len(t, f.reserver.reserveCalls, 1)
	assert.Len(t, f.reserver.releaseCalls, 1)
	assert.Contains(t, f.audit.actions, entity.AuditActionAppointmentReschedule)
}

func TestRescheduleToOwnSlot(t *testing.T) {
	f := newFixture()
	apptID := uuid.New()
	rescheduleFixture(f, apptID)
	f.repo.findActiveBySlotFn = func(_ string, _ time.Time, _ string, excludeID *uuid.UUID) (*entity.Appointment, error) {
		// The conflict search must exclude the appointment itself
		assert.NotNil(t, excludeID)
		assert.Equal(t, apptID, *excludeID)
		return nil, nil
	}

	_, err := f.usecase.Reschedule(f.ctx, apptID, &dto.RescheduleAppointmentRequest{
		Date:     futureDay(2).Format("2006-01-02"),
		TimeSlot: "02:00 PM",
	})

	assert.NoError(t, err)
	// Tuple unchanged, cache untouched
	assert.Empty(t, f.reserver.reserveCalls)
	assert.Empty(t, f.reserver.releaseCalls)
}

func TestRescheduleConflict(t *testing.T) {
	f := newFixture()
	apptID := uuid.New()
	rescheduleFixture(f, apptID)
	f.repo.findActiveBySlotFn = func(string, time.Time, string, *uuid.UUID) (*entity.Appointment, error) {
		return &entity.Appointment{ID: uuid.New(), Status: entity.AppointmentStatusScheduled}, nil
	}

	_, err := f.usecase.Reschedule(f.ctx, apptID, &dto.RescheduleAppointmentRequest{
		Date:     futureDay(5).Format("2006-01-02"),
		TimeSlot: "03:00 PM",
	})

	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
}

func TestRescheduleLosesIndexRace(t *testing.T) {
	f := newFixture()
	apptID := uuid.New()
	rescheduleFixture(f, apptID)
	f.repo.updateScheduleFn = func(*entity.Appointment) (int64, error) {
		return 0, gorm.ErrDuplicatedKey
	}

	_, err := f.usecase.Reschedule(f.ctx, apptID, &dto.RescheduleAppointmentRequest{
		Date:     futureDay(5).Format("2006-01-02"),
		TimeSlot: "03:00 PM",
	})

	assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
}

func TestRescheduleCancelledAppointment(t *testing.T) {
	f := newFixture()
	apptID := uuid.New()
	f.repo.findByIDFn = func(id uuid.UUID) (*entity.Appointment, error) {
		return &entity.Appointment{
			ID: apptID, UserID: f.userID,
			Date: futureDay(2), TimeSlot: "02:00 PM",
			Status: entity.AppointmentStatusCancelled,
		}, nil
	}

	_, err := f.usecase.Reschedule(f.ctx, apptID, &dto.RescheduleAppointmentRequest{
		Date:     futureDay(5).Format("2006-01-02"),
		TimeSlot: "03:00 PM",
	})

	assert.ErrorIs(t, err, ErrAppointmentNotScheduled)
}

func TestEnsureMeetLinkGeneratesOnce(t *testing.T) {
	f := newFixture()
	apptID := uuid.New()
	stored := ""
	f.repo.findByIDFn = func(id uuid.UUID) (*entity.Appointment, error) {
		return &entity.Appointment{
			ID: apptID, UserID: f.userID,
			Date: futureDay(1), TimeSlot: "10:00 AM",
			Status:   entity.AppointmentStatusScheduled,
			MeetLink: stored,
		}, nil
	}
	f.repo.setMeetLinkIfAbsentFn = func(_ uuid.UUID, link string) (int64, error) {
		stored = link
		return 1, nil
	}

	first, err := f.usecase.EnsureMeetLink(f.ctx, apptID)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.MeetLink, "https://meet.google.com/lookup/"))
	assert.True(t, strings.HasSuffix(first.MeetLink, "?authuser=0"))

	second, err := f.usecase.EnsureMeetLink(f.ctx, apptID)
	assert.NoError(t, err)
	assert.Equal(t, first.MeetLink, second.MeetLink)
	assert.Equal(t, 1, f.repo.setMeetLinkCalls)
}

func TestEnsureMeetLinkConcurrentWinner(t *testing.T) {
	f := newFixture()
	apptID := uuid.New()
	calls := 0
	f.repo.findByIDFn = func(id uuid.UUID) (*entity.Appointment, error) {
		calls++
		link := ""
		if calls > 1 {
			// By the second read another request has stored its link
			link = "https://meet.google.com/lookup/settled?authuser=0"
		}
		return &entity.Appointment{
			ID: apptID, UserID: f.userID,
			Date: futureDay(1), TimeSlot: "10:00 AM",
			Status:   entity.AppointmentStatusScheduled,
			MeetLink: link,
		}, nil
	}
	f.repo.setMeetLinkIfAbsentFn = func(uuid.UUID, string) (int64, error) {
		return 0, nil
	}

	resp, err := f.usecase.EnsureMeetLink(f.ctx, apptID)

	assert.NoError(t, err)
	assert.Equal(t, "https://meet.google.com/lookup/settled?authuser=0", resp.MeetLink)
}

func TestEnsureMeetLinkForeignAppointment(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFn = func(id uuid.UUID) (*entity.Appointment, error) {
		return &entity.Appointment{ID: id, UserID: uuid.New(), Status: entity.AppointmentStatusScheduled}, nil
	}

	_, err := f.usecase.EnsureMeetLink(f.ctx, uuid.New())

	assert.ErrorIs(t, err, ErrAppointmentNotOwned)
}

func TestGetDoctors(t *testing.T) {
	f := newFixture()

	resp, err := f.usecase.GetDoctors(f.ctx)

	assert.NoError(t, err)
	assert.Equal(t, 8, resp.Total)
	assert.Equal(t, "Dr. Naresh", resp.Doctors[0].Name)
}
