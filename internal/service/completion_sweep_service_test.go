package service

import (
	"io"
	"sync/atomic"
	"testing"
	"time"

	"health-companion-api/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type sweepRecordingRepo struct {
	sweeps  atomic.Int64
	lastDay atomic.Value
}

func (r *sweepRecordingRepo) Create(*gorm.DB, *entity.Appointment) error { return nil }
func (r *sweepRecordingRepo) FindByID(*gorm.DB, uuid.UUID) (*entity.Appointment, error) {
	return nil, nil
}
func (r *sweepRecordingRepo) FindByUserID(*gorm.DB, uuid.UUID) ([]entity.Appointment, error) {
	return nil, nil
}
func (r *sweepRecordingRepo) FindBookedSlots(*gorm.DB, string, time.Time) ([]string, error) {
	return nil, nil
}
func (r *sweepRecordingRepo) FindActiveBySlot(*gorm.DB, string, time.Time, string, *uuid.UUID) (*entity.Appointment, error) {
	return nil, nil
}
func (r *sweepRecordingRepo) MarkCancelled(*gorm.DB, uuid.UUID) (int64, error)       { return 0, nil }
func (r *sweepRecordingRepo) UpdateSchedule(*gorm.DB, *entity.Appointment) (int64, error) {
	return 0, nil
}
func (r *sweepRecordingRepo) SetMeetLinkIfAbsent(*gorm.DB, uuid.UUID, string) (int64, error) {
	return 0, nil
}
func (r *sweepRecordingRepo) MarkCompletedBefore(_ *gorm.DB, day time.Time) (int64, error) {
	r.sweeps.Add(1)
	r.lastDay.Store(day)
	return 2, nil
}
func (r *sweepRecordingRepo) FindScheduledFrom(*gorm.DB, time.Time, int, int) ([]entity.Appointment, error) {
	return nil, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestCompletionSweepRunsImmediatelyAndStops(t *testing.T) {
	repo := &sweepRecordingRepo{}

	svc := NewCompletionSweepService(&gorm.DB{Config: &gorm.Config{}, Statement: &gorm.Statement{}}, quietLogger(), repo, time.Hour)
	svc.Stop()

	// The startup sweep ran before Stop returned
	assert.Equal(t, int64(1), repo.sweeps.Load())

	day := repo.lastDay.Load().(time.Time)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	assert.Equal(t, today, day)
}

func TestCompletionSweepStopIsIdempotent(t *testing.T) {
	repo := &sweepRecordingRepo{}
	svc := NewCompletionSweepService(&gorm.DB{Config: &gorm.Config{}, Statement: &gorm.Statement{}}, quietLogger(), repo, time.Hour)

	svc.Stop()
	assert.NotPanics(t, func() { svc.Stop() })
}

func TestCompletionSweepTicks(t *testing.T) {
	repo := &sweepRecordingRepo{}
	svc := NewCompletionSweepService(&gorm.DB{Config: &gorm.Config{}, Statement: &gorm.Statement{}}, quietLogger(), repo, 10*time.Millisecond)
	defer svc.Stop()

	assert.Eventually(t, func() bool {
		return repo.sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}
