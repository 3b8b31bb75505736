package service

import (
	"sync"
	"sync/atomic"
	"time"

	"health-companion-api/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CompletionSweepService periodically marks past-dated scheduled appointments
// as completed. Appointments never leave scheduled on their own, so without
// the sweep the completed state would be unreachable.
type CompletionSweepService struct {
	db              *gorm.DB
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	interval        time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// NewCompletionSweepService creates the sweep and starts its background
// goroutine. Call Stop() during graceful shutdown.
func NewCompletionSweepService(
	db *gorm.DB,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	interval time.Duration,
) *CompletionSweepService {
	svc := &CompletionSweepService{
		db:              db,
		log:             log,
		appointmentRepo: appointmentRepo,
		interval:        interval,
		stopChan:        make(chan struct{}),
	}

	svc.wg.Add(1)
	go svc.run()

	return svc
}

// Stop gracefully shuts down the sweep. Safe to call multiple times.
func (s *CompletionSweepService) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("CompletionSweepService stopped")
	}
}

func (s *CompletionSweepService) run() {
	defer s.wg.Done()

	// Sweep once at startup, then on every tick
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			return
		}
	}
}

func (s *CompletionSweepService) sweep() {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	affected, err := s.appointmentRepo.MarkCompletedBefore(s.db, today)
	if err != nil {
		s.log.Errorf("Completion sweep failed: %+v", err)
		return
	}
	if affected > 0 {
		s.log.Infof("Completion sweep: %d appointment(s) marked completed", affected)
	}
}
