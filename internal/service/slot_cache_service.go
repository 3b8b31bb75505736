package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"health-companion-api/internal/domain/entity"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrSlotReserved is returned when the requested slot is already taken in the cache
var ErrSlotReserved = errors.New("slot is already reserved")

// reserveSlotScript atomically claims a slot inside the per-(doctor, day) set.
// Redis Go client automatically uses EVALSHA after the first call, so the
// script body is only sent once.
//
// Logic:
// 1. SADD slot into the day set
// 2. If newly added → refresh TTL and return 1 (reserved)
// 3. If already a member → return 0 (conflict)
var reserveSlotScript = redis.NewScript(`
	local added = redis.call('SADD', KEYS[1], ARGV[1])
	if added == 1 then
		redis.call('EXPIRE', KEYS[1], ARGV[2])
	end
	return added
`)

const (
	// Redis key prefix for booked-slot sets
	slotSetKeyPrefix = "appointments:booked:"

	// Batch size for startup sync
	syncBatchSize = 500
)

// SlotReserver is the reservation fast path consumed by the booking usecase.
// Reservations are advisory: the partial unique index on the appointments
// table stays authoritative, the cache only rejects most losers before they
// reach Postgres.
type SlotReserver interface {
	Reserve(ctx context.Context, doctorName string, day time.Time, timeSlot string) error
	Release(ctx context.Context, doctorName string, day time.Time, timeSlot string)
}

// SlotCacheService mirrors the active slot occupancy into Redis sets so that
// concurrent booking attempts for the same tuple are serialized cheaply.
type SlotCacheService struct {
	db          *gorm.DB
	redisClient *redis.Client
	log         *logrus.Logger
}

func NewSlotCacheService(db *gorm.DB, redisClient *redis.Client, log *logrus.Logger) *SlotCacheService {
	return &SlotCacheService{
		db:          db,
		redisClient: redisClient,
		log:         log,
	}
}

// Reserve atomically claims (doctorName, day, timeSlot) in the cache.
// Returns ErrSlotReserved when another booking already holds it. Any other
// error means Redis is unavailable; callers fall through to the database
// index in that case.
func (s *SlotCacheService) Reserve(ctx context.Context, doctorName string, day time.Time, timeSlot string) error {
	key := slotSetKey(doctorName, day)
	ttl := int(slotSetTTL(day).Seconds())

	added, err := reserveSlotScript.Run(ctx, s.redisClient, []string{key}, timeSlot, ttl).Int()
	if err != nil {
		return fmt.Errorf("reserve slot %s %s: %w", key, timeSlot, err)
	}
	if added == 0 {
		return ErrSlotReserved
	}
	return nil
}

// Release frees a cached reservation. Used both as compensation when the DB
// insert fails and when an appointment is cancelled or moved. Failures are
// logged, not returned: the set expires on its own and the DB index still
// guards the invariant.
func (s *SlotCacheService) Release(ctx context.Context, doctorName string, day time.Time, timeSlot string) {
	key := slotSetKey(doctorName, day)
	if err := s.redisClient.SRem(ctx, key, timeSlot).Err(); err != nil {
		s.log.Warnf("Failed to release cached slot %s %s (non-fatal): %+v", key, timeSlot, err)
	}
}

// SyncOnStartup rebuilds the booked-slot sets from the database. Should be
// called before accepting traffic so the fast path does not reject slots
// freed while the process was down.
func (s *SlotCacheService) SyncOnStartup(ctx context.Context) error {
	s.log.Info("Rebuilding slot cache from database...")
	startTime := time.Now()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		s.log.Warnf("Redis is not available, skipping slot cache sync: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	offset := 0
	totalSynced := 0

	for {
		var appointments []entity.Appointment
		err := s.db.WithContext(ctx).
			Where("status = ? AND date >= ?", entity.AppointmentStatusScheduled, today).
			Order("id ASC").
			Limit(syncBatchSize).
			Offset(offset).
			Find(&appointments).Error
		if err != nil {
			return fmt.Errorf("query scheduled appointments at offset %d: %w", offset, err)
		}

		if len(appointments) == 0 {
			if offset == 0 {
				s.log.Info("No scheduled appointments found for slot cache sync")
			}
			break
		}

		// New pipeline per batch keeps memory bounded
		pipe := s.redisClient.TxPipeline()
		for _, apt := range appointments {
			key := slotSetKey(apt.DoctorName, apt.Date)
			pipe.SAdd(ctx, key, apt.TimeSlot)
			pipe.Expire(ctx, key, slotSetTTL(apt.Date))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("pipeline exec at offset %d: %w", offset, err)
		}

		totalSynced += len(appointments)
		if len(appointments) < syncBatchSize {
			break
		}
		offset += syncBatchSize

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	s.log.Infof("Slot cache sync completed: %d appointments in %v", totalSynced, time.Since(startTime))
	return nil
}

func slotSetKey(doctorName string, day time.Time) string {
	return fmt.Sprintf("%s%s:%s", slotSetKeyPrefix, doctorName, day.UTC().Format("2006-01-02"))
}

// slotSetTTL keeps the set alive until the end of the booked day, with a
// floor of one hour so same-day sets do not expire mid-request.
func slotSetTTL(day time.Time) time.Duration {
	ttl := time.Until(day.UTC().Add(24 * time.Hour))
	if ttl < time.Hour {
		ttl = time.Hour
	}
	return ttl
}
