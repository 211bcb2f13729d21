// Package capacity serialises seat consumption per trip.  A distributed
// mutex in the realtime store orders `acquire → read remaining → append →
// finalize` across replicas, and the finalize barrier absorbs the workbook's
// formula recomputation latency before the next booking may read remaining.
package capacity

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fengtai-hotel/shuttle-reservation/internal/repository"
	"github.com/fengtai-hotel/shuttle-reservation/internal/store"
)

// Timing defaults.  LockTTL bounds how long a crashed holder can wedge a
// trip; the finalize deadline trades a rare stale remaining-count for never
// leaking the lock.
const (
	DefaultLockTTL      = 30 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
	DefaultDeadline     = 10 * time.Second
)

// Service implements trip-lock acquisition and capacity lookups.
type Service struct {
	rt   *store.Realtime
	caps *repository.CapacityRepo

	LockTTL      time.Duration
	PollInterval time.Duration
	Deadline     time.Duration
}

func NewService(rt *store.Realtime, caps *repository.CapacityRepo) *Service {
	return &Service{
		rt:           rt,
		caps:         caps,
		LockTTL:      DefaultLockTTL,
		PollInterval: DefaultPollInterval,
		Deadline:     DefaultDeadline,
	}
}

// LockID names the mutex for a trip: one lock per (date, departure time),
// shared by all stations of that departure.
func LockID(date, hm string) string { return date + "_" + hm }

// Acquire tries to take the trip lock without waiting.  It returns an opaque
// holder token on success and ErrLockContention when another replica holds a
// live lock; the caller surfaces "busy, retry" immediately.  A lock whose
// acquired_at is older than LockTTL is stale and gets taken over.
func (s *Service) Acquire(ctx context.Context, date, hm string) (string, error) {
	holder := uuid.NewString()
	rec := store.LockRecord{
		Holder:     holder,
		AcquiredAt: time.Now().UnixMilli(),
		Date:       date,
		Time:       hm,
	}
	lockID := LockID(date, hm)

	cur, raw, err := s.rt.GetLock(ctx, lockID)
	if err != nil {
		return "", err
	}
	if cur == nil {
		won, err := s.rt.CreateLock(ctx, lockID, rec)
		if err != nil {
			return "", err
		}
		if won {
			return holder, nil
		}
		return "", repository.ErrLockContention
	}
	if rec.AcquiredAt-cur.AcquiredAt > s.LockTTL.Milliseconds() {
		won, err := s.rt.ReplaceLock(ctx, lockID, raw, rec)
		if err != nil {
			return "", err
		}
		if won {
			return holder, nil
		}
	}
	return "", repository.ErrLockContention
}

// Release removes the lock iff it is still owned by holder.  A lock taken
// over by someone else after the TTL is left alone.
func (s *Service) Release(ctx context.Context, lockID, holder string) error {
	cur, raw, err := s.rt.GetLock(ctx, lockID)
	if err != nil || cur == nil {
		return err
	}
	if cur.Holder != holder {
		return nil
	}
	_, err = s.rt.DeleteLockIf(ctx, lockID, raw)
	return err
}

// Remaining reads the current remaining-seats count for a trip's capacity
// station, fresh from the workbook.
func (s *Service) Remaining(ctx context.Context, direction, date, hm, station string) (int, error) {
	return s.caps.Remaining(ctx, direction, date, hm, station)
}

// FinalizeAndRelease polls the capacity cell until the workbook formula has
// caught up with a just-written booking (value ≤ expectedRemaining), then
// releases the trip lock.  The hard deadline releases the lock even when the
// formula lags; the next booking may then read a slightly stale remaining
// count, which under-reports free seats but can never oversell.  Blocking;
// run it on the worker pool.
func (s *Service) FinalizeAndRelease(lockID, holder, direction, date, hm, station string, expectedRemaining int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Deadline)
	defer cancel()
	defer func() {
		relCtx, relCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer relCancel()
		if err := s.Release(relCtx, lockID, holder); err != nil {
			log.Printf("capacity: release %s failed: %v", lockID, err)
		}
	}()

	for {
		n, err := s.caps.Remaining(ctx, direction, date, hm, station)
		if err == nil && n <= expectedRemaining {
			return
		}
		select {
		case <-ctx.Done():
			log.Printf("capacity: finalize barrier for %s timed out (expected <= %d)", lockID, expectedRemaining)
			return
		case <-time.After(s.PollInterval):
		}
	}
}
