package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fengtai-hotel/shuttle-reservation/internal/model"
)

// LockRecord is the JSON value stored at /sheet_locks/<lock_id>.
type LockRecord struct {
	Holder     string `json:"holder"`
	AcquiredAt int64  `json:"acquired_at"` // unix ms
	Date       string `json:"date"`
	Time       string `json:"time"`
}

// Realtime exposes typed accessors for the three subtrees the service owns.
type Realtime struct {
	kv KV
}

// NewRealtime wraps a KV and makes sure the /sheet_locks and /booking_seq
// roots exist so the trees are visible to operators browsing the store.
func NewRealtime(ctx context.Context, kv KV) (*Realtime, error) {
	r := &Realtime{kv: kv}
	for _, root := range []string{"/sheet_locks", "/booking_seq"} {
		if _, ok, err := kv.Get(ctx, root); err != nil {
			return nil, err
		} else if !ok {
			if err := kv.Set(ctx, root, "{}"); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func lockPath(lockID string) string { return "/sheet_locks/" + lockID }

// GetLock reads the lock record for a trip.  The raw stored string is
// returned alongside so callers can compare-and-swap against exactly what
// they read.
func (r *Realtime) GetLock(ctx context.Context, lockID string) (*LockRecord, string, error) {
	raw, ok, err := r.kv.Get(ctx, lockPath(lockID))
	if err != nil || !ok {
		return nil, "", err
	}
	var rec LockRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// an unreadable record is treated as stale garbage, claimable by swap
		return &LockRecord{}, raw, nil
	}
	return &rec, raw, nil
}

// CreateLock installs a lock record only when no record exists.
func (r *Realtime) CreateLock(ctx context.Context, lockID string, rec LockRecord) (bool, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return r.kv.CompareAndSet(ctx, lockPath(lockID), nil, string(b))
}

// ReplaceLock swaps a known stale record for a fresh one.
func (r *Realtime) ReplaceLock(ctx context.Context, lockID, oldRaw string, rec LockRecord) (bool, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return r.kv.CompareAndSet(ctx, lockPath(lockID), &oldRaw, string(b))
}

// DeleteLockIf removes the lock only while it still holds the given raw
// value; a record taken over by another holder after TTL stays untouched.
func (r *Realtime) DeleteLockIf(ctx context.Context, lockID, raw string) (bool, error) {
	return r.kv.CompareAndDelete(ctx, lockPath(lockID), raw)
}

// NextBookingSeq atomically advances the daily counter and returns the new
// value.  day is the YYMMDD Taipei-date key.
func (r *Realtime) NextBookingSeq(ctx context.Context, day string) (int64, error) {
	return r.kv.Increment(ctx, "/booking_seq/"+day)
}

// SystemEnabled reads the global circuit-breaker flag.  An unset flag means
// the system is enabled.
func (r *Realtime) SystemEnabled(ctx context.Context) (bool, error) {
	raw, ok, err := r.kv.Get(ctx, "/driver/system_enabled")
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return raw == "true", nil
}

func (r *Realtime) SetSystemEnabled(ctx context.Context, enabled bool) error {
	return r.kv.Set(ctx, "/driver/system_enabled", strconv.FormatBool(enabled))
}

func tripPath(mainDatetime, leaf string) string {
	return "/driver/trips/" + mainDatetime + "/" + leaf
}

// TripStatus reads the driver-reported status of a trip ("" when unset).
func (r *Realtime) TripStatus(ctx context.Context, mainDatetime string) (string, error) {
	raw, _, err := r.kv.Get(ctx, tripPath(mainDatetime, "status"))
	return raw, err
}

func (r *Realtime) SetTripStatus(ctx context.Context, mainDatetime, status string) error {
	return r.kv.Set(ctx, tripPath(mainDatetime, "status"), status)
}

// CurrentStation reads the trip's station pointer (0 when unset).
func (r *Realtime) CurrentStation(ctx context.Context, mainDatetime string) (int, error) {
	raw, ok, err := r.kv.Get(ctx, tripPath(mainDatetime, "current_station"))
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt current_station for %s: %q", mainDatetime, raw)
	}
	return n, nil
}

// AdvanceStation moves the trip's station pointer forward.  The pointer is
// monotonic on the linear station map; an attempt to move it backward reports
// false without writing.  The compare-and-set loop keeps two drivers' updates
// from interleaving.
func (r *Realtime) AdvanceStation(ctx context.Context, mainDatetime string, station int) (bool, error) {
	path := tripPath(mainDatetime, "current_station")
	for {
		raw, ok, err := r.kv.Get(ctx, path)
		if err != nil {
			return false, err
		}
		if !ok {
			won, err := r.kv.CompareAndSet(ctx, path, nil, strconv.Itoa(station))
			if err != nil {
				return false, err
			}
			if won {
				return true, nil
			}
			continue
		}
		cur, _ := strconv.Atoi(raw)
		if station < cur {
			return false, nil
		}
		won, err := r.kv.CompareAndSet(ctx, path, &raw, strconv.Itoa(station))
		if err != nil {
			return false, err
		}
		if won {
			return true, nil
		}
	}
}

// TripNav reads the navigation state of a trip, nil when none is stored.
func (r *Realtime) TripNav(ctx context.Context, mainDatetime string) (*model.TripNav, error) {
	raw, ok, err := r.kv.Get(ctx, tripPath(mainDatetime, "nav"))
	if err != nil || !ok {
		return nil, err
	}
	var nav model.TripNav
	if err := json.Unmarshal([]byte(raw), &nav); err != nil {
		return nil, fmt.Errorf("corrupt nav for %s: %v", mainDatetime, err)
	}
	return &nav, nil
}

func (r *Realtime) SetTripNav(ctx context.Context, mainDatetime string, nav model.TripNav) error {
	b, err := json.Marshal(nav)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, tripPath(mainDatetime, "nav"), string(b))
}

// SetDriverLocation stores the last GPS fix for a driver role.
func (r *Realtime) SetDriverLocation(ctx context.Context, role string, loc model.DriverLocation) error {
	b, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, "/driver/locations/"+role, string(b))
}

// DriverLocation reads the last GPS fix for a role, nil when none reported.
func (r *Realtime) DriverLocation(ctx context.Context, role string) (*model.DriverLocation, error) {
	raw, ok, err := r.kv.Get(ctx, "/driver/locations/"+role)
	if err != nil || !ok {
		return nil, err
	}
	var loc model.DriverLocation
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		return nil, fmt.Errorf("corrupt location for %s: %v", role, err)
	}
	return &loc, nil
}
