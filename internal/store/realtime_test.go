package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fengtai-hotel/shuttle-reservation/internal/model"
	"github.com/fengtai-hotel/shuttle-reservation/internal/store"
	"github.com/fengtai-hotel/shuttle-reservation/internal/store/storetest"
)

func newRealtime(t *testing.T) (*store.Realtime, *storetest.Memory) {
	t.Helper()
	kv := storetest.New()
	rt, err := store.NewRealtime(context.Background(), kv)
	if err != nil {
		t.Fatalf("NewRealtime: %v", err)
	}
	return rt, kv
}

func TestEnsuresRoots(t *testing.T) {
	_, kv := newRealtime(t)
	snap := kv.Snapshot()
	if _, ok := snap["/sheet_locks"]; !ok {
		t.Error("expected /sheet_locks root to exist")
	}
	if _, ok := snap["/booking_seq"]; !ok {
		t.Error("expected /booking_seq root to exist")
	}
}

func TestLockCreateAndReplace(t *testing.T) {
	rt, _ := newRealtime(t)
	ctx := context.Background()

	won, err := rt.CreateLock(ctx, "2025-12-24_18:30", store.LockRecord{Holder: "h1", AcquiredAt: 1000})
	if err != nil || !won {
		t.Fatalf("expected create to win, got won=%v err=%v", won, err)
	}
	won, err = rt.CreateLock(ctx, "2025-12-24_18:30", store.LockRecord{Holder: "h2", AcquiredAt: 2000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if won {
		t.Fatal("second create must lose")
	}

	rec, raw, err := rt.GetLock(ctx, "2025-12-24_18:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Holder != "h1" {
		t.Fatalf("expected h1 to hold the lock, got %q", rec.Holder)
	}
	won, err = rt.ReplaceLock(ctx, "2025-12-24_18:30", raw, store.LockRecord{Holder: "h2", AcquiredAt: 2000})
	if err != nil || !won {
		t.Fatalf("expected replace with matching raw to win, got won=%v err=%v", won, err)
	}
	// stale raw no longer matches
	won, err = rt.ReplaceLock(ctx, "2025-12-24_18:30", raw, store.LockRecord{Holder: "h3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if won {
		t.Fatal("replace with stale raw must lose")
	}
}

func TestDeleteLockIf(t *testing.T) {
	rt, _ := newRealtime(t)
	ctx := context.Background()
	if _, err := rt.CreateLock(ctx, "l1", store.LockRecord{Holder: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, raw, _ := rt.GetLock(ctx, "l1")

	if ok, _ := rt.DeleteLockIf(ctx, "l1", raw+"x"); ok {
		t.Fatal("delete with wrong raw must not remove the lock")
	}
	if ok, err := rt.DeleteLockIf(ctx, "l1", raw); err != nil || !ok {
		t.Fatalf("expected delete to win, got ok=%v err=%v", ok, err)
	}
	if rec, _, _ := rt.GetLock(ctx, "l1"); rec != nil {
		t.Fatal("lock should be gone")
	}
}

func TestNextBookingSeqMonotonic(t *testing.T) {
	rt, _ := newRealtime(t)
	ctx := context.Background()

	var mu sync.Mutex
	seen := map[int64]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := rt.NextBookingSeq(ctx, "251224")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			if seen[n] {
				t.Errorf("duplicate sequence %d", n)
			}
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	for i := int64(1); i <= 20; i++ {
		if !seen[i] {
			t.Fatalf("sequence gap: %d never issued", i)
		}
	}
	// other days are independent
	if n, _ := rt.NextBookingSeq(ctx, "251225"); n != 1 {
		t.Errorf("expected fresh day to start at 1, got %d", n)
	}
}

func TestSystemEnabledDefaultsTrue(t *testing.T) {
	rt, _ := newRealtime(t)
	ctx := context.Background()
	on, err := rt.SystemEnabled(ctx)
	if err != nil || !on {
		t.Fatalf("expected enabled by default, got on=%v err=%v", on, err)
	}
	if err := rt.SetSystemEnabled(ctx, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if on, _ := rt.SystemEnabled(ctx); on {
		t.Error("expected disabled after SetSystemEnabled(false)")
	}
}

func TestAdvanceStationMonotonic(t *testing.T) {
	rt, _ := newRealtime(t)
	ctx := context.Background()
	dt := "2025/12/24 18:30"

	for _, station := range []int{1, 2, 3} {
		ok, err := rt.AdvanceStation(ctx, dt, station)
		if err != nil || !ok {
			t.Fatalf("advance to %d: ok=%v err=%v", station, ok, err)
		}
	}
	ok, err := rt.AdvanceStation(ctx, dt, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("station pointer must never move backward")
	}
	if cur, _ := rt.CurrentStation(ctx, dt); cur != 3 {
		t.Errorf("expected station 3, got %d", cur)
	}
	// re-reporting the current station is idempotent
	if ok, _ := rt.AdvanceStation(ctx, dt, 3); !ok {
		t.Error("re-reporting the same station should succeed")
	}
}

func TestTripNavRoundTrip(t *testing.T) {
	rt, _ := newRealtime(t)
	ctx := context.Background()
	nav := model.TripNav{ShareURL: "https://maps.example/s/abc", Stops: []string{"Hotel", "Train Station"}, StartedAt: "2025-12-24 18:30:00"}
	if err := rt.SetTripNav(ctx, "2025/12/24 18:30", nav); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := rt.TripNav(ctx, "2025/12/24 18:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ShareURL != nav.ShareURL || len(got.Stops) != 2 {
		t.Errorf("unexpected nav round trip: %+v", got)
	}
	if missing, _ := rt.TripNav(ctx, "2025/12/25 09:00"); missing != nil {
		t.Error("expected nil nav for unknown trip")
	}
}

func TestDriverLocation(t *testing.T) {
	rt, _ := newRealtime(t)
	ctx := context.Background()
	loc := model.DriverLocation{Lat: 25.05, Lng: 121.61, Timestamp: 1735000000000, TripID: "2025/12/24 18:30"}
	if err := rt.SetDriverLocation(ctx, "driver-a", loc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := rt.DriverLocation(ctx, "driver-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Lat != loc.Lat || got.TripID != loc.TripID {
		t.Errorf("unexpected location: %+v", got)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	kv := storetest.New()
	rt, err := store.NewRealtime(context.Background(), kv)
	if err != nil {
		t.Fatalf("NewRealtime: %v", err)
	}
	kv.Err = fmt.Errorf("%w: boom", store.ErrUnavailable)
	if _, err := rt.NextBookingSeq(context.Background(), "251224"); err == nil {
		t.Fatal("expected error to propagate")
	}
}
