package sheet_test

import (
	"context"
	"testing"
	"time"

	"github.com/fengtai-hotel/shuttle-reservation/internal/sheet"
	"github.com/fengtai-hotel/shuttle-reservation/internal/sheet/sheettest"
)

func TestColLetter(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{1, "A"}, {2, "B"}, {26, "Z"}, {27, "AA"}, {28, "AB"}, {52, "AZ"}, {53, "BA"},
	}
	for _, tt := range tests {
		if got := sheet.ColLetter(tt.col); got != tt.want {
			t.Errorf("ColLetter(%d): expected %q, got %q", tt.col, tt.want, got)
		}
	}
}

func TestValuesCached(t *testing.T) {
	fake := sheettest.New()
	fake.Load("main", [][]string{{"a", "b"}})
	gw := sheet.NewGateway(fake, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := gw.Values(ctx, "main"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if fake.Reads != 1 {
		t.Errorf("expected 1 upstream read, got %d", fake.Reads)
	}
}

func TestCacheExpires(t *testing.T) {
	fake := sheettest.New()
	fake.Load("main", [][]string{{"a"}})
	gw := sheet.NewGateway(fake, 10*time.Millisecond)
	ctx := context.Background()

	if _, err := gw.Values(ctx, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := gw.Values(ctx, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.Reads != 2 {
		t.Errorf("expected cache to expire and re-read, got %d reads", fake.Reads)
	}
}

func TestWritesInvalidate(t *testing.T) {
	fake := sheettest.New()
	fake.Load("main", [][]string{{"old"}})
	gw := sheet.NewGateway(fake, time.Minute)
	ctx := context.Background()

	if _, err := gw.Values(ctx, "main"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := gw.Update(ctx, "main", 1, 1, "new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values, err := gw.Values(ctx, "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values[0][0] != "new" {
		t.Errorf("expected post-write read to see %q, got %q", "new", values[0][0])
	}
}

func TestReadRowBypassesCache(t *testing.T) {
	fake := sheettest.New()
	fake.Load("capacity", [][]string{{"hdr"}, {"4"}})
	gw := sheet.NewGateway(fake, time.Minute)
	ctx := context.Background()

	if _, err := gw.Values(ctx, "capacity"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// mutate behind the cache; ReadRow must see it
	fake.SetCell("capacity", 2, 1, "2")
	row, err := gw.ReadRow(ctx, "capacity", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(row) == 0 || row[0] != "2" {
		t.Errorf("expected fresh row value 2, got %v", row)
	}
}

func TestHeaderMap(t *testing.T) {
	fake := sheettest.New()
	fake.Load("main", [][]string{
		{"title row"},
		{"booking_id", " status ", "", "email"},
	})
	gw := sheet.NewGateway(fake, time.Minute)

	m, err := gw.HeaderMap(context.Background(), "main", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["booking_id"] != 1 || m["status"] != 2 || m["email"] != 4 {
		t.Errorf("unexpected header map: %v", m)
	}
	if _, ok := m[""]; ok {
		t.Error("empty headers must be skipped")
	}
}
