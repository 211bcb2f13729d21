package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/fengtai-hotel/shuttle-reservation/internal/model"
	"github.com/fengtai-hotel/shuttle-reservation/internal/sheet"
)

// Capacity worksheet headers (header on row 1).
const (
	CapColDirection = "direction"
	CapColDate      = "date"
	CapColTime      = "departure_hm"
	CapColStation   = "station"
	CapColRemaining = "remaining_seats"
)

// CapacityRepo locates trip rows on the capacity worksheet and reads their
// formula-maintained remaining-seats cell.  Finding the row may use the
// cached matrix; reading the cell always goes to the workbook so the caller
// observes formula recomputation.
type CapacityRepo struct {
	gw        *sheet.Gateway
	worksheet string
}

func NewCapacityRepo(gw *sheet.Gateway, worksheet string) *CapacityRepo {
	return &CapacityRepo{gw: gw, worksheet: worksheet}
}

// Remaining returns the current remaining-seat count for a trip's capacity
// station.  ErrNotFound means the trip is not scheduled.
func (r *CapacityRepo) Remaining(ctx context.Context, direction, date, hm, station string) (int, error) {
	row, err := r.find(ctx, direction, date, hm, station)
	if err != nil {
		return 0, err
	}
	headers, err := r.gw.HeaderMap(ctx, r.worksheet, 1)
	if err != nil {
		return 0, err
	}
	col, ok := headers[CapColRemaining]
	if !ok {
		return 0, ErrNotFound
	}
	// fresh read of just this row; the cached matrix may predate a write
	cells, err := r.gw.ReadRow(ctx, r.worksheet, row.Row)
	if err != nil {
		return 0, err
	}
	if col > len(cells) {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(cells[col-1]))
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (r *CapacityRepo) find(ctx context.Context, direction, date, hm, station string) (model.CapacityRow, error) {
	values, err := r.gw.Values(ctx, r.worksheet)
	if err != nil {
		return model.CapacityRow{}, err
	}
	headers, err := r.gw.HeaderMap(ctx, r.worksheet, 1)
	if err != nil {
		return model.CapacityRow{}, err
	}
	cell := func(row []string, name string) string {
		col, ok := headers[name]
		if !ok || col > len(row) {
			return ""
		}
		return strings.TrimSpace(row[col-1])
	}
	for i := 1; i < len(values); i++ {
		row := values[i]
		if cell(row, CapColDirection) != direction ||
			cell(row, CapColDate) != date ||
			cell(row, CapColTime) != hm ||
			cell(row, CapColStation) != station {
			continue
		}
		return model.CapacityRow{
			Row:         i + 1,
			Direction:   direction,
			Date:        date,
			DepartureHM: hm,
			Station:     station,
		}, nil
	}
	return model.CapacityRow{}, ErrNotFound
}
