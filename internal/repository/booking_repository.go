package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/fengtai-hotel/shuttle-reservation/internal/model"
	"github.com/fengtai-hotel/shuttle-reservation/internal/sheet"
)

// Column header names of the main worksheet.  Positions are looked up by
// name on every operation because the workbook may be re-ordered by staff;
// a missing optional column simply skips the corresponding write.
const (
	ColBookingID     = "booking_id"
	ColApplyDatetime = "apply_datetime"
	ColStatus        = "status"
	ColName          = "name"
	ColPhone         = "phone"
	ColEmail         = "email"
	ColIdentity      = "identity"
	ColRoomNumber    = "room_number"
	ColCheckInDate   = "check_in_date"
	ColCheckOutDate  = "check_out_date"
	ColDiningDate    = "dining_date"
	ColDirection     = "direction"
	ColDate          = "date"
	ColDepartureHM   = "departure_hm"
	ColPickup        = "pickup"
	ColDropoff       = "dropoff"
	ColTripDisplay   = "trip_display"
	ColTripUnified   = "trip_datetime_unified"
	ColMainDeparture = "main_departure_datetime"
	ColRequestedPax  = "requested_pax"
	ColConfirmedPax  = "confirmed_pax"
	ColPickupIndex   = "pickup_index"
	ColDropoffIndex  = "dropoff_index"
	ColSegments      = "segments"
	ColDeskReview    = "desk_review"
	ColNote          = "note"
	ColLastOpTime    = "last_op_time"
	ColMailStatus    = "mail_status"
	ColRideStatus    = "ride_status"
	ColQRPayload     = "qr_payload"
)

// MainHeaderRow is where the main worksheet keeps its header names (row 1 is
// a human title row in the workbook).
const MainHeaderRow = 2

// BookingRepo reads and writes booking rows on the main worksheet through
// the cached sheet gateway.  It owns no state beyond its configuration; the
// gateway's cache and invalidation give post-write reads their freshness.
type BookingRepo struct {
	gw        *sheet.Gateway
	worksheet string
}

// NewBookingRepo binds the repo to a worksheet name.
func NewBookingRepo(gw *sheet.Gateway, worksheet string) *BookingRepo {
	return &BookingRepo{gw: gw, worksheet: worksheet}
}

// Headers returns the name→column map of the main worksheet.
func (r *BookingRepo) Headers(ctx context.Context) (map[string]int, error) {
	return r.gw.HeaderMap(ctx, r.worksheet, MainHeaderRow)
}

// List returns every booking row below the header, in sheet order.  The
// result is served from the gateway's short-TTL cache.
func (r *BookingRepo) List(ctx context.Context) ([]model.Booking, error) {
	values, err := r.gw.Values(ctx, r.worksheet)
	if err != nil {
		return nil, err
	}
	headers, err := r.Headers(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Booking
	for i := MainHeaderRow; i < len(values); i++ {
		b := parseBooking(values[i], headers)
		if b.BookingID == "" {
			continue
		}
		b.Row = i + 1
		out = append(out, b)
	}
	return out, nil
}

// FindByID returns the first (earliest) row whose booking_id matches.
// Duplicate ids violate the sequence invariant; picking the earliest row
// keeps behaviour deterministic if the workbook is ever hand-edited into
// that state.
func (r *BookingRepo) FindByID(ctx context.Context, bookingID string) (model.Booking, error) {
	bookings, err := r.List(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	for _, b := range bookings {
		if b.BookingID == bookingID {
			return b, nil
		}
	}
	return model.Booking{}, ErrNotFound
}

// Append writes a new booking as the next row of the main worksheet and
// invalidates the cached matrix.
func (r *BookingRepo) Append(ctx context.Context, b model.Booking) error {
	headers, err := r.Headers(ctx)
	if err != nil {
		return err
	}
	width := 0
	for _, col := range headers {
		if col > width {
			width = col
		}
	}
	row := make([]interface{}, width)
	for i := range row {
		row[i] = ""
	}
	for name, value := range bookingFields(b) {
		if col, ok := headers[name]; ok {
			row[col-1] = value
		}
	}
	return r.gw.Append(ctx, r.worksheet, row)
}

// UpdateFields batch-writes the named columns of one row.  Unknown column
// names are skipped so optional columns the workbook lacks never fail a
// modify.
func (r *BookingRepo) UpdateFields(ctx context.Context, row int, fields map[string]interface{}) error {
	headers, err := r.Headers(ctx)
	if err != nil {
		return err
	}
	updates := make([]sheet.CellUpdate, 0, len(fields))
	for name, value := range fields {
		col, ok := headers[name]
		if !ok {
			continue
		}
		updates = append(updates, sheet.CellUpdate{Row: row, Col: col, Value: value})
	}
	return r.gw.BatchUpdate(ctx, r.worksheet, updates)
}

// Invalidate drops the cached main-sheet matrix; the booking flow calls it
// right after its append so the next query sees the new row.
func (r *BookingRepo) Invalidate() { r.gw.Invalidate(r.worksheet) }

// bookingFields lays a record out by column name.
func bookingFields(b model.Booking) map[string]interface{} {
	fields := map[string]interface{}{
		ColBookingID:     b.BookingID,
		ColApplyDatetime: b.ApplyDatetime,
		ColStatus:        b.Status,
		ColName:          b.Name,
		ColPhone:         b.Phone,
		ColEmail:         b.Email,
		ColIdentity:      b.Identity,
		ColRoomNumber:    b.RoomNumber,
		ColCheckInDate:   b.CheckInDate,
		ColCheckOutDate:  b.CheckOutDate,
		ColDiningDate:    b.DiningDate,
		ColDirection:     b.Direction,
		ColDate:          b.Date,
		ColDepartureHM:   b.DepartureHM,
		ColPickup:        b.Pickup,
		ColDropoff:       b.Dropoff,
		ColTripDisplay:   b.TripDisplay,
		ColTripUnified:   b.TripDatetimeUnified,
		ColMainDeparture: b.MainDepartureDatetime,
		ColRequestedPax:  strconv.Itoa(b.RequestedPax),
		ColPickupIndex:   strconv.Itoa(b.PickupIndex),
		ColDropoffIndex:  strconv.Itoa(b.DropoffIndex),
		ColSegments:      b.Segments,
		ColDeskReview:    b.DeskReview,
		ColNote:          b.Note,
		ColLastOpTime:    b.LastOpTime,
		ColMailStatus:    b.MailStatus,
		ColRideStatus:    b.RideStatus,
		ColQRPayload:     b.QRPayload,
	}
	if b.ConfirmedPax > 0 {
		fields[ColConfirmedPax] = strconv.Itoa(b.ConfirmedPax)
	} else {
		fields[ColConfirmedPax] = ""
	}
	return fields
}

func parseBooking(row []string, headers map[string]int) model.Booking {
	cell := func(name string) string {
		col, ok := headers[name]
		if !ok || col > len(row) {
			return ""
		}
		return strings.TrimSpace(row[col-1])
	}
	num := func(name string) int {
		n, _ := strconv.Atoi(cell(name))
		return n
	}
	return model.Booking{
		BookingID:             cell(ColBookingID),
		ApplyDatetime:         cell(ColApplyDatetime),
		Status:                cell(ColStatus),
		Name:                  cell(ColName),
		Phone:                 cell(ColPhone),
		Email:                 cell(ColEmail),
		Identity:              cell(ColIdentity),
		RoomNumber:            cell(ColRoomNumber),
		CheckInDate:           cell(ColCheckInDate),
		CheckOutDate:          cell(ColCheckOutDate),
		DiningDate:            cell(ColDiningDate),
		Direction:             cell(ColDirection),
		Date:                  cell(ColDate),
		DepartureHM:           cell(ColDepartureHM),
		Pickup:                cell(ColPickup),
		Dropoff:               cell(ColDropoff),
		TripDisplay:           cell(ColTripDisplay),
		TripDatetimeUnified:   cell(ColTripUnified),
		MainDepartureDatetime: cell(ColMainDeparture),
		RequestedPax:          num(ColRequestedPax),
		ConfirmedPax:          num(ColConfirmedPax),
		PickupIndex:           num(ColPickupIndex),
		DropoffIndex:          num(ColDropoffIndex),
		Segments:              cell(ColSegments),
		DeskReview:            cell(ColDeskReview),
		Note:                  cell(ColNote),
		LastOpTime:            cell(ColLastOpTime),
		MailStatus:            cell(ColMailStatus),
		RideStatus:            cell(ColRideStatus),
		QRPayload:             cell(ColQRPayload),
	}
}
