package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fengtai-hotel/shuttle-reservation/internal/model"
	"github.com/fengtai-hotel/shuttle-reservation/internal/qr"
	"github.com/fengtai-hotel/shuttle-reservation/internal/repository"
	"github.com/fengtai-hotel/shuttle-reservation/internal/store"
	"github.com/fengtai-hotel/shuttle-reservation/internal/utils"
)

// DriverHandler serves the driver console: manifests grouped by the
// vehicle's hotel-departure minute, QR boarding, trip state and GPS
// reporting.  It reads the workbook through the same cached gateway as the
// booking flow and keeps live trip state in the realtime store.
type DriverHandler struct {
	Bookings *repository.BookingRepo
	Realtime *store.Realtime
}

func NewDriverHandler(bookings *repository.BookingRepo, rt *store.Realtime) *DriverHandler {
	return &DriverHandler{Bookings: bookings, Realtime: rt}
}

// manifest is one passenger line of a trip's boarding list.
type manifest struct {
	BookingID  string `json:"booking_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Pax        int    `json:"pax"`
	Pickup     string `json:"pickup"`
	Dropoff    string `json:"dropoff"`
	RideStatus string `json:"ride_status"`
	Identity   string `json:"identity"`
}

// active keeps the rows a driver acts on: confirmed, not cancelled, not
// rejected by the front desk.
func active(b *model.Booking) bool {
	return b.Status == model.StatusBooked && b.DeskReview != "n"
}

func toManifest(b *model.Booking) manifest {
	return manifest{
		BookingID:  b.BookingID,
		Name:       b.Name,
		Phone:      b.Phone,
		Pax:        b.EffectivePax(),
		Pickup:     b.Pickup,
		Dropoff:    b.Dropoff,
		RideStatus: b.RideStatus,
		Identity:   b.Identity,
	}
}

// tripAgg accumulates one trip's manifest, split by leg.
type tripAgg struct {
	totalPax int
	up       []manifest // outbound leg
	down     []manifest // return leg
}

// aggregate groups the active bookings by the vehicle's hotel-departure
// minute and returns the sorted trip keys alongside.
func (h *DriverHandler) aggregate(c echo.Context) (map[string]*tripAgg, []string, []manifest, error) {
	bookings, err := h.Bookings.List(c.Request().Context())
	if err != nil {
		return nil, nil, nil, err
	}

	trips := map[string]*tripAgg{}
	flat := make([]manifest, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		if !active(b) {
			continue
		}
		flat = append(flat, toManifest(b))
		if b.MainDepartureDatetime == "" {
			continue
		}
		agg, ok := trips[b.MainDepartureDatetime]
		if !ok {
			agg = &tripAgg{}
			trips[b.MainDepartureDatetime] = agg
		}
		agg.totalPax += b.EffectivePax()
		if b.Direction == utils.DirectionReturn {
			agg.down = append(agg.down, toManifest(b))
		} else {
			agg.up = append(agg.up, toManifest(b))
		}
	}

	keys := make([]string, 0, len(trips))
	for k := range trips {
		keys = append(keys, k)
	}
	sort.Strings(keys) // "YYYY/MM/DD HH:MM" sorts chronologically as text
	return trips, keys, flat, nil
}

// tripList joins the aggregated trips with their live status from the
// realtime store.
func (h *DriverHandler) tripList(c echo.Context, trips map[string]*tripAgg, keys []string) ([]echo.Map, error) {
	ctx := c.Request().Context()
	out := make([]echo.Map, 0, len(keys))
	for _, k := range keys {
		status, err := h.Realtime.TripStatus(ctx, k)
		if err != nil {
			return nil, err
		}
		station, err := h.Realtime.CurrentStation(ctx, k)
		if err != nil {
			return nil, err
		}
		out = append(out, echo.Map{
			"main_datetime":   k,
			"total_pax":       trips[k].totalPax,
			"status":          status,
			"current_station": station,
		})
	}
	return out, nil
}

// AllData returns the whole driver dataset in one response: the trip list
// with live status, per-trip passenger manifests split by direction, and the
// flat passenger list.  The console polls this endpoint, so one round trip
// carries everything it renders.
func (h *DriverHandler) AllData(c echo.Context) error {
	trips, keys, flat, err := h.aggregate(c)
	if err != nil {
		return opsError(c, err)
	}
	list, err := h.tripList(c, trips, keys)
	if err != nil {
		return opsError(c, err)
	}
	passengers := make(map[string]echo.Map, len(keys))
	for _, k := range keys {
		passengers[k] = echo.Map{"up": trips[k].up, "down": trips[k].down}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"trips":           list,
		"trip_passengers": passengers,
		"passengers":      flat,
	})
}

// Trips is the narrowed view carrying the trip list only.
func (h *DriverHandler) Trips(c echo.Context) error {
	trips, keys, _, err := h.aggregate(c)
	if err != nil {
		return opsError(c, err)
	}
	list, err := h.tripList(c, trips, keys)
	if err != nil {
		return opsError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trips": list})
}

// TripPassengers returns one trip's manifest split by leg.
func (h *DriverHandler) TripPassengers(c echo.Context) error {
	mainDatetime := c.QueryParam("trip")
	if mainDatetime == "" {
		return badRequest(c, "trip query parameter required")
	}
	trips, _, _, err := h.aggregate(c)
	if err != nil {
		return opsError(c, err)
	}
	agg, ok := trips[mainDatetime]
	if !ok {
		return opsError(c, repository.ErrNotFound)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"main_datetime": mainDatetime,
		"up":            agg.up,
		"down":          agg.down,
	})
}

// PassengerList returns the flat manifest across all trips.
func (h *DriverHandler) PassengerList(c echo.Context) error {
	_, _, flat, err := h.aggregate(c)
	if err != nil {
		return opsError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"passengers": flat})
}

// CheckIn boards a passenger from a scanned QR code.  The payload must match
// what the booking row stores, so a ticket regenerated after an email change
// invalidates the old image.
func (h *DriverHandler) CheckIn(c echo.Context) error {
	var req struct {
		QRPayload string `json:"qr_payload"`
	}
	if err := c.Bind(&req); err != nil || req.QRPayload == "" {
		return badRequest(c, "qr_payload required")
	}
	bookingID, _, err := qr.Parse(req.QRPayload)
	if err != nil {
		return badRequest(c, "malformed qr payload")
	}

	ctx := c.Request().Context()
	b, err := h.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return opsError(c, err)
	}
	if b.QRPayload != req.QRPayload {
		return badRequest(c, "qr payload does not match booking")
	}
	if b.Cancelled() {
		return badRequest(c, "booking is cancelled")
	}

	if b.RideStatus != model.RideBoarded {
		if err := h.Bookings.UpdateFields(ctx, b.Row, map[string]interface{}{
			repository.ColRideStatus: model.RideBoarded,
			repository.ColLastOpTime: utils.Timestamp(utils.Now()),
		}); err != nil {
			return opsError(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":  b.BookingID,
		"name":        b.Name,
		"pax":         b.EffectivePax(),
		"ride_status": model.RideBoarded,
	})
}

// QRCodeInfo resolves a scanned payload to the passenger's details without
// boarding them; drivers use it to answer "who is this ticket".
func (h *DriverHandler) QRCodeInfo(c echo.Context) error {
	var req struct {
		QRPayload string `json:"qr_payload"`
	}
	if err := c.Bind(&req); err != nil || req.QRPayload == "" {
		return badRequest(c, "qr_payload required")
	}
	bookingID, _, err := qr.Parse(req.QRPayload)
	if err != nil {
		return badRequest(c, "malformed qr payload")
	}

	ctx := c.Request().Context()
	b, err := h.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return opsError(c, err)
	}
	if b.QRPayload != req.QRPayload {
		return badRequest(c, "qr payload does not match booking")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":   b.BookingID,
		"status":       b.Status,
		"name":         b.Name,
		"phone":        b.Phone,
		"direction":    b.Direction,
		"trip_display": b.TripDisplay,
		"pickup":       b.Pickup,
		"dropoff":      b.Dropoff,
		"pax":          b.EffectivePax(),
		"ride_status":  b.RideStatus,
	})
}

// setRideStatus is the shared body of the manual boarding corrections.
func (h *DriverHandler) setRideStatus(c echo.Context, status string) error {
	var req struct {
		BookingID string `json:"booking_id"`
	}
	if err := c.Bind(&req); err != nil || req.BookingID == "" {
		return badRequest(c, "booking_id required")
	}
	ctx := c.Request().Context()
	b, err := h.Bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return opsError(c, err)
	}
	if err := h.Bookings.UpdateFields(ctx, b.Row, map[string]interface{}{
		repository.ColRideStatus: status,
		repository.ColLastOpTime: utils.Timestamp(utils.Now()),
	}); err != nil {
		return opsError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": b.BookingID, "ride_status": status})
}

// ManualBoarding boards a passenger whose QR cannot be scanned.
func (h *DriverHandler) ManualBoarding(c echo.Context) error {
	return h.setRideStatus(c, model.RideBoarded)
}

// NoShow clears a mistaken boarding back to not-boarded.
func (h *DriverHandler) NoShow(c echo.Context) error {
	return h.setRideStatus(c, "")
}

// TripStatus records "departed" or "finished" for a trip and mirrors the
// touch onto every row of the trip so the workbook shows when the driver
// last acted on it.
func (h *DriverHandler) TripStatus(c echo.Context) error {
	var req struct {
		MainDatetime string `json:"main_datetime"`
		Status       string `json:"status"`
	}
	if err := c.Bind(&req); err != nil || req.MainDatetime == "" {
		return badRequest(c, "main_datetime required")
	}
	if req.Status != model.TripDeparted && req.Status != model.TripFinished {
		return badRequest(c, "status must be departed or finished")
	}

	ctx := c.Request().Context()
	if err := h.Realtime.SetTripStatus(ctx, req.MainDatetime, req.Status); err != nil {
		return opsError(c, err)
	}

	bookings, err := h.Bookings.List(ctx)
	if err != nil {
		return opsError(c, err)
	}
	ts := utils.Timestamp(utils.Now())
	for i := range bookings {
		b := &bookings[i]
		if !active(b) || b.MainDepartureDatetime != req.MainDatetime {
			continue
		}
		if err := h.Bookings.UpdateFields(ctx, b.Row, map[string]interface{}{
			repository.ColLastOpTime: ts,
		}); err != nil {
			return opsError(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"main_datetime": req.MainDatetime, "status": req.Status})
}

// TripStart opens navigation for a trip: the stop list is derived from the
// trip's bookings in loop order and stored with the driver's shared map URL.
func (h *DriverHandler) TripStart(c echo.Context) error {
	var req struct {
		MainDatetime string `json:"main_datetime"`
		ShareURL     string `json:"share_url"`
	}
	if err := c.Bind(&req); err != nil || req.MainDatetime == "" {
		return badRequest(c, "main_datetime required")
	}

	ctx := c.Request().Context()
	bookings, err := h.Bookings.List(ctx)
	if err != nil {
		return opsError(c, err)
	}

	// Collect every station the trip touches, ordered by loop index.
	byIndex := map[int]string{}
	for i := range bookings {
		b := &bookings[i]
		if !active(b) || b.MainDepartureDatetime != req.MainDatetime {
			continue
		}
		byIndex[b.PickupIndex] = b.Pickup
		byIndex[b.DropoffIndex] = b.Dropoff
	}
	if len(byIndex) == 0 {
		return opsError(c, repository.ErrNotFound)
	}
	indices := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	stops := make([]string, 0, len(indices))
	for _, idx := range indices {
		stops = append(stops, byIndex[idx])
	}

	nav := model.TripNav{
		ShareURL:  req.ShareURL,
		Stops:     stops,
		StartedAt: utils.Timestamp(utils.Now()),
	}
	if err := h.Realtime.SetTripNav(ctx, req.MainDatetime, nav); err != nil {
		return opsError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"main_datetime": req.MainDatetime, "nav": nav})
}

// TripComplete stamps the navigation record done and marks the trip finished.
func (h *DriverHandler) TripComplete(c echo.Context) error {
	var req struct {
		MainDatetime string `json:"main_datetime"`
	}
	if err := c.Bind(&req); err != nil || req.MainDatetime == "" {
		return badRequest(c, "main_datetime required")
	}

	ctx := c.Request().Context()
	nav, err := h.Realtime.TripNav(ctx, req.MainDatetime)
	if err != nil {
		return opsError(c, err)
	}
	if nav == nil {
		return opsError(c, repository.ErrNotFound)
	}
	nav.DoneAt = utils.Timestamp(utils.Now())
	if err := h.Realtime.SetTripNav(ctx, req.MainDatetime, *nav); err != nil {
		return opsError(c, err)
	}
	if err := h.Realtime.SetTripStatus(ctx, req.MainDatetime, model.TripFinished); err != nil {
		return opsError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"main_datetime": req.MainDatetime, "nav": nav})
}

// Route reports the live navigation state and station pointer of a trip.
func (h *DriverHandler) Route(c echo.Context) error {
	mainDatetime := c.QueryParam("trip")
	if mainDatetime == "" {
		return badRequest(c, "trip query parameter required")
	}
	ctx := c.Request().Context()
	nav, err := h.Realtime.TripNav(ctx, mainDatetime)
	if err != nil {
		return opsError(c, err)
	}
	station, err := h.Realtime.CurrentStation(ctx, mainDatetime)
	if err != nil {
		return opsError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"main_datetime":   mainDatetime,
		"nav":             nav,
		"current_station": station,
	})
}

// UpdateStation advances the trip's station pointer.  The pointer only moves
// forward on the loop; a stale or out-of-order tap is rejected.
func (h *DriverHandler) UpdateStation(c echo.Context) error {
	var req struct {
		MainDatetime string `json:"main_datetime"`
		Station      int    `json:"station"`
	}
	if err := c.Bind(&req); err != nil || req.MainDatetime == "" {
		return badRequest(c, "main_datetime required")
	}
	if req.Station < 1 || req.Station > 5 {
		return badRequest(c, "station must be between 1 and 5")
	}

	ctx := c.Request().Context()
	ok, err := h.Realtime.AdvanceStation(ctx, req.MainDatetime, req.Station)
	if err != nil {
		return opsError(c, err)
	}
	if !ok {
		return badRequest(c, "station pointer cannot move backward")
	}
	return c.JSON(http.StatusOK, echo.Map{"main_datetime": req.MainDatetime, "current_station": req.Station})
}

// SystemStatus reads the booking circuit breaker.
func (h *DriverHandler) SystemStatus(c echo.Context) error {
	enabled, err := h.Realtime.SystemEnabled(c.Request().Context())
	if err != nil {
		return opsError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"enabled": enabled})
}

// SetSystemStatus flips the booking circuit breaker.  Drivers pull the brake
// when the vehicle breaks down so no new bookings land on dead trips.
func (h *DriverHandler) SetSystemStatus(c echo.Context) error {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return badRequest(c, "enabled required")
	}
	if err := h.Realtime.SetSystemEnabled(c.Request().Context(), *req.Enabled); err != nil {
		return opsError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"enabled": *req.Enabled})
}

// ReportLocation stores a driver's GPS fix.
func (h *DriverHandler) ReportLocation(c echo.Context) error {
	var req struct {
		Role   string  `json:"role"`
		Lat    float64 `json:"lat"`
		Lng    float64 `json:"lng"`
		TripID string  `json:"trip_id"`
	}
	if err := c.Bind(&req); err != nil || req.Role == "" {
		return badRequest(c, "role required")
	}
	loc := model.DriverLocation{
		Lat:       req.Lat,
		Lng:       req.Lng,
		Timestamp: time.Now().UnixMilli(),
		TripID:    req.TripID,
	}
	if err := h.Realtime.SetDriverLocation(c.Request().Context(), req.Role, loc); err != nil {
		return opsError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"role": req.Role, "location": loc})
}

// Location reads the last reported GPS fix for a role.
func (h *DriverHandler) Location(c echo.Context) error {
	role := c.QueryParam("role")
	if role == "" {
		return badRequest(c, "role query parameter required")
	}
	loc, err := h.Realtime.DriverLocation(c.Request().Context(), role)
	if err != nil {
		return opsError(c, err)
	}
	if loc == nil {
		return opsError(c, repository.ErrNotFound)
	}
	return c.JSON(http.StatusOK, echo.Map{"role": role, "location": loc})
}
