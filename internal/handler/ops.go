package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fengtai-hotel/shuttle-reservation/internal/capacity"
	"github.com/fengtai-hotel/shuttle-reservation/internal/mail"
	"github.com/fengtai-hotel/shuttle-reservation/internal/model"
	"github.com/fengtai-hotel/shuttle-reservation/internal/qr"
	"github.com/fengtai-hotel/shuttle-reservation/internal/queue"
	"github.com/fengtai-hotel/shuttle-reservation/internal/repository"
	queue_publisher "github.com/fengtai-hotel/shuttle-reservation/internal/service"
	"github.com/fengtai-hotel/shuttle-reservation/internal/store"
	"github.com/fengtai-hotel/shuttle-reservation/internal/utils"
	"github.com/fengtai-hotel/shuttle-reservation/internal/worker"
)

// OpsHandler serves the multiplexed booking endpoint.  A single POST /api/ops
// carries {"action": ..., "data": {...}} and fans out to the six passenger
// operations; keeping one endpoint keeps the hotel-web client's transport
// layer to a single function.
type OpsHandler struct {
	Bookings *repository.BookingRepo
	Capacity *capacity.Service
	Realtime *store.Realtime
	Pool     *worker.Pool
	Sender   *mail.Sender
	BaseURL  string

	// PublishMail posts a job to the broker.  Swappable so tests capture
	// jobs instead of dialing RabbitMQ.
	PublishMail func(ctx context.Context, job queue.MailJob) error

	validate *validator.Validate
}

// NewOpsHandler wires the handler with its collaborators.
func NewOpsHandler(bookings *repository.BookingRepo, capSvc *capacity.Service, rt *store.Realtime, pool *worker.Pool, sender *mail.Sender, baseURL string) *OpsHandler {
	return &OpsHandler{
		Bookings:    bookings,
		Capacity:    capSvc,
		Realtime:    rt,
		Pool:        pool,
		Sender:      sender,
		BaseURL:     baseURL,
		PublishMail: queue_publisher.PublishMailJob,
		validate:    newValidator(),
	}
}

// Ops decodes the envelope and dispatches on action.
func (h *OpsHandler) Ops(c echo.Context) error {
	var req struct {
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	switch req.Action {
	case "book":
		return h.book(c, req.Data)
	case "modify":
		return h.modify(c, req.Data)
	case "cancel":
		return h.cancel(c, req.Data)
	case "query":
		return h.query(c, req.Data)
	case "check_in":
		return h.checkIn(c, req.Data)
	case "mail":
		return h.mailResend(c, req.Data)
	default:
		return badRequest(c, "unknown action")
	}
}

// book runs the capacity-safe booking flow: lock the trip, read remaining
// seats, append the row, then hand the lock to the finalize barrier on the
// worker pool so the response does not wait for formula recomputation.
func (h *OpsHandler) book(c echo.Context, data json.RawMessage) error {
	var req model.BookRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest(c, "invalid book payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return validationError(c, err)
	}

	hm, err := utils.NormalizeHM(req.Time)
	if err != nil {
		return badRequest(c, "invalid departure time")
	}
	pIdx := utils.StationIndex(req.Pickup, req.Direction)
	dIdx := utils.StationIndex(req.Dropoff, req.Direction)
	if pIdx == 0 || dIdx == 0 {
		return badRequest(c, "unknown station")
	}
	if dIdx <= pIdx {
		return badRequest(c, "dropoff must come after pickup")
	}
	unified, err := utils.UnifiedDatetime(req.Date, hm)
	if err != nil {
		return badRequest(c, "invalid trip date")
	}
	mainDep, err := utils.MainDeparture(req.Direction, unified, req.Pickup)
	if err != nil {
		return badRequest(c, "invalid trip date")
	}
	capStation := utils.CapacityStation(req.Direction, req.Pickup, req.Dropoff)

	ctx := c.Request().Context()
	if enabled, err := h.Realtime.SystemEnabled(ctx); err != nil {
		return opsError(c, err)
	} else if !enabled {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "booking is temporarily suspended"})
	}

	holder, err := h.Capacity.Acquire(ctx, req.Date, hm)
	if err != nil {
		return opsError(c, err)
	}
	lockID := capacity.LockID(req.Date, hm)
	handedOff := false
	defer func() {
		if handedOff {
			return
		}
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Capacity.Release(relCtx, lockID, holder); err != nil {
			log.Printf("ops: release %s after failed book: %v", lockID, err)
		}
	}()

	remaining, err := h.Capacity.Remaining(ctx, req.Direction, req.Date, hm, capStation)
	if err != nil {
		return opsError(c, err)
	}
	if req.Pax > remaining {
		return opsError(c, &repository.CapacityError{Requested: req.Pax, Remaining: remaining})
	}

	now := utils.Now()
	seq, err := h.Realtime.NextBookingSeq(ctx, utils.DayKey(now))
	if err != nil {
		return opsError(c, err)
	}
	bookingID := fmt.Sprintf("%s%03d", utils.DayKey(now), seq)
	payload := qr.Payload(bookingID, req.Email)

	b := model.Booking{
		BookingID:             bookingID,
		ApplyDatetime:         utils.Timestamp(now),
		Status:                model.StatusBooked,
		Name:                  req.Name,
		Phone:                 req.Phone,
		Email:                 req.Email,
		Identity:              req.Identity,
		RoomNumber:            req.RoomNumber,
		CheckInDate:           req.CheckInDate,
		CheckOutDate:          req.CheckOutDate,
		DiningDate:            req.DiningDate,
		Direction:             req.Direction,
		Date:                  req.Date,
		DepartureHM:           hm,
		Pickup:                req.Pickup,
		Dropoff:               req.Dropoff,
		TripDisplay:           utils.TripDisplay(unified),
		TripDatetimeUnified:   unified,
		MainDepartureDatetime: mainDep,
		RequestedPax:          req.Pax,
		PickupIndex:           pIdx,
		DropoffIndex:          dIdx,
		Segments:              utils.Segments(pIdx, dIdx),
		LastOpTime:            utils.Timestamp(now),
		MailStatus:            model.MailProcessing,
		QRPayload:             payload,
	}
	if err := h.Bookings.Append(ctx, b); err != nil {
		return opsError(c, err)
	}

	expected := remaining - req.Pax
	handedOff = true
	h.Pool.Submit(func() {
		h.Capacity.FinalizeAndRelease(lockID, holder, req.Direction, req.Date, hm, capStation, expected)
	})
	h.enqueueMail(queue.MailJob{BookingID: bookingID, Kind: mail.KindBook, Lang: lang(req.Lang)})

	return c.JSON(http.StatusOK, echo.Map{
		"booking_id": bookingID,
		"qr_payload": payload,
		"qr_url":     qr.URL(h.BaseURL, payload),
	})
}

// modify merges the request onto the stored record and re-derives every trip
// field.  Seats are charged against capacity only for what the change adds:
// the pax increase when the trip itself is unchanged, the full new pax when
// the passenger moves to another trip.
func (h *OpsHandler) modify(c echo.Context, data json.RawMessage) error {
	var req model.ModifyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest(c, "invalid modify payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return validationError(c, err)
	}

	ctx := c.Request().Context()
	b, err := h.Bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return opsError(c, err)
	}
	if b.Cancelled() {
		return badRequest(c, "booking is cancelled")
	}

	merged := b
	if req.Direction != "" {
		merged.Direction = req.Direction
	}
	if req.Date != "" {
		merged.Date = req.Date
	}
	if req.Time != "" {
		hm, err := utils.NormalizeHM(req.Time)
		if err != nil {
			return badRequest(c, "invalid departure time")
		}
		merged.DepartureHM = hm
	}
	if req.Pickup != "" {
		merged.Pickup = req.Pickup
	}
	if req.Dropoff != "" {
		merged.Dropoff = req.Dropoff
	}
	if req.Phone != "" {
		merged.Phone = req.Phone
	}
	emailChanged := req.Email != "" && !strings.EqualFold(req.Email, b.Email)
	if req.Email != "" {
		merged.Email = req.Email
	}
	if req.Pax > 0 {
		merged.RequestedPax = req.Pax
	}

	pIdx := utils.StationIndex(merged.Pickup, merged.Direction)
	dIdx := utils.StationIndex(merged.Dropoff, merged.Direction)
	if pIdx == 0 || dIdx == 0 {
		return badRequest(c, "unknown station")
	}
	if dIdx <= pIdx {
		return badRequest(c, "dropoff must come after pickup")
	}
	unified, err := utils.UnifiedDatetime(merged.Date, merged.DepartureHM)
	if err != nil {
		return badRequest(c, "invalid trip date")
	}
	mainDep, err := utils.MainDeparture(merged.Direction, unified, merged.Pickup)
	if err != nil {
		return badRequest(c, "invalid trip date")
	}
	capStation := utils.CapacityStation(merged.Direction, merged.Pickup, merged.Dropoff)
	oldCapStation := utils.CapacityStation(b.Direction, b.Pickup, b.Dropoff)

	// Seats the change consumes on the (possibly new) trip.  Freed seats of
	// the old trip come back through the workbook formulas on their own.
	sameTrip := merged.Direction == b.Direction && merged.Date == b.Date &&
		merged.DepartureHM == b.DepartureHM && capStation == oldCapStation
	consumed := merged.RequestedPax
	deltaCharge := false
	if sameTrip {
		consumed = merged.RequestedPax - b.EffectivePax()
		deltaCharge = consumed > 0
		if consumed < 0 {
			consumed = 0
		}
	}

	var lockID, holder string
	var remaining int
	if consumed > 0 {
		holder, err = h.Capacity.Acquire(ctx, merged.Date, merged.DepartureHM)
		if err != nil {
			return opsError(c, err)
		}
		lockID = capacity.LockID(merged.Date, merged.DepartureHM)
		handedOff := false
		defer func() {
			if handedOff {
				return
			}
			relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.Capacity.Release(relCtx, lockID, holder); err != nil {
				log.Printf("ops: release %s after failed modify: %v", lockID, err)
			}
		}()

		remaining, err = h.Capacity.Remaining(ctx, merged.Direction, merged.Date, merged.DepartureHM, capStation)
		if err != nil {
			return opsError(c, err)
		}
		if consumed > remaining {
			return opsError(c, &repository.CapacityError{Requested: consumed, Remaining: remaining, Delta: deltaCharge})
		}

		if err := h.writeModify(ctx, b, merged, unified, mainDep, pIdx, dIdx, emailChanged); err != nil {
			return opsError(c, err)
		}
		handedOff = true
		h.Pool.Submit(func() {
			h.Capacity.FinalizeAndRelease(lockID, holder, merged.Direction, merged.Date, merged.DepartureHM, capStation, remaining-consumed)
		})
	} else {
		if err := h.writeModify(ctx, b, merged, unified, mainDep, pIdx, dIdx, emailChanged); err != nil {
			return opsError(c, err)
		}
	}

	h.enqueueMail(queue.MailJob{BookingID: b.BookingID, Kind: mail.KindModify, Lang: lang(req.Lang)})

	resp := echo.Map{"booking_id": b.BookingID}
	if emailChanged {
		payload := qr.Payload(b.BookingID, merged.Email)
		resp["qr_payload"] = payload
		resp["qr_url"] = qr.URL(h.BaseURL, payload)
	}
	return c.JSON(http.StatusOK, resp)
}

// writeModify batch-writes the merged record back onto the booking's row.
func (h *OpsHandler) writeModify(ctx context.Context, old, merged model.Booking, unified, mainDep string, pIdx, dIdx int, emailChanged bool) error {
	now := utils.Now()
	fields := map[string]interface{}{
		repository.ColDirection:     merged.Direction,
		repository.ColDate:          merged.Date,
		repository.ColDepartureHM:   merged.DepartureHM,
		repository.ColPickup:        merged.Pickup,
		repository.ColDropoff:       merged.Dropoff,
		repository.ColTripDisplay:   utils.TripDisplay(unified),
		repository.ColTripUnified:   unified,
		repository.ColMainDeparture: mainDep,
		repository.ColRequestedPax:  merged.RequestedPax,
		repository.ColPickupIndex:   pIdx,
		repository.ColDropoffIndex:  dIdx,
		repository.ColSegments:      utils.Segments(pIdx, dIdx),
		repository.ColPhone:         merged.Phone,
		repository.ColEmail:         merged.Email,
		repository.ColNote:          appendNote(old.Note, "modified", now),
		repository.ColLastOpTime:    utils.Timestamp(now),
		repository.ColMailStatus:    model.MailProcessing,
	}
	if emailChanged {
		fields[repository.ColQRPayload] = qr.Payload(old.BookingID, merged.Email)
	}
	return h.Bookings.UpdateFields(ctx, old.Row, fields)
}

// cancel flips the status; the workbook's capacity formulas stop counting the
// row, so no lock is needed to free the seats.
func (h *OpsHandler) cancel(c echo.Context, data json.RawMessage) error {
	var req model.CancelRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest(c, "invalid cancel payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return validationError(c, err)
	}

	ctx := c.Request().Context()
	b, err := h.Bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return opsError(c, err)
	}
	if b.Cancelled() {
		return c.JSON(http.StatusOK, echo.Map{"booking_id": b.BookingID, "status": model.StatusCancelled})
	}

	now := utils.Now()
	if err := h.Bookings.UpdateFields(ctx, b.Row, map[string]interface{}{
		repository.ColStatus:     model.StatusCancelled,
		repository.ColNote:       appendNote(b.Note, "cancelled", now),
		repository.ColLastOpTime: utils.Timestamp(now),
		repository.ColMailStatus: model.MailProcessing,
	}); err != nil {
		return opsError(c, err)
	}

	h.enqueueMail(queue.MailJob{BookingID: b.BookingID, Kind: mail.KindCancel, Lang: lang(req.Lang)})
	return c.JSON(http.StatusOK, echo.Map{"booking_id": b.BookingID, "status": model.StatusCancelled})
}

// query returns the caller's bookings by id, phone or email.  Trips older
// than 31 days are withheld, the trip time is re-derived from the canonical
// datetime so hand edits by staff show through, and a desk_review of "n"
// presents as rejected without ever writing that status to the workbook.
func (h *OpsHandler) query(c echo.Context, data json.RawMessage) error {
	var req model.QueryRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest(c, "invalid query payload")
	}
	if req.BookingID == "" && req.Phone == "" && req.Email == "" {
		return badRequest(c, "booking_id, phone or email required")
	}

	ctx := c.Request().Context()
	bookings, err := h.Bookings.List(ctx)
	if err != nil {
		return opsError(c, err)
	}

	today := utils.Now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, utils.Taipei)

	results := make([]echo.Map, 0, 4)
	for i := range bookings {
		b := &bookings[i]
		if !matchesQuery(b, req) {
			continue
		}

		date, hm, display := b.Date, b.DepartureHM, b.TripDisplay
		tripDay := today
		if t, err := utils.ParseUnified(b.TripDatetimeUnified); err == nil {
			date = t.Format("2006-01-02")
			hm = t.Format("15:04")
			display = utils.TripDisplay(b.TripDatetimeUnified)
			tripDay = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, utils.Taipei)
		}
		if today.Sub(tripDay) > 30*24*time.Hour {
			continue
		}

		status := b.Status
		if b.DeskReview == "n" {
			status = model.StatusRejected
		}
		results = append(results, echo.Map{
			"booking_id":   b.BookingID,
			"status":       status,
			"name":         b.Name,
			"phone":        b.Phone,
			"email":        b.Email,
			"direction":    b.Direction,
			"date":         date,
			"time":         hm,
			"pickup":       b.Pickup,
			"dropoff":      b.Dropoff,
			"trip_display": display,
			"pax":          b.EffectivePax(),
			"ride_status":  b.RideStatus,
			"note":         b.Note,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": results})
}

func matchesQuery(b *model.Booking, req model.QueryRequest) bool {
	if req.BookingID != "" {
		return b.BookingID == req.BookingID
	}
	if req.Phone != "" {
		return b.Phone == req.Phone
	}
	return strings.EqualFold(b.Email, req.Email)
}

// checkIn marks a passenger boarded, addressed by QR payload or booking id.
// Repeating a check-in is a no-op, not an error.
func (h *OpsHandler) checkIn(c echo.Context, data json.RawMessage) error {
	var req model.CheckInRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest(c, "invalid check_in payload")
	}

	bookingID := req.BookingID
	if req.QRPayload != "" {
		id, _, err := qr.Parse(req.QRPayload)
		if err != nil {
			return badRequest(c, "malformed qr payload")
		}
		bookingID = id
	}
	if bookingID == "" {
		return badRequest(c, "qr_payload or booking_id required")
	}

	ctx := c.Request().Context()
	b, err := h.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return opsError(c, err)
	}
	if req.QRPayload != "" && b.QRPayload != "" && b.QRPayload != req.QRPayload {
		return badRequest(c, "qr payload does not match booking")
	}

	if b.RideStatus != model.RideBoarded {
		if err := h.Bookings.UpdateFields(ctx, b.Row, map[string]interface{}{
			repository.ColRideStatus: model.RideBoarded,
			repository.ColLastOpTime: utils.Timestamp(utils.Now()),
		}); err != nil {
			return opsError(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": b.BookingID, "ride_status": model.RideBoarded})
}

// mailResend queues a notification for an existing booking, optionally with a
// caller-rendered ticket image attached.
func (h *OpsHandler) mailResend(c echo.Context, data json.RawMessage) error {
	var req model.MailRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return badRequest(c, "invalid mail payload")
	}
	if err := h.validate.Struct(&req); err != nil {
		return validationError(c, err)
	}

	ctx := c.Request().Context()
	b, err := h.Bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return opsError(c, err)
	}

	kind := req.Kind
	if kind == "" {
		kind = mail.KindBook
	}
	if err := h.Bookings.UpdateFields(ctx, b.Row, map[string]interface{}{
		repository.ColMailStatus: model.MailProcessing,
		repository.ColLastOpTime: utils.Timestamp(utils.Now()),
	}); err != nil {
		return opsError(c, err)
	}

	h.enqueueMail(queue.MailJob{BookingID: b.BookingID, Kind: kind, Lang: lang(req.Lang), TicketPNG: req.TicketPNG})
	return c.JSON(http.StatusOK, echo.Map{"booking_id": b.BookingID, "mail_status": model.MailProcessing})
}

// enqueueMail publishes the job from the worker pool; when the broker is
// unreachable the job falls through to direct delivery so a dead broker
// degrades latency, not notifications.
func (h *OpsHandler) enqueueMail(job queue.MailJob) {
	job.RequestedAt = utils.Timestamp(utils.Now())
	h.Pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.PublishMail(ctx, job); err != nil {
			log.Printf("ops: publish mail job for %s failed, sending directly: %v", job.BookingID, err)
			if err := queue.SendMailJob(job, h.Bookings, h.Sender); err != nil {
				log.Printf("ops: direct mail for %s failed: %v", job.BookingID, err)
			}
		}
	})
}

// lang defaults the notification language to Traditional Chinese.
func lang(l string) string {
	if l == "" {
		return "zh"
	}
	return l
}

// appendNote tacks an operation marker onto the free-text note column.
func appendNote(note, op string, now time.Time) string {
	marker := op + " @" + utils.Timestamp(now)
	if note == "" {
		return marker
	}
	return note + "; " + marker
}
