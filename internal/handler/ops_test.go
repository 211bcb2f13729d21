package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fengtai-hotel/shuttle-reservation/internal/capacity"
	"github.com/fengtai-hotel/shuttle-reservation/internal/handler"
	"github.com/fengtai-hotel/shuttle-reservation/internal/mail"
	"github.com/fengtai-hotel/shuttle-reservation/internal/model"
	"github.com/fengtai-hotel/shuttle-reservation/internal/queue"
	"github.com/fengtai-hotel/shuttle-reservation/internal/repository"
	"github.com/fengtai-hotel/shuttle-reservation/internal/sheet"
	"github.com/fengtai-hotel/shuttle-reservation/internal/sheet/sheettest"
	"github.com/fengtai-hotel/shuttle-reservation/internal/store"
	"github.com/fengtai-hotel/shuttle-reservation/internal/store/storetest"
	"github.com/fengtai-hotel/shuttle-reservation/internal/utils"
	"github.com/fengtai-hotel/shuttle-reservation/internal/worker"
)

func mainHeader() []string {
	return []string{
		repository.ColBookingID, repository.ColApplyDatetime, repository.ColStatus,
		repository.ColName, repository.ColPhone, repository.ColEmail,
		repository.ColIdentity, repository.ColRoomNumber, repository.ColCheckInDate,
		repository.ColCheckOutDate, repository.ColDiningDate, repository.ColDirection,
		repository.ColDate, repository.ColDepartureHM, repository.ColPickup,
		repository.ColDropoff, repository.ColTripDisplay, repository.ColTripUnified,
		repository.ColMainDeparture, repository.ColRequestedPax, repository.ColConfirmedPax,
		repository.ColPickupIndex, repository.ColDropoffIndex, repository.ColSegments,
		repository.ColDeskReview, repository.ColNote, repository.ColLastOpTime,
		repository.ColMailStatus, repository.ColRideStatus, repository.ColQRPayload,
	}
}

func capHeader() []string {
	return []string{
		repository.CapColDirection, repository.CapColDate, repository.CapColTime,
		repository.CapColStation, repository.CapColRemaining,
	}
}

// rowFrom builds a raw worksheet row from named cells.
func rowFrom(cells map[string]string) []string {
	header := mainHeader()
	row := make([]string, len(header))
	for i, name := range header {
		row[i] = cells[name]
	}
	return row
}

type opsEnv struct {
	h        *handler.OpsHandler
	fake     *sheettest.Fake
	kv       *storetest.Memory
	realtime *store.Realtime
	bookings *repository.BookingRepo
	capSvc   *capacity.Service
	jobs     chan queue.MailJob

	capRows [][]string
}

func newOpsEnv(t *testing.T) *opsEnv {
	t.Helper()
	fake := sheettest.New()
	fake.Load("reservations", [][]string{{"Shuttle reservations"}, mainHeader()})
	fake.Load("capacity", [][]string{capHeader()})

	gw := sheet.NewGateway(fake, 50*time.Millisecond)
	bookings := repository.NewBookingRepo(gw, "reservations")
	caps := repository.NewCapacityRepo(gw, "capacity")

	kv := storetest.New()
	rt, err := store.NewRealtime(context.Background(), kv)
	if err != nil {
		t.Fatalf("realtime init: %v", err)
	}

	capSvc := capacity.NewService(rt, caps)
	capSvc.PollInterval = 10 * time.Millisecond
	capSvc.Deadline = 150 * time.Millisecond

	pool := worker.NewPool(4, 32)
	t.Cleanup(pool.Close)

	jobs := make(chan queue.MailJob, 16)
	h := handler.NewOpsHandler(bookings, capSvc, rt, pool, &mail.Sender{}, "https://shuttle.example.com")
	h.PublishMail = func(ctx context.Context, job queue.MailJob) error {
		jobs <- job
		return nil
	}

	return &opsEnv{
		h: h, fake: fake, kv: kv, realtime: rt,
		bookings: bookings, capSvc: capSvc, jobs: jobs,
		capRows: [][]string{capHeader()},
	}
}

// addCapacity schedules a trip row on the capacity worksheet.
func (env *opsEnv) addCapacity(direction, date, hm, station, remaining string) {
	env.capRows = append(env.capRows, []string{direction, date, hm, station, remaining})
	env.fake.Load("capacity", env.capRows)
}

func (env *opsEnv) do(t *testing.T, action string, data interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"action": action, "data": data})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/ops", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if err := env.h.Ops(c); err != nil {
		t.Fatalf("ops returned error: %v", err)
	}
	return rec
}

func (env *opsEnv) job(t *testing.T) queue.MailJob {
	t.Helper()
	select {
	case j := <-env.jobs:
		return j
	case <-time.After(2 * time.Second):
		t.Fatal("no mail job published")
		return queue.MailJob{}
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func futureDate(days int) string {
	return utils.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func TestBookCreatesRowAndTicket(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")

	rec := env.do(t, "book", map[string]interface{}{
		"direction": "outbound",
		"date":      date,
		"time":      "18：30", // full-width colon from the web form
		"identity":  "hotel-guest",
		"room_number": "1205",
		"name":      "Lin Wei",
		"phone":     "0912345678",
		"email":     "lin@example.com",
		"pax":       2,
		"pickup":    "Hotel",
		"dropoff":   "LaLaport",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)

	wantID := utils.DayKey(utils.Now()) + "001"
	if resp["booking_id"] != wantID {
		t.Errorf("expected booking id %s, got %v", wantID, resp["booking_id"])
	}
	payload, _ := resp["qr_payload"].(string)
	if !strings.HasPrefix(payload, "FT:"+wantID+":") {
		t.Errorf("unexpected qr payload %q", payload)
	}
	if url, _ := resp["qr_url"].(string); !strings.Contains(url, "/api/qr/") {
		t.Errorf("unexpected qr url %v", resp["qr_url"])
	}

	b, err := env.bookings.FindByID(context.Background(), wantID)
	if err != nil {
		t.Fatalf("appended booking not found: %v", err)
	}
	if b.Status != model.StatusBooked {
		t.Errorf("expected status booked, got %q", b.Status)
	}
	if b.DepartureHM != "18:30" {
		t.Errorf("expected normalised time 18:30, got %q", b.DepartureHM)
	}
	if b.PickupIndex != 1 || b.DropoffIndex != 4 {
		t.Errorf("expected indices 1/4, got %d/%d", b.PickupIndex, b.DropoffIndex)
	}
	if b.Segments != "1,2,3" {
		t.Errorf("expected segments 1,2,3, got %q", b.Segments)
	}
	if b.MainDepartureDatetime != b.TripDatetimeUnified {
		t.Errorf("outbound main departure should equal trip datetime, got %q vs %q",
			b.MainDepartureDatetime, b.TripDatetimeUnified)
	}
	if b.MailStatus != model.MailProcessing {
		t.Errorf("expected mail_status processing, got %q", b.MailStatus)
	}

	job := env.job(t)
	if job.BookingID != wantID || job.Kind != mail.KindBook || job.Lang != "zh" {
		t.Errorf("unexpected mail job %+v", job)
	}
}

func TestBookReturnTripOffsetsMainDeparture(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("return", date, "10:00", "Train Station", "4")

	rec := env.do(t, "book", map[string]interface{}{
		"direction": "return",
		"date":      date,
		"time":      "10:00",
		"identity":  "diner",
		"dining_date": date,
		"name":      "Sato Yuki",
		"phone":     "0987654321",
		"email":     "sato@example.com",
		"pax":       1,
		"pickup":    "Train Station",
		"dropoff":   "Hotel",
		"lang":      "ja",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)

	b, err := env.bookings.FindByID(context.Background(), resp["booking_id"].(string))
	if err != nil {
		t.Fatalf("booking not found: %v", err)
	}
	// Train Station pickup means the vehicle leaves the hotel 10 minutes
	// before the advertised pickup minute.
	if !strings.HasSuffix(b.MainDepartureDatetime, "09:50") {
		t.Errorf("expected main departure 09:50, got %q", b.MainDepartureDatetime)
	}
	if b.PickupIndex != 3 || b.DropoffIndex != 5 {
		t.Errorf("expected indices 3/5 on return leg, got %d/%d", b.PickupIndex, b.DropoffIndex)
	}
	if job := env.job(t); job.Lang != "ja" {
		t.Errorf("expected lang ja, got %q", job.Lang)
	}
}

func TestBookRejectsInvalidPax(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")

	for _, pax := range []int{0, 5} {
		rec := env.do(t, "book", map[string]interface{}{
			"direction": "outbound", "date": date, "time": "18:30",
			"identity": "hotel-guest", "name": "A", "phone": "09", "email": "a@b.c",
			"pax": pax, "pickup": "Hotel", "dropoff": "LaLaport",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("pax %d: expected 400, got %d", pax, rec.Code)
		}
		if resp := decodeBody(t, rec); resp["field"] != "pax" {
			t.Errorf("pax %d: expected field pax, got %v", pax, resp["field"])
		}
	}
}

func TestBookRejectsUnknownStationAndBackwardRide(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)

	rec := env.do(t, "book", map[string]interface{}{
		"direction": "outbound", "date": date, "time": "18:30",
		"identity": "hotel-guest", "name": "A", "phone": "09", "email": "a@b.c",
		"pax": 1, "pickup": "Airport", "dropoff": "LaLaport",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown station: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, "book", map[string]interface{}{
		"direction": "outbound", "date": date, "time": "18:30",
		"identity": "hotel-guest", "name": "A", "phone": "09", "email": "a@b.c",
		"pax": 1, "pickup": "LaLaport", "dropoff": "Exhibition Center",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("backward ride: expected 400, got %d", rec.Code)
	}
}

func TestBookCapacityExceededReleasesLock(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "1")

	rec := env.do(t, "book", map[string]interface{}{
		"direction": "outbound", "date": date, "time": "18:30",
		"identity": "hotel-guest", "name": "A", "phone": "09", "email": "a@b.c",
		"pax": 2, "pickup": "Hotel", "dropoff": "LaLaport",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeBody(t, rec); resp["error"] != "capacity_exceeded:2>1" {
		t.Errorf("unexpected error payload %v", resp["error"])
	}
	if _, held := env.kv.Snapshot()["/sheet_locks/"+date+"_18:30"]; held {
		t.Error("trip lock must be released after a rejected booking")
	}
}

func TestBookContentionReturns503(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")

	if _, err := env.capSvc.Acquire(context.Background(), date, "18:30"); err != nil {
		t.Fatalf("pre-acquire: %v", err)
	}
	rec := env.do(t, "book", map[string]interface{}{
		"direction": "outbound", "date": date, "time": "18:30",
		"identity": "hotel-guest", "name": "A", "phone": "09", "email": "a@b.c",
		"pax": 1, "pickup": "Hotel", "dropoff": "LaLaport",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while the trip lock is held, got %d", rec.Code)
	}
}

func TestBookRefusedWhileSystemDisabled(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")

	if err := env.realtime.SetSystemEnabled(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	rec := env.do(t, "book", map[string]interface{}{
		"direction": "outbound", "date": date, "time": "18:30",
		"identity": "hotel-guest", "name": "A", "phone": "09", "email": "a@b.c",
		"pax": 1, "pickup": "Hotel", "dropoff": "LaLaport",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while disabled, got %d", rec.Code)
	}
}

// bookOne seeds one booking through the full flow and returns it.
func bookOne(t *testing.T, env *opsEnv, date string, pax int) model.Booking {
	t.Helper()
	rec := env.do(t, "book", map[string]interface{}{
		"direction": "outbound", "date": date, "time": "18:30",
		"identity": "hotel-guest", "name": "Lin Wei", "phone": "0912345678",
		"email": "lin@example.com", "pax": pax, "pickup": "Hotel", "dropoff": "LaLaport",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("seed booking failed: %d %s", rec.Code, rec.Body.String())
	}
	env.job(t) // drain the book notification
	resp := decodeBody(t, rec)
	b, err := env.bookings.FindByID(context.Background(), resp["booking_id"].(string))
	if err != nil {
		t.Fatalf("seed booking not found: %v", err)
	}
	return b
}

// waitUnlocked blocks until the finalize barrier has released the trip lock.
func waitUnlocked(t *testing.T, env *opsEnv, date, hm string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, held := env.kv.Snapshot()["/sheet_locks/"+date+"_"+hm]; !held {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("trip lock was never released")
}

func TestModifyPaxIncreaseChargesOnlyDelta(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")
	b := bookOne(t, env, date, 1)
	waitUnlocked(t, env, date, "18:30")

	// Workbook formulas have caught up: 3 seats left.  Raising pax from 1
	// to 4 adds 3 passengers, exactly what is left.
	env.fake.SetCell("capacity", 2, 5, "3")
	rec := env.do(t, "modify", map[string]interface{}{
		"booking_id": b.BookingID, "pax": 4,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	waitUnlocked(t, env, date, "18:30")

	got, err := env.bookings.FindByID(context.Background(), b.BookingID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RequestedPax != 4 {
		t.Errorf("expected requested pax 4, got %d", got.RequestedPax)
	}
	if !strings.Contains(got.Note, "modified") {
		t.Errorf("expected a modified marker in note, got %q", got.Note)
	}
	if job := env.job(t); job.Kind != mail.KindModify {
		t.Errorf("expected modify mail, got %+v", job)
	}
}

func TestModifyPaxIncreaseBeyondRemainingIs409(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")
	b := bookOne(t, env, date, 1)
	waitUnlocked(t, env, date, "18:30")

	env.fake.SetCell("capacity", 2, 5, "2")
	rec := env.do(t, "modify", map[string]interface{}{
		"booking_id": b.BookingID, "pax": 4,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeBody(t, rec); resp["error"] != "capacity_exceeded_delta:3>2" {
		t.Errorf("unexpected error payload %v", resp["error"])
	}
	got, _ := env.bookings.FindByID(context.Background(), b.BookingID)
	if got.RequestedPax != 1 {
		t.Errorf("rejected modify must not change the row, got pax %d", got.RequestedPax)
	}
}

func TestModifyPaxDecreaseNeedsNoLock(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")
	b := bookOne(t, env, date, 3)
	waitUnlocked(t, env, date, "18:30")

	// Hold the trip lock; shrinking the party must still succeed because it
	// frees seats instead of consuming them.
	if _, err := env.capSvc.Acquire(context.Background(), date, "18:30"); err != nil {
		t.Fatal(err)
	}
	rec := env.do(t, "modify", map[string]interface{}{
		"booking_id": b.BookingID, "pax": 1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got, _ := env.bookings.FindByID(context.Background(), b.BookingID)
	if got.RequestedPax != 1 {
		t.Errorf("expected pax 1, got %d", got.RequestedPax)
	}
	env.job(t)
}

func TestModifyToAnotherTripChargesFullPax(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")
	env.addCapacity("outbound", date, "20:00", "LaLaport", "1")
	b := bookOne(t, env, date, 2)
	waitUnlocked(t, env, date, "18:30")

	// Moving 2 passengers to the 20:00 trip needs 2 of its seats, not the
	// pax delta of 0.
	rec := env.do(t, "modify", map[string]interface{}{
		"booking_id": b.BookingID, "time": "20:00",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on the full-pax charge, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeBody(t, rec); resp["error"] != "capacity_exceeded:2>1" {
		t.Errorf("unexpected error payload %v", resp["error"])
	}
}

func TestModifyEmailChangeRegeneratesTicket(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")
	b := bookOne(t, env, date, 2)
	waitUnlocked(t, env, date, "18:30")

	rec := env.do(t, "modify", map[string]interface{}{
		"booking_id": b.BookingID, "email": "new@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	newPayload, _ := resp["qr_payload"].(string)
	if newPayload == "" || newPayload == b.QRPayload {
		t.Errorf("expected a regenerated qr payload, got %q (old %q)", newPayload, b.QRPayload)
	}
	got, _ := env.bookings.FindByID(context.Background(), b.BookingID)
	if got.QRPayload != newPayload {
		t.Errorf("row carries %q, response carries %q", got.QRPayload, newPayload)
	}
	env.job(t)
}

func TestCancelIsIdempotentAndStopsConsumingSeats(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")
	b := bookOne(t, env, date, 2)
	waitUnlocked(t, env, date, "18:30")

	rec := env.do(t, "cancel", map[string]interface{}{"booking_id": b.BookingID})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got, _ := env.bookings.FindByID(context.Background(), b.BookingID)
	if got.Status != model.StatusCancelled {
		t.Errorf("expected status cancelled, got %q", got.Status)
	}
	if !strings.Contains(got.Note, "cancelled") {
		t.Errorf("expected a cancelled marker in note, got %q", got.Note)
	}
	if job := env.job(t); job.Kind != mail.KindCancel {
		t.Errorf("expected cancel mail, got %+v", job)
	}

	// Cancelling again is a quiet no-op with no second notification.
	rec = env.do(t, "cancel", map[string]interface{}{"booking_id": b.BookingID})
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat cancel: expected 200, got %d", rec.Code)
	}
	select {
	case j := <-env.jobs:
		t.Errorf("repeat cancel must not send mail, got %+v", j)
	case <-time.After(50 * time.Millisecond):
	}

	// A cancelled booking cannot be modified.
	rec = env.do(t, "modify", map[string]interface{}{"booking_id": b.BookingID, "pax": 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("modify after cancel: expected 400, got %d", rec.Code)
	}
}

func TestCancelUnknownBookingIs404(t *testing.T) {
	env := newOpsEnv(t)
	rec := env.do(t, "cancel", map[string]interface{}{"booking_id": "999999999"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestQueryFiltersOldTripsAndDerivesFields(t *testing.T) {
	env := newOpsEnv(t)
	now := utils.Now()
	recent := now.AddDate(0, 0, -30).Format("2006/01/02") + " 10:00"
	tooOld := now.AddDate(0, 0, -31).Format("2006/01/02") + " 10:00"
	upcoming := now.AddDate(0, 0, 1)

	rows := [][]string{
		{"Shuttle reservations"},
		mainHeader(),
		rowFrom(map[string]string{
			repository.ColBookingID: "250101001", repository.ColStatus: model.StatusBooked,
			repository.ColPhone: "0912000111", repository.ColEmail: "q@example.com",
			repository.ColTripUnified: recent, repository.ColDate: "2000-01-01",
		}),
		rowFrom(map[string]string{
			repository.ColBookingID: "250101002", repository.ColStatus: model.StatusBooked,
			repository.ColPhone: "0912000111", repository.ColEmail: "q@example.com",
			repository.ColTripUnified: tooOld,
		}),
		rowFrom(map[string]string{
			repository.ColBookingID: "250101003", repository.ColStatus: model.StatusBooked,
			repository.ColPhone: "0912000111", repository.ColEmail: "q@example.com",
			repository.ColTripUnified: upcoming.Format("2006/01/02") + " 09:00",
			repository.ColDeskReview:  "n",
		}),
	}
	env.fake.Load("reservations", rows)

	rec := env.do(t, "query", map[string]interface{}{"phone": "0912000111"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Bookings []map[string]interface{} `json:"bookings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Bookings) != 2 {
		t.Fatalf("expected 2 visible bookings, got %d: %s", len(resp.Bookings), rec.Body.String())
	}

	byID := map[string]map[string]interface{}{}
	for _, b := range resp.Bookings {
		byID[b["booking_id"].(string)] = b
	}
	if _, ok := byID["250101002"]; ok {
		t.Error("trip older than 31 days must be withheld")
	}
	// Trip fields come from the canonical datetime, not the raw date column.
	if got := byID["250101001"]["date"]; got != now.AddDate(0, 0, -30).Format("2006-01-02") {
		t.Errorf("expected date derived from the canonical datetime, got %v", got)
	}
	if got := byID["250101001"]["time"]; got != "10:00" {
		t.Errorf("expected time 10:00, got %v", got)
	}
	// A desk_review of "n" presents as rejected.
	if got := byID["250101003"]["status"]; got != model.StatusRejected {
		t.Errorf("expected rejected presentation, got %v", got)
	}
}

func TestQueryByEmailIsCaseInsensitive(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")
	bookOne(t, env, date, 1)

	rec := env.do(t, "query", map[string]interface{}{"email": "LIN@Example.COM"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Bookings []map[string]interface{} `json:"bookings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(resp.Bookings))
	}
}

func TestQueryWithoutKeysIs400(t *testing.T) {
	env := newOpsEnv(t)
	rec := env.do(t, "query", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckInByQRIsIdempotent(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")
	b := bookOne(t, env, date, 2)

	for i := 0; i < 2; i++ {
		rec := env.do(t, "check_in", map[string]interface{}{"qr_payload": b.QRPayload})
		if rec.Code != http.StatusOK {
			t.Fatalf("check-in %d: expected 200, got %d: %s", i+1, rec.Code, rec.Body.String())
		}
		if resp := decodeBody(t, rec); resp["ride_status"] != model.RideBoarded {
			t.Errorf("check-in %d: expected boarded, got %v", i+1, resp["ride_status"])
		}
	}
	got, _ := env.bookings.FindByID(context.Background(), b.BookingID)
	if got.RideStatus != model.RideBoarded {
		t.Errorf("expected ride_status boarded, got %q", got.RideStatus)
	}
}

func TestCheckInRejectsMismatchedPayload(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")
	b := bookOne(t, env, date, 2)

	// A ticket issued before an email change no longer matches the row.
	rec := env.do(t, "check_in", map[string]interface{}{
		"qr_payload": "FT:" + b.BookingID + ":abcdef",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMailActionQueuesJobWithTicket(t *testing.T) {
	env := newOpsEnv(t)
	date := futureDate(1)
	env.addCapacity("outbound", date, "18:30", "LaLaport", "4")
	b := bookOne(t, env, date, 2)

	rec := env.do(t, "mail", map[string]interface{}{
		"booking_id": b.BookingID, "kind": "modify", "lang": "en", "ticket_png": "aGVsbG8=",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	job := env.job(t)
	if job.Kind != mail.KindModify || job.Lang != "en" || job.TicketPNG != "aGVsbG8=" {
		t.Errorf("unexpected mail job %+v", job)
	}
	got, _ := env.bookings.FindByID(context.Background(), b.BookingID)
	if got.MailStatus != model.MailProcessing {
		t.Errorf("expected mail_status processing, got %q", got.MailStatus)
	}
}

func TestUnknownActionIs400(t *testing.T) {
	env := newOpsEnv(t)
	rec := env.do(t, "teleport", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBackendOutageIs503(t *testing.T) {
	env := newOpsEnv(t)
	env.fake.Err = sheet.ErrUnavailable
	rec := env.do(t, "query", map[string]interface{}{"phone": "0912"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the workbook is down, got %d", rec.Code)
	}
}
