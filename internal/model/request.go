package model

// Request payloads for the multiplexed ops endpoint.  Validation rules live
// in the struct tags and are enforced with go-playground/validator before a
// handler touches the workbook or the realtime store.

// BookRequest creates a new booking.
type BookRequest struct {
	Direction    string `json:"direction" validate:"required,oneof=outbound return"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string `json:"time" validate:"required"`
	Identity     string `json:"identity" validate:"required,oneof=hotel-guest diner"`
	RoomNumber   string `json:"room_number"`
	CheckInDate  string `json:"check_in_date"`
	CheckOutDate string `json:"check_out_date"`
	DiningDate   string `json:"dining_date"`
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Pax          int    `json:"pax" validate:"required,min=1,max=4"`
	Pickup       string `json:"pickup" validate:"required"`
	Dropoff      string `json:"dropoff" validate:"required"`
	Lang         string `json:"lang" validate:"omitempty,oneof=zh en ja ko"`
}

// ModifyRequest updates an existing booking.  Empty fields keep the stored
// value; Pax 0 keeps the stored pax.
type ModifyRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
	Direction string `json:"direction" validate:"omitempty,oneof=outbound return"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time      string `json:"time"`
	Pickup    string `json:"pickup"`
	Dropoff   string `json:"dropoff"`
	Phone     string `json:"phone"`
	Email     string `json:"email" validate:"omitempty,email"`
	Pax       int    `json:"pax" validate:"omitempty,min=1,max=4"`
	Lang      string `json:"lang" validate:"omitempty,oneof=zh en ja ko"`
}

// CancelRequest cancels a booking.
type CancelRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
	Lang      string `json:"lang" validate:"omitempty,oneof=zh en ja ko"`
}

// QueryRequest looks up bookings by any of the three identifiers.
type QueryRequest struct {
	BookingID string `json:"booking_id"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// CheckInRequest marks a passenger as boarded, addressed either by the QR
// payload or directly by booking id.
type CheckInRequest struct {
	QRPayload string `json:"qr_payload"`
	BookingID string `json:"booking_id"`
}

// MailRequest manually (re)sends a booking email.  TicketPNG optionally
// carries a base64-encoded PNG ticket rendered by the caller.
type MailRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
	Kind      string `json:"kind" validate:"omitempty,oneof=book modify cancel"`
	Lang      string `json:"lang" validate:"omitempty,oneof=zh en ja ko"`
	TicketPNG string `json:"ticket_png"`
}
