package model

// Booking lifecycle statuses as stored in the main worksheet.  "rejected" is
// presentation-only: it is derived on query when front-desk staff set
// desk_review to "n" in the workbook; this service never writes it.
const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
)

// Passenger identity kinds.
const (
	IdentityGuest = "hotel-guest"
	IdentityDiner = "diner"
)

// Ride and mail state values.
const (
	RideBoarded = "boarded"

	MailProcessing = "processing"
	MailSent       = "sent"
)

// Booking is one row of the main worksheet.  Column positions are resolved
// by header name in the repository layer; this struct carries the semantic
// fields only.  Row records where the record was read from so that updates
// can address the right cells; it is 0 for a record not yet appended.
type Booking struct {
	Row int // 1-based worksheet row, 0 when unsaved

	BookingID     string // YYMMDDNNN
	ApplyDatetime string // Taipei creation timestamp
	Status        string

	Name     string
	Phone    string
	Email    string
	Identity string

	RoomNumber   string // hotel-guest only
	CheckInDate  string
	CheckOutDate string
	DiningDate   string // diner only

	Direction   string // outbound | return
	Date        string // ISO date of the trip
	DepartureHM string // HH:MM
	Pickup      string
	Dropoff     string

	TripDisplay           string // e.g. "12/24 18:30"
	TripDatetimeUnified   string // canonical "YYYY/MM/DD HH:MM"
	MainDepartureDatetime string // vehicle's hotel departure minute

	RequestedPax int
	ConfirmedPax int // 0 until the desk fills it; authoritative when set

	PickupIndex  int
	DropoffIndex int
	Segments     string // comma-joined [pickup_index, dropoff_index)

	DeskReview string // "", "y" or "n"; written by humans in the workbook
	Note       string
	LastOpTime string
	MailStatus string
	RideStatus string // "" or "boarded"

	QRPayload string // FT:<booking_id>:<email_hash6>
}

// EffectivePax is the seat count a booking actually consumes: the desk's
// confirmed count when present, the requested count otherwise.
func (b *Booking) EffectivePax() int {
	if b.ConfirmedPax > 0 {
		return b.ConfirmedPax
	}
	return b.RequestedPax
}

// Cancelled reports whether the booking no longer consumes seats.
func (b *Booking) Cancelled() bool { return b.Status == StatusCancelled }
