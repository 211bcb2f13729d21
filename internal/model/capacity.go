package model

// CapacityRow is one row of the capacity worksheet: one scheduled trip at one
// station.  Remaining is maintained by a workbook formula that subtracts
// confirmed bookings from the seat cap, so the service only ever reads it.
type CapacityRow struct {
	Row int // 1-based worksheet row

	Direction   string
	Date        string // ISO
	DepartureHM string // HH:MM
	Station     string
	Remaining   int
}
