package model

// Trip statuses written by drivers.
const (
	TripDeparted = "departed"
	TripFinished = "finished"
)

// DriverLocation is the last reported GPS fix for a driver role, stored at
// /driver/locations/<role>.
type DriverLocation struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"timestamp"` // unix ms
	TripID    string  `json:"trip_id"`
}

// TripNav is the external navigation state of a trip, stored at
// /driver/trips/<main_datetime>/nav while a driver runs the loop.
type TripNav struct {
	ShareURL  string   `json:"share_url"`
	Stops     []string `json:"stops"`
	StartedAt string   `json:"started_at"`
	DoneAt    string   `json:"done_at,omitempty"`
}
