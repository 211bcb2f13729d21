package utils

import (
    "strconv"
    "strings"
    "time"
)

// Trip directions as stored in the workbook and accepted from clients.
const (
    DirectionOutbound = "outbound"
    DirectionReturn   = "return"
)

// Station names, exact-matched against workbook cells and client input.
const (
    StationHotel      = "Hotel"
    StationExhibition = "Exhibition Center"
    StationTrain      = "Train Station"
    StationLaLaport   = "LaLaport"
)

// stationOrder is the fixed linear station map of the hotel loop.  The hotel
// is both the origin (index 1) and the return terminus (index 5); which of
// the two a "Hotel" cell means depends on the trip direction.
var stationOrder = []string{
    StationHotel,      // 1
    StationExhibition, // 2
    StationTrain,      // 3
    StationLaLaport,   // 4
    StationHotel,      // 5 (return terminus)
}

// StationIndex resolves a station name to its 1-based index on the loop, or 0
// when the name is unknown.  "Hotel" resolves to the origin for outbound
// trips and to the terminus for return trips.
func StationIndex(name, direction string) int {
    if name == StationHotel {
        if direction == DirectionReturn {
            return 5
        }
        return 1
    }
    for i, s := range stationOrder[1:4] {
        if s == name {
            return i + 2
        }
    }
    return 0
}

// KnownStation reports whether name is on the loop at all.
func KnownStation(name string) bool {
    for _, s := range stationOrder {
        if s == name {
            return true
        }
    }
    return false
}

// Segments returns the comma-joined segment indices [pickup, dropoff) covered
// by a ride.  When either index is missing or the ride would run backwards it
// returns the empty string; callers treat that as a validation failure.
func Segments(pickupIdx, dropoffIdx int) string {
    if pickupIdx <= 0 || dropoffIdx <= 0 || dropoffIdx <= pickupIdx {
        return ""
    }
    parts := make([]string, 0, dropoffIdx-pickupIdx)
    for i := pickupIdx; i < dropoffIdx; i++ {
        parts = append(parts, strconv.Itoa(i))
    }
    return strings.Join(parts, ",")
}

// ReturnOffset is the lead time subtracted from the unified trip datetime to
// obtain the main-departure datetime of a return trip, keyed by pickup stop.
func ReturnOffset(pickup string) time.Duration {
    switch pickup {
    case StationExhibition:
        return 5 * time.Minute
    case StationTrain:
        return 10 * time.Minute
    case StationLaLaport:
        return 20 * time.Minute
    }
    return 0
}

// CapacityStation returns the station whose remaining-seats cell bounds a
// booking: the dropoff for outbound trips and the pickup for return trips.
func CapacityStation(direction, pickup, dropoff string) string {
    if direction == DirectionReturn {
        return pickup
    }
    return dropoff
}
