package utils

import (
    "fmt"
    "strconv"
    "strings"
    "time"
)

// Taipei is the reference zone for every timestamp, note and sequence key in
// the system.  The workbook, the realtime store and all client-facing times
// use this zone; UTC never leaks into a record.
var Taipei = loadTaipei()

func loadTaipei() *time.Location {
    loc, err := time.LoadLocation("Asia/Taipei")
    if err != nil {
        // Taiwan observes no DST, so a fixed offset is equivalent.
        return time.FixedZone("UTC+8", 8*60*60)
    }
    return loc
}

// Now returns the current wall-clock time in the Taipei zone.
func Now() time.Time { return time.Now().In(Taipei) }

// DayKey formats t as the YYMMDD key used both as the booking-id prefix and
// as the daily sequence path component.
func DayKey(t time.Time) string { return t.In(Taipei).Format("060102") }

// Timestamp formats t as a Taipei-local timestamp to the second.  This is the
// format embedded into apply_datetime, last_op_time and note annotations.
func Timestamp(t time.Time) string { return t.In(Taipei).Format("2006-01-02 15:04:05") }

// NormalizeHM parses a departure-time input and normalises it to "HH:MM".
// Clients send times with either an ASCII or a full-width colon, optionally
// prefixed by a date ("12/24 18：30"); only the trailing HH:MM part counts.
func NormalizeHM(raw string) (string, error) {
    s := strings.ReplaceAll(strings.TrimSpace(raw), "：", ":")
    if i := strings.LastIndexByte(s, ' '); i >= 0 {
        s = s[i+1:]
    }
    h, m, ok := splitHM(s)
    if !ok {
        return "", fmt.Errorf("invalid departure time %q", raw)
    }
    return fmt.Sprintf("%02d:%02d", h, m), nil
}

func splitHM(s string) (int, int, bool) {
    parts := strings.Split(s, ":")
    if len(parts) != 2 {
        return 0, 0, false
    }
    h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
    m, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
    if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
        return 0, 0, false
    }
    return h, m, true
}

// UnifiedDatetime combines an ISO date ("2006-01-02") and a normalised HH:MM
// into the canonical "YYYY/MM/DD HH:MM" trip datetime.
func UnifiedDatetime(dateISO, hm string) (string, error) {
    t, err := time.ParseInLocation("2006-01-02 15:04", dateISO+" "+hm, Taipei)
    if err != nil {
        return "", fmt.Errorf("invalid trip date/time %q %q", dateISO, hm)
    }
    return t.Format("2006/01/02 15:04"), nil
}

// ParseUnified parses a canonical "YYYY/MM/DD HH:MM" trip datetime in the
// Taipei zone.
func ParseUnified(unified string) (time.Time, error) {
    return time.ParseInLocation("2006/01/02 15:04", unified, Taipei)
}

// TripDisplay derives the short client-facing label ("12/24 18:30") from the
// unified trip datetime.  An unparsable input yields an empty label rather
// than an error; display strings are never load-bearing.
func TripDisplay(unified string) string {
    t, err := ParseUnified(unified)
    if err != nil {
        return ""
    }
    return t.Format("1/2 15:04")
}

// MainDeparture derives the canonical minute the vehicle leaves the hotel.
// Outbound trips depart the hotel at the unified datetime itself; return
// trips leave earlier by a pickup-specific lead time so the bus reaches the
// pickup stop at the advertised minute.
func MainDeparture(direction, unified, pickup string) (string, error) {
    t, err := ParseUnified(unified)
    if err != nil {
        return "", err
    }
    if direction == DirectionReturn {
        t = t.Add(-ReturnOffset(pickup))
    }
    return t.Format("2006/01/02 15:04"), nil
}
