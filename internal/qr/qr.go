// Package qr builds, parses and renders the passenger ticket payload.
package qr

import (
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/fengtai-hotel/shuttle-reservation/internal/utils"
)

// Prefix tags every ticket payload so driver scanners can reject foreign
// QR codes cheaply.
const Prefix = "FT"

// Payload builds the ticket string "FT:<booking_id>:<email_hash6>".
func Payload(bookingID, email string) string {
	return fmt.Sprintf("%s:%s:%s", Prefix, bookingID, utils.EmailHash6(email))
}

// Parse splits a scanned payload into booking id and email hash.
func Parse(payload string) (bookingID, hash string, err error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 || parts[0] != Prefix || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("malformed qr payload %q", payload)
	}
	return parts[1], parts[2], nil
}

// URL returns the self-link under which this service serves the payload's
// PNG, with the payload URL-encoded.
func URL(baseURL, payload string) string {
	return strings.TrimRight(baseURL, "/") + "/api/qr/" + url.PathEscape(payload)
}

// PNG renders the payload as a 256x256 PNG.
func PNG(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, 256)
}
