package mail_test

import (
	"strings"
	"testing"

	"github.com/fengtai-hotel/shuttle-reservation/internal/mail"
	"github.com/fengtai-hotel/shuttle-reservation/internal/model"
)

func sample() model.Booking {
	return model.Booking{
		BookingID:    "251224001",
		Name:         "A",
		TripDisplay:  "12/24 18:30",
		Pickup:       "Hotel",
		Dropoff:      "Exhibition Center",
		RequestedPax: 2,
	}
}

func TestComposeAllLanguagesAndKinds(t *testing.T) {
	for _, lang := range []string{"zh", "en", "ja", "ko"} {
		for _, kind := range []string{mail.KindBook, mail.KindModify, mail.KindCancel} {
			subject, body := mail.Compose(kind, lang, sample())
			if !strings.Contains(subject, "251224001") {
				t.Errorf("%s/%s: subject missing booking id: %q", lang, kind, subject)
			}
			if !strings.Contains(body, "12/24 18:30") || !strings.Contains(body, "251224001") {
				t.Errorf("%s/%s: body missing trip or id: %q", lang, kind, body)
			}
		}
	}
}

func TestComposeFallsBackToEnglish(t *testing.T) {
	subject, _ := mail.Compose(mail.KindBook, "fr", sample())
	if !strings.Contains(subject, "Shuttle reservation confirmed") {
		t.Errorf("expected English fallback, got %q", subject)
	}
}

func TestComposeUsesConfirmedPaxWhenSet(t *testing.T) {
	b := sample()
	b.ConfirmedPax = 3
	_, body := mail.Compose(mail.KindBook, "en", b)
	if !strings.Contains(body, "Passengers: 3") {
		t.Errorf("expected confirmed pax in body, got %q", body)
	}
}
