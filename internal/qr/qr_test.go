package qr_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fengtai-hotel/shuttle-reservation/internal/qr"
	"github.com/fengtai-hotel/shuttle-reservation/internal/utils"
)

func TestPayloadFormat(t *testing.T) {
	p := qr.Payload("251224001", "a@x.io")
	want := "FT:251224001:" + utils.EmailHash6("a@x.io")
	if p != want {
		t.Errorf("expected %q, got %q", want, p)
	}
}

func TestParse(t *testing.T) {
	p := qr.Payload("251224001", "a@x.io")
	id, hash, err := qr.Parse(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "251224001" || hash != utils.EmailHash6("a@x.io") {
		t.Errorf("unexpected parse result: %q %q", id, hash)
	}

	for _, bad := range []string{"", "FT:", "FT:abc", "XX:251224001:abcdef", "FT::abcdef", "FT:251224001:"} {
		if _, _, err := qr.Parse(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestURLEncodesPayload(t *testing.T) {
	got := qr.URL("https://shuttle.example.com/", "FT:251224001:abc123")
	want := "https://shuttle.example.com/api/qr/FT:251224001:abc123"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if strings.Contains(got, "//api") {
		t.Error("base URL trailing slash must be collapsed")
	}
}

func TestPNG(t *testing.T) {
	png, err := qr.PNG("FT:251224001:abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG magic bytes")
	}
}
