package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fengtai-hotel/shuttle-reservation/internal/qr"
)

// QRCode renders a ticket payload as a PNG.  The payload is self-contained,
// so the endpoint never touches the workbook; a malformed payload is refused
// before rendering.
func QRCode(c echo.Context) error {
	payload := c.Param("payload")
	if _, _, err := qr.Parse(payload); err != nil {
		return badRequest(c, "malformed qr payload")
	}
	png, err := qr.PNG(payload)
	if err != nil {
		return opsError(c, err)
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, "image/png", png)
}
