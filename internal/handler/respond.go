package handler

import (
	"errors"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fengtai-hotel/shuttle-reservation/internal/repository"
	"github.com/fengtai-hotel/shuttle-reservation/internal/sheet"
	"github.com/fengtai-hotel/shuttle-reservation/internal/store"
)

// opsError translates domain errors into the HTTP responses clients key off:
// capacity exhaustion is 409, contention and backend outages are 503 so the
// client retries, an unknown booking is 404.  Anything else is a 500 whose
// detail stays in the server log.
func opsError(c echo.Context, err error) error {
	var capErr *repository.CapacityError
	switch {
	case errors.As(err, &capErr):
		return c.JSON(http.StatusConflict, echo.Map{"error": capErr.Error()})
	case errors.Is(err, repository.ErrLockContention):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "system busy, try again"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "record not found"})
	case errors.Is(err, sheet.ErrUnavailable), errors.Is(err, store.ErrUnavailable):
		log.Printf("handler: backend unavailable: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service temporarily unavailable"})
	default:
		log.Printf("handler: internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// badRequest is the uniform shape for rejected input.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// validationError reports the first failed field by its json name.
func validationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "validation failed",
			"field": verrs[0].Field(),
		})
	}
	return badRequest(c, "validation failed")
}

// newValidator builds the request validator, reporting fields by their json
// tag so error payloads match what the client sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
