package handler // declare the package name; contains HTTP handlers

import (
    "net/http"          // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project

    "github.com/fengtai-hotel/shuttle-reservation/internal/utils"
)

// Health is a simple health‑check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It reports the
// service name and the current Taipei timestamp with an HTTP 200 status code.
func Health(c echo.Context) error { // Health handler signature accepts an echo context and returns an error
    return c.JSON(http.StatusOK, echo.Map{
        "status":    "ok",
        "service":   "shuttle-reservation",
        "timestamp": utils.Timestamp(utils.Now()),
    })
}
