package router

import (
	"github.com/labstack/echo/v4"

	"github.com/fengtai-hotel/shuttle-reservation/internal/handler"
)

// RegisterDriver registers the driver console endpoints under /api/driver.
// The console runs on tablets inside the vehicles on the hotel network; the
// deployment fronts these routes with its own access control, so no session
// middleware is applied here.  The response cache collapses the fleet's
// polling of the aggregated endpoint into one workbook read per TTL.
func RegisterDriver(e *echo.Echo, d *handler.DriverHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/api/driver")

	// Aggregated dataset the console polls: trips, manifests, passengers.
	g.GET("/all-data", d.AllData, cache)

	// Narrowed views over the same aggregation.
	g.GET("/trips", d.Trips)
	g.GET("/trip-passengers", d.TripPassengers)
	g.GET("/passenger-list", d.PassengerList)

	// Boarding.
	g.POST("/checkin", d.CheckIn)
	g.POST("/qrcode-info", d.QRCodeInfo)
	g.POST("/manual-boarding", d.ManualBoarding)
	g.POST("/no-show", d.NoShow)

	// Trip lifecycle and navigation.
	g.POST("/trip-status", d.TripStatus)
	g.POST("/trip-start", d.TripStart)
	g.POST("/trip-complete", d.TripComplete)
	g.GET("/route", d.Route)
	g.POST("/update-station", d.UpdateStation)

	// Operational state.
	g.GET("/system-status", d.SystemStatus)
	g.POST("/system-status", d.SetSystemStatus)
	g.POST("/location", d.ReportLocation)
	g.GET("/location", d.Location)
}
