package main // Entry point package

import (
	"context" // Context for startup calls with deadlines
	"log"     // Logging library

	"github.com/joho/godotenv" // Loads .env files in development
	"github.com/labstack/echo/v4"

	"github.com/fengtai-hotel/shuttle-reservation/internal/capacity"
	"github.com/fengtai-hotel/shuttle-reservation/internal/config" // Internal config loader
	"github.com/fengtai-hotel/shuttle-reservation/internal/handler"
	"github.com/fengtai-hotel/shuttle-reservation/internal/mail"
	"github.com/fengtai-hotel/shuttle-reservation/internal/middleware"
	"github.com/fengtai-hotel/shuttle-reservation/internal/queue"
	"github.com/fengtai-hotel/shuttle-reservation/internal/repository"
	"github.com/fengtai-hotel/shuttle-reservation/internal/router" // Internal router setup
	"github.com/fengtai-hotel/shuttle-reservation/internal/sheet"
	"github.com/fengtai-hotel/shuttle-reservation/internal/store"
	"github.com/fengtai-hotel/shuttle-reservation/internal/worker"
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env wins

	cfg := config.Load() // Load environment config
	ctx := context.Background()

	// Redis backs the trip locks and booking-id sequences.  The service
	// cannot give capacity guarantees without it, so startup fails hard.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis unavailable; the coordination plane is required")
	}
	realtime, err := store.NewRealtime(ctx, store.NewRedis(rdb, cfg.RedisPrefix))
	if err != nil {
		log.Fatalf("realtime store init: %v", err)
	}

	// The workbook is the system of record; all reads go through the cached
	// gateway.
	api, err := sheet.NewGoogleAPI(ctx, cfg.SpreadsheetID, cfg.CredentialsFile)
	if err != nil {
		log.Fatalf("sheets client init: %v", err)
	}
	gateway := sheet.NewGateway(api, cfg.SheetCacheTTL)
	bookings := repository.NewBookingRepo(gateway, cfg.MainSheet)
	caps := repository.NewCapacityRepo(gateway, cfg.CapacitySheet)

	capSvc := capacity.NewService(realtime, caps)
	capSvc.LockTTL = cfg.LockTTL
	capSvc.PollInterval = cfg.FinalizePoll
	capSvc.Deadline = cfg.FinalizeDeadline

	pool := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueue)
	sender := &mail.Sender{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.MailFrom,
	}

	// The consumer drains mail.jobs in the background and reconnects on its
	// own; the publisher side falls back to direct delivery when the broker
	// is down, so a consumer error is not fatal here.
	go func() {
		if err := queue.StartMailConsumer(bookings, sender); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	ops := handler.NewOpsHandler(bookings, capSvc, realtime, pool, sender, cfg.BaseURL)
	driver := handler.NewDriverHandler(bookings, realtime)

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e, cfg.CORSOrigins)
	router.RegisterOps(e, ops, config.LoadRateLimitConfig(), rdb)
	router.RegisterDriver(e, driver, middleware.ResponseCache(config.LoadCacheConfig(), rdb))

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
