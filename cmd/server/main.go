package main

import (
	"log"
	"net/http"
	"time"

	"lookout/internal/auth"
	"lookout/internal/config"
	"lookout/internal/events"
	"lookout/internal/handlers"
	"lookout/internal/ingest"
	"lookout/internal/live"
	"lookout/internal/middleware"
	"lookout/internal/notify"
	"lookout/internal/store"
)

func main() {
	cfg := config.Load()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer db.Close()
	log.Printf("✅ Database ready (%s)", cfg.DBPath)

	auth.CreateDefaultAdmin(db, cfg)
	db.CleanupExpiredSessions()

	bus := events.NewBus()

	dispatcher := notify.NewDispatcher(db, bus, nil)
	dispatcher.Start()
	defer dispatcher.Stop()

	hub := live.NewHub()
	processor := ingest.NewProcessor(db, bus, hub)

	mux := http.NewServeMux()

	protect := func(next http.HandlerFunc) http.HandlerFunc {
		return auth.Middleware(cfg, db, next)
	}
	// Agents report once per backup job; 60/min per IP is generous.
	limiter := middleware.NewRateLimiter(60, time.Minute)
	limit := limiter.Limit

	handlers.NewReportHandler(db, processor, cfg).RegisterReportRoutes(mux, protect, limit)
	handlers.NewDeviceHandler(db).RegisterDeviceRoutes(mux, protect)
	handlers.NewAlertHandler(db).RegisterAlertRoutes(mux, protect)
	handlers.NewStatsHandler(db).RegisterStatsRoutes(mux, protect)
	handlers.NewKeyHandler(db).RegisterKeyRoutes(mux, protect)
	handlers.NewNotificationHandler(db).RegisterNotificationRoutes(mux, protect)

	mux.HandleFunc("POST /api/auth/login", auth.Login(cfg, db))
	mux.HandleFunc("POST /api/auth/logout", auth.Logout(db))
	mux.HandleFunc("GET /api/auth/status", auth.Status(cfg, db))

	mux.HandleFunc("GET /api/live", protect(hub.HandleConnection))
	mux.HandleFunc("GET /api/health", handlers.Health)
	mux.HandleFunc("GET /api/version", handlers.GetVersion)
	mux.HandleFunc("/", handlers.StaticFiles(cfg, db))

	handler := middleware.CORS(middleware.Logging(mux))

	log.Printf("👁️  Lookout server listening on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatal(err)
	}
}
