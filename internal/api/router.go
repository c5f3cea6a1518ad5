package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/psa231093/fbrelay/internal/api/handler"
	mw "github.com/psa231093/fbrelay/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	jobHandler *handler.JobHandler,
	uploadHandler *handler.UploadHandler,
	fileHandler *handler.FileHandler,
	scheduleHandler *handler.ScheduleHandler,
	healthHandler *handler.HealthHandler,
	apiKey string,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	// Uploads of large videos can take a while end to end.
	r.Use(middleware.Timeout(30 * time.Minute))

	r.Use(mw.CORS)

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// API v1 (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		r.Get("/stats", healthHandler.Stats)

		// Relay jobs
		r.Post("/jobs", jobHandler.Submit)
		r.Post("/jobs/batch", jobHandler.SubmitBatch)
		r.Get("/jobs", jobHandler.List)
		r.Get("/jobs/{jobID}", jobHandler.Get)
		r.Get("/jobs/{jobID}/status", jobHandler.GetStatus)

		// Direct uploads
		r.Post("/uploads/preview", uploadHandler.Preview)
		r.Post("/uploads", uploadHandler.Upload)
		r.Get("/history", uploadHandler.History)

		// Downloaded files
		r.Get("/files", fileHandler.List)
		r.Get("/files/{name}", fileHandler.Serve)

		// Scheduled posts
		r.Post("/schedule", scheduleHandler.Create)
		r.Get("/schedule", scheduleHandler.List)
		r.Delete("/schedule/{id}", scheduleHandler.Delete)
	})

	return r
}
