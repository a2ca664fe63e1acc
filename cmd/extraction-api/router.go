// Package main provides the extraction API server entrypoint.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/docmill/extraction-engine/cmd/extraction-api/handlers"
	"github.com/docmill/extraction-engine/cmd/extraction-api/middleware"
	"github.com/docmill/extraction-engine/internal/billing"
	"github.com/docmill/extraction-engine/internal/config"
	"github.com/docmill/extraction-engine/internal/observability"
	"github.com/docmill/extraction-engine/internal/pdfproc"
	"github.com/docmill/extraction-engine/internal/storage"
)

// Deps bundles the wired dependencies the router serves.
type Deps struct {
	Creator  handlers.TaskCreator
	Repos    *storage.Repositories
	Renderer *pdfproc.Renderer
	Billing  billing.Client // nil when billing is disabled
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.ReadTimeout))

	// Health check (unauthenticated)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"extraction-engine"}`))
	})

	ingestionHandler := handlers.NewIngestionHandler(logger, deps.Creator, cfg.Server.MaxUploadBytes)
	pdfHandler := handlers.NewPDFHandler(logger, deps.Renderer, cfg.Server.MaxUploadBytes)
	tasksHandler := handlers.NewTasksHandler(logger, deps.Repos.Tasks)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(middleware.AuthConfig{
			Enabled:   cfg.Auth.Enabled,
			DevAPIKey: cfg.Auth.DevAPIKey,
		}))

		r.Post("/task", ingestionHandler.CreateTask)
		r.Get("/task/{taskId}", tasksHandler.GetTask)
		r.Get("/tasks", tasksHandler.ListTasks)

		r.Post("/pdf/snippets", pdfHandler.Snippets)

		if deps.Billing != nil {
			paymentsHandler := handlers.NewPaymentsHandler(logger, deps.Billing)
			r.Route("/payments", func(r chi.Router) {
				r.Post("/{customerId}/setup-intent", paymentsHandler.CreateSetupIntent)
				r.Post("/{customerId}/session", paymentsHandler.CreateSession)
				r.Get("/{customerId}/methods", paymentsHandler.ListPaymentMethods)
				r.Delete("/methods/{methodId}", paymentsHandler.DetachPaymentMethod)
			})
		}
	})

	return r
}
