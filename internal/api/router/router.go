package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fieldvoice/ivr-platform/internal/http/handlers"
	httpmiddleware "github.com/fieldvoice/ivr-platform/internal/http/middleware"
	"github.com/fieldvoice/ivr-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Voice          *handlers.VoiceHandler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// The voice gateway follows redirects between these routes for the whole
	// call; GET renders a turn, POST submits the caller's input.
	r.Route("/ivr", func(ivr chi.Router) {
		ivr.Get("/start/{serviceID}", cfg.Voice.StartService)
		ivr.Get("/choice/{elementID}/{sessionID}", cfg.Voice.ShowChoice)
		ivr.Post("/choice/{elementID}/{sessionID}", cfg.Voice.SubmitChoice)
		ivr.Get("/record/{elementID}/{sessionID}", cfg.Voice.ShowRecord)
		ivr.Post("/record/{elementID}/{sessionID}", cfg.Voice.SubmitRecord)
		ivr.Get("/report/{elementID}/{sessionID}", cfg.Voice.ShowReport)
		ivr.Post("/report/{elementID}/{sessionID}", cfg.Voice.SubmitReport)
		ivr.Get("/retrieve_reports/{elementID}/{sessionID}", cfg.Voice.ShowRetrieveReports)
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
