// Package router assembles the HTTP surface: appointment booking, doctor
// schedule management, and live consultation sessions.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-scheduling-platform/internal/booking"
	"github.com/wolfman30/clinic-scheduling-platform/internal/consultation"
	"github.com/wolfman30/clinic-scheduling-platform/internal/doctors"
	httpmiddleware "github.com/wolfman30/clinic-scheduling-platform/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	BookingHandler      *booking.Handler
	ConsultationHandler *consultation.Handler
	DoctorsHandler      *doctors.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// AuthSecret enables bearer-token auth on the API routes when set.
	AuthSecret string

	// RateLimitPerSecond caps per-IP request rates when positive.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.AuthSecret != "" {
			api.Use(httpmiddleware.Auth(cfg.AuthSecret))
		}

		if h := cfg.BookingHandler; h != nil {
			api.Route("/appointments", func(r chi.Router) {
				r.Post("/", h.CreateAppointment)
				r.Route("/{appointmentID}", func(r chi.Router) {
					r.Get("/", h.GetAppointment)
					r.Patch("/", h.UpdateAppointment)
					r.Post("/confirm", h.ConfirmAppointment)
					r.Post("/start", h.StartAppointment)
					r.Post("/cancel", h.CancelAppointment)
					r.Post("/complete", h.CompleteAppointment)
					r.Post("/no-show", h.MarkNoShow)
					r.Post("/reschedule", h.RescheduleAppointment)
				})
			})

			api.Route("/doctors/{doctorID}", func(r chi.Router) {
				r.Get("/appointments", h.ListDoctorAppointments)
				r.Get("/slots", h.GetAvailableSlots)
				r.Get("/availability", h.GetDoctorAvailability)
				r.Get("/conflict", h.CheckConflict)
				r.Post("/time-blocks", h.CreateTimeBlock)
				r.Get("/time-blocks", h.ListTimeBlocks)
				if d := cfg.DoctorsHandler; d != nil {
					r.Get("/hours", d.GetHours)
					r.Put("/hours", d.SetHours)
				}
			})

			api.Route("/time-blocks/{blockID}", func(r chi.Router) {
				r.Patch("/", h.UpdateTimeBlock)
				r.Delete("/", h.DeleteTimeBlock)
			})

			api.Route("/appointment-requests", func(r chi.Router) {
				r.Post("/", h.CreateIntakeRequest)
				r.Route("/{requestID}", func(r chi.Router) {
					r.Get("/", h.GetIntakeRequest)
					r.Post("/review", h.ReviewIntakeRequest)
					r.Post("/approve", h.ApproveIntakeRequest)
					r.Post("/reject", h.RejectIntakeRequest)
				})
			})
		}

		if h := cfg.ConsultationHandler; h != nil {
			api.Route("/consultations", func(r chi.Router) {
				r.Post("/", h.CreateSession)
				r.Post("/join", h.Join)
				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", h.GetSession)
					r.Post("/start", h.StartSession)
					r.Post("/end", h.EndSession)
					r.Post("/cancel", h.CancelSession)
					r.Post("/recordings/start", h.StartRecording)
					r.Post("/recordings/stop", h.StopRecording)
					r.Post("/participants", h.AddParticipant)
					r.Get("/participants", h.ListParticipants)
					r.Delete("/participants/{participantID}", h.RemoveParticipant)
					r.Post("/notes", h.AddNote)
					r.Get("/notes", h.ListNotes)
					r.Patch("/notes/{noteID}", h.UpdateNote)
					r.Delete("/notes/{noteID}", h.DeleteNote)
				})
			})
		}
	})

	return r
}
