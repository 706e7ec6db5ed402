package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/curalink/patient-booking/internal/booking"
	"github.com/curalink/patient-booking/internal/directory"
	"github.com/curalink/patient-booking/internal/matching"
	"github.com/curalink/patient-booking/internal/reschedule"
	"github.com/curalink/patient-booking/internal/slots"
	"github.com/curalink/patient-booking/internal/store"
	"github.com/curalink/patient-booking/pkg/logging"
)

type RouterConfig struct {
	Stores     *store.Manager
	Registry   *matching.Registry
	Booking    *booking.Service
	Reschedule *reschedule.Service
	Doctors    directory.Directory
	Slots      *slots.Directory
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Metrics    prometheus.Gatherer
	Logger     *logging.Logger
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/patients/{patientID}", func(r chi.Router) {
		r.Post("/matching", startMatchingHandler(cfg.Stores, cfg.Registry))
		r.Get("/matching/{opID}", getMatchingHandler(cfg.Registry))
		r.Delete("/matching/{opID}", cancelMatchingHandler(cfg.Registry))

		r.Get("/appointments", listAppointmentsHandler(cfg.Stores, cfg.Booking))
		r.Post("/appointments", bookSlotHandler(cfg.Stores, cfg.Booking))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Stores, cfg.Booking))
		r.Put("/appointments/{id}/reminder", reminderHandler(cfg.Stores, cfg.Booking))
		r.Put("/appointments/{id}/calendar-sync", calendarSyncHandler(cfg.Stores, cfg.Booking))
		r.Get("/appointments/{id}/reschedule-suggestions", suggestionsHandler(cfg.Stores, cfg.Reschedule))
		r.Post("/appointments/{id}/reschedule", rescheduleHandler(cfg.Stores, cfg.Reschedule))

		r.Post("/reset", resetHandler(cfg.Stores))
	})

	r.Get("/doctors", searchDoctorsHandler(cfg.Doctors))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Doctors))
	r.Get("/doctors/{id}/slots", doctorSlotsHandler(cfg.Doctors, cfg.Slots))

	return r
}
