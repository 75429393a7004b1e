package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wecare-health/wecare/internal/appointment"
	"github.com/wecare-health/wecare/internal/auth"
	"github.com/wecare-health/wecare/internal/directory"
	"github.com/wecare-health/wecare/internal/identity"
	"github.com/wecare-health/wecare/internal/metrics"
)

type AppointmentService interface {
	CreateAppointment(ctx context.Context, actor identity.Actor, in appointment.CreateInput) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, actor identity.Actor, id uuid.UUID) (*appointment.Appointment, error)
	ListForPatient(ctx context.Context, actor identity.Actor, patientID uuid.UUID) ([]appointment.Appointment, error)
	ListForNurse(ctx context.Context, actor identity.Actor, status *appointment.Status) ([]appointment.Appointment, error)
	Transition(ctx context.Context, actor identity.Actor, id uuid.UUID, action appointment.Action) (*appointment.Appointment, error)
	Rate(ctx context.Context, actor identity.Actor, id uuid.UUID, rating int, feedback string) (*appointment.Appointment, error)
	ServicePrices() map[appointment.ServiceType]int
}

type IdentityService interface {
	Signup(ctx context.Context, in identity.SignupInput) (*identity.Account, error)
	Authenticate(ctx context.Context, email, password string) (*identity.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*identity.Account, error)
	UpdateProfile(ctx context.Context, actor identity.Actor, accountID uuid.UUID, upd identity.ProfileUpdate) (*identity.Account, error)
}

type DirectoryService interface {
	ListActive(ctx context.Context) ([]directory.Listing, error)
	GetListing(ctx context.Context, id uuid.UUID) (*directory.Listing, error)
	GetListingByAccount(ctx context.Context, accountID uuid.UUID) (*directory.Listing, error)
	UpdateDetails(ctx context.Context, actor identity.Actor, upd directory.ListingUpdate) (*directory.Listing, error)
}

type RouterConfig struct {
	Appointments AppointmentService
	Identity     IdentityService
	Directory    DirectoryService
	Sessions     *auth.Sessions
	Health       *HealthHandler
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
}

type handlers struct {
	appointments AppointmentService
	identity     IdentityService
	directory    DirectoryService
	sessions     *auth.Sessions
	log          zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := &handlers{
		appointments: cfg.Appointments,
		identity:     cfg.Identity,
		directory:    cfg.Directory,
		sessions:     cfg.Sessions,
		log:          cfg.Logger,
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(cfg.Sessions.Middleware)

	// Ops endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	signedIn := auth.Require(deny)
	patient := auth.Require(deny, identity.RolePatient)
	nurse := auth.Require(deny, identity.RoleNurse)
	admin := auth.Require(deny, identity.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", h.signup)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)

		r.Get("/services", h.listServices)
		r.Get("/nurses", h.listNurses)
		r.Get("/nurses/{id}", h.getNurse)

		r.Group(func(r chi.Router) {
			r.Use(signedIn)
			r.Get("/me", h.me)
			r.Put("/me/profile", h.updateProfile)
			r.Get("/appointments/{id}", h.getAppointment)
		})

		r.Group(func(r chi.Router) {
			r.Use(patient)
			r.Post("/appointments", h.createAppointment)
			r.Get("/appointments", h.listMyAppointments)
			r.Post("/appointments/{id}/cancel", h.transition(appointment.ActionCancel))
			r.Post("/appointments/{id}/rate", h.rateAppointment)
		})

		r.Group(func(r chi.Router) {
			r.Use(nurse)
			r.Put("/nurses/me", h.updateMyListing)
			r.Get("/nurse/appointments", h.listNurseAppointments)
			r.Post("/nurse/appointments/{id}/accept", h.transition(appointment.ActionAccept))
			r.Post("/nurse/appointments/{id}/decline", h.transition(appointment.ActionDecline))
		})

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/admin/appointments/{id}/complete", h.transition(appointment.ActionComplete))
		})
	})

	// Paths the booking page posts to
	r.With(patient).Post("/book-appointment", h.createAppointment)
	r.With(patient).Post("/cancel-appointment/{id}", h.transition(appointment.ActionCancel))

	return r
}
