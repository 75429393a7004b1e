package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wecare-health/wecare/internal/app"
	"github.com/wecare-health/wecare/internal/appointment"
	"github.com/wecare-health/wecare/internal/config"
	"github.com/wecare-health/wecare/internal/directory"
	"github.com/wecare-health/wecare/internal/identity"
	"github.com/wecare-health/wecare/internal/logging"
)

var specializations = []string{
	"General Care",
	"Elderly Care",
	"Pediatric Care",
	"Post-operative Care",
	"Wound Care",
	"Palliative Care",
	"Physiotherapy",
	"Diabetes Care",
	"Cardiac Care",
	"Maternity Care",
}

var visitNotes = []string{
	"Please ring the bell twice.",
	"Patient uses a wheelchair.",
	"Dressing change after surgery.",
	"Blood sugar monitoring needed.",
	"Elderly parent lives alone.",
	"",
}

var feedbackLines = []string{
	"Very caring and punctual.",
	"Explained everything clearly.",
	"Arrived late but did a good job.",
	"Professional and gentle.",
	"Would book again.",
	"Not satisfied with the visit.",
}

var appointmentTimes = []string{"09:00 AM", "10:30 AM", "12:00 PM", "02:00 PM", "03:30 PM", "05:00 PM", "06:30 PM"}

type seedConfig struct {
	Nurses       int
	Patients     int
	Appointments int
	Password     string
	AdminEmail   string
}

type seeder struct {
	app      *app.App
	cfg      seedConfig
	log      zerolog.Logger
	nurses   []seededNurse
	patients []identity.Actor
	admin    identity.Actor
}

type seededNurse struct {
	actor   identity.Actor
	listing uuid.UUID
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel, "seed")

	sc := seedConfig{
		Nurses:       getInt("SEED_NURSES", 20),
		Patients:     getInt("SEED_PATIENTS", 100),
		Appointments: getInt("SEED_APPOINTMENTS", 300),
		Password:     getEnv("SEED_PASSWORD", "wecare123"),
		AdminEmail:   getEnv("SEED_ADMIN_EMAIL", "admin@wecare.test"),
	}
	logger.Info().
		Int("nurses", sc.Nurses).
		Int("patients", sc.Patients).
		Int("appointments", sc.Appointments).
		Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	a, err := app.Open(ctx, cfg, logger, "seed", true)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	s := &seeder{app: a, cfg: sc, log: logger}

	if err := s.seedAdmin(ctx); err != nil {
		logger.Fatal().Err(err).Msg("seed admin")
	}
	if err := s.seedNurses(ctx); err != nil {
		logger.Fatal().Err(err).Msg("seed nurses")
	}
	if err := s.seedPatients(ctx); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := s.seedAppointments(ctx); err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}

	logger.Info().Str("admin", sc.AdminEmail).Msg("seed complete")
}

func (s *seeder) seedAdmin(ctx context.Context) error {
	acct, err := s.app.Identity.CreateAdmin(ctx, s.cfg.AdminEmail, s.cfg.Password, "WeCare Admin")
	if errors.Is(err, identity.ErrEmailTaken) {
		acct, err = s.app.Identity.Authenticate(ctx, s.cfg.AdminEmail, s.cfg.Password)
	}
	if err != nil {
		return err
	}
	s.admin = acct.Actor()
	return nil
}

func (s *seeder) seedNurses(ctx context.Context) error {
	s.log.Info().Int("count", s.cfg.Nurses).Msg("seeding nurses")

	for i := 0; i < s.cfg.Nurses; i++ {
		acct, err := s.signup(ctx, identity.RoleNurse, "nurse", i)
		if err != nil {
			return err
		}
		actor := acct.Actor()

		spec := gofakeit.RandomString(specializations)
		photo := fmt.Sprintf("/uploads/nurses/%s.jpg", acct.ID)
		if _, err := s.app.Identity.UpdateProfile(ctx, actor, acct.ID, identity.ProfileUpdate{
			Phone:          ptr(gofakeit.Phone()),
			Gender:         ptr(gofakeit.Gender()),
			City:           ptr(gofakeit.City()),
			State:          ptr(gofakeit.State()),
			PhotoPath:      &photo,
			Specialization: &spec,
		}); err != nil {
			return fmt.Errorf("profile for %s: %w", acct.Email, err)
		}

		listing, err := s.app.Directory.UpdateDetails(ctx, actor, directory.ListingUpdate{
			HourlyRate:     ptr(strconv.Itoa(gofakeit.Number(3, 12) * 100)),
			Experience:     ptr(fmt.Sprintf("%d years", gofakeit.Number(1, 25))),
			LicenseNumber:  ptr(fmt.Sprintf("RN-%06d", gofakeit.Number(1, 999999))),
			Certifications: ptr(strings.Join([]string{"BLS", gofakeit.RandomString([]string{"ACLS", "PALS", "CCRN", "CWCN"})}, ", ")),
			Distance:       ptr(fmt.Sprintf("%.1f km away", gofakeit.Float64Range(0.5, 15))),
		})
		if err != nil {
			return fmt.Errorf("listing for %s: %w", acct.Email, err)
		}

		s.nurses = append(s.nurses, seededNurse{actor: actor, listing: listing.ID})
	}

	s.log.Info().Int("count", len(s.nurses)).Msg("nurses seeded")
	return nil
}

func (s *seeder) seedPatients(ctx context.Context) error {
	s.log.Info().Int("count", s.cfg.Patients).Msg("seeding patients")

	for i := 0; i < s.cfg.Patients; i++ {
		acct, err := s.signup(ctx, identity.RolePatient, "patient", i)
		if err != nil {
			return err
		}
		actor := acct.Actor()

		if _, err := s.app.Identity.UpdateProfile(ctx, actor, acct.ID, identity.ProfileUpdate{
			Phone:            ptr(gofakeit.Phone()),
			Gender:           ptr(gofakeit.Gender()),
			Address:          ptr(gofakeit.Street()),
			City:             ptr(gofakeit.City()),
			State:            ptr(gofakeit.State()),
			Zip:              ptr(gofakeit.Zip()),
			EmergencyContact: ptr(gofakeit.Name() + " " + gofakeit.Phone()),
			BloodGroup:       ptr(gofakeit.RandomString([]string{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"})),
		}); err != nil {
			return fmt.Errorf("profile for %s: %w", acct.Email, err)
		}

		s.patients = append(s.patients, actor)

		if (i+1)%50 == 0 {
			s.log.Info().Int("done", i+1).Int("total", s.cfg.Patients).Msg("patients seeded")
		}
	}

	return nil
}

// seedAppointments books appointments and walks a share of them through the
// rest of the workflow so listings end up with real ratings.
func (s *seeder) seedAppointments(ctx context.Context) error {
	if len(s.nurses) == 0 || len(s.patients) == 0 {
		return nil
	}
	s.log.Info().Int("count", s.cfg.Appointments).Msg("seeding appointments")

	prices := appointment.ServicePrices()
	types := make([]string, 0, len(prices))
	for t := range prices {
		types = append(types, string(t))
	}

	outcomes := map[appointment.Status]int{}
	rated := 0

	for i := 0; i < s.cfg.Appointments; i++ {
		patient := s.patients[gofakeit.Number(0, len(s.patients)-1)]
		nurse := s.nurses[gofakeit.Number(0, len(s.nurses)-1)]
		st := appointment.ServiceType(gofakeit.RandomString(types))
		price := prices[st]
		date := gofakeit.DateRange(time.Now().AddDate(0, -3, 0), time.Now().AddDate(0, 1, 0))

		appt, err := s.app.Appointments.CreateAppointment(ctx, patient, appointment.CreateInput{
			NurseID:           nurse.listing,
			ServiceType:       st,
			ServicePrice:      &price,
			AppointmentDate:   date.Format("2006-01-02"),
			AppointmentTime:   gofakeit.RandomString(appointmentTimes),
			PaymentMethod:     gofakeit.RandomString([]string{"cash", "card", "upi"}),
			InsuranceCoverage: gofakeit.Bool(),
			Notes:             gofakeit.RandomString(visitNotes),
		})
		if err != nil {
			return fmt.Errorf("book appointment: %w", err)
		}

		final, wasRated, err := s.advance(ctx, appt, patient, nurse.actor)
		if err != nil {
			return err
		}
		outcomes[final]++
		if wasRated {
			rated++
		}
	}

	s.log.Info().
		Int("pending", outcomes[appointment.StatusPending]).
		Int("confirmed", outcomes[appointment.StatusConfirmed]).
		Int("completed", outcomes[appointment.StatusCompleted]).
		Int("cancelled", outcomes[appointment.StatusCancelled]).
		Int("rated", rated).
		Msg("appointments seeded")
	return nil
}

func (s *seeder) advance(ctx context.Context, appt *appointment.Appointment, patient, nurse identity.Actor) (appointment.Status, bool, error) {
	roll := gofakeit.Number(1, 100)
	switch {
	case roll <= 15:
		return appt.Status, false, nil
	case roll <= 25:
		_, err := s.app.Appointments.Decline(ctx, nurse, appt.ID)
		return appointment.StatusCancelled, false, err
	case roll <= 35:
		_, err := s.app.Appointments.Cancel(ctx, patient, appt.ID)
		return appointment.StatusCancelled, false, err
	}

	if _, err := s.app.Appointments.Accept(ctx, nurse, appt.ID); err != nil {
		return "", false, fmt.Errorf("accept: %w", err)
	}
	if roll <= 50 {
		return appointment.StatusConfirmed, false, nil
	}

	if _, err := s.app.Appointments.Complete(ctx, s.admin, appt.ID); err != nil {
		return "", false, fmt.Errorf("complete: %w", err)
	}
	if roll <= 60 {
		return appointment.StatusCompleted, false, nil
	}

	// skew towards good reviews
	rating := gofakeit.RandomInt([]int{3, 4, 4, 5, 5, 5, 2, 1})
	if _, err := s.app.Appointments.Rate(ctx, patient, appt.ID, rating, gofakeit.RandomString(feedbackLines)); err != nil {
		return "", false, fmt.Errorf("rate: %w", err)
	}
	return appointment.StatusCompleted, true, nil
}

func (s *seeder) signup(ctx context.Context, role identity.Role, kind string, i int) (*identity.Account, error) {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	email := fmt.Sprintf("%s.%s.%s%d@wecare.test", emailPart(first), emailPart(last), kind, i)

	acct, err := s.app.Identity.Signup(ctx, identity.SignupInput{
		Email:    email,
		Password: s.cfg.Password,
		Name:     first + " " + last,
		Role:     role,
	})
	if err != nil {
		return nil, fmt.Errorf("signup %s: %w", email, err)
	}
	return acct, nil
}

func emailPart(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, strings.ToLower(s))
}

func ptr[T any](v T) *T { return &v }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
