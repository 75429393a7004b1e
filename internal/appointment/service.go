package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wecare-health/wecare/internal/config"
	"github.com/wecare-health/wecare/internal/directory"
	"github.com/wecare-health/wecare/internal/identity"
	"github.com/wecare-health/wecare/internal/metrics"
	redisclient "github.com/wecare-health/wecare/internal/redis"
	"github.com/wecare-health/wecare/internal/validation"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentAccepted  = "APPOINTMENT_ACCEPTED"
	EventAppointmentDeclined  = "APPOINTMENT_DECLINED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentRated     = "APPOINTMENT_RATED"
	EventRatingReconciled     = "RATING_AGGREGATE_RECONCILED"
)

var transitionEvents = map[Action]string{
	ActionAccept:   EventAppointmentAccepted,
	ActionDecline:  EventAppointmentDeclined,
	ActionCancel:   EventAppointmentCancelled,
	ActionComplete: EventAppointmentCompleted,
}

// NurseDirectory resolves nurse listings for snapshots and ownership checks.
type NurseDirectory interface {
	GetListing(ctx context.Context, id uuid.UUID) (*directory.Listing, error)
	GetListingByAccount(ctx context.Context, accountID uuid.UUID) (*directory.Listing, error)
}

// AccountDirectory resolves reviewer display names.
type AccountDirectory interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*identity.Account, error)
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	nurses   NurseDirectory
	accounts AccountDirectory
	cfg      config.Config
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(
	repo Repository,
	locker redisclient.Locker,
	nurses NurseDirectory,
	accounts AccountDirectory,
	cfg config.Config,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		nurses:   nurses,
		accounts: accounts,
		cfg:      cfg,
		metrics:  m,
		log:      logger.With().Str("component", "appointment").Logger(),
		now:      time.Now,
	}
}

// CreateAppointment books a pending appointment for the calling patient and
// snapshots the nurse's display fields as they are right now.
func (s *Service) CreateAppointment(ctx context.Context, actor identity.Actor, in CreateInput) (*Appointment, error) {
	if actor.Role != identity.RolePatient {
		return nil, ErrUnauthorized
	}

	v := validation.New()

	if in.NurseID == uuid.Nil {
		v.Add("nurseId", "is required")
	}

	canonical, knownType := in.ServiceType.Price()
	switch {
	case in.ServiceType == "":
		v.Add("serviceType", "is required")
	case !knownType:
		v.Add("serviceType", "must be one of Consultation, Home visit, Emergency")
	}

	switch {
	case in.ServicePrice == nil:
		v.Add("servicePrice", "is required")
	case *in.ServicePrice <= 0:
		v.Add("servicePrice", "must be positive")
	case s.cfg.StrictPricing && knownType && *in.ServicePrice != canonical:
		v.Add("servicePrice", fmt.Sprintf("must be %d for %s", canonical, in.ServiceType))
	}

	var date Date
	if strings.TrimSpace(in.AppointmentDate) == "" {
		v.Add("appointmentDate", "is required")
	} else if d, err := ParseDate(in.AppointmentDate); err != nil {
		v.Add("appointmentDate", "must be a date formatted YYYY-MM-DD")
	} else {
		date = d
	}

	if strings.TrimSpace(in.AppointmentTime) == "" {
		v.Add("appointmentTime", "is required")
	}

	if err := v.Err(); err != nil {
		return nil, err
	}

	listing, err := s.nurses.GetListing(ctx, in.NurseID)
	if err != nil {
		if errors.Is(err, directory.ErrListingNotFound) {
			v.Add("nurseId", "does not reference a listed nurse")
			return nil, v
		}
		return nil, fmt.Errorf("load nurse listing: %w", err)
	}
	if !listing.IsActive {
		v.Add("nurseId", "nurse is not accepting bookings")
		return nil, v
	}

	appt := &Appointment{
		ID:     uuid.New(),
		UserID: actor.ID,
		NurseSnapshot: NurseSnapshot{
			NurseID:        listing.ID,
			NurseName:      listing.Name,
			NurseImage:     listing.ProfileImage,
			Specialization: listing.Specialization,
		},
		ServiceType:       in.ServiceType,
		ServicePrice:      *in.ServicePrice,
		AppointmentDate:   date,
		AppointmentTime:   strings.TrimSpace(in.AppointmentTime),
		PaymentMethod:     strings.TrimSpace(in.PaymentMethod),
		InsuranceCoverage: in.InsuranceCoverage,
		Notes:             strings.TrimSpace(in.Notes),
		Status:            StatusPending,
	}

	created, err := s.repo.CreateAppointment(ctx, appt)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"user_id":      created.UserID.String(),
		"nurse_id":     created.NurseID.String(),
		"service_type": created.ServiceType,
		"price":        created.ServicePrice,
		"date":         created.AppointmentDate.String(),
	})
	s.metrics.Transition("create", "ok")

	return created, nil
}

// GetAppointment returns an appointment to one of its parties or an admin.
// Anyone else gets ErrAppointmentNotFound so ids of other people's bookings
// cannot be probed.
func (s *Service) GetAppointment(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case identity.RoleAdmin:
		return appt, nil
	case identity.RolePatient:
		if appt.UserID == actor.ID {
			return appt, nil
		}
	case identity.RoleNurse:
		if ok, err := s.ownsListing(ctx, actor, appt.NurseID); err != nil {
			return nil, err
		} else if ok {
			return appt, nil
		}
	}

	return nil, ErrAppointmentNotFound
}

// ListForPatient returns every appointment of the patient, most recent first.
func (s *Service) ListForPatient(ctx context.Context, actor identity.Actor, patientID uuid.UUID) ([]Appointment, error) {
	if actor.Role != identity.RoleAdmin && actor.ID != patientID {
		return nil, ErrUnauthorized
	}

	appts, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

// ListPendingForNurse is the nurse dashboard: requests awaiting a decision.
func (s *Service) ListPendingForNurse(ctx context.Context, actor identity.Actor) ([]Appointment, error) {
	pending := StatusPending
	return s.ListForNurse(ctx, actor, &pending)
}

// ListForNurse lists the calling nurse's appointments, most recent first,
// optionally restricted to one status.
func (s *Service) ListForNurse(ctx context.Context, actor identity.Actor, status *Status) ([]Appointment, error) {
	if actor.Role != identity.RoleNurse {
		return nil, ErrUnauthorized
	}

	listing, err := s.nurses.GetListingByAccount(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, directory.ErrListingNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve nurse listing: %w", err)
	}

	appts, err := s.repo.ListByNurse(ctx, listing.ID, status)
	if err != nil {
		return nil, fmt.Errorf("list appointments by nurse: %w", err)
	}
	return appts, nil
}

func (s *Service) Accept(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Appointment, error) {
	return s.Transition(ctx, actor, id, ActionAccept)
}

func (s *Service) Decline(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Appointment, error) {
	return s.Transition(ctx, actor, id, ActionDecline)
}

func (s *Service) Cancel(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Appointment, error) {
	return s.Transition(ctx, actor, id, ActionCancel)
}

// Complete is the administrative confirmed -> completed trigger.
func (s *Service) Complete(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Appointment, error) {
	return s.Transition(ctx, actor, id, ActionComplete)
}

// Transition applies action on behalf of actor. The guard is checked on the
// loaded record and enforced again by the conditional update, so of two
// concurrent identical calls exactly one succeeds and the other gets an
// InvalidStateError.
func (s *Service) Transition(ctx context.Context, actor identity.Actor, id uuid.UUID, action Action) (*Appointment, error) {
	t, ok := transitions[action]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	appt, err := s.load(ctx, id)
	if err != nil {
		s.metrics.Transition(string(action), "not_found")
		return nil, err
	}

	if err := s.authorize(ctx, actor, appt, t.role); err != nil {
		s.metrics.Transition(string(action), "unauthorized")
		return nil, err
	}

	if !t.allows(appt.Status) {
		s.metrics.Transition(string(action), "invalid_state")
		return nil, &InvalidStateError{Action: action, Current: appt.Status}
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, t.from, t.to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// lost a race: report what the winner left behind
			current, lerr := s.load(ctx, id)
			if lerr != nil {
				return nil, lerr
			}
			s.metrics.Transition(string(action), "invalid_state")
			return nil, &InvalidStateError{Action: action, Current: current.Status}
		}
		s.metrics.Transition(string(action), "error")
		return nil, fmt.Errorf("%s appointment: %w", action, err)
	}

	s.logEvent(ctx, updated.ID, transitionEvents[action], map[string]any{
		"actor_id":   actor.ID.String(),
		"actor_role": string(actor.Role),
		"from":       string(appt.Status),
		"to":         string(updated.Status),
	})
	s.metrics.Transition(string(action), "ok")
	s.log.Info().
		Str("appointment_id", updated.ID.String()).
		Str("action", string(action)).
		Str("status", string(updated.Status)).
		Msg("appointment transitioned")

	return updated, nil
}

// authorize checks that actor holds role and is the party the role acts for.
func (s *Service) authorize(ctx context.Context, actor identity.Actor, appt *Appointment, role identity.Role) error {
	if actor.Role != role {
		return ErrUnauthorized
	}

	switch role {
	case identity.RolePatient:
		if appt.UserID != actor.ID {
			return ErrUnauthorized
		}
	case identity.RoleNurse:
		ok, err := s.ownsListing(ctx, actor, appt.NurseID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnauthorized
		}
	}

	return nil
}

func (s *Service) ownsListing(ctx context.Context, actor identity.Actor, listingID uuid.UUID) (bool, error) {
	listing, err := s.nurses.GetListingByAccount(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, directory.ErrListingNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("resolve nurse listing: %w", err)
	}
	return listing.ID == listingID, nil
}

// Rate attaches the patient's rating to a completed appointment and folds it
// into the nurse's aggregate. The rating, the review entry and the new
// aggregate are persisted together or not at all.
func (s *Service) Rate(ctx context.Context, actor identity.Actor, id uuid.UUID, rating int, feedback string) (*Appointment, error) {
	if !ValidRating(rating) {
		v := validation.New()
		v.Add("rating", "must be between 1 and 5")
		return nil, v
	}

	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != identity.RolePatient || appt.UserID != actor.ID {
		s.metrics.Rating("unauthorized")
		return nil, ErrUnauthorized
	}
	if err := rateable(appt); err != nil {
		s.metrics.Rating("rejected")
		return nil, err
	}

	rec := RatingRecord{
		AppointmentID: appt.ID,
		NurseID:       appt.NurseID,
		ReviewerID:    actor.ID,
		ReviewerName:  s.reviewerName(ctx, actor.ID),
		Rating:        rating,
		Feedback:      strings.TrimSpace(feedback),
		RatedAt:       s.now().UTC(),
	}

	var (
		rated *Appointment
		agg   *Aggregate
	)
	err = s.locker.WithLock(ctx, redisclient.NurseLockKey(appt.NurseID), func(lockCtx context.Context) error {
		var err error
		rated, agg, err = s.repo.RecordRating(lockCtx, rec)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			s.metrics.LockContention("nurse")
			s.metrics.Rating("busy")
			return nil, ErrRatingBusy
		case errors.Is(err, ErrRatingConflict):
			s.metrics.Rating("rejected")
			current, lerr := s.load(ctx, id)
			if lerr != nil {
				return nil, lerr
			}
			if rerr := rateable(current); rerr != nil {
				return nil, rerr
			}
			return nil, &InvalidStateError{Action: ActionRate, Current: current.Status}
		}
		s.metrics.Rating("error")
		s.log.Error().Err(err).
			Str("appointment_id", appt.ID.String()).
			Str("nurse_id", appt.NurseID.String()).
			Msg("rating not recorded, appointment and aggregate left unchanged")
		return nil, fmt.Errorf("record rating: %w", err)
	}

	s.logEvent(ctx, rated.ID, EventAppointmentRated, map[string]any{
		"nurse_id":     agg.ListingID.String(),
		"rating":       rating,
		"nurse_rating": agg.Rating,
		"review_count": agg.ReviewCount,
	})
	s.metrics.Rating("ok")
	s.log.Info().
		Str("appointment_id", rated.ID.String()).
		Str("nurse_id", agg.ListingID.String()).
		Int("rating", rating).
		Float64("nurse_rating", agg.Rating).
		Msg("appointment rated")

	return rated, nil
}

func rateable(a *Appointment) error {
	if a.Status != StatusCompleted {
		return &InvalidStateError{Action: ActionRate, Current: a.Status}
	}
	if a.Rated() {
		return ErrAlreadyRated
	}
	return nil
}

func (s *Service) reviewerName(ctx context.Context, id uuid.UUID) string {
	acct, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", id.String()).Msg("reviewer name unavailable")
		return ""
	}
	return acct.Name
}

// ReconcileRatings recomputes every rated nurse's aggregate from scratch and
// repairs any drift. It returns the aggregates that were corrected.
func (s *Service) ReconcileRatings(ctx context.Context) ([]Aggregate, error) {
	ids, err := s.repo.RatedNurseIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rated nurses: %w", err)
	}

	var corrected []Aggregate
	for _, nurseID := range ids {
		if err := ctx.Err(); err != nil {
			return corrected, err
		}

		var before, after Aggregate
		err := s.locker.WithLock(ctx, redisclient.NurseLockKey(nurseID), func(lockCtx context.Context) error {
			var err error
			before, after, err = s.repo.ReconcileAggregate(lockCtx, nurseID)
			return err
		})
		if err != nil {
			if errors.Is(err, redisclient.ErrLockNotAcquired) {
				s.metrics.LockContention("nurse")
				s.log.Debug().Str("nurse_id", nurseID.String()).Msg("nurse busy, reconcile next round")
				continue
			}
			s.log.Error().Err(err).Str("nurse_id", nurseID.String()).Msg("failed to reconcile nurse rating")
			continue
		}

		if before == after {
			continue
		}

		corrected = append(corrected, after)
		s.metrics.ReconcileCorrection()
		s.log.Warn().
			Str("nurse_id", nurseID.String()).
			Float64("rating_before", before.Rating).
			Float64("rating_after", after.Rating).
			Int("count_before", before.ReviewCount).
			Int("count_after", after.ReviewCount).
			Msg("nurse rating drift repaired")
		s.logEvent(ctx, uuid.Nil, EventRatingReconciled, map[string]any{
			"nurse_id":      nurseID.String(),
			"rating_before": before.Rating,
			"rating_after":  after.Rating,
			"count_before":  before.ReviewCount,
			"count_after":   after.ReviewCount,
		})
	}

	return corrected, nil
}

// ServicePrices exposes the canonical price table.
func (s *Service) ServicePrices() map[ServiceType]int {
	return ServicePrices()
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}

// logEvent appends to the audit log. Failures are logged and swallowed.
func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
		CreatedAt: s.now(),
	}
	if appointmentID != uuid.Nil {
		apptID := appointmentID
		ev.AppointmentID = &apptID
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}
