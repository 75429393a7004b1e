package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrRatingConflict means the conditional rating write matched no row: the
// appointment is not completed or already carries a rating.
var ErrRatingConflict = errors.New("appointment not rateable")

// Repository contains all DB interactions needed by the service.
type Repository interface {
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Listings are most recent first. A nil status means any status.
	ListByPatient(ctx context.Context, userID uuid.UUID) ([]Appointment, error)
	ListByNurse(ctx context.Context, nurseID uuid.UUID, status *Status) ([]Appointment, error)

	// UpdateAppointmentStatus moves the appointment to `to` only if its
	// status is still one of `from`. ErrAppointmentNotFound when no row matched.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) (*Appointment, error)

	// RecordRating writes the rating, appends the review and recomputes the
	// nurse aggregate as one unit. Nothing is persisted on error.
	RecordRating(ctx context.Context, rec RatingRecord) (*Appointment, *Aggregate, error)

	// Reconciliation
	RatedNurseIDs(ctx context.Context) ([]uuid.UUID, error)
	ReconcileAggregate(ctx context.Context, nurseID uuid.UUID) (before, after Aggregate, err error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
