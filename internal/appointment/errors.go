package appointment

import (
	"errors"
	"fmt"

	"github.com/wecare-health/wecare/internal/validation"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrUnauthorized            = errors.New("not authorized to act on this appointment")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrAlreadyRated            = errors.New("appointment has already been rated")
	ErrRatingBusy              = errors.New("nurse rating is being updated, please retry")
)

// ValidationError reports missing or malformed booking input per field.
type ValidationError = validation.Error

// InvalidStateError is returned when the appointment's current status does
// not allow the requested action. Current is read after the failed attempt
// so callers can refresh their view.
type InvalidStateError struct {
	Action  Action
	Current Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s an appointment that is %s", e.Action, e.Current)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidStatusTransition
}
