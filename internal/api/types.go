package api

import (
	"strings"

	"github.com/google/uuid"

	"github.com/wecare-health/wecare/internal/appointment"
	"github.com/wecare-health/wecare/internal/identity"
	"github.com/wecare-health/wecare/internal/validation"
)

// CreateAppointmentRequest is the booking form body. The client also sends
// nurse display fields; those are ignored in favour of the live listing.
type CreateAppointmentRequest struct {
	NurseID           string `json:"nurseId"`
	ServiceType       string `json:"serviceType"`
	ServicePrice      *int   `json:"servicePrice"`
	AppointmentDate   string `json:"appointmentDate"`
	AppointmentTime   string `json:"appointmentTime"`
	PaymentMethod     string `json:"paymentMethod"`
	InsuranceCoverage bool   `json:"insuranceCoverage"`
	Notes             string `json:"notes"`
}

// toInput converts the request. An empty nurse id is left to the service
// to report as missing; a malformed one is rejected here.
func (r CreateAppointmentRequest) toInput() (appointment.CreateInput, error) {
	var nurseID uuid.UUID
	if raw := strings.TrimSpace(r.NurseID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			v := validation.New()
			v.Add("nurseId", "must be a valid id")
			return appointment.CreateInput{}, v.Err()
		}
		nurseID = id
	}

	return appointment.CreateInput{
		NurseID:           nurseID,
		ServiceType:       appointment.ServiceType(strings.TrimSpace(r.ServiceType)),
		ServicePrice:      r.ServicePrice,
		AppointmentDate:   r.AppointmentDate,
		AppointmentTime:   r.AppointmentTime,
		PaymentMethod:     r.PaymentMethod,
		InsuranceCoverage: r.InsuranceCoverage,
		Notes:             r.Notes,
	}, nil
}

type RateAppointmentRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

type SignupRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Name     string        `json:"name"`
	Role     identity.Role `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ServicePrice struct {
	Name  appointment.ServiceType `json:"name"`
	Price int                     `json:"price"`
}

type InvalidStateDetails struct {
	Action        string `json:"action"`
	CurrentStatus string `json:"currentStatus"`
}

type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Code    string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
