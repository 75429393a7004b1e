package appointment

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

func ParseStatus(s string) (Status, bool) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Terminal reports whether no status transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type ServiceType string

const (
	ServiceConsultation ServiceType = "Consultation"
	ServiceHomeVisit    ServiceType = "Home visit"
	ServiceEmergency    ServiceType = "Emergency"
)

var servicePrices = map[ServiceType]int{
	ServiceConsultation: 500,
	ServiceHomeVisit:    1200,
	ServiceEmergency:    2000,
}

// Price returns the canonical price of the service type.
func (t ServiceType) Price() (int, bool) {
	p, ok := servicePrices[t]
	return p, ok
}

// ServicePrices returns a copy of the canonical price table.
func ServicePrices() map[ServiceType]int {
	out := make(map[ServiceType]int, len(servicePrices))
	for k, v := range servicePrices {
		out[k] = v
	}
	return out
}

const dateLayout = "2006-01-02"

// Date is a calendar day without time of day, serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ScanDate lets pgx read a DATE column straight into a Date.
func (d *Date) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		return fmt.Errorf("cannot scan NULL into appointment date")
	}
	d.Time = v.Time
	return nil
}

// NurseSnapshot is the nurse as the patient saw them when booking. It is
// copied onto the appointment and never refreshed from the live listing.
type NurseSnapshot struct {
	NurseID        uuid.UUID `json:"nurseId"`
	NurseName      string    `json:"nurseName"`
	NurseImage     string    `json:"nurseImage"`
	Specialization string    `json:"specialization"`
}

type Appointment struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"userId"`
	NurseSnapshot

	ServiceType       ServiceType `json:"serviceType"`
	ServicePrice      int         `json:"servicePrice"`
	AppointmentDate   Date        `json:"appointmentDate"`
	AppointmentTime   string      `json:"appointmentTime"`
	PaymentMethod     string      `json:"paymentMethod"`
	InsuranceCoverage bool        `json:"insuranceCoverage"`
	Notes             string      `json:"notes,omitempty"`

	Status Status `json:"status"`

	Rating   *int       `json:"rating,omitempty"`
	Feedback *string    `json:"feedback,omitempty"`
	RatedAt  *time.Time `json:"ratedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Appointment) Rated() bool {
	return a.Rating != nil
}

// CreateInput is a patient's booking request as submitted.
type CreateInput struct {
	NurseID           uuid.UUID   `json:"nurseId"`
	ServiceType       ServiceType `json:"serviceType"`
	ServicePrice      *int        `json:"servicePrice"`
	AppointmentDate   string      `json:"appointmentDate"`
	AppointmentTime   string      `json:"appointmentTime"`
	PaymentMethod     string      `json:"paymentMethod"`
	InsuranceCoverage bool        `json:"insuranceCoverage"`
	Notes             string      `json:"notes"`
}

// RatingRecord is everything persisted by one successful rate call.
type RatingRecord struct {
	AppointmentID uuid.UUID
	NurseID       uuid.UUID
	ReviewerID    uuid.UUID
	ReviewerName  string
	Rating        int
	Feedback      string
	RatedAt       time.Time
}

// Aggregate is a nurse listing's derived rating state.
type Aggregate struct {
	ListingID   uuid.UUID `json:"listingId"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
