package directory

import (
	"time"

	"github.com/google/uuid"
)

// Defaults applied when a nurse account is first listed. New nurses start at
// DefaultRating rather than zero so they are not buried in the directory.
const (
	DefaultRating         = 4.5
	DefaultSpecialization = "General Nursing"
	DefaultHourlyRate     = "500"
	DefaultExperience     = "0 years"
	DefaultLicenseNumber  = "PENDING"
	DefaultDistance       = "0 km away"
	DefaultProfileImage   = "https://i.pinimg.com/736x/42/96/46/429646366c50688783ed4239528f7e95.jpg"
)

// Listing is the public directory entry of one nurse account.
type Listing struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"userId"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	HourlyRate     string    `json:"hourlyRate"`
	Experience     string    `json:"experience"`
	LicenseNumber  string    `json:"licenseNumber"`
	Certifications string    `json:"certifications"`
	ProfileImage   string    `json:"profileImage"`
	Distance       string    `json:"distance"`
	IsActive       bool      `json:"isActive"`
	Rating         float64   `json:"rating"`
	ReviewCount    int       `json:"reviewCount"`
	Reviews        []Review  `json:"reviews,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Review is one entry of a listing's append-only review history.
type Review struct {
	ID            uuid.UUID `json:"id"`
	ListingID     uuid.UUID `json:"listingId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	ReviewerID    uuid.UUID `json:"reviewerId"`
	ReviewerName  string    `json:"reviewerName"`
	Rating        int       `json:"rating"`
	Feedback      string    `json:"feedback"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ListingUpdate holds the professional details a nurse edits directly.
// Rating and reviews are deliberately absent.
type ListingUpdate struct {
	HourlyRate     *string `json:"hourlyRate,omitempty"`
	Experience     *string `json:"experience,omitempty"`
	LicenseNumber  *string `json:"licenseNumber,omitempty"`
	Certifications *string `json:"certifications,omitempty"`
	Distance       *string `json:"distance,omitempty"`
	IsActive       *bool   `json:"isActive,omitempty"`
}
