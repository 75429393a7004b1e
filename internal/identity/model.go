package identity

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleNurse   Role = "nurse"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleNurse, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of a workflow operation, as vouched for
// by the session layer.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type Profile struct {
	Phone            string     `json:"phone"`
	DOB              *time.Time `json:"dob,omitempty"`
	Gender           string     `json:"gender"`
	Address          string     `json:"address"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	Zip              string     `json:"zip"`
	EmergencyContact string     `json:"emergencyContact"`
	BloodGroup       string     `json:"bloodGroup"`
	Notes            string     `json:"notes"`
	PhotoPath        string     `json:"photoPath"`
}

type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a *Account) Actor() Actor {
	return Actor{ID: a.ID, Role: a.Role}
}

// ProfileUpdate carries the fields a user changed; nil means untouched.
// Specialization only applies to nurses and is forwarded to the listing.
type ProfileUpdate struct {
	Name             *string    `json:"name,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	DOB              *time.Time `json:"dob,omitempty"`
	Gender           *string    `json:"gender,omitempty"`
	Address          *string    `json:"address,omitempty"`
	City             *string    `json:"city,omitempty"`
	State            *string    `json:"state,omitempty"`
	Zip              *string    `json:"zip,omitempty"`
	EmergencyContact *string    `json:"emergencyContact,omitempty"`
	BloodGroup       *string    `json:"bloodGroup,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	PhotoPath        *string    `json:"photoPath,omitempty"`
	Specialization   *string    `json:"specialization,omitempty"`
}

// touchesListing reports whether the update changes a field the nurse
// directory mirrors.
func (u ProfileUpdate) touchesListing() bool {
	return u.Name != nil || u.PhotoPath != nil || u.Specialization != nil
}

type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}
