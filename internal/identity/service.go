package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wecare-health/wecare/internal/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("not allowed to modify this account")
)

const minPasswordLength = 6

var validGenders = map[string]bool{"male": true, "female": true, "other": true, "": true}

// ListingProvisioner keeps the nurse directory in step with nurse accounts.
type ListingProvisioner interface {
	EnsureListing(ctx context.Context, account *Account) error
	SyncFromProfile(ctx context.Context, account *Account, specialization *string) error
}

type Service struct {
	repo     Repository
	hasher   PasswordHasher
	listings ListingProvisioner
	log      zerolog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, listings ListingProvisioner, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		listings: listings,
		log:      logger.With().Str("component", "identity").Logger(),
	}
}

// NormalizeEmail trims and lowercases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a patient or nurse. Nurse accounts get their directory
// listing provisioned before Signup returns.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Account, error) {
	if in.Role == "" {
		in.Role = RolePatient
	}

	v := validation.New()
	if in.Role != RolePatient && in.Role != RoleNurse {
		v.Add("role", "must be patient or nurse")
	}
	if in.Role == RoleNurse && strings.TrimSpace(in.Name) == "" {
		v.Add("name", "is required for nurses")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	acct, err := s.register(ctx, in)
	if err != nil {
		return nil, err
	}

	if acct.Role == RoleNurse {
		if err := s.listings.EnsureListing(ctx, acct); err != nil {
			return acct, fmt.Errorf("provision nurse listing: %w", err)
		}
	}

	s.log.Info().Str("account_id", acct.ID.String()).Str("role", string(acct.Role)).Msg("account created")
	return acct, nil
}

// CreateAdmin is only reachable from the admin tooling, never from the public API.
func (s *Service) CreateAdmin(ctx context.Context, email, password, name string) (*Account, error) {
	return s.register(ctx, SignupInput{Email: email, Password: password, Name: name, Role: RoleAdmin})
}

func (s *Service) register(ctx context.Context, in SignupInput) (*Account, error) {
	email := NormalizeEmail(in.Email)

	v := validation.New()
	if email == "" || !strings.Contains(email, "@") || strings.ContainsAny(email, " \t") {
		v.Add("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		v.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	acct := &Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
	}
	if err := s.repo.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	return acct, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords yield
// the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acct, err := s.repo.GetAccountByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	ok, err := s.hasher.Verify(acct.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	// heal nurses whose signup was interrupted before the listing was written
	if acct.Role == RoleNurse {
		if err := s.listings.EnsureListing(ctx, acct); err != nil {
			s.log.Error().Err(err).Str("account_id", acct.ID.String()).Msg("ensure nurse listing on login")
		}
	}

	return acct, nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	acct, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return acct, nil
}

// UpdateProfile applies a profile edit on behalf of the account owner. For
// nurses the display fields are pushed to the directory listing; a failed
// push is logged and left for the next edit, the account update stands.
func (s *Service) UpdateProfile(ctx context.Context, actor Actor, accountID uuid.UUID, upd ProfileUpdate) (*Account, error) {
	if actor.ID != accountID {
		return nil, ErrForbidden
	}

	acct, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := applyProfileUpdate(acct, upd); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateAccount(ctx, acct)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	if updated.Role == RoleNurse && upd.touchesListing() {
		if err := s.listings.SyncFromProfile(ctx, updated, upd.Specialization); err != nil {
			s.log.Error().Err(err).Str("account_id", updated.ID.String()).Msg("sync nurse listing from profile")
		}
	}

	return updated, nil
}

func applyProfileUpdate(a *Account, u ProfileUpdate) error {
	v := validation.New()
	if u.Name != nil && a.Role == RoleNurse && strings.TrimSpace(*u.Name) == "" {
		v.Add("name", "cannot be empty for nurses")
	}
	if u.Gender != nil && !validGenders[*u.Gender] {
		v.Add("gender", "must be male, female, other or empty")
	}
	if err := v.Err(); err != nil {
		return err
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}

	set(&a.Name, u.Name)
	set(&a.Profile.Phone, u.Phone)
	set(&a.Profile.Gender, u.Gender)
	set(&a.Profile.Address, u.Address)
	set(&a.Profile.City, u.City)
	set(&a.Profile.State, u.State)
	set(&a.Profile.Zip, u.Zip)
	set(&a.Profile.EmergencyContact, u.EmergencyContact)
	set(&a.Profile.BloodGroup, u.BloodGroup)
	set(&a.Profile.Notes, u.Notes)
	set(&a.Profile.PhotoPath, u.PhotoPath)
	if u.DOB != nil {
		dob := *u.DOB
		a.Profile.DOB = &dob
	}

	return nil
}
