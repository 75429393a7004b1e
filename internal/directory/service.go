package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wecare-health/wecare/internal/identity"
	"github.com/wecare-health/wecare/internal/validation"
)

var ErrNotNurse = errors.New("only nurse accounts have a directory listing")

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  logger.With().Str("component", "directory").Logger(),
	}
}

// EnsureListing provisions the directory entry for a nurse account. It is
// idempotent: an existing listing is left as it is.
func (s *Service) EnsureListing(ctx context.Context, account *identity.Account) error {
	if account.Role != identity.RoleNurse {
		return ErrNotNurse
	}

	image := DefaultProfileImage
	if account.Profile.PhotoPath != "" {
		image = account.Profile.PhotoPath
	}

	l := &Listing{
		ID:             uuid.New(),
		AccountID:      account.ID,
		Name:           account.Name,
		Specialization: DefaultSpecialization,
		HourlyRate:     DefaultHourlyRate,
		Experience:     DefaultExperience,
		LicenseNumber:  DefaultLicenseNumber,
		ProfileImage:   image,
		Distance:       DefaultDistance,
		IsActive:       true,
		Rating:         DefaultRating,
	}

	stored, err := s.repo.InsertIfAbsent(ctx, l)
	if err != nil {
		return fmt.Errorf("ensure listing: %w", err)
	}
	if stored.ID == l.ID {
		s.log.Info().Str("listing_id", stored.ID.String()).Str("account_id", account.ID.String()).Msg("nurse listing created")
	}
	return nil
}

// SyncFromProfile copies the nurse's display fields into the listing. Rating
// and reviews are never written here.
func (s *Service) SyncFromProfile(ctx context.Context, account *identity.Account, specialization *string) error {
	if account.Role != identity.RoleNurse {
		return ErrNotNurse
	}

	current, err := s.repo.GetByAccount(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("load listing: %w", err)
	}

	image := current.ProfileImage
	if account.Profile.PhotoPath != "" {
		image = account.Profile.PhotoPath
	}

	var spec *string
	if specialization != nil {
		trimmed := strings.TrimSpace(*specialization)
		spec = &trimmed
	}

	if _, err := s.repo.UpdateDisplay(ctx, account.ID, account.Name, image, spec); err != nil {
		return fmt.Errorf("update listing display: %w", err)
	}
	return nil
}

// GetListing returns a listing together with its review history.
func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}

	reviews, err := s.repo.ListReviews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	l.Reviews = reviews

	return l, nil
}

func (s *Service) GetListingByAccount(ctx context.Context, accountID uuid.UUID) (*Listing, error) {
	l, err := s.repo.GetByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get listing by account: %w", err)
	}
	return l, nil
}

// ListActive returns the visible directory, best rated first.
func (s *Service) ListActive(ctx context.Context) ([]Listing, error) {
	listings, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active listings: %w", err)
	}
	return listings, nil
}

// UpdateDetails lets a nurse edit the professional fields of their own listing.
func (s *Service) UpdateDetails(ctx context.Context, actor identity.Actor, upd ListingUpdate) (*Listing, error) {
	if actor.Role != identity.RoleNurse {
		return nil, ErrNotNurse
	}

	v := validation.New()
	if upd.HourlyRate != nil {
		rate, err := strconv.ParseFloat(strings.TrimSpace(*upd.HourlyRate), 64)
		if err != nil || rate < 0 {
			v.Add("hourlyRate", "must be a non-negative number")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	current, err := s.GetListingByAccount(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateDetails(ctx, current.ID, upd)
	if err != nil {
		return nil, fmt.Errorf("update listing details: %w", err)
	}
	return updated, nil
}
