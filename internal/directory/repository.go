package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrListingNotFound = errors.New("nurse listing not found")

type Repository interface {
	// InsertIfAbsent creates the listing unless one exists for the account and
	// returns whichever row is stored.
	InsertIfAbsent(ctx context.Context, l *Listing) (*Listing, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	GetByAccount(ctx context.Context, accountID uuid.UUID) (*Listing, error)
	ListActive(ctx context.Context) ([]Listing, error)
	ListReviews(ctx context.Context, listingID uuid.UUID) ([]Review, error)

	// UpdateDisplay mirrors account display fields. A nil specialization
	// leaves the stored value untouched.
	UpdateDisplay(ctx context.Context, accountID uuid.UUID, name, image string, specialization *string) (*Listing, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, upd ListingUpdate) (*Listing, error)
}
