package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listingColumns = `
	id, account_id, name, specialization, hourly_rate, experience,
	license_number, certifications, profile_image, distance, is_active,
	rating, review_count, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanListing(row pgx.Row) (*Listing, error) {
	var l Listing

	err := row.Scan(
		&l.ID,
		&l.AccountID,
		&l.Name,
		&l.Specialization,
		&l.HourlyRate,
		&l.Experience,
		&l.LicenseNumber,
		&l.Certifications,
		&l.ProfileImage,
		&l.Distance,
		&l.IsActive,
		&l.Rating,
		&l.ReviewCount,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	return &l, nil
}

func (r *PgRepository) InsertIfAbsent(ctx context.Context, l *Listing) (*Listing, error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO nurse_listings (
			id, account_id, name, specialization, hourly_rate, experience,
			license_number, certifications, profile_image, distance, is_active,
			rating, review_count, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, now(), now())
		ON CONFLICT (account_id) DO NOTHING
	`, l.ID, l.AccountID, l.Name, l.Specialization, l.HourlyRate, l.Experience,
		l.LicenseNumber, l.Certifications, l.ProfileImage, l.Distance, l.IsActive, l.Rating)
	if err != nil {
		return nil, fmt.Errorf("insert nurse listing: %w", err)
	}

	return r.GetByAccount(ctx, l.AccountID)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM nurse_listings WHERE id = $1`, id)
	return scanListing(row)
}

func (r *PgRepository) GetByAccount(ctx context.Context, accountID uuid.UUID) (*Listing, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM nurse_listings WHERE account_id = $1`, accountID)
	return scanListing(row)
}

func (r *PgRepository) ListActive(ctx context.Context) ([]Listing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+listingColumns+`
		FROM nurse_listings
		WHERE is_active
		ORDER BY rating DESC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListReviews(ctx context.Context, listingID uuid.UUID) ([]Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, listing_id, appointment_id, reviewer_id, reviewer_name, rating, feedback, created_at
		FROM nurse_reviews
		WHERE listing_id = $1
		ORDER BY created_at ASC, id ASC
	`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Review
	for rows.Next() {
		var rv Review
		if err := rows.Scan(
			&rv.ID,
			&rv.ListingID,
			&rv.AppointmentID,
			&rv.ReviewerID,
			&rv.ReviewerName,
			&rv.Rating,
			&rv.Feedback,
			&rv.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateDisplay(ctx context.Context, accountID uuid.UUID, name, image string, specialization *string) (*Listing, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE nurse_listings
		SET name = $2,
		    profile_image = $3,
		    specialization = COALESCE($4, specialization),
		    updated_at = now()
		WHERE account_id = $1
		RETURNING `+listingColumns,
		accountID, name, image, specialization)
	return scanListing(row)
}

func (r *PgRepository) UpdateDetails(ctx context.Context, id uuid.UUID, upd ListingUpdate) (*Listing, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE nurse_listings
		SET hourly_rate = COALESCE($2, hourly_rate),
		    experience = COALESCE($3, experience),
		    license_number = COALESCE($4, license_number),
		    certifications = COALESCE($5, certifications),
		    distance = COALESCE($6, distance),
		    is_active = COALESCE($7, is_active),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+listingColumns,
		id, upd.HourlyRate, upd.Experience, upd.LicenseNumber, upd.Certifications, upd.Distance, upd.IsActive)
	return scanListing(row)
}
