package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const accountColumns = `
	id, email, password_hash, name, role,
	phone, dob, gender, address, city, state, zip,
	emergency_contact, blood_group, notes, photo_path,
	created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account

	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Name,
		&a.Role,
		&a.Profile.Phone,
		&a.Profile.DOB,
		&a.Profile.Gender,
		&a.Profile.Address,
		&a.Profile.City,
		&a.Profile.State,
		&a.Profile.Zip,
		&a.Profile.EmergencyContact,
		&a.Profile.BloodGroup,
		&a.Profile.Notes,
		&a.Profile.PhotoPath,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (r *PgRepository) CreateAccount(ctx context.Context, a *Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (
			id, email, password_hash, name, role,
			phone, dob, gender, address, city, state, zip,
			emergency_contact, blood_group, notes, photo_path,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(), now())
		RETURNING `+accountColumns,
		a.ID, a.Email, a.PasswordHash, a.Name, a.Role,
		a.Profile.Phone, a.Profile.DOB, a.Profile.Gender, a.Profile.Address,
		a.Profile.City, a.Profile.State, a.Profile.Zip,
		a.Profile.EmergencyContact, a.Profile.BloodGroup, a.Profile.Notes, a.Profile.PhotoPath,
	)

	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return err
	}

	*a = *created
	return nil
}

func (r *PgRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *PgRepository) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// UpdateAccount rewrites the mutable profile columns. Email, role and the
// password hash are never touched here.
func (r *PgRepository) UpdateAccount(ctx context.Context, a *Account) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET name = $2,
		    phone = $3,
		    dob = $4,
		    gender = $5,
		    address = $6,
		    city = $7,
		    state = $8,
		    zip = $9,
		    emergency_contact = $10,
		    blood_group = $11,
		    notes = $12,
		    photo_path = $13,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		a.ID, a.Name,
		a.Profile.Phone, a.Profile.DOB, a.Profile.Gender, a.Profile.Address,
		a.Profile.City, a.Profile.State, a.Profile.Zip,
		a.Profile.EmergencyContact, a.Profile.BloodGroup, a.Profile.Notes, a.Profile.PhotoPath,
	)
	return scanAccount(row)
}
