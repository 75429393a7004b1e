package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `
	id, user_id, nurse_id, nurse_name, nurse_image, specialization,
	service_type, service_price, appointment_date, appointment_time,
	payment_method, insurance_coverage, notes, status,
	rating, feedback, rated_at, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.NurseID,
		&a.NurseName,
		&a.NurseImage,
		&a.Specialization,
		&a.ServiceType,
		&a.ServicePrice,
		&a.AppointmentDate,
		&a.AppointmentTime,
		&a.PaymentMethod,
		&a.InsuranceCoverage,
		&a.Notes,
		&a.Status,
		&a.Rating,
		&a.Feedback,
		&a.RatedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, user_id, nurse_id, nurse_name, nurse_image, specialization,
			service_type, service_price, appointment_date, appointment_time,
			payment_method, insurance_coverage, notes, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'pending', now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.UserID, a.NurseID, a.NurseName, a.NurseImage, a.Specialization,
		a.ServiceType, a.ServicePrice, a.AppointmentDate.Time, a.AppointmentTime,
		a.PaymentMethod, a.InsuranceCoverage, a.Notes)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, userID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByNurse(ctx context.Context, nurseID uuid.UUID, status *Status) ([]Appointment, error) {
	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE nurse_id = $1
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id DESC
	`, nurseID, filter)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) (*Appointment, error) {
	fromText := make([]string, len(from))
	for i, s := range from {
		fromText[i] = string(s)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+appointmentColumns,
		id, to, fromText)

	return scanAppointment(row)
}

func (r *PgRepository) RecordRating(ctx context.Context, rec RatingRecord) (*Appointment, *Aggregate, error) {
	var (
		appt *Appointment
		agg  *Aggregate
	)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// serializes aggregate recomputation per nurse across replicas
		if _, err := tx.Exec(ctx, `SELECT 1 FROM nurse_listings WHERE id = $1 FOR UPDATE`, rec.NurseID); err != nil {
			return fmt.Errorf("lock nurse listing: %w", err)
		}

		row := tx.QueryRow(ctx, `
			UPDATE appointments
			SET rating = $2,
			    feedback = $3,
			    rated_at = $4,
			    updated_at = now()
			WHERE id = $1
			  AND status = 'completed'
			  AND rating IS NULL
			RETURNING `+appointmentColumns,
			rec.AppointmentID, rec.Rating, rec.Feedback, rec.RatedAt)

		var err error
		appt, err = scanAppointment(row)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrRatingConflict
			}
			return fmt.Errorf("write appointment rating: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO nurse_reviews (id, listing_id, appointment_id, reviewer_id, reviewer_name, rating, feedback, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New(), rec.NurseID, rec.AppointmentID, rec.ReviewerID, rec.ReviewerName, rec.Rating, rec.Feedback, rec.RatedAt); err != nil {
			return fmt.Errorf("append review: %w", err)
		}

		agg, err = recomputeAggregate(ctx, tx, rec.NurseID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return appt, agg, nil
}

func ratingsForNurse(ctx context.Context, tx pgx.Tx, nurseID uuid.UUID) ([]int, error) {
	rows, err := tx.Query(ctx, `
		SELECT rating
		FROM appointments
		WHERE nurse_id = $1
		  AND rating IS NOT NULL
	`, nurseID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

// recomputeAggregate rebuilds the listing rating from every rated
// appointment of the nurse. The caller holds the listing row lock.
func recomputeAggregate(ctx context.Context, tx pgx.Tx, nurseID uuid.UUID) (*Aggregate, error) {
	ratings, err := ratingsForNurse(ctx, tx, nurseID)
	if err != nil {
		return nil, fmt.Errorf("load nurse ratings: %w", err)
	}

	agg := &Aggregate{ListingID: nurseID, Rating: AggregateRating(ratings), ReviewCount: len(ratings)}

	tag, err := tx.Exec(ctx, `
		UPDATE nurse_listings
		SET rating = $2,
		    review_count = $3,
		    updated_at = now()
		WHERE id = $1
	`, nurseID, agg.Rating, agg.ReviewCount)
	if err != nil {
		return nil, fmt.Errorf("update nurse aggregate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("update nurse aggregate: listing %s missing", nurseID)
	}

	return agg, nil
}

func (r *PgRepository) RatedNurseIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT nurse_id
		FROM appointments
		WHERE rating IS NOT NULL
		ORDER BY nurse_id
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *PgRepository) ReconcileAggregate(ctx context.Context, nurseID uuid.UUID) (Aggregate, Aggregate, error) {
	var before, after Aggregate

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		before.ListingID = nurseID
		err := tx.QueryRow(ctx, `
			SELECT rating, review_count
			FROM nurse_listings
			WHERE id = $1
			FOR UPDATE
		`, nurseID).Scan(&before.Rating, &before.ReviewCount)
		if err != nil {
			return fmt.Errorf("lock nurse listing: %w", err)
		}

		ratings, err := ratingsForNurse(ctx, tx, nurseID)
		if err != nil {
			return fmt.Errorf("load nurse ratings: %w", err)
		}
		after = Aggregate{ListingID: nurseID, Rating: AggregateRating(ratings), ReviewCount: len(ratings)}

		if after == before {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE nurse_listings
			SET rating = $2,
			    review_count = $3,
			    updated_at = now()
			WHERE id = $1
		`, nurseID, after.Rating, after.ReviewCount)
		return err
	})
	if err != nil {
		return Aggregate{}, Aggregate{}, err
	}

	return before, after, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
