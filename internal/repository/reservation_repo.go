package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/dates"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// Postgres error codes inspected by classify
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqCheckViolation       = "23514"
)

// ReservationRepository stores reservation records in Postgres. Every write
// inserts the matching outbox row in the same transaction.
type ReservationRepository struct {
	db     *sqlx.DB
	outbox *OutboxRepository
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{
		db:     db,
		outbox: NewOutboxRepository(db),
	}
}

// ListReservations returns every reservation whose end date is on or after
// from's calendar day.
func (r *ReservationRepository) ListReservations(ctx context.Context, from time.Time) ([]models.ReservationRecord, error) {
	query := `SELECT reservation_id, bike_id, size, quantity, start_date, end_date, user_id, created_at
			  FROM reservation
			  WHERE end_date >= $1
			  ORDER BY start_date ASC, reservation_id ASC`

	var records []models.ReservationRecord
	if err := r.db.SelectContext(ctx, &records, query, dates.DayKey(from)); err != nil {
		log.Error().Err(err).Time("from", from).Msg("Failed to list reservations")
		return nil, models.NewSystemError(models.ErrorCodeDatabaseError, "reservation_repository", "failed to list reservations", err)
	}

	for i := range records {
		records[i].StartDate = dates.Civil(records[i].StartDate)
		records[i].EndDate = dates.Civil(records[i].EndDate)
	}
	return records, nil
}

// CreateReservation inserts rec and returns its new id. rec is updated with
// the id, normalized dates and creation time.
func (r *ReservationRepository) CreateReservation(ctx context.Context, rec *models.ReservationRecord) (string, error) {
	start, end := dates.Ordered(rec.StartDate, rec.EndDate)
	id := uuid.New()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", r.classify(err, "begin transaction")
	}
	defer rollback(tx)

	query := `INSERT INTO reservation (reservation_id, bike_id, size, quantity, start_date, end_date, user_id, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			  RETURNING created_at`

	var createdAt time.Time
	err = tx.QueryRowxContext(ctx, query, id, rec.BikeID, rec.Size, rec.Quantity,
		dates.DayKey(start), dates.DayKey(end), rec.UserID).Scan(&createdAt)
	if err != nil {
		log.Error().Err(err).Str("bike_id", rec.BikeID).Msg("Failed to create reservation")
		return "", r.classify(err, "create reservation")
	}

	event := &models.ReservationEvent{
		EventID:       uuid.NewString(),
		EventType:     models.EventTypeReservationCreated,
		ReservationID: id.String(),
		BikeID:        rec.BikeID,
		UserID:        rec.UserID,
		Timestamp:     createdAt,
	}
	if err := r.outbox.InsertOutboxEvent(ctx, tx, event.EventType, event.BikeID, event); err != nil {
		return "", r.classify(err, "write outbox event")
	}

	if err := tx.Commit(); err != nil {
		return "", r.classify(err, "commit reservation")
	}

	rec.ID = id.String()
	rec.StartDate = dates.Civil(start)
	rec.EndDate = dates.Civil(end)
	rec.CreatedAt = createdAt

	log.Info().
		Str("reservation_id", rec.ID).
		Str("bike_id", rec.BikeID).
		Str("size", string(rec.Size)).
		Int("quantity", rec.Quantity).
		Msg("Reservation created")
	return rec.ID, nil
}

// DeleteReservation removes a reservation. A missing record yields a
// *models.NotFoundError.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, reservationID string) error {
	id, err := uuid.Parse(reservationID)
	if err != nil {
		return models.NewNotFoundError("Reservation", reservationID)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return r.classify(err, "begin transaction")
	}
	defer rollback(tx)

	var bikeID, userID string
	err = tx.QueryRowxContext(ctx,
		`DELETE FROM reservation WHERE reservation_id = $1 RETURNING bike_id, user_id`, id).
		Scan(&bikeID, &userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewNotFoundError("Reservation", reservationID)
		}
		log.Error().Err(err).Str("reservation_id", reservationID).Msg("Failed to delete reservation")
		return r.classify(err, "delete reservation")
	}

	event := &models.ReservationEvent{
		EventID:       uuid.NewString(),
		EventType:     models.EventTypeReservationDeleted,
		ReservationID: reservationID,
		BikeID:        bikeID,
		UserID:        userID,
		Timestamp:     time.Now().UTC(),
	}
	if err := r.outbox.InsertOutboxEvent(ctx, tx, event.EventType, bikeID, event); err != nil {
		return r.classify(err, "write outbox event")
	}

	if err := tx.Commit(); err != nil {
		return r.classify(err, "commit delete")
	}

	log.Info().Str("reservation_id", reservationID).Str("bike_id", bikeID).Msg("Reservation deleted")
	return nil
}

// classify maps driver errors onto the service error types.
func (r *ReservationRepository) classify(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqSerializationFailure, pqDeadlockDetected:
			return models.NewConflictError("Reservation", pqErr.Message, err)
		case pqCheckViolation:
			return models.NewValidationError("reservation", pqErr.Message, pqErr.Constraint)
		}
	}
	return models.NewSystemError(models.ErrorCodeDatabaseError, "reservation_repository", "failed to "+op, err)
}

func rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Error().Err(err).Msg("Failed to rollback transaction")
	}
}
