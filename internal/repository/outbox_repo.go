package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// OutboxRepository handles outbox operations with advisory locking
type OutboxRepository struct {
	db *sqlx.DB

	// advisory locks belong to a session, so the holder pins one connection
	lockMu   sync.Mutex
	lockConn map[int64]*sqlx.Conn
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{
		db:       db,
		lockConn: make(map[int64]*sqlx.Conn),
	}
}

// TryAcquireOutboxLock takes a session-level advisory lock. It returns false
// when another relay instance holds it.
func (r *OutboxRepository) TryAcquireOutboxLock(ctx context.Context, lockKey int64) (bool, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get connection for advisory lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowxContext(ctx, "SELECT pg_try_advisory_lock($1)", lockKey).Scan(&acquired); err != nil {
		conn.Close()
		log.Error().Err(err).Int64("lock_key", lockKey).Msg("Failed to acquire advisory lock")
		return false, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	log.Debug().Int64("lock_key", lockKey).Bool("acquired", acquired).Msg("Outbox lock attempt")

	if !acquired {
		conn.Close()
		return false, nil
	}

	r.lockMu.Lock()
	r.lockConn[lockKey] = conn
	r.lockMu.Unlock()
	return true, nil
}

// ReleaseOutboxLock releases the advisory lock and returns its connection to the pool
func (r *OutboxRepository) ReleaseOutboxLock(ctx context.Context, lockKey int64) error {
	r.lockMu.Lock()
	conn, ok := r.lockConn[lockKey]
	delete(r.lockConn, lockKey)
	r.lockMu.Unlock()

	if !ok {
		log.Warn().Int64("lock_key", lockKey).Msg("Advisory lock was not held when trying to release")
		return nil
	}
	defer conn.Close()

	var released bool
	if err := conn.QueryRowxContext(ctx, "SELECT pg_advisory_unlock($1)", lockKey).Scan(&released); err != nil {
		log.Error().Err(err).Int64("lock_key", lockKey).Msg("Failed to release advisory lock")
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	if !released {
		log.Warn().Int64("lock_key", lockKey).Msg("Advisory lock was not held when trying to release")
	}
	return nil
}

// FetchOutboxBatchOrdered returns up to limit unpublished events in insertion order
func (r *OutboxRepository) FetchOutboxBatchOrdered(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	query := `SELECT id, event_type, key, payload, created_at, published, publish_attempts, last_error
			  FROM outbox
			  WHERE published = FALSE
			  ORDER BY id ASC
			  LIMIT $1`

	var events []models.OutboxEvent
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}

	log.Debug().Int("count", len(events)).Msg("Fetched outbox events for processing")
	return events, nil
}

// MarkOutboxPublished marks events as successfully published
func (r *OutboxRepository) MarkOutboxPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE outbox
			  SET published = TRUE, published_at = NOW(), updated_at = NOW()
			  WHERE id = ANY($1)`

	result, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		log.Error().Err(err).Ints64("ids", ids).Msg("Failed to mark outbox events as published")
		return fmt.Errorf("failed to mark outbox events as published: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	log.Debug().Int64("rows_affected", rowsAffected).Msg("Marked outbox events as published")
	return nil
}

// IncrementPublishAttempts records a failed publish
func (r *OutboxRepository) IncrementPublishAttempts(ctx context.Context, id int64, lastError string) error {
	query := `UPDATE outbox
			  SET publish_attempts = publish_attempts + 1, last_error = $2, updated_at = NOW()
			  WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, lastError)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Failed to increment publish attempts")
		return fmt.Errorf("failed to increment publish attempts: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		log.Warn().Int64("id", id).Msg("No outbox event found to increment attempts")
	}
	return nil
}

// InsertOutboxEvent inserts an event into the outbox, inside tx when given
func (r *OutboxRepository) InsertOutboxEvent(ctx context.Context, tx *sqlx.Tx, eventType, key string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `INSERT INTO outbox (event_type, key, payload, created_at) VALUES ($1, $2, $3, NOW())`

	var executor interface {
		ExecContext(context.Context, string, ...any) (sql.Result, error)
	}
	if tx != nil {
		executor = tx
	} else {
		executor = r.db
	}

	if _, err := executor.ExecContext(ctx, query, eventType, key, string(payloadJSON)); err != nil {
		log.Error().Err(err).
			Str("event_type", eventType).
			Str("key", key).
			Msg("Failed to insert outbox event")
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	log.Debug().Str("event_type", eventType).Str("key", key).Msg("Inserted outbox event")
	return nil
}
