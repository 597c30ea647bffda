package interfaces

import (
	"context"
	"time"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// ReservationWriter is the write path for reservation records
type ReservationWriter interface {
	// CreateReservation stores rec and returns the assigned id.
	CreateReservation(ctx context.Context, rec *models.ReservationRecord) (string, error)
	// DeleteReservation returns a *models.NotFoundError when the record is already gone.
	DeleteReservation(ctx context.Context, reservationID string) error
}

// ReservationRepository defines the contract for reservation data operations
type ReservationRepository interface {
	ReservationWriter

	// ListReservations returns every reservation ending on or after from.
	ListReservations(ctx context.Context, from time.Time) ([]models.ReservationRecord, error)
}

// CatalogRepository loads the bike catalog
type CatalogRepository interface {
	LoadCatalog(ctx context.Context) ([]models.BikeCatalogEntry, error)
}

// OutboxRepository defines the contract for the transactional outbox
type OutboxRepository interface {
	TryAcquireOutboxLock(ctx context.Context, lockKey int64) (bool, error)
	ReleaseOutboxLock(ctx context.Context, lockKey int64) error
	FetchOutboxBatchOrdered(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkOutboxPublished(ctx context.Context, ids []int64) error
	IncrementPublishAttempts(ctx context.Context, id int64, lastError string) error
}

// BasketCache defines the contract for the per-user basket cache.
// GetBasket returns nil, nil when nothing is stored under key.
type BasketCache interface {
	GetBasket(ctx context.Context, key string) (*models.BasketSnapshot, error)
	SetBasket(ctx context.Context, key string, snapshot *models.BasketSnapshot) error
	RemoveBasket(ctx context.Context, key string) error
}
