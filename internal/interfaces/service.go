package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/session"
)

// BookingService defines the contract for booking operations.
// A nil session queries the public view, which has no basket.
type BookingService interface {
	// Session management
	SignIn(ctx context.Context, creds session.Credentials) (*session.Session, error)
	SignOut(ctx context.Context, token uuid.UUID) error
	Session(token uuid.UUID) (*session.Session, bool)

	// Query operations
	Catalog() []models.BikeCatalogEntry
	StockForDate(ctx context.Context, s *session.Session, bikeID string, size models.Size, date time.Time) (int, error)
	MinStockOverRange(ctx context.Context, s *session.Session, bikeID string, size models.Size, start, end time.Time) (int, error)
	Table(ctx context.Context, s *session.Session) (*models.AvailabilityTableResponse, error)

	// Basket operations
	Basket(ctx context.Context, s *session.Session) ([]models.BasketEntry, error)
	AddToBasket(ctx context.Context, s *session.Session, item models.BasketEntry) (*models.BasketEntry, error)
	RemoveFromBasket(ctx context.Context, s *session.Session, reservationID string) error
}
