// Package mocks provides testify mocks of the service contracts.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/interfaces"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/session"
)

var (
	_ interfaces.ReservationRepository = (*ReservationRepository)(nil)
	_ interfaces.CatalogRepository     = (*CatalogRepository)(nil)
	_ interfaces.BasketCache           = (*BasketCache)(nil)
	_ interfaces.OutboxRepository      = (*OutboxRepository)(nil)
	_ interfaces.MessagePublisher      = (*MessagePublisher)(nil)
	_ interfaces.EventHandler          = (*EventHandler)(nil)
	_ interfaces.BookingService        = (*BookingService)(nil)
)

// ReservationRepository mocks interfaces.ReservationRepository
type ReservationRepository struct {
	mock.Mock
}

func (m *ReservationRepository) ListReservations(ctx context.Context, from time.Time) ([]models.ReservationRecord, error) {
	args := m.Called(ctx, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReservationRecord), args.Error(1)
}

func (m *ReservationRepository) CreateReservation(ctx context.Context, rec *models.ReservationRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func (m *ReservationRepository) DeleteReservation(ctx context.Context, reservationID string) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

// CatalogRepository mocks interfaces.CatalogRepository
type CatalogRepository struct {
	mock.Mock
}

func (m *CatalogRepository) LoadCatalog(ctx context.Context) ([]models.BikeCatalogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BikeCatalogEntry), args.Error(1)
}

// BasketCache mocks interfaces.BasketCache
type BasketCache struct {
	mock.Mock
}

func (m *BasketCache) GetBasket(ctx context.Context, key string) (*models.BasketSnapshot, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BasketSnapshot), args.Error(1)
}

func (m *BasketCache) SetBasket(ctx context.Context, key string, snapshot *models.BasketSnapshot) error {
	args := m.Called(ctx, key, snapshot)
	return args.Error(0)
}

func (m *BasketCache) RemoveBasket(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// OutboxRepository mocks interfaces.OutboxRepository
type OutboxRepository struct {
	mock.Mock
}

func (m *OutboxRepository) TryAcquireOutboxLock(ctx context.Context, lockKey int64) (bool, error) {
	args := m.Called(ctx, lockKey)
	return args.Bool(0), args.Error(1)
}

func (m *OutboxRepository) ReleaseOutboxLock(ctx context.Context, lockKey int64) error {
	args := m.Called(ctx, lockKey)
	return args.Error(0)
}

func (m *OutboxRepository) FetchOutboxBatchOrdered(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OutboxEvent), args.Error(1)
}

func (m *OutboxRepository) MarkOutboxPublished(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *OutboxRepository) IncrementPublishAttempts(ctx context.Context, id int64, lastError string) error {
	args := m.Called(ctx, id, lastError)
	return args.Error(0)
}

// MessagePublisher mocks interfaces.MessagePublisher
type MessagePublisher struct {
	mock.Mock
}

func (m *MessagePublisher) PublishOutboxEvent(ctx context.Context, event *models.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// EventHandler mocks interfaces.EventHandler
type EventHandler struct {
	mock.Mock
}

func (m *EventHandler) HandleReservationEvent(ctx context.Context, event *models.ReservationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// BookingService mocks interfaces.BookingService
type BookingService struct {
	mock.Mock
}

func (m *BookingService) SignIn(ctx context.Context, creds session.Credentials) (*session.Session, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *BookingService) SignOut(ctx context.Context, token uuid.UUID) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *BookingService) Session(token uuid.UUID) (*session.Session, bool) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*session.Session), args.Bool(1)
}

func (m *BookingService) Catalog() []models.BikeCatalogEntry {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.BikeCatalogEntry)
}

func (m *BookingService) StockForDate(ctx context.Context, s *session.Session, bikeID string, size models.Size, date time.Time) (int, error) {
	args := m.Called(ctx, s, bikeID, size, date)
	return args.Int(0), args.Error(1)
}

func (m *BookingService) MinStockOverRange(ctx context.Context, s *session.Session, bikeID string, size models.Size, start, end time.Time) (int, error) {
	args := m.Called(ctx, s, bikeID, size, start, end)
	return args.Int(0), args.Error(1)
}

func (m *BookingService) Table(ctx context.Context, s *session.Session) (*models.AvailabilityTableResponse, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AvailabilityTableResponse), args.Error(1)
}

func (m *BookingService) Basket(ctx context.Context, s *session.Session) ([]models.BasketEntry, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BasketEntry), args.Error(1)
}

func (m *BookingService) AddToBasket(ctx context.Context, s *session.Session, item models.BasketEntry) (*models.BasketEntry, error) {
	args := m.Called(ctx, s, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BasketEntry), args.Error(1)
}

func (m *BookingService) RemoveFromBasket(ctx context.Context, s *session.Session, reservationID string) error {
	args := m.Called(ctx, s, reservationID)
	return args.Error(0)
}
