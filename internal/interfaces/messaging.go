package interfaces

import (
	"context"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// MessagePublisher defines the contract for relaying outbox events
type MessagePublisher interface {
	PublishOutboxEvent(ctx context.Context, event *models.OutboxEvent) error
	Close() error
}

// MessageConsumer defines the contract for consuming events
type MessageConsumer interface {
	ConsumeEvents(ctx context.Context, handler EventHandler) error
	Close() error
}

// EventHandler reacts to a change in the reservation set
type EventHandler interface {
	HandleReservationEvent(ctx context.Context, event *models.ReservationEvent) error
}
