package models

import (
	"time"
)

// Event types published to the reservations topic
const (
	EventTypeReservationCreated = "reservation_created"
	EventTypeReservationDeleted = "reservation_deleted"
)

// ReservationRecord represents the reservation table structure.
// StartDate and EndDate are inclusive calendar dates.
type ReservationRecord struct {
	ID        string    `db:"reservation_id" json:"id"`
	BikeID    string    `db:"bike_id" json:"bike_id"`
	Size      Size      `db:"size" json:"size"`
	Quantity  int       `db:"quantity" json:"quantity"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BasketEntry is a reservation intent held in a user's basket.
// Echoed is false while the committed reservation has not yet appeared in a
// reservation snapshot.
type BasketEntry struct {
	ReservationID string    `json:"reservation_id,omitempty"`
	BikeID        string    `json:"bike_id"`
	Size          Size      `json:"size"`
	Quantity      int       `json:"quantity"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Echoed        bool      `json:"echoed"`
	AddedAt       time.Time `json:"added_at"`
}

// BasketSnapshot is the cached form of a basket
type BasketSnapshot struct {
	Items     []BasketEntry `json:"items"`
	Timestamp time.Time     `json:"timestamp"`
}

// ReservationEvent represents events published to Kafka whenever the
// reservation set changes
type ReservationEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	ReservationID string    `json:"reservation_id"`
	BikeID        string    `json:"bike_id"`
	UserID        string    `json:"user_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// OutboxEvent represents the outbox table for reliable event publishing
type OutboxEvent struct {
	ID              int64     `db:"id" json:"id"`
	EventType       string    `db:"event_type" json:"event_type"`
	Key             string    `db:"key" json:"key"`
	Payload         string    `db:"payload" json:"payload"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	Published       bool      `db:"published" json:"published"`
	PublishAttempts int       `db:"publish_attempts" json:"publish_attempts"`
	LastError       *string   `db:"last_error" json:"last_error,omitempty"`
}
