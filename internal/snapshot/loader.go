package snapshot

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/dates"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/interfaces"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// Loader reloads the reservation set from the repository and publishes it
// to a Hub. Every reservation event triggers a full reload, so subscribers
// always receive complete snapshots rather than deltas.
type Loader struct {
	repo     interfaces.ReservationRepository
	hub      *Hub
	now      func() time.Time
	location *time.Location
}

// NewLoader creates a loader publishing into hub
func NewLoader(repo interfaces.ReservationRepository, hub *Hub, location *time.Location) *Loader {
	if location == nil {
		location = time.Local
	}
	return &Loader{
		repo:     repo,
		hub:      hub,
		now:      time.Now,
		location: location,
	}
}

// Refresh loads every reservation that has not ended before today and
// publishes it. On error the previous snapshot stays current.
func (l *Loader) Refresh(ctx context.Context) error {
	today := dates.Civil(l.now().In(l.location))

	records, err := l.repo.ListReservations(ctx, today)
	if err != nil {
		log.Error().Err(err).Msg("Failed to reload reservations")
		return err
	}

	snap := l.hub.Publish(records)
	log.Debug().
		Uint64("version", snap.Version).
		Int("reservations", len(records)).
		Msg("Published reservation snapshot")
	return nil
}

// HandleReservationEvent implements interfaces.EventHandler
func (l *Loader) HandleReservationEvent(ctx context.Context, event *models.ReservationEvent) error {
	log.Debug().
		Str("event_type", event.EventType).
		Str("reservation_id", event.ReservationID).
		Str("bike_id", event.BikeID).
		Msg("Reservation event received")
	return l.Refresh(ctx)
}

// Run refreshes on every tick until ctx is done, covering events that were
// missed while the consumer was down.
func (l *Loader) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping reservation resync")
			return
		case <-ticker.C:
			if err := l.Refresh(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Periodic reservation resync failed")
			}
		}
	}
}
