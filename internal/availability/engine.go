// Package availability derives per-day remaining bike stock from the catalog,
// the confirmed reservation snapshot and a user's pending basket.
package availability

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/dates"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// Default horizons used by the public catalog view and by session views.
const (
	DefaultHorizonDays = 120
	ShortHorizonDays   = 30
)

// Engine rebuilds availability tables. It holds no state between calls.
type Engine struct {
	now      func() time.Time
	location *time.Location
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLocation sets the zone whose calendar day is day 0 of the window.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.location = loc
	}
}

// NewEngine creates an engine using the local clock and zone by default.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type dayBike struct {
	day    string
	bikeID string
}

// Recompute builds a fresh table covering horizonDays days from today.
//
// Reservations are subtracted first and mark every (day, bike) pair they
// touch. Basket entries are then subtracted only on pairs the reservation pass
// left alone, so a basket item whose reservation has already come back in the
// snapshot is counted once. Cells are clamped to zero before publishing; how
// far confirmed reservations overshot capacity is kept in Oversold.
func (e *Engine) Recompute(
	catalog []models.BikeCatalogEntry,
	reservations []models.ReservationRecord,
	basket []models.BasketEntry,
	horizonDays int,
) *Table {
	window := dates.NewWindow(e.now().In(e.location), horizonDays)
	keys := window.Keys()

	capacity := make(map[string]models.Capacity, len(catalog))
	for _, bike := range catalog {
		capacity[bike.ID] = bike.Capacity
	}

	stock := make(map[string]map[string]map[models.Size]int, len(keys))
	for _, day := range keys {
		bikes := make(map[string]map[models.Size]int, len(capacity))
		for bikeID, c := range capacity {
			bikes[bikeID] = c.BySize()
		}
		stock[day] = bikes
	}

	adjusted := make(map[dayBike]struct{})
	for _, r := range reservations {
		if !known(capacity, r.BikeID, r.Size) {
			log.Warn().
				Str("reservation_id", r.ID).
				Str("bike_id", r.BikeID).
				Str("size", string(r.Size)).
				Msg("Reservation references unknown bike or size, skipping")
			continue
		}
		start, end := dates.Ordered(r.StartDate, r.EndDate)
		for _, day := range window.Expand(start, end) {
			stock[day][r.BikeID][r.Size] -= r.Quantity
			adjusted[dayBike{day: day, bikeID: r.BikeID}] = struct{}{}
		}
	}

	for _, b := range basket {
		if !known(capacity, b.BikeID, b.Size) {
			log.Warn().
				Str("reservation_id", b.ReservationID).
				Str("bike_id", b.BikeID).
				Str("size", string(b.Size)).
				Msg("Basket entry references unknown bike or size, skipping")
			continue
		}
		start, end := dates.Ordered(b.StartDate, b.EndDate)
		for _, day := range window.Expand(start, end) {
			if _, ok := adjusted[dayBike{day: day, bikeID: b.BikeID}]; ok {
				continue
			}
			remaining := stock[day][b.BikeID][b.Size] - b.Quantity
			if remaining < 0 {
				remaining = 0
			}
			stock[day][b.BikeID][b.Size] = remaining
		}
	}

	var oversold []models.OversoldCell
	for day, bikes := range stock {
		for bikeID, sizes := range bikes {
			for size, v := range sizes {
				if v < 0 {
					oversold = append(oversold, models.OversoldCell{
						Date:   day,
						BikeID: bikeID,
						Size:   size,
						Excess: -v,
					})
					sizes[size] = 0
				}
			}
		}
	}
	if len(oversold) > 0 {
		sortOversold(oversold)
		log.Warn().Int("cells", len(oversold)).Msg("Reservations exceed capacity, clamped to zero")
	}

	return &Table{
		window:     window,
		computedAt: e.now(),
		capacity:   capacity,
		stock:      stock,
		oversold:   oversold,
	}
}

func known(capacity map[string]models.Capacity, bikeID string, size models.Size) bool {
	_, ok := capacity[bikeID]
	return ok && size.Valid()
}
