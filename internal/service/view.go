package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/availability"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/basket"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/debounce"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/snapshot"
)

// View keeps one availability table current for one audience: the public
// catalog, or a signed-in user whose basket is overlaid on the reservations.
// Snapshot updates and basket edits only schedule a recompute; the
// scheduler collapses bursts into one.
type View struct {
	name    string
	engine  *availability.Engine
	catalog []models.BikeCatalogEntry
	horizon int

	tracker   *availability.Tracker
	scheduler *debounce.Scheduler
	basket    *basket.Store

	mu           sync.Mutex
	reservations []models.ReservationRecord
	version      uint64

	recomputes  atomic.Int64
	unsubscribe func()
}

func newView(
	name string,
	engine *availability.Engine,
	catalog []models.BikeCatalogEntry,
	horizon int,
	wait time.Duration,
	hub *snapshot.Hub,
	store *basket.Store,
) *View {
	v := &View{
		name:    name,
		engine:  engine,
		catalog: catalog,
		horizon: horizon,
		tracker: availability.NewTracker(catalog),
		basket:  store,
	}
	v.scheduler = debounce.New(wait, v.recompute)

	if store != nil {
		store.OnChange(v.scheduler.Schedule)
	}
	v.unsubscribe = hub.Subscribe(v.onSnapshot)

	// the first table is built synchronously
	v.scheduler.CancelPending()
	v.recompute()
	return v
}

func (v *View) onSnapshot(s snapshot.Snapshot) {
	v.mu.Lock()
	v.reservations = s.Reservations
	v.version = s.Version
	v.mu.Unlock()

	if v.basket != nil && v.basket.Reconcile(s.Reservations) {
		log.Debug().Str("view", v.name).Msg("Basket entries echoed in snapshot")
	}
	v.scheduler.Schedule()
}

func (v *View) recompute() {
	v.mu.Lock()
	reservations := v.reservations
	version := v.version
	v.mu.Unlock()

	var items []models.BasketEntry
	if v.basket != nil {
		items = v.basket.Items()
	}

	table := v.engine.Recompute(v.catalog, reservations, items, v.horizon)
	v.tracker.Publish(table)
	n := v.recomputes.Add(1)

	log.Debug().
		Str("view", v.name).
		Uint64("snapshot_version", version).
		Int("reservations", len(reservations)).
		Int("basket_items", len(items)).
		Int64("recompute", n).
		Msg("Availability recomputed")
}

// Flush runs a pending recompute now so the next query sees the latest inputs.
func (v *View) Flush() {
	v.scheduler.Flush()
}

// StockForDate implements the single-day stock query
func (v *View) StockForDate(bikeID string, size models.Size, date time.Time) int {
	return v.tracker.StockForDate(bikeID, size, date)
}

// MinStockOverRange implements booking.StockQuerier
func (v *View) MinStockOverRange(bikeID string, size models.Size, start, end time.Time) int {
	return v.tracker.MinStockOverRange(bikeID, size, start, end)
}

// Table returns the latest published table
func (v *View) Table() *availability.Table {
	return v.tracker.Table()
}

// Recomputes returns how many tables this view has built
func (v *View) Recomputes() int64 {
	return v.recomputes.Load()
}

// Close detaches the view from the snapshot stream and drops pending work.
func (v *View) Close() {
	v.unsubscribe()
	v.scheduler.Stop()
}
