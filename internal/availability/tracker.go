package availability

import (
	"sync"
	"time"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// Tracker holds the most recently published table and answers stock queries
// against it. Before the first table is published every query returns the
// catalog capacity.
type Tracker struct {
	mu       sync.RWMutex
	table    *Table
	capacity map[string]models.Capacity
}

// NewTracker creates a tracker for the given catalog.
func NewTracker(catalog []models.BikeCatalogEntry) *Tracker {
	capacity := make(map[string]models.Capacity, len(catalog))
	for _, bike := range catalog {
		capacity[bike.ID] = bike.Capacity
	}
	return &Tracker{capacity: capacity}
}

// Publish replaces the current table.
func (t *Tracker) Publish(table *Table) {
	t.mu.Lock()
	t.table = table
	t.mu.Unlock()
}

// Table returns the current table, or nil before the first publish.
func (t *Tracker) Table() *Table {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table
}

// StockForDate answers from the current table, falling back to capacity.
func (t *Tracker) StockForDate(bikeID string, size models.Size, date time.Time) int {
	if table := t.Table(); table != nil {
		return table.StockForDate(bikeID, size, date)
	}
	capacity, ok := t.capacity[bikeID]
	if !ok {
		return 0
	}
	return capacity.Of(size)
}

// MinStockOverRange answers from the current table, falling back to capacity.
func (t *Tracker) MinStockOverRange(bikeID string, size models.Size, start, end time.Time) int {
	if table := t.Table(); table != nil {
		return table.MinStockOverRange(bikeID, size, start, end)
	}
	return minOver(start, end, func(day time.Time) int {
		return t.StockForDate(bikeID, size, day)
	})
}
