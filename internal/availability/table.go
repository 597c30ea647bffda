package availability

import (
	"sort"
	"time"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/dates"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// Table is a published availability table: remaining stock per day key, bike
// id and size over a fixed window. A Table is never modified after Recompute
// returns it.
type Table struct {
	window     dates.Window
	computedAt time.Time
	capacity   map[string]models.Capacity
	stock      map[string]map[string]map[models.Size]int
	oversold   []models.OversoldCell
}

// Window returns the days covered by the table.
func (t *Table) Window() dates.Window {
	return t.window
}

// ComputedAt returns when the table was built.
func (t *Table) ComputedAt() time.Time {
	return t.computedAt
}

// StockForDate returns the remaining stock of a bike size on date's calendar
// day. Dates outside the window fall back to the bike's catalog capacity; an
// unknown bike or size has no stock.
func (t *Table) StockForDate(bikeID string, size models.Size, date time.Time) int {
	capacity, ok := t.capacity[bikeID]
	if !ok {
		return 0
	}
	if bikes, ok := t.stock[dates.DayKey(date)]; ok {
		if sizes, ok := bikes[bikeID]; ok {
			if v, ok := sizes[size]; ok {
				return v
			}
		}
	}
	return capacity.Of(size)
}

// MinStockOverRange returns the smallest StockForDate over every day from
// start to end inclusive, so a multi-day booking is only as large as its
// tightest day allows.
func (t *Table) MinStockOverRange(bikeID string, size models.Size, start, end time.Time) int {
	return minOver(start, end, func(day time.Time) int {
		return t.StockForDate(bikeID, size, day)
	})
}

// Cells returns a deep copy of the published stock.
func (t *Table) Cells() map[string]map[string]map[models.Size]int {
	out := make(map[string]map[string]map[models.Size]int, len(t.stock))
	for day, bikes := range t.stock {
		b := make(map[string]map[models.Size]int, len(bikes))
		for bikeID, sizes := range bikes {
			s := make(map[models.Size]int, len(sizes))
			for size, v := range sizes {
				s[size] = v
			}
			b[bikeID] = s
		}
		out[day] = b
	}
	return out
}

// Oversold lists cells where confirmed reservations exceeded capacity before
// the published value was clamped to zero, ordered by day, bike and size.
func (t *Table) Oversold() []models.OversoldCell {
	out := make([]models.OversoldCell, len(t.oversold))
	copy(out, t.oversold)
	return out
}

// Response renders the table for the HTTP layer.
func (t *Table) Response() *models.AvailabilityTableResponse {
	return &models.AvailabilityTableResponse{
		StartDate:  t.window.Start.Format(dates.Layout),
		Days:       t.window.Days,
		ComputedAt: t.computedAt,
		Stock:      t.Cells(),
		Oversold:   t.Oversold(),
	}
}

func sortOversold(cells []models.OversoldCell) {
	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.BikeID != b.BikeID {
			return a.BikeID < b.BikeID
		}
		return a.Size < b.Size
	})
}

func minOver(start, end time.Time, stockOn func(day time.Time) int) int {
	start, end = dates.Ordered(start, end)
	min := -1
	for day := dates.Civil(start); !day.After(dates.Civil(end)); day = day.AddDate(0, 0, 1) {
		v := stockOn(day)
		if min < 0 || v < min {
			min = v
		}
	}
	if min < 0 {
		return 0
	}
	return min
}
