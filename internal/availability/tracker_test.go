package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

func TestTracker_FallsBackToCapacityBeforeFirstPublish(t *testing.T) {
	tracker := NewTracker([]models.BikeCatalogEntry{bike("trail", 3, 2, 1)})

	assert.Nil(t, tracker.Table())
	assert.Equal(t, 2, tracker.StockForDate("trail", models.SizeMedium, date(2024, time.June, 1)))
	assert.Equal(t, 1, tracker.MinStockOverRange("trail", models.SizeLarge, date(2024, time.June, 1), date(2024, time.June, 4)))
	assert.Equal(t, 0, tracker.StockForDate("unknown", models.SizeMedium, date(2024, time.June, 1)))
}

func TestTracker_MinStockOverRangeFindsTightestDay(t *testing.T) {
	engine := fixedEngine(date(2024, time.June, 1))
	catalog := []models.BikeCatalogEntry{bike("trail", 2, 0, 0)}
	middle := date(2024, time.June, 11)
	reservations := []models.ReservationRecord{{
		ID: "r", BikeID: "trail", Size: models.SizeSmall, Quantity: 2, StartDate: middle, EndDate: middle,
	}}

	tracker := NewTracker(catalog)
	tracker.Publish(engine.Recompute(catalog, reservations, nil, ShortHorizonDays))

	start, end := date(2024, time.June, 10), date(2024, time.June, 12)
	assert.Equal(t, 2, tracker.StockForDate("trail", models.SizeSmall, start))
	assert.Equal(t, 0, tracker.StockForDate("trail", models.SizeSmall, middle))
	assert.Equal(t, 2, tracker.StockForDate("trail", models.SizeSmall, end))
	assert.Equal(t, 0, tracker.MinStockOverRange("trail", models.SizeSmall, start, end))
	assert.Equal(t, 0, tracker.MinStockOverRange("trail", models.SizeSmall, end, start))
}

func TestTracker_OutsideWindowFallsBackToCapacity(t *testing.T) {
	engine := fixedEngine(date(2024, time.June, 1))
	catalog := []models.BikeCatalogEntry{bike("trail", 4, 0, 0)}
	far := date(2024, time.December, 24)
	reservations := []models.ReservationRecord{{
		ID: "r", BikeID: "trail", Size: models.SizeSmall, Quantity: 3, StartDate: far, EndDate: far,
	}}

	tracker := NewTracker(catalog)
	tracker.Publish(engine.Recompute(catalog, reservations, nil, ShortHorizonDays))

	assert.Equal(t, 4, tracker.StockForDate("trail", models.SizeSmall, far))
	assert.Equal(t, 4, tracker.StockForDate("trail", models.SizeSmall, date(2024, time.May, 1)))
}

func TestTable_Response(t *testing.T) {
	engine := fixedEngine(date(2024, time.June, 1))
	table := engine.Recompute([]models.BikeCatalogEntry{bike("trail", 1, 1, 1)}, nil, nil, 2)

	resp := table.Response()
	assert.Equal(t, "2024-06-01", resp.StartDate)
	assert.Equal(t, 2, resp.Days)
	assert.Equal(t, 1, resp.Stock["2024-06-02"]["trail"][models.SizeLarge])

	resp.Stock["2024-06-02"]["trail"][models.SizeLarge] = 99
	assert.Equal(t, 1, table.StockForDate("trail", models.SizeLarge, date(2024, time.June, 2)))
}
