// Package booking models choosing a bike size, dates and quantity before the
// choice is committed to a basket.
package booking

import (
	"fmt"
	"time"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/dates"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// State of a Selection
type State int

const (
	Unselected State = iota
	DateChosen
	QuantityBounded
	Committed
	Abandoned
)

func (s State) String() string {
	switch s {
	case Unselected:
		return "unselected"
	case DateChosen:
		return "date_chosen"
	case QuantityBounded:
		return "quantity_bounded"
	case Committed:
		return "committed"
	case Abandoned:
		return "abandoned"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Committed || s == Abandoned
}

// StockQuerier answers range stock queries against a published table
type StockQuerier interface {
	MinStockOverRange(bikeID string, size models.Size, start, end time.Time) int
}

// Selection walks one bike size through
// Unselected -> DateChosen -> QuantityBounded -> Committed | Abandoned.
// A Selection is not safe for concurrent use.
type Selection struct {
	bikeID string
	size   models.Size
	state  State
	start  time.Time
	end    time.Time
	max    int
}

// NewSelection starts an unselected booking for one bike size
func NewSelection(bikeID string, size models.Size) *Selection {
	return &Selection{bikeID: bikeID, size: size}
}

// State returns the current state
func (s *Selection) State() State { return s.state }

// Max returns the largest committable quantity once bounded
func (s *Selection) Max() int { return s.max }

// Range returns the chosen dates in order
func (s *Selection) Range() (time.Time, time.Time) { return s.start, s.end }

// ChooseDates sets or replaces the date range. Replacing the range drops any
// earlier quantity bound.
func (s *Selection) ChooseDates(start, end time.Time) error {
	if s.state.Terminal() {
		return s.invalid("choose dates")
	}
	start, end = dates.Ordered(start, end)
	s.start, s.end = dates.Civil(start), dates.Civil(end)
	s.max = 0
	s.state = DateChosen
	return nil
}

// Bound fixes the quantity ceiling to the tightest day of the range.
// It may be called again to pick up a newer table.
func (s *Selection) Bound(q StockQuerier) (int, error) {
	if s.state != DateChosen && s.state != QuantityBounded {
		return 0, s.invalid("bound quantity")
	}
	s.max = q.MinStockOverRange(s.bikeID, s.size, s.start, s.end)
	s.state = QuantityBounded
	return s.max, nil
}

// CanCommit reports whether qty can be committed. It is false whenever the
// range has no stock left.
func (s *Selection) CanCommit(qty int) bool {
	return s.state == QuantityBounded && qty >= 1 && qty <= s.max
}

// Entry returns the basket entry qty would create
func (s *Selection) Entry(qty int) models.BasketEntry {
	return models.BasketEntry{
		BikeID:    s.bikeID,
		Size:      s.size,
		Quantity:  qty,
		StartDate: s.start,
		EndDate:   s.end,
	}
}

// Commit hands the entry to create. The selection becomes Committed only if
// create succeeds; otherwise it stays bounded and may be retried.
func (s *Selection) Commit(qty int, create func(models.BasketEntry) error) error {
	if s.state != QuantityBounded {
		return s.invalid("commit")
	}
	if qty < 1 {
		return models.NewValidationError("quantity", "must be positive", qty)
	}
	if qty > s.max {
		return models.NewBusinessError(models.ErrorCodeInsufficientStock,
			fmt.Sprintf("only %d %s %s available from %s to %s", s.max, s.size, s.bikeID,
				dates.DayKey(s.start), dates.DayKey(s.end)),
			map[string]any{"requested": qty, "available": s.max})
	}

	if err := create(s.Entry(qty)); err != nil {
		return err
	}
	s.state = Committed
	return nil
}

// Abandon ends the selection without committing
func (s *Selection) Abandon() error {
	if s.state == Committed {
		return s.invalid("abandon")
	}
	s.state = Abandoned
	return nil
}

func (s *Selection) invalid(op string) error {
	return models.NewBusinessError(models.ErrorCodeInvalidState,
		fmt.Sprintf("cannot %s a selection in state %s", op, s.state), nil)
}
