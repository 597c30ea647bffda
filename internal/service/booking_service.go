package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/availability"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/basket"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/booking"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/dates"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/interfaces"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/session"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/snapshot"
)

var _ interfaces.BookingService = (*BookingService)(nil)

// ServiceConfig holds service configuration
type ServiceConfig struct {
	HorizonDays       int           // window of session views
	PublicHorizonDays int           // window of the public catalog view
	DebounceWait      time.Duration // quiescence window before a recompute
	BasketTTL         time.Duration
	MaxQuantity       int // largest quantity accepted in one basket item
	Location          *time.Location
	Now               func() time.Time
}

// Validate validates the service configuration
func (c ServiceConfig) Validate() error {
	if c.HorizonDays < 1 {
		return fmt.Errorf("horizon must be at least 1 day, got %d", c.HorizonDays)
	}
	if c.PublicHorizonDays < 1 {
		return fmt.Errorf("public horizon must be at least 1 day, got %d", c.PublicHorizonDays)
	}
	if c.DebounceWait <= 0 {
		return fmt.Errorf("debounce wait must be positive, got %v", c.DebounceWait)
	}
	if c.BasketTTL < time.Minute {
		return fmt.Errorf("basket TTL must be at least 1 minute, got %v", c.BasketTTL)
	}
	if c.MaxQuantity < 1 {
		return fmt.Errorf("max quantity must be positive, got %d", c.MaxQuantity)
	}
	return nil
}

type sessionState struct {
	view   *View
	basket *basket.Store

	// serialises basket edits so each add is bounded by a table that
	// already includes the previous one
	mu sync.Mutex
}

// BookingService answers availability queries and manages baskets for
// signed-in sessions
type BookingService struct {
	catalog  []models.BikeCatalogEntry
	bikes    map[string]models.BikeCatalogEntry
	writer   interfaces.ReservationWriter
	cache    interfaces.BasketCache
	hub      *snapshot.Hub
	sessions *session.Manager
	engine   *availability.Engine
	config   ServiceConfig

	public *View

	mu    sync.Mutex
	state map[uuid.UUID]*sessionState
}

// NewBookingService loads the catalog once and starts the public view
func NewBookingService(
	ctx context.Context,
	catalogRepo interfaces.CatalogRepository,
	writer interfaces.ReservationWriter,
	cache interfaces.BasketCache,
	hub *snapshot.Hub,
	sessions *session.Manager,
	config ServiceConfig,
) (*BookingService, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	catalog, err := catalogRepo.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	bikes := make(map[string]models.BikeCatalogEntry, len(catalog))
	for _, bike := range catalog {
		bikes[bike.ID] = bike
	}

	opts := []availability.Option{}
	if config.Location != nil {
		opts = append(opts, availability.WithLocation(config.Location))
	}
	if config.Now != nil {
		opts = append(opts, availability.WithClock(config.Now))
	}
	engine := availability.NewEngine(opts...)

	s := &BookingService{
		catalog:  catalog,
		bikes:    bikes,
		writer:   writer,
		cache:    cache,
		hub:      hub,
		sessions: sessions,
		engine:   engine,
		config:   config,
		state:    make(map[uuid.UUID]*sessionState),
	}
	s.public = newView("public", engine, catalog, config.PublicHorizonDays, config.DebounceWait, hub, nil)

	log.Info().
		Int("bikes", len(catalog)).
		Int("horizon_days", config.HorizonDays).
		Int("public_horizon_days", config.PublicHorizonDays).
		Dur("debounce", config.DebounceWait).
		Msg("Booking service ready")
	return s, nil
}

// SignIn starts a session, restores its cached basket and opens its view
func (s *BookingService) SignIn(ctx context.Context, creds session.Credentials) (*session.Session, error) {
	sess, err := s.sessions.Start(creds)
	if err != nil {
		return nil, err
	}

	store := basket.NewStore(sess.UserID, s.cache, s.writer, s.config.BasketTTL)
	store.Restore(ctx)
	view := newView(sess.UserID, s.engine, s.catalog, s.config.HorizonDays, s.config.DebounceWait, s.hub, store)

	s.mu.Lock()
	s.state[sess.Token] = &sessionState{view: view, basket: store}
	s.mu.Unlock()
	return sess, nil
}

// SignOut ends the session. Its basket stays cached until the TTL runs out.
func (s *BookingService) SignOut(ctx context.Context, token uuid.UUID) error {
	if s.sessions.End(token) == nil {
		return models.NewNotFoundError("Session", token.String())
	}

	s.mu.Lock()
	st := s.state[token]
	delete(s.state, token)
	s.mu.Unlock()

	if st != nil {
		st.view.Close()
		st.basket.Close()
	}
	return nil
}

// Session looks up a live session
func (s *BookingService) Session(token uuid.UUID) (*session.Session, bool) {
	return s.sessions.Lookup(token)
}

// Catalog returns the bike catalog
func (s *BookingService) Catalog() []models.BikeCatalogEntry {
	return append([]models.BikeCatalogEntry(nil), s.catalog...)
}

// StockForDate returns the remaining stock of a bike size on date
func (s *BookingService) StockForDate(ctx context.Context, sess *session.Session, bikeID string, size models.Size, date time.Time) (int, error) {
	if err := s.checkBike(bikeID, size); err != nil {
		return 0, err
	}
	view, err := s.viewFor(sess)
	if err != nil {
		return 0, err
	}
	if err := checkWindow(view, "date", date); err != nil {
		return 0, err
	}
	return view.StockForDate(bikeID, size, date), nil
}

// MinStockOverRange returns the tightest day's stock over start..end
func (s *BookingService) MinStockOverRange(ctx context.Context, sess *session.Session, bikeID string, size models.Size, start, end time.Time) (int, error) {
	if err := s.checkBike(bikeID, size); err != nil {
		return 0, err
	}
	view, err := s.viewFor(sess)
	if err != nil {
		return 0, err
	}
	if err := checkWindow(view, "start", start); err != nil {
		return 0, err
	}
	if err := checkWindow(view, "end", end); err != nil {
		return 0, err
	}
	return view.MinStockOverRange(bikeID, size, start, end), nil
}

// Table returns the caller's published availability table
func (s *BookingService) Table(ctx context.Context, sess *session.Session) (*models.AvailabilityTableResponse, error) {
	view, err := s.viewFor(sess)
	if err != nil {
		return nil, err
	}
	return view.Table().Response(), nil
}

// Basket lists the session's basket
func (s *BookingService) Basket(ctx context.Context, sess *session.Session) ([]models.BasketEntry, error) {
	st, err := s.stateFor(sess)
	if err != nil {
		return nil, err
	}
	return st.basket.Items(), nil
}

// AddToBasket bounds the request by the freshest table of the caller's view
// and, if it fits, commits it as a reservation and basket entry.
func (s *BookingService) AddToBasket(ctx context.Context, sess *session.Session, item models.BasketEntry) (*models.BasketEntry, error) {
	st, err := s.stateFor(sess)
	if err != nil {
		return nil, err
	}
	if err := s.checkBike(item.BikeID, item.Size); err != nil {
		return nil, err
	}
	if item.Quantity < 1 || item.Quantity > s.config.MaxQuantity {
		return nil, models.NewValidationError("quantity",
			fmt.Sprintf("must be between 1 and %d", s.config.MaxQuantity), item.Quantity)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.view.Flush()
	if err := checkWindow(st.view, "start_date", item.StartDate); err != nil {
		return nil, err
	}
	if err := checkWindow(st.view, "end_date", item.EndDate); err != nil {
		return nil, err
	}

	sel := booking.NewSelection(item.BikeID, item.Size)
	if err := sel.ChooseDates(item.StartDate, item.EndDate); err != nil {
		return nil, err
	}
	if _, err := sel.Bound(st.view); err != nil {
		return nil, err
	}

	var added models.BasketEntry
	err = sel.Commit(item.Quantity, func(entry models.BasketEntry) error {
		var addErr error
		added, addErr = st.basket.Add(ctx, entry)
		return addErr
	})
	if err != nil {
		log.Warn().Err(err).
			Str("user_id", sess.UserID).
			Str("bike_id", item.BikeID).
			Int("quantity", item.Quantity).
			Int("available", sel.Max()).
			Msg("Basket add rejected")
		return nil, err
	}
	return &added, nil
}

// RemoveFromBasket withdraws a basket entry and its reservation
func (s *BookingService) RemoveFromBasket(ctx context.Context, sess *session.Session, reservationID string) error {
	st, err := s.stateFor(sess)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.basket.Remove(ctx, reservationID)
}

// PublicView returns the view shared by anonymous queries
func (s *BookingService) PublicView() *View {
	return s.public
}

// Close stops every view
func (s *BookingService) Close() {
	s.mu.Lock()
	states := s.state
	s.state = make(map[uuid.UUID]*sessionState)
	s.mu.Unlock()

	for _, st := range states {
		st.view.Close()
		st.basket.Close()
	}
	s.public.Close()
}

func (s *BookingService) checkBike(bikeID string, size models.Size) error {
	if _, ok := s.bikes[bikeID]; !ok {
		return models.NewNotFoundError("Bike", bikeID)
	}
	if !size.Valid() {
		return models.NewValidationError("size", "must be Small, Medium or Large", size)
	}
	return nil
}

// checkWindow rejects dates outside the days the view's table covers
func checkWindow(view *View, field string, date time.Time) error {
	window := view.Table().Window()
	if window.Contains(date) {
		return nil
	}
	return models.NewValidationError(field,
		fmt.Sprintf("must be between %s and %s", window.Start.Format(dates.Layout), window.End().Format(dates.Layout)),
		date.Format(dates.Layout))
}

func (s *BookingService) viewFor(sess *session.Session) (*View, error) {
	if sess == nil {
		return s.public, nil
	}
	st, err := s.stateFor(sess)
	if err != nil {
		return nil, err
	}
	return st.view, nil
}

func (s *BookingService) stateFor(sess *session.Session) (*sessionState, error) {
	if sess == nil {
		return nil, models.NewBusinessError(models.ErrorCodeSessionRequired, "sign in to use a basket", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state[sess.Token]
	if !ok {
		return nil, models.NewBusinessError(models.ErrorCodeSessionRequired, "session has ended", nil)
	}
	return st, nil
}
