// Package basket holds a signed-in user's pending reservations.
//
// Every entry in a basket has already been written to the reservation store;
// a failed write never reaches the basket. The basket is mirrored to a cache
// under basket_<userId> so it survives a sign-out for up to the cache TTL.
package basket

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/interfaces"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// DefaultTTL is how long a cached basket stays valid after its last write.
const DefaultTTL = 15 * time.Minute

// Key returns the cache key of a user's basket.
func Key(userID string) string {
	return "basket_" + userID
}

// Store is one user's basket.
type Store struct {
	userID string
	cache  interfaces.BasketCache
	writer interfaces.ReservationWriter
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	items     []models.BasketEntry
	onChange  func()
	lastWrite time.Time
	expiry    *time.Timer
	closed    bool
}

// NewStore creates an empty basket for userID.
func NewStore(userID string, cache interfaces.BasketCache, writer interfaces.ReservationWriter, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		userID: userID,
		cache:  cache,
		writer: writer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// OnChange registers fn to run after every successful mutation.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// UserID returns the basket owner.
func (s *Store) UserID() string {
	return s.userID
}

// Restore loads the cached basket. A basket older than the TTL is treated as
// absent and removed. Cache failures leave the basket empty.
func (s *Store) Restore(ctx context.Context) int {
	key := Key(s.userID)

	snapshot, err := s.cache.GetBasket(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("user_id", s.userID).Msg("Failed to restore basket, starting empty")
		return 0
	}
	if snapshot == nil {
		return 0
	}

	if s.stale(snapshot.Timestamp) {
		log.Debug().
			Str("user_id", s.userID).
			Time("stored_at", snapshot.Timestamp).
			Msg("Cached basket expired, discarding")
		if err := s.cache.RemoveBasket(ctx, key); err != nil {
			log.Warn().Err(err).Str("user_id", s.userID).Msg("Failed to remove expired basket")
		}
		return 0
	}

	s.mu.Lock()
	s.items = append([]models.BasketEntry(nil), snapshot.Items...)
	n := len(s.items)
	s.touchLocked(snapshot.Timestamp)
	s.mu.Unlock()

	log.Info().Str("user_id", s.userID).Int("items", n).Msg("Basket restored")
	s.changed()
	return n
}

// Add creates the reservation for entry and, once that succeeds, appends the
// entry to the basket. A failed create leaves the basket untouched.
func (s *Store) Add(ctx context.Context, entry models.BasketEntry) (models.BasketEntry, error) {
	if entry.Quantity <= 0 {
		return models.BasketEntry{}, models.NewValidationError("quantity", "must be positive", entry.Quantity)
	}
	if !entry.Size.Valid() {
		return models.BasketEntry{}, models.NewValidationError("size", "must be Small, Medium or Large", entry.Size)
	}

	record := &models.ReservationRecord{
		BikeID:    entry.BikeID,
		Size:      entry.Size,
		Quantity:  entry.Quantity,
		StartDate: entry.StartDate,
		EndDate:   entry.EndDate,
		UserID:    s.userID,
	}
	id, err := s.writer.CreateReservation(ctx, record)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", s.userID).
			Str("bike_id", entry.BikeID).
			Msg("Failed to create reservation, basket unchanged")
		return models.BasketEntry{}, err
	}

	entry.ReservationID = id
	entry.Echoed = false
	entry.AddedAt = s.now()

	s.mu.Lock()
	if s.expiredLocked() {
		s.items = nil
	}
	s.items = append(s.items, entry)
	snapshot := s.snapshotLocked()
	s.touchLocked(snapshot.Timestamp)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	log.Info().
		Str("user_id", s.userID).
		Str("reservation_id", id).
		Str("bike_id", entry.BikeID).
		Str("size", string(entry.Size)).
		Int("quantity", entry.Quantity).
		Msg("Added to basket")
	s.changed()
	return entry, nil
}

// Remove deletes the reservation behind reservationID and then drops the
// entry. A reservation that is already gone counts as deleted; any other
// delete failure keeps the entry.
func (s *Store) Remove(ctx context.Context, reservationID string) error {
	s.mu.Lock()
	idx := -1
	if !s.expiredLocked() {
		idx = s.indexLocked(reservationID)
	}
	s.mu.Unlock()
	if idx < 0 {
		return models.NewNotFoundError("Reservation", reservationID)
	}

	if err := s.writer.DeleteReservation(ctx, reservationID); err != nil {
		if !models.IsNotFoundError(err) {
			log.Error().Err(err).
				Str("user_id", s.userID).
				Str("reservation_id", reservationID).
				Msg("Failed to delete reservation, basket unchanged")
			return err
		}
		log.Warn().
			Str("reservation_id", reservationID).
			Msg("Reservation already deleted, removing from basket")
	}

	s.mu.Lock()
	// the slice may have changed while the delete was in flight
	if idx = s.indexLocked(reservationID); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	}
	snapshot := s.snapshotLocked()
	s.touchLocked(snapshot.Timestamp)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	log.Info().Str("user_id", s.userID).Str("reservation_id", reservationID).Msg("Removed from basket")
	s.changed()
	return nil
}

// Items returns a copy of the basket in insertion order. A basket left
// unwritten for the TTL is empty.
func (s *Store) Items() []models.BasketEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredLocked() {
		return nil
	}
	return append([]models.BasketEntry(nil), s.items...)
}

// Expire drops the basket and its cache entry once the TTL has passed since
// the last write, and reports whether it did. The reservations themselves are
// left in place.
func (s *Store) Expire(ctx context.Context) bool {
	s.mu.Lock()
	if len(s.items) == 0 || !s.expiredLocked() {
		s.mu.Unlock()
		return false
	}
	n := len(s.items)
	s.items = nil
	s.mu.Unlock()

	if err := s.cache.RemoveBasket(ctx, Key(s.userID)); err != nil {
		log.Warn().Err(err).Str("user_id", s.userID).Msg("Failed to remove expired basket")
	}
	log.Info().Str("user_id", s.userID).Int("items", n).Msg("Basket expired")
	s.changed()
	return true
}

// Close stops the expiry timer. The cached basket is left for a later sign-in.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
}

// Reconcile marks entries whose reservation appears in records as echoed and
// reports whether any entry changed.
func (s *Store) Reconcile(records []models.ReservationRecord) bool {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.items {
		if s.items[i].Echoed || s.items[i].ReservationID == "" {
			continue
		}
		if _, ok := seen[s.items[i].ReservationID]; ok {
			s.items[i].Echoed = true
			changed = true
		}
	}
	return changed
}

func (s *Store) stale(at time.Time) bool {
	return s.now().Sub(at) >= s.ttl
}

func (s *Store) expiredLocked() bool {
	return !s.lastWrite.IsZero() && s.stale(s.lastWrite)
}

// touchLocked records a write at and rearms the expiry timer.
func (s *Store) touchLocked(at time.Time) {
	s.lastWrite = at
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	if s.closed {
		return
	}
	delay := s.ttl - s.now().Sub(at)
	if delay < 0 {
		delay = 0
	}
	s.expiry = time.AfterFunc(delay, func() { s.Expire(context.Background()) })
}

func (s *Store) indexLocked(reservationID string) int {
	for i, item := range s.items {
		if item.ReservationID == reservationID {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() *models.BasketSnapshot {
	return &models.BasketSnapshot{
		Items:     append([]models.BasketEntry(nil), s.items...),
		Timestamp: s.now(),
	}
}

// persist is best effort: the reservation write already succeeded.
func (s *Store) persist(ctx context.Context, snapshot *models.BasketSnapshot) {
	key := Key(s.userID)

	var err error
	if len(snapshot.Items) == 0 {
		err = s.cache.RemoveBasket(ctx, key)
	} else {
		err = s.cache.SetBasket(ctx, key, snapshot)
	}
	if err != nil {
		log.Warn().Err(err).Str("user_id", s.userID).Msg("Failed to persist basket")
	}
}

func (s *Store) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
