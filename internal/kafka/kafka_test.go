package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/mocks"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

type fakeWriter struct {
	mu       sync.Mutex
	written  []kafka.Message
	failKeys map[string]bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range msgs {
		if w.failKeys[string(m.Key)] {
			return errors.New("leader not available")
		}
		w.written = append(w.written, m)
	}
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func outboxRow(id int64, key string) models.OutboxEvent {
	return models.OutboxEvent{
		ID:        id,
		EventType: models.EventTypeReservationCreated,
		Key:       key,
		Payload:   `{"reservation_id":"r"}`,
		CreatedAt: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_OutboxBatchSkipsWithoutLock(t *testing.T) {
	repo := new(mocks.OutboxRepository)
	p := &Publisher{writer: &fakeWriter{}}

	repo.On("TryAcquireOutboxLock", mock.Anything, int64(7)).Return(false, nil)

	n, err := p.processOutboxBatch(context.Background(), repo, 7, 10)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	repo.AssertNotCalled(t, "FetchOutboxBatchOrdered", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "ReleaseOutboxLock", mock.Anything, mock.Anything)
}

func TestPublisher_OutboxBatchPublishesInOrder(t *testing.T) {
	repo := new(mocks.OutboxRepository)
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	repo.On("TryAcquireOutboxLock", mock.Anything, int64(7)).Return(true, nil)
	repo.On("ReleaseOutboxLock", mock.Anything, int64(7)).Return(nil)
	repo.On("FetchOutboxBatchOrdered", mock.Anything, 10).
		Return([]models.OutboxEvent{outboxRow(1, "trail"), outboxRow(2, "enduro")}, nil)
	repo.On("MarkOutboxPublished", mock.Anything, []int64{1, 2}).Return(nil)

	n, err := p.processOutboxBatch(context.Background(), repo, 7, 10)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, w.written, 2)
	repo.AssertExpectations(t)
}

func TestPublisher_OutboxBatchStopsAtFirstFailure(t *testing.T) {
	repo := new(mocks.OutboxRepository)
	w := &fakeWriter{failKeys: map[string]bool{"enduro": true}}
	p := &Publisher{writer: w}

	repo.On("TryAcquireOutboxLock", mock.Anything, int64(7)).Return(true, nil)
	repo.On("ReleaseOutboxLock", mock.Anything, int64(7)).Return(nil)
	repo.On("FetchOutboxBatchOrdered", mock.Anything, 10).
		Return([]models.OutboxEvent{outboxRow(1, "trail"), outboxRow(2, "enduro"), outboxRow(3, "trail")}, nil)
	repo.On("IncrementPublishAttempts", mock.Anything, int64(2), mock.AnythingOfType("string")).Return(nil)
	repo.On("MarkOutboxPublished", mock.Anything, []int64{1}).Return(nil)

	n, err := p.processOutboxBatch(context.Background(), repo, 7, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, w.written, 1)
	repo.AssertExpectations(t)
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		r.cancel()
		return kafka.Message{}, context.Canceled
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func eventMessage(t *testing.T, offset int64, id string) kafka.Message {
	t.Helper()
	data, err := json.Marshal(models.ReservationEvent{EventID: id, EventType: models.EventTypeReservationCreated})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: data}
}

func TestConsumer_CommitsHandledAndPoisonMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		cancel: cancel,
		queue: []kafka.Message{
			eventMessage(t, 1, "ok"),
			{Offset: 2, Value: []byte("not json")},
			eventMessage(t, 3, "invalid"),
		},
	}
	c := &Consumer{reader: reader}

	handler := new(mocks.EventHandler)
	handler.On("HandleReservationEvent", mock.Anything, mock.MatchedBy(func(e *models.ReservationEvent) bool {
		return e.EventID == "ok"
	})).Return(nil)
	handler.On("HandleReservationEvent", mock.Anything, mock.MatchedBy(func(e *models.ReservationEvent) bool {
		return e.EventID == "invalid"
	})).Return(models.NewValidationError("event", "bad", nil)).Once()

	require.NoError(t, c.ConsumeEvents(ctx, handler))

	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
	handler.AssertExpectations(t)
}

func TestConsumer_LeavesFailedMessageUncommitted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{cancel: cancel, queue: []kafka.Message{eventMessage(t, 5, "flaky")}}
	c := &Consumer{reader: reader}

	handler := new(mocks.EventHandler)
	handler.On("HandleReservationEvent", mock.Anything, mock.Anything).Return(errors.New("database unavailable"))

	require.NoError(t, c.ConsumeEvents(ctx, handler))

	assert.Empty(t, reader.committed)
	handler.AssertNumberOfCalls(t, "HandleReservationEvent", maxHandlerRetries+1)
}

func TestIsNonRetryableError(t *testing.T) {
	assert.True(t, isNonRetryableError(models.NewValidationError("f", "m", nil)))
	assert.True(t, isNonRetryableError(models.NewNotFoundError("Reservation", "r")))
	assert.False(t, isNonRetryableError(errors.New("timeout")))
	assert.False(t, isNonRetryableError(nil))
}
