package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/interfaces"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ interfaces.MessagePublisher = (*Publisher)(nil)

// OutboxConfig tunes the outbox relay
type OutboxConfig struct {
	LockKey      int64
	BatchSize    int
	PollInterval time.Duration
}

// Publisher publishes reservation events to Kafka
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher for the reservation events topic
func NewPublisher(brokers []string, topic string) *Publisher {
	// Hash balancer keeps every event of one bike on one partition.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		AllowAutoTopicCreation: true,

		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    1,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	return &Publisher{writer: writer}
}

// PublishOutboxEvent publishes a row taken from the outbox table as is
func (p *Publisher) PublishOutboxEvent(ctx context.Context, event *models.OutboxEvent) error {
	message := kafka.Message{
		Key:   []byte(event.Key),
		Value: []byte(event.Payload),
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

// RunOutboxPublisher relays outbox rows to Kafka until ctx is cancelled.
// Only the instance holding the advisory lock publishes in a given tick.
func (p *Publisher) RunOutboxPublisher(ctx context.Context, outboxRepo interfaces.OutboxRepository, cfg OutboxConfig) {
	log.Info().
		Int64("lock_key", cfg.LockKey).
		Int("batch_size", cfg.BatchSize).
		Dur("poll_interval", cfg.PollInterval).
		Msg("Starting outbox publisher")

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping outbox publisher")
			return
		case <-ticker.C:
			if _, err := p.processOutboxBatch(ctx, outboxRepo, cfg.LockKey, cfg.BatchSize); err != nil {
				log.Error().Err(err).Msg("Failed to process outbox batch")
			}
		}
	}
}

// processOutboxBatch publishes one batch and returns how many rows went out
func (p *Publisher) processOutboxBatch(ctx context.Context, outboxRepo interfaces.OutboxRepository, lockKey int64, batchSize int) (int, error) {
	acquired, err := outboxRepo.TryAcquireOutboxLock(ctx, lockKey)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		log.Debug().Msg("Lock held by another worker, skipping batch")
		return 0, nil
	}
	defer func() {
		if err := outboxRepo.ReleaseOutboxLock(ctx, lockKey); err != nil {
			log.Error().Err(err).Msg("Failed to release outbox lock")
		}
	}()

	events, err := outboxRepo.FetchOutboxBatchOrdered(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch outbox batch: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	var published []int64
	for i := range events {
		event := &events[i]
		if err := p.PublishOutboxEvent(ctx, event); err != nil {
			log.Error().Err(err).
				Int64("outbox_id", event.ID).
				Str("event_type", event.EventType).
				Str("key", event.Key).
				Msg("Failed to publish outbox event")

			if incErr := outboxRepo.IncrementPublishAttempts(ctx, event.ID, err.Error()); incErr != nil {
				log.Error().Err(incErr).Int64("outbox_id", event.ID).Msg("Failed to increment publish attempts")
			}
			// later rows of the same bike must not overtake this one
			break
		}
		published = append(published, event.ID)
	}

	if len(published) > 0 {
		if err := outboxRepo.MarkOutboxPublished(ctx, published); err != nil {
			return 0, fmt.Errorf("failed to mark events as published: %w", err)
		}
		log.Info().
			Int("published_count", len(published)).
			Int("total_count", len(events)).
			Msg("Outbox batch processed")
	}
	return len(published), nil
}

// Close closes the Kafka writer
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close events writer: %w", err)
	}
	return nil
}
