package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/interfaces"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// messageReader is the part of *kafka.Reader the consumer uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const maxHandlerRetries = 3

var _ interfaces.MessageConsumer = (*Consumer)(nil)

// Consumer reads reservation events from Kafka
type Consumer struct {
	reader messageReader
}

// NewConsumer creates a consumer of the reservation events topic
func NewConsumer(brokers []string, consumerGroup, topic string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: consumerGroup,

		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
		MaxWait:        time.Second,

		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error().Msgf("Kafka reservation reader error: "+msg, args...)
		}),
	})
	return &Consumer{reader: reader}
}

// ConsumeEvents hands every event to handler. A message is committed only
// after the handler succeeded or failed permanently.
func (c *Consumer) ConsumeEvents(ctx context.Context, handler interfaces.EventHandler) error {
	log.Info().Msg("Starting to consume reservation events")

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info().Msg("Stopping event consumption")
				return nil
			}
			log.Error().Err(err).Msg("Failed to fetch event message")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		var event models.ReservationEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			log.Error().Err(err).
				Str("topic", message.Topic).
				Int("partition", message.Partition).
				Int64("offset", message.Offset).
				Msg("Failed to unmarshal event, skipping")
			c.commit(ctx, message)
			continue
		}

		if err := c.processEventWithRetry(ctx, handler, &event, maxHandlerRetries); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !isNonRetryableError(err) {
				// not committed, though a later commit moves the group past it;
				// the loader's periodic resync picks up what this event missed
				log.Error().Err(err).
					Str("event_id", event.EventID).
					Msg("Failed to handle event after retries")
				continue
			}
		}

		c.commit(ctx, message)
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		log.Error().Err(err).Int64("offset", message.Offset).Msg("Failed to commit event message")
	}
}

// processEventWithRetry retries with exponential backoff: 100ms, 200ms, 400ms
func (c *Consumer) processEventWithRetry(ctx context.Context, handler interfaces.EventHandler, event *models.ReservationEvent, maxRetries int) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = handler.HandleReservationEvent(ctx, event); err == nil {
			return nil
		}

		if isNonRetryableError(err) {
			log.Warn().Err(err).
				Str("event_id", event.EventID).
				Msg("Non-retryable error, skipping event")
			return err
		}

		if attempt < maxRetries {
			backoff := time.Duration(100*(1<<attempt)) * time.Millisecond
			log.Warn().Err(err).
				Str("event_id", event.EventID).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Event processing failed, retrying after backoff")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("event processing failed after %d attempts: %w", maxRetries+1, err)
}

// isNonRetryableError reports whether retrying err cannot help
func isNonRetryableError(err error) bool {
	return models.IsValidationError(err) || models.IsNotFoundError(err)
}

// Close closes the Kafka reader
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close events reader: %w", err)
	}
	return nil
}
