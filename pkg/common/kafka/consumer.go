package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

const (
	initialRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

type Consumer struct {
	reader       *kafka.Reader
	retryBackoff time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, retryBackoff: initialRetryBackoff}
}

// Consume blocks until ctx is cancelled. A message is committed only after its
// handler succeeds; a failing handler is retried with backoff, holding back the
// partition, because committing a later offset would skip the failed message.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal event")
			if err := c.reader.CommitMessages(ctx, message); err != nil {
				logger.Log.WithError(err).Error("Failed to commit message")
			}
			continue
		}

		if err := process(ctx, handler, event, c.retryBackoff); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			logger.Log.WithError(err).Error("Failed to commit message")
		}
	}
}

// process runs handler until it succeeds, doubling the wait between attempts up
// to maxRetryBackoff. It only fails once ctx is done.
func process(ctx context.Context, handler EventHandler, event models.Event, backoff time.Duration) error {
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
			"attempt":    attempt,
			"retry_in":   backoff.String(),
		}).Error("Failed to process event")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
