package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerHook/internal/app/model"
	"go.uber.org/zap"
)

// CaptureConsumer tails the capture stream and writes every event to the log.
type CaptureConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
}

// NewCaptureConsumer creates a new capture event consumer.
func NewCaptureConsumer(js nats.JetStreamContext, logger *zap.Logger) *CaptureConsumer {
	return &CaptureConsumer{js: js, logger: logger}
}

// Start begins consuming capture events until ctx is cancelled.
func (c *CaptureConsumer) Start(ctx context.Context) error {
	if err := EnsureCaptureStream(c.js); err != nil {
		return err
	}

	// Create consumer if not exists
	if _, err := c.js.ConsumerInfo(model.CaptureStreamName, model.CaptureConsumerName); err != nil {
		_, err = c.js.AddConsumer(model.CaptureStreamName, &nats.ConsumerConfig{
			Durable:   model.CaptureConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.CaptureStreamSubject, model.CaptureConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(ctx, sub)
	return nil
}

func (c *CaptureConsumer) consume(ctx context.Context, sub *nats.Subscription) {
	defer func() { _ = sub.Unsubscribe() }()

	for {
		if ctx.Err() != nil {
			c.logger.Info("capture consumer stopped")
			return
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.CaptureEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal capture event", zap.Error(err))
				_ = msg.Term()
				continue
			}

			c.logger.Info("capture event",
				zap.String("id", event.ID),
				zap.String("link_code", event.LinkCode),
				zap.String("method", event.Method),
				zap.String("path", event.Path),
				zap.String("body_type", string(event.BodyType)),
				zap.Int("body_size", event.BodySize),
				zap.String("ip", event.IP),
				zap.Time("timestamp", event.Timestamp),
			)

			_ = msg.Ack()
		}
	}
}
