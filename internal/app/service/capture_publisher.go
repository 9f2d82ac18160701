package service

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/PowerHook/internal/app/model"
)

// CapturePublisher publishes capture events to NATS JetStream.
type CapturePublisher struct {
	js nats.JetStreamContext
}

// NewCapturePublisher creates a new capture event publisher.
func NewCapturePublisher(js nats.JetStreamContext) *CapturePublisher {
	return &CapturePublisher{js: js}
}

// Publish publishes a capture event to the stream.
func (p *CapturePublisher) Publish(event model.CaptureEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.CaptureStreamSubject, data)
	return err
}

// EnsureCaptureStream creates the capture stream if it does not exist yet.
func EnsureCaptureStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(model.CaptureStreamName); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     model.CaptureStreamName,
		Subjects: []string{model.CaptureStreamSubject},
		MaxBytes: model.CaptureStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}
