package service

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/sifan077/PowerHook/internal/app/model"
	"github.com/sifan077/PowerHook/internal/app/repository"
	"go.uber.org/zap"
)

// CaptureInput is the normalized shape of an inbound webhook delivery.
type CaptureInput struct {
	Method    string
	Path      string
	Headers   map[string]string
	Query     map[string]string
	Body      model.Body
	IPAddress string
}

// CaptureService records and inspects requests delivered to links.
type CaptureService interface {
	Capture(ctx context.Context, code string, input CaptureInput) (*model.CapturedRequest, error)
	ListRequests(ctx context.Context, code string) ([]model.CapturedRequest, error)
	ClearRequests(ctx context.Context, code string) error
}

type captureService struct {
	links    repository.LinkRepository
	captures repository.CaptureRepository
	opts     options
	// events feeds the single publisher goroutine; nil without a publisher.
	events chan model.CaptureEvent
}

// NewCaptureService returns a service that checks links in links and records into captures.
// With a publisher configured it starts one goroutine that publishes capture
// events in order.
func NewCaptureService(links repository.LinkRepository, captures repository.CaptureRepository, opts ...Option) CaptureService {
	s := &captureService{
		links:    links,
		captures: captures,
		opts:     buildOptions(opts),
	}
	if s.opts.publisher != nil {
		s.events = make(chan model.CaptureEvent, s.opts.publishQueue)
		go s.publishLoop()
	}
	return s
}

// Capture records input against the link. Unknown or expired links record nothing.
func (s *captureService) Capture(ctx context.Context, code string, input CaptureInput) (*model.CapturedRequest, error) {
	now := s.opts.now()
	if _, err := resolveLink(ctx, s.links, now, code); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	headers := input.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	query := input.Query
	if query == nil {
		query = map[string]string{}
	}
	body := input.Body
	if body.Kind == "" {
		body = model.EmptyBody()
	}

	req := &model.CapturedRequest{
		ID:        ulid.Make().String(),
		LinkCode:  code,
		Method:    input.Method,
		Path:      input.Path,
		Headers:   headers,
		Body:      body,
		Query:     query,
		Timestamp: now.UTC(),
		IPAddress: input.IPAddress,
	}

	// Append fails if the link was deleted after the lookup above.
	if err := s.captures.Append(ctx, req); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	s.opts.recorder.RequestCaptured(req.Method)
	if s.events != nil {
		s.enqueue(model.NewCaptureEvent(req))
	}

	return req, nil
}

func (s *captureService) ListRequests(ctx context.Context, code string) ([]model.CapturedRequest, error) {
	if _, err := resolveLink(ctx, s.links, s.opts.now(), code); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	requests, err := s.captures.List(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

func (s *captureService) ClearRequests(ctx context.Context, code string) error {
	if _, err := resolveLink(ctx, s.links, s.opts.now(), code); err != nil {
		return fmt.Errorf("clear requests: %w", err)
	}

	if err := s.captures.Clear(ctx, code); err != nil {
		return fmt.Errorf("clear requests: %w", err)
	}
	s.opts.logger.Debug("requests cleared", zap.String("code", code))
	return nil
}

// enqueue never blocks the capture path: when the publisher is stalled and the
// queue is full the event is dropped. The capture itself is already stored.
func (s *captureService) enqueue(event model.CaptureEvent) {
	select {
	case s.events <- event:
	default:
		s.opts.logger.Warn("capture event queue full, dropping event",
			zap.String("code", event.LinkCode),
			zap.String("id", event.ID),
		)
	}
}

func (s *captureService) publishLoop() {
	for event := range s.events {
		s.publish(event)
	}
}

func (s *captureService) publish(event model.CaptureEvent) {
	if err := s.opts.publisher.Publish(event); err != nil {
		s.opts.logger.Error("failed to publish capture event",
			zap.Error(err),
			zap.String("code", event.LinkCode),
			zap.String("id", event.ID),
		)
	}
}
