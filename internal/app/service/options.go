package service

import (
	"time"

	"github.com/sifan077/PowerHook/internal/app/model"
	"go.uber.org/zap"
)

// Recorder receives domain-level counters. The Prometheus collectors implement it.
type Recorder interface {
	LinkCreated()
	LinksRemoved(n int)
	RequestCaptured(method string)
}

// EventPublisher forwards capture notifications to an event stream.
type EventPublisher interface {
	Publish(event model.CaptureEvent) error
}

// Option customises a service.
type Option func(*options)

type options struct {
	now          func() time.Time
	logger       *zap.Logger
	recorder     Recorder
	publisher    EventPublisher
	publishQueue int
}

// DefaultPublishQueue is the number of capture events buffered for the
// publisher before new ones are dropped.
const DefaultPublishQueue = 256

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithPublisher enables capture events. A nil publisher disables them.
func WithPublisher(p EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithPublishQueue sets how many capture events may wait for the publisher.
func WithPublishQueue(n int) Option {
	return func(o *options) { o.publishQueue = n }
}

func buildOptions(opts []Option) options {
	o := options{
		now:          time.Now,
		logger:       zap.NewNop(),
		recorder:     nopRecorder{},
		publishQueue: DefaultPublishQueue,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	if o.publishQueue <= 0 {
		o.publishQueue = DefaultPublishQueue
	}
	return o
}

type nopRecorder struct{}

func (nopRecorder) LinkCreated()           {}
func (nopRecorder) LinksRemoved(int)       {}
func (nopRecorder) RequestCaptured(string) {}
