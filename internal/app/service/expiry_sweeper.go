package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpirySweeper periodically removes expired links in addition to the sweep
// performed on every listing.
type ExpirySweeper struct {
	logger   *zap.Logger
	links    LinkService
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
}

// NewExpirySweeper creates a sweeper running every interval.
func NewExpirySweeper(logger *zap.Logger, links LinkService, interval time.Duration) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{
		logger:   logger,
		links:    links,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *ExpirySweeper) Start() {
	go s.run()
}

// Stop stops the periodic sweep and waits for an in-flight sweep to finish.
func (s *ExpirySweeper) Stop() {
	close(s.stopChan)
	<-s.done
}

func (s *ExpirySweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}

func (s *ExpirySweeper) sweep() {
	if _, err := s.links.SweepExpired(context.Background()); err != nil {
		s.logger.Error("failed to sweep expired links", zap.Error(err))
	}
}
