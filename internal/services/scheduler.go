package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler runs the orchestrator's full pipeline on a fixed interval.
// It owns no retry logic: a failed run is logged and the next tick
// tries again.
type Scheduler struct {
	orchestrator *Orchestrator
	interval     time.Duration
	runTimeout   time.Duration
	logger       *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(orchestrator *Orchestrator, interval time.Duration, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		orchestrator: orchestrator,
		interval:     interval,
		runTimeout:   2 * time.Minute,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the background loop. No-op interval disables it.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Signal scheduler disabled (no run interval)")
		return
	}

	s.logger.WithField("interval", s.interval.String()).Info("Starting signal scheduler")
	s.wg.Add(1)
	go s.loop()
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Signal scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	result, err := s.orchestrator.Run(ctx, false)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled signal run failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"notify_worthy": result.NotifyWorthy,
		"persisted":     result.Persisted,
		"recipients":    result.RecipientsAttempted,
	}).Info("Scheduled signal run finished")
}
