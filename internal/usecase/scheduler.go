package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ThreadHarvester/internal/ports"
)

// Scheduler wires the cron driver with the harvest pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger

	// running serializes runs; a trigger that fires while a run is still in
	// progress is skipped.
	running sync.Mutex
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if !s.running.TryLock() {
			s.logger.Warn("previous harvest still running, skipping trigger", "trigger", trigger)
			return
		}
		defer s.running.Unlock()

		if _, err := s.pipeline.Run(ctx, trigger); err != nil {
			s.logger.Error("scheduled harvest failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
