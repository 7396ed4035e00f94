package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// TriggerFunc starts a collection for scope, typically by enqueueing a job.
type TriggerFunc func(ctx context.Context, scope domain.Scope) error

// Scheduler wires the recurring driver with collections of the current month.
type Scheduler struct {
	driver   ports.Scheduler
	trigger  TriggerFunc
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring collections.
func NewScheduler(driver ports.Scheduler, trigger TriggerFunc, location *time.Location, logger *slog.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{driver: driver, trigger: trigger, location: location, now: time.Now, logger: logger}
}

// Start registers the monthly collection with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.trigger == nil {
		return nil
	}
	return s.driver.Start(ctx, s.Tick)
}

// Tick triggers a collection for the month containing now.
func (s *Scheduler) Tick(ctx context.Context) {
	scope := CurrentMonth(s.now().In(s.location))
	if err := s.trigger(ctx, scope); err != nil {
		s.logger.Error("scheduled collection failed", "scope", scope.String(), "error", err)
		return
	}
	s.logger.Info("scheduled collection triggered", "scope", scope.String())
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

// CurrentMonth is the month scope containing t.
func CurrentMonth(t time.Time) domain.Scope {
	return domain.Scope{Year: t.Year(), Month: int(t.Month())}
}
