package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/metrics"
)

const (
	defaultInterval   = 24 * time.Hour
	defaultJobTimeout = 30 * time.Minute
)

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per interval. Only the worker
// holding the lock runs a cycle; the others skip it.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
		now:        time.Now,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run starts with a cycle right away, then ticks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle finished with failures", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes one cycle. Every job runs even if an earlier one fails;
// the failures come back combined.
func (s *Service) RunOnce(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !acquired {
		s.metrics.IncSkipped()
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	var errs error
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		if err := s.runJob(ctx, job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), err))
		}
	}
	return errs
}

func (s *Service) runJob(parent context.Context, job Job) (err error) {
	ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
	defer cancel()
	ctx = s.logg.WithField(ctx, "job", job.Name())

	start := s.now()
	outcome := metrics.OutcomeSuccess
	defer func() {
		if rec := recover(); rec != nil {
			outcome = metrics.OutcomePanic
			err = fmt.Errorf("panic: %v", rec)
		}
		elapsed := s.now().Sub(start)
		s.metrics.ObserveRun(job.Name(), outcome, elapsed, s.now())
		ctx = s.logg.WithFields(ctx, map[string]any{"outcome": outcome, "duration_ms": elapsed.Milliseconds()})
		if err != nil {
			s.logg.Error(ctx, "cron job failed", err)
			return
		}
		s.logg.Info(ctx, "cron job completed")
	}()

	err = job.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil:
		outcome = metrics.OutcomeTimeout
	default:
		outcome = metrics.OutcomeFailure
	}
	return err
}
