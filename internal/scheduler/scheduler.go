package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

// Sweeper applies coupon lifecycle transitions.
type Sweeper interface {
	SweepStatuses(ctx context.Context) (int, error)
}

// StatusScheduler runs the sweeper on a cron schedule.
type StatusScheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	logger  *zap.Logger
}

// New registers the sweep under spec, e.g. "@every 1m" or "0 */5 * * * *".
func New(spec string, sweeper Sweeper, timeout time.Duration, logger *zap.Logger) (*StatusScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &StatusScheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		timeout: timeout,
		logger:  logger,
	}
	if err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce performs one sweep and logs the outcome.
func (s *StatusScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.sweeper.SweepStatuses(ctx)
	if err != nil {
		s.logger.Error("status sweep failed", zap.Int("changed", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("status sweep", zap.Int("changed", n), zap.Duration("took", time.Since(start)))
	}
}

func (s *StatusScheduler) Start() { s.cron.Start() }

func (s *StatusScheduler) Stop() { s.cron.Stop() }
