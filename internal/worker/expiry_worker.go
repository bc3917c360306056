package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpirySweeper moves overdue active cards to EXPIRED.
type ExpirySweeper interface {
	ExpireOverdueCards(ctx context.Context, now time.Time) (int, error)
}

// ExpiryWorker runs the sweeper on a cron schedule.
type ExpiryWorker struct {
	sweeper ExpirySweeper
	logger  *zap.Logger
	cron    *cron.Cron
	timeout time.Duration
	now     func() time.Time
}

// NewExpiryWorker schedules sweeps with a standard cron spec or a descriptor such as "@daily".
func NewExpiryWorker(sweeper ExpirySweeper, spec string, logger *zap.Logger) (*ExpiryWorker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &ExpiryWorker{
		sweeper: sweeper,
		logger:  logger.Named("expiry"),
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: time.Minute,
		now:     time.Now,
	}
	if _, err := w.cron.AddFunc(spec, func() { w.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid expiry schedule %q: %w", spec, err)
	}
	return w, nil
}

// RunOnce performs a single sweep and returns the number of cards expired.
func (w *ExpiryWorker) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	count, err := w.sweeper.ExpireOverdueCards(ctx, w.now())
	if err != nil {
		w.logger.Error("expiry sweep failed", zap.Error(err))
		return 0
	}
	w.logger.Debug("expiry sweep finished", zap.Int("expired", count))
	return count
}

// Start begins the schedule in its own goroutine.
func (w *ExpiryWorker) Start() {
	w.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (w *ExpiryWorker) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
