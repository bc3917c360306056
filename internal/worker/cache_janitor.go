package worker

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CachePurger drops expired entries and reports how many went.
type CachePurger interface {
	Purge() int
}

// CacheJanitor purges the in-process user cache on a cron schedule so that
// entries nobody reads again do not pile up.
type CacheJanitor struct {
	purger CachePurger
	logger *zap.Logger
	cron   *cron.Cron
}

// NewCacheJanitor schedules purges with a cron spec such as "@every 5m".
func NewCacheJanitor(purger CachePurger, spec string, logger *zap.Logger) (*CacheJanitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &CacheJanitor{
		purger: purger,
		logger: logger.Named("cache_janitor"),
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := j.cron.AddFunc(spec, func() { j.RunOnce() }); err != nil {
		return nil, fmt.Errorf("invalid cache purge schedule %q: %w", spec, err)
	}
	return j, nil
}

// RunOnce purges once and returns the number of entries removed.
func (j *CacheJanitor) RunOnce() int {
	removed := j.purger.Purge()
	if removed > 0 {
		j.logger.Debug("purged expired cache entries", zap.Int("removed", removed))
	}
	return removed
}

// Start begins the schedule in its own goroutine.
func (j *CacheJanitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule without waiting for a running purge.
func (j *CacheJanitor) Stop() {
	j.cron.Stop()
}
