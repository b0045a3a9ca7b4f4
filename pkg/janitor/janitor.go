// Package janitor runs the cache's background maintenance: a daily sweep of
// stale entries and a periodic flush of buffered hit counts.
package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Store is the subset of the cache the janitor maintains.
type Store interface {
	ClearStale(ctx context.Context, days int) (int64, error)
	FlushPendingHits(ctx context.Context) (int, error)
}

// Config holds janitor settings.
type Config struct {
	// Hour is the local hour (0-23) of the daily sweep.
	Hour int
	// StaleDays is the idle age after which an entry is swept.
	StaleDays int
	// FlushEvery is the period of hit-count flushes. Zero disables them.
	FlushEvery time.Duration
}

// Janitor owns the maintenance loops.
type Janitor struct {
	store Store
	cfg   Config
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New creates a Janitor.
func New(store Store, cfg Config) *Janitor {
	if cfg.StaleDays <= 0 {
		cfg.StaleDays = 30
	}
	if cfg.Hour < 0 || cfg.Hour > 23 {
		cfg.Hour = 1
	}
	return &Janitor{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		after: time.After,
	}
}

// NextRun returns the next occurrence of hour:00:00 in now's location that
// is strictly after now.
func NextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is cancelled, sweeping daily and flushing
// periodically.
func (j *Janitor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	if j.cfg.FlushEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.flushLoop(ctx)
		}()
	}
	j.sweepLoop(ctx)
	wg.Wait()
}

func (j *Janitor) sweepLoop(ctx context.Context) {
	for {
		next := NextRun(j.now(), j.cfg.Hour)
		wait := next.Sub(j.now())
		logrus.WithField("next_run", next.Format(time.RFC3339)).Info("[JANITOR] sweep scheduled")

		select {
		case <-ctx.Done():
			return
		case <-j.after(wait):
		}
		j.Sweep(ctx)
	}
}

// Sweep removes stale entries once. Failures are logged.
func (j *Janitor) Sweep(ctx context.Context) {
	n, err := j.store.ClearStale(ctx, j.cfg.StaleDays)
	if err != nil {
		logrus.WithError(err).Error("[JANITOR] stale sweep failed")
		return
	}
	logrus.WithFields(logrus.Fields{
		"removed":    n,
		"stale_days": j.cfg.StaleDays,
	}).Info("[JANITOR] stale sweep completed")
}

func (j *Janitor) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.FlushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := j.store.FlushPendingHits(ctx)
			if err != nil {
				logrus.WithError(err).Warn("[JANITOR] hit flush failed")
				continue
			}
			if n > 0 {
				logrus.WithField("keys", n).Debug("[JANITOR] flushed hits")
			}
		}
	}
}
