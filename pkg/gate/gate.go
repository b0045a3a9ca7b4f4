// Package gate bounds concurrent provider calls and wraps each call with a
// deadline and linear-backoff retries.
package gate

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/pario-ai/glossa/pkg/apperr"
)

// Default settings used when a Config field is zero.
const (
	DefaultMaxConcurrent = 5
	DefaultTimeout       = 600 * time.Second
	DefaultMaxAttempts   = 3
	DefaultRetryDelay    = 2 * time.Second
)

// Config holds gate settings.
type Config struct {
	// MaxConcurrent is the number of calls allowed to run at once.
	MaxConcurrent int
	// Timeout bounds a whole call, every attempt included.
	Timeout     time.Duration
	MaxAttempts int
	// RetryDelay is the backoff unit: attempt k waits (k-1)*RetryDelay.
	RetryDelay time.Duration
}

// CallFunc performs one attempt against the provider.
type CallFunc func(ctx context.Context, text string) (string, error)

// Gate admits a bounded number of calls at a time.
type Gate struct {
	cfg      Config
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// New creates a Gate. Zero fields in cfg take their defaults.
func New(cfg Config) *Gate {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	return &Gate{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// InFlight reports how many permits are currently held.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Do runs call for text while holding a permit. Whitespace-only text is
// returned unchanged without calling the provider. An empty result counts as
// a failed attempt.
func (g *Gate) Do(ctx context.Context, text string, call CallFunc) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	g.inFlight.Add(1)
	defer func() {
		g.inFlight.Add(-1)
		g.sem.Release(1)
	}()

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * g.cfg.RetryDelay
			logrus.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay.String(),
			}).Warn("[GATE] retrying translation")
			if err := sleep(callCtx, delay); err != nil {
				return "", g.ctxErr(ctx, err)
			}
		}

		result, err := attemptCall(callCtx, text, call)
		if err == nil && result == "" {
			err = &apperr.EmptyResponseError{}
		}
		if err == nil {
			return result, nil
		}
		if callCtx.Err() != nil {
			return "", g.ctxErr(ctx, callCtx.Err())
		}

		lastErr = err
		logrus.WithError(err).WithField("attempt", attempt).Warn("[GATE] attempt failed")
	}

	return "", &apperr.RetryExhaustedError{Attempts: g.cfg.MaxAttempts, Err: lastErr}
}

// ctxErr maps the call context's error: a deadline becomes a TimeoutError,
// while cancellation by the caller is returned as is.
func (g *Gate) ctxErr(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &apperr.TimeoutError{After: g.cfg.Timeout}
	}
	return err
}

type attemptResult struct {
	text string
	err  error
}

// attemptCall runs call on its own goroutine so the deadline holds even when
// the provider ignores ctx. An abandoned call finishes into a buffered
// channel nobody reads.
func attemptCall(ctx context.Context, text string, call CallFunc) (string, error) {
	done := make(chan attemptResult, 1)
	go func() {
		out, err := call(ctx, text)
		done <- attemptResult{text: out, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
