package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
)

// Operation is a unit of work that may be retried.
type Operation func(ctx context.Context) error

// Config controls Helper.Do.
type Config struct {
	Attempts      int
	Delay         time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Jitter randomizes each delay by up to +/- this fraction, in [0, 1].
	Jitter float64
	// OnError enables retrying. With OnError false the operation runs once.
	OnError bool
	// Retryable, when set, limits retries to errors it accepts.
	Retryable func(error) bool
	TaskName  string
}

// Helper runs operations with exponential backoff.
type Helper struct {
	log        goaplog.Logger
	mu         sync.Mutex
	randSource *rand.Rand
}

// NewHelper creates a helper. It panics on a nil logger.
func NewHelper(log goaplog.Logger) *Helper {
	if log == nil {
		panic("retry.NewHelper requires a non-nil logger")
	}
	return &Helper{
		log:        log,
		randSource: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Do runs op until it succeeds, attempts are exhausted, the error is not
// retryable, or ctx is done. It returns the last error.
func (h *Helper) Do(ctx context.Context, cfg Config, op Operation) error {
	cfg = normalize(cfg)

	var lastErr error
	logPrefix := ""
	if cfg.TaskName != "" {
		logPrefix = fmt.Sprintf("task=%s ", cfg.TaskName)
	}

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			h.log.Warnf("%sRetry attempt %d/%d cancelled before start: %v", logPrefix, attempt, cfg.Attempts, err)
			if lastErr == nil {
				return err
			}
			return fmt.Errorf("retry cancelled after %d attempts with last error: %w (context: %v)", attempt-1, lastErr, err)
		}

		err := op(ctx)
		lastErr = err
		if err == nil {
			if attempt > 1 {
				h.log.Infof("%sOperation succeeded on attempt %d/%d", logPrefix, attempt, cfg.Attempts)
			}
			return nil
		}
		if attempt == cfg.Attempts || !cfg.OnError || (cfg.Retryable != nil && !cfg.Retryable(err)) {
			break
		}

		wait := h.delay(cfg, attempt)
		h.log.Warnf("%sOperation failed on attempt %d/%d (retrying in %v): %v",
			logPrefix, attempt, cfg.Attempts, wait.Truncate(time.Millisecond), err)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			h.log.Warnf("%sRetry delay for attempt %d/%d cancelled: %v", logPrefix, attempt+1, cfg.Attempts, ctx.Err())
			return fmt.Errorf("retry delay cancelled after attempt %d with error: %w (context: %v)", attempt, lastErr, ctx.Err())
		}
	}

	if lastErr != nil {
		h.log.Debugf("%sOperation failed definitively after %d attempts: %v", logPrefix, cfg.Attempts, lastErr)
		return lastErr
	}
	return goaperrors.NewConfigError("retry loop finished unexpectedly without success or error", nil)
}

func normalize(cfg Config) Config {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.BackoffFactor < 1.0 {
		cfg.BackoffFactor = 1.0
	}
	cfg.Jitter = math.Min(math.Max(cfg.Jitter, 0), 1)
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.MaxDelay < 0 {
		cfg.MaxDelay = 0
	}
	return cfg
}

// delay returns the wait before attempt+1.
func (h *Helper) delay(cfg Config, attempt int) time.Duration {
	base := float64(cfg.Delay) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if base > float64(math.MaxInt64) {
		base = float64(math.MaxInt64)
	}
	wait := time.Duration(base)

	if cfg.Jitter > 0 {
		h.mu.Lock()
		factor := cfg.Jitter * (h.randSource.Float64()*2.0 - 1.0)
		h.mu.Unlock()
		wait += time.Duration(float64(wait) * factor)
		if wait < 0 {
			wait = 0
		}
	}
	if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
		wait = cfg.MaxDelay
	}
	return wait
}
