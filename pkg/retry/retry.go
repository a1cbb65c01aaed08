// Package retry provides exponential backoff for transient failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	errs "github.com/c360/actmeter/errors"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err was marked with NonRetryable or is
// classified fatal.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre) || errs.IsFatal(err)
}

// Config provides retry configuration
type Config struct {
	MaxAttempts  int           // Maximum number of attempts; 0 runs once, negative retries until ctx ends
	InitialDelay time.Duration // Initial delay between attempts
	MaxDelay     time.Duration // Maximum delay between attempts
	Multiplier   float64       // Backoff multiplier (typically 2.0)
	AddJitter    bool          // Add up to 25% random delay
}

// DefaultConfig returns sensible defaults for retry operations
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Reconnect returns the configuration used to re-establish aggregator
// connections: unlimited attempts, 1s growing to 30s.
func Reconnect() Config {
	return Config{
		MaxAttempts:  -1,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.InitialDelay < 0 {
		return errors.New("retry: InitialDelay cannot be negative")
	}
	if c.MaxDelay < 0 {
		return errors.New("retry: MaxDelay cannot be negative")
	}
	if c.Multiplier < 0 {
		return errors.New("retry: Multiplier cannot be negative")
	}
	if c.MaxDelay > 0 && c.InitialDelay > 0 && c.MaxDelay < c.InitialDelay {
		return errors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Multiplier > 1000 {
		c.Multiplier = 1000
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	return c
}

// Backoff yields the successive delays of a Config. It is not safe for
// concurrent use.
type Backoff struct {
	cfg   Config
	delay time.Duration
}

// NewBackoff returns a Backoff starting at cfg.InitialDelay.
func NewBackoff(cfg Config) *Backoff {
	cfg = cfg.withDefaults()
	return &Backoff{cfg: cfg, delay: cfg.InitialDelay}
}

// Next returns the delay to wait now and advances the schedule.
func (b *Backoff) Next() time.Duration {
	d := b.delay
	if b.cfg.AddJitter && d >= 4 {
		randMu.Lock()
		d += time.Duration(randSource.Int63n(int64(d / 4)))
		randMu.Unlock()
	}

	next := float64(b.delay) * b.cfg.Multiplier
	if next > float64(b.cfg.MaxDelay) || next > float64(time.Duration(1<<63-1)) {
		b.delay = b.cfg.MaxDelay
	} else {
		b.delay = time.Duration(next)
	}
	return d
}

// Reset restarts the schedule at the initial delay.
func (b *Backoff) Reset() {
	b.delay = b.cfg.InitialDelay
}

// Sleep waits for d or until ctx ends, returning ctx.Err() in that case.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do executes fn with exponential backoff retry
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()
	backoff := NewBackoff(cfg)

	var lastErr error
	for attempt := 1; cfg.MaxAttempts < 0 || attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return err
		}

		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt+1, ctx.Err())
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		if err := Sleep(ctx, backoff.Next()); err != nil {
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, err)
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// DoWithResult executes fn with retry and returns both result and error
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}

// Quick returns a config for fast retries (useful during startup)
func Quick() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   1.5,
		AddJitter:    true,
	}
}
