// Package retry provides the adaptive backoff scheduler used by busy-polling stages
package retry

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/mediaflow/errors"
)

// Config provides scheduler configuration
type Config struct {
	Step          time.Duration `json:"step" yaml:"step"`                     // Amount the sleep moves per adjustment
	MaxSleep      time.Duration `json:"max_sleep" yaml:"max_sleep"`           // Upper bound on the adaptive sleep (0 = unbounded)
	LowThreshold  int           `json:"low_threshold" yaml:"low_threshold"`   // Retries per window at or below which sleep shrinks
	HighThreshold int           `json:"high_threshold" yaml:"high_threshold"` // Retries per window at or above which sleep grows
}

// DefaultConfig returns defaults for stages polling local resources. The
// sleep is uncapped, so every struggling window adds one step; the presets
// below opt into a cap.
func DefaultConfig() Config {
	return Config{
		Step:          time.Millisecond,
		MaxSleep:      0,
		LowThreshold:  2,
		HighThreshold: 10,
	}
}

// Realtime returns a config for stages on a live media path, where oversleeping
// costs more than spinning
func Realtime() Config {
	return Config{
		Step:          500 * time.Microsecond,
		MaxSleep:      5 * time.Millisecond,
		LowThreshold:  1,
		HighThreshold: 4,
	}
}

// Background returns a config for stages where latency does not matter
func Background() Config {
	return Config{
		Step:          5 * time.Millisecond,
		MaxSleep:      100 * time.Millisecond,
		LowThreshold:  2,
		HighThreshold: 8,
	}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if c.Step < 0 || c.MaxSleep < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "retry", "Validate", "durations cannot be negative")
	}
	if c.LowThreshold < 0 || c.HighThreshold < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "retry", "Validate", "thresholds cannot be negative")
	}
	if c.LowThreshold > c.HighThreshold {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "retry", "Validate",
			"low_threshold must be <= high_threshold")
	}
	return nil
}

// Scheduler adapts how long a polling loop sleeps between retries.
//
// A caller brackets one attempt with Begin and End and calls Wait for every
// retry in between. The sleep starts at zero (pure yield) and is adjusted only
// in End: a window with at least HighThreshold retries grows it by Step, a
// window with at most LowThreshold retries shrinks it by Step. It never goes
// negative.
type Scheduler struct {
	mu      sync.Mutex
	cfg     Config
	sleep   time.Duration
	retries int

	attempts int64
	waits    int64

	metrics *schedulerMetrics
}

// NewScheduler creates a scheduler with the given configuration
func NewScheduler(cfg Config, opts ...Option) *Scheduler {
	o := applyOptions(opts...)
	s := &Scheduler{cfg: cfg}
	if o.metricsReg != nil && o.owner != "" {
		m, err := newSchedulerMetrics(o.metricsReg, o.owner)
		if err != nil {
			o.logger.Warn("Retry metrics disabled", "owner", o.owner, "error", err)
		} else {
			s.metrics = m
		}
	}
	return s
}

// Begin opens an attempt window and resets the retry counter
func (s *Scheduler) Begin() {
	s.mu.Lock()
	s.retries = 0
	s.mu.Unlock()
	atomic.AddInt64(&s.attempts, 1)
}

// Wait records one retry and then yields or sleeps for the current duration.
// It returns the context error if ctx is done before or during the wait; the
// cancellation stays visible on ctx for the caller's next check.
func (s *Scheduler) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.retries++
	sleep := s.sleep
	s.mu.Unlock()

	atomic.AddInt64(&s.waits, 1)
	if s.metrics != nil {
		s.metrics.waits.Inc()
	}

	if sleep <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}

	timer := time.NewTimer(sleep)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// End closes the attempt window and adjusts the sleep duration
func (s *Scheduler) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.retries >= s.cfg.HighThreshold:
		s.sleep += s.cfg.Step
		if s.cfg.MaxSleep > 0 && s.sleep > s.cfg.MaxSleep {
			s.sleep = s.cfg.MaxSleep
		}
	case s.retries <= s.cfg.LowThreshold && s.sleep > 0:
		s.sleep -= s.cfg.Step
		if s.sleep < 0 {
			s.sleep = 0
		}
	}
	s.retries = 0

	if s.metrics != nil {
		s.metrics.sleep.Set(s.sleep.Seconds())
	}
}

// Sleep returns the current adaptive sleep duration
func (s *Scheduler) Sleep() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sleep
}

// Retries returns the retries counted in the open window
func (s *Scheduler) Retries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// Config returns the scheduler configuration
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Stats returns cumulative scheduler statistics
func (s *Scheduler) Stats() Stats {
	return Stats{
		Attempts: atomic.LoadInt64(&s.attempts),
		Waits:    atomic.LoadInt64(&s.waits),
		Sleep:    s.Sleep(),
	}
}

// Stats represents scheduler statistics
type Stats struct {
	Attempts int64         `json:"attempts"`
	Waits    int64         `json:"waits"`
	Sleep    time.Duration `json:"sleep"`
}
