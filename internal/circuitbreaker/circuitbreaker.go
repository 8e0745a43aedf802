// Package circuitbreaker wraps github.com/sony/gobreaker/v2 behind a
// generic, minimal-configuration API.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Config configures a CircuitBreaker.
type Config struct {
	Name          string
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	FailureRatio  float64
	MinRequests   uint32
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig returns a Config with sensible defaults: trips after 60%
// of at least 5 requests fail within one 60s counting interval (counts
// reset when it elapses), then waits 30s in the open state before
// allowing a half-open probe.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.6,
		MinRequests:  5,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker[T] with the Config above.
type CircuitBreaker[T any] struct {
	cb      *gobreaker.CircuitBreaker[T]
	timeout time.Duration
}

// New builds a CircuitBreaker[T] from cfg.
func New[T any](cfg Config) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
	}

	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings), timeout: cfg.Timeout}
}

// Execute runs fn if the breaker is closed or half-open, tripping the
// breaker according to the configured failure ratio.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	return c.cb.Execute(fn)
}

// State returns the current breaker state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}

// Timeout returns the configured open-state cooldown: how long the
// breaker waits before allowing a half-open probe once tripped.
func (c *CircuitBreaker[T]) Timeout() time.Duration {
	return c.timeout
}
