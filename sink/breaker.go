package sink

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/lixenwraith/rumble/status"
)

// BreakerConfig tunes the circuit around an unreliable actuator
type BreakerConfig struct {
	Name string

	// Failures is the consecutive failure count that opens the circuit
	Failures uint32

	// Cooldown is how long the circuit stays open before probing
	Cooldown time.Duration

	// Probes is the number of commands allowed through while half-open
	Probes uint32
}

// DefaultBreakerConfig trips after five consecutive failures and probes after two seconds
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:     "actuator",
		Failures: 5,
		Cooldown: 2 * time.Second,
		Probes:   1,
	}
}

// Breaker isolates a failing sink, while open commands fail fast with gobreaker.ErrOpenState
type Breaker struct {
	next Sink
	cb   *gobreaker.CircuitBreaker
	log  *zap.Logger

	errors *atomic.Int64
	open   *atomic.Bool
}

// NewBreaker wraps next in a circuit breaker
func NewBreaker(next Sink, cfg BreakerConfig, l *zap.Logger, reg *status.Registry) *Breaker {
	if l == nil {
		l = zap.NewNop()
	}
	if reg == nil {
		reg = status.NewRegistry()
	}
	b := &Breaker{
		next:   next,
		log:    l.Named("breaker"),
		errors: reg.Ints.Get(status.KeySinkErrors),
		open:   reg.Bools.Get(status.KeySinkBreakerOpen),
	}

	failures := cfg.Failures
	if failures == 0 {
		failures = 1
	}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.Probes,
		Timeout:      cfg.Cooldown,
		IsSuccessful: healthy,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.open.Store(to == gobreaker.StateOpen)
			b.log.Warn("state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return b
}

// Apply implements Sink
func (b *Breaker) Apply(ctx context.Context, intensity float64) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Apply(ctx, intensity)
	})
	if !healthy(err) {
		b.errors.Add(1)
	}
	return err
}

// healthy treats a command abandoned by its caller as no fault of the actuator
func healthy(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// State returns the circuit state name
func (b *Breaker) State() string {
	return b.cb.State().String()
}
