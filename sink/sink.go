// Package sink defines the actuator boundary and composable sinks around it.
package sink

import (
	"context"
	"errors"
	"math"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Sink receives one combined intensity command in [0,1]
// Implementations should honour ctx; a call that outlives it counts as a skipped tick
type Sink interface {
	Apply(ctx context.Context, intensity float64) error
}

// ErrClosed is returned by sinks that have been shut down
var ErrClosed = errors.New("sink closed")

// Func adapts a function to Sink
type Func func(ctx context.Context, intensity float64) error

// Apply implements Sink
func (f Func) Apply(ctx context.Context, intensity float64) error {
	return f(ctx, intensity)
}

// Discard accepts and drops every command
var Discard Sink = Func(func(context.Context, float64) error { return nil })

// Log writes commands to a logger when the value changes by at least step
type Log struct {
	log  *zap.Logger
	step float64

	mu   sync.Mutex
	last float64
	seen bool
}

// NewLog creates a logging sink, step <= 0 logs every command
func NewLog(l *zap.Logger, step float64) *Log {
	if l == nil {
		l = zap.NewNop()
	}
	return &Log{log: l.Named("actuator"), step: step}
}

// Apply implements Sink
func (s *Log) Apply(ctx context.Context, intensity float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	changed := !s.seen || math.Abs(intensity-s.last) >= s.step
	if changed {
		s.last = intensity
		s.seen = true
	}
	s.mu.Unlock()

	if changed {
		s.log.Info("intensity", zap.Float64("value", intensity))
	}
	return nil
}

// Last returns the most recently logged value
func (s *Log) Last() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Multi fans a command out to every sink, all sinks are called even when some fail
type Multi []Sink

// Apply implements Sink
func (m Multi) Apply(ctx context.Context, intensity float64) error {
	var errs error
	for _, s := range m {
		errs = multierr.Append(errs, s.Apply(ctx, intensity))
	}
	return errs
}
