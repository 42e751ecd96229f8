// Package interp provides a cancellable worker that slides a scalar toward a target
// over a fixed duration, applying each interim value at a fixed cadence.
package interp

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/rumble/core"
	"github.com/lixenwraith/rumble/parameter"
)

// Sentinel errors
var (
	ErrDirectionMismatch = errors.New("slide directions do not match")
	ErrAlreadyStarted    = errors.New("slider already started")
	ErrCancelled         = errors.New("slider cancelled")
)

// Applicator receives each interim value, called outside the slider lock
// Must not call Cancel on its own slider
type Applicator func(value float64)

// Slider drives one value from a start to a target over a duration
// current is written only by the worker goroutine; readers take snapshots
type Slider struct {
	start    float64
	target   float64
	duration time.Duration
	tick     time.Duration
	step     float64
	apply    Applicator

	mu        sync.Mutex // Protects current, remaining
	current   float64
	remaining time.Duration

	life      sync.Mutex // Orders Start against Cancel
	started   bool
	cancelled bool

	complete atomic.Bool

	stopCh chan struct{}
	done   chan struct{}
}

// New creates an unstarted slider from current to target over duration
func New(current, target float64, duration time.Duration, apply Applicator) *Slider {
	s := &Slider{
		start:     current,
		target:    target,
		duration:  duration,
		tick:      parameter.SliderTick,
		apply:     apply,
		current:   current,
		remaining: duration,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	if duration > 0 {
		s.step = (target - current) / float64(duration) * float64(s.tick)
	} else {
		s.step = target - current
	}
	return s
}

// Start launches the worker
// A slider whose target equals its start completes without ticking
func (s *Slider) Start() error {
	s.life.Lock()
	if s.cancelled {
		s.life.Unlock()
		return ErrCancelled
	}
	if s.started {
		s.life.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.life.Unlock()

	if s.target == s.start {
		s.complete.Store(true)
		close(s.done)
		return nil
	}

	core.Go("interp.slider", s.run)
	return nil
}

// Cancel stops the worker and blocks until it has exited
// Idempotent and safe from any goroutine; on a completed slider it is a no-op join
func (s *Slider) Cancel() {
	s.life.Lock()
	if !s.cancelled {
		s.cancelled = true
		close(s.stopCh)
	}
	started := s.started
	s.life.Unlock()

	if started {
		<-s.done
	}
}

// Join waits for the worker to finish on its own
// Returns immediately for a slider that was never started
func (s *Slider) Join() {
	s.life.Lock()
	started := s.started
	s.life.Unlock()

	if started {
		<-s.done
	}
}

// Done is closed once the worker has exited
func (s *Slider) Done() <-chan struct{} {
	return s.done
}

// Complete reports whether the slide reached its end condition
func (s *Slider) Complete() bool {
	return s.complete.Load()
}

// Cancelled reports whether Cancel has been called
func (s *Slider) Cancelled() bool {
	s.life.Lock()
	defer s.life.Unlock()
	return s.cancelled
}

// Value returns a snapshot of the interim value
func (s *Slider) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// TimeRemaining returns the time left in the slide, 0 once complete
func (s *Slider) TimeRemaining() time.Duration {
	if s.complete.Load() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remaining < 0 {
		return 0
	}
	return s.remaining
}

// StartValue returns the starting value
func (s *Slider) StartValue() float64 {
	return s.start
}

// Target returns the target value
func (s *Slider) Target() float64 {
	return s.target
}

// Direction returns 1 for an upward slide, -1 for downward, 0 for none
func (s *Slider) Direction() int {
	switch {
	case s.target > s.start:
		return 1
	case s.target < s.start:
		return -1
	default:
		return 0
	}
}

// MatchesDirection reports whether both slides move the same way
func (s *Slider) MatchesDirection(other *Slider) bool {
	return s.Direction() == other.Direction()
}

// GreaterMagnitude reports whether this slide ends further along the shared direction
// Comparing slides with different directions is an error
func (s *Slider) GreaterMagnitude(other *Slider) (bool, error) {
	if !s.MatchesDirection(other) {
		return false, fmt.Errorf("%w: %d vs %d", ErrDirectionMismatch, s.Direction(), other.Direction())
	}
	switch other.Direction() {
	case -1:
		return s.target < other.target, nil
	case 1:
		return s.target > other.target, nil
	default:
		return s.target >= other.target, nil
	}
}

func (s *Slider) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("Slider(%.2f->%.2f@%s)::%.2f@%s", s.start, s.target, s.duration, s.current, s.remaining)
}

// run is the worker loop
func (s *Slider) run() {
	defer close(s.done)

	if s.duration <= 0 {
		s.mu.Lock()
		s.current = s.target
		s.remaining = 0
		s.mu.Unlock()
		if s.apply != nil {
			s.apply(s.target)
		}
		s.complete.Store(true)
		return
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		s.current = s.advance(s.current)
		s.remaining -= s.tick
		value, remaining := s.current, s.remaining
		s.mu.Unlock()

		if s.apply != nil {
			s.apply(value)
		}

		// Floating point 'close enough' check
		if math.Abs(s.target-value) < parameter.SliderEpsilon || remaining < 0 {
			s.complete.Store(true)
			return
		}
	}
}

// advance moves one step without passing the target
func (s *Slider) advance(v float64) float64 {
	next := v + s.step
	if (s.step > 0 && next > s.target) || (s.step < 0 && next < s.target) {
		return s.target
	}
	return next
}
