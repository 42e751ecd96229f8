// Package actor owns the lifecycle of named periodic workers.
//
// Entries are never removed, only replaced. Bulk operations run in registration
// order for start and reverse registration order for stop, skipping entries whose
// state does not allow the transition.
package actor

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lixenwraith/rumble/parameter"
)

type entry struct {
	actor Actor
	state State
}

// Supervisor is the runtime container for actor instances
type Supervisor struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string // Registration order, most recent last

	timeout time.Duration
	log     *zap.Logger
}

// Option configures a Supervisor
type Option func(*Supervisor)

// WithLogger sets the supervisor logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStopTimeout sets the bounded wait used for every stop
func WithStopTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSupervisor creates an empty supervisor
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		entries: make(map[string]*entry),
		timeout: parameter.StopTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("actor")
	return s
}

// Register adds or replaces the actor under name in NotStarted state
// A running predecessor is stopped first; its stop error is returned after replacement
func (s *Supervisor) Register(name string, a Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	prev, replaced := s.entries[name]
	if replaced {
		if prev.state == Running {
			err = s.stopEntry(name, prev)
		}
		s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	}

	s.entries[name] = &entry{actor: a, state: NotStarted}
	s.order = append(s.order, name)
	s.log.Debug("registered", zap.String("name", name), zap.Bool("replaced", replaced))
	return err
}

// Start starts a NotStarted actor
func (s *Supervisor) Start(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActor, name)
	}
	if e.state != NotStarted {
		return fmt.Errorf("%w: %s is %s", ErrNotStartable, name, e.state)
	}
	return s.startEntry(name, e)
}

// StartLast starts the most recently registered actor
func (s *Supervisor) StartLast() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return fmt.Errorf("%w: registry empty", ErrUnknownActor)
	}
	name := s.order[len(s.order)-1]
	e := s.entries[name]
	if e.state != NotStarted {
		return fmt.Errorf("%w: %s is %s", ErrNotStartable, name, e.state)
	}
	return s.startEntry(name, e)
}

// Stop stops a Running actor with the bounded wait
// The entry becomes Stopped even when the worker was abandoned
func (s *Supervisor) Stop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActor, name)
	}
	if e.state != Running {
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, name, e.state)
	}
	return s.stopEntry(name, e)
}

// StartAll starts every NotStarted actor in registration order
// Worker start errors are aggregated, remaining actors are still attempted
func (s *Supervisor) StartAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for _, name := range s.order {
		e := s.entries[name]
		if e.state != NotStarted {
			continue
		}
		errs = multierr.Append(errs, s.startEntry(name, e))
	}
	return errs
}

// StopAll stops every Running actor in reverse registration order
func (s *Supervisor) StopAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for i := len(s.order) - 1; i >= 0; i-- {
		name := s.order[i]
		e := s.entries[name]
		if e.state != Running {
			continue
		}
		errs = multierr.Append(errs, s.stopEntry(name, e))
	}
	return errs
}

// ForceStopAll signals every Running actor without joining
func (s *Supervisor) ForceStopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.entries[s.order[i]]
		if e.state != Running {
			continue
		}
		e.actor.ForceStop()
		e.state = Stopped
	}
}

// State returns the lifecycle state of name
func (s *Supervisor) State(name string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return NotStarted, fmt.Errorf("%w: %s", ErrUnknownActor, name)
	}
	return e.state, nil
}

// Get retrieves the actor registered under name
func (s *Supervisor) Get(name string) (Actor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	return e.actor, true
}

// Names returns registered names in registration order
func (s *Supervisor) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// startEntry must be called with mu held
func (s *Supervisor) startEntry(name string, e *entry) error {
	if err := e.actor.Start(); err != nil {
		s.log.Warn("start failed", zap.String("name", name), zap.Error(err))
		return fmt.Errorf("actor %s start failed: %w", name, err)
	}
	e.state = Running
	s.log.Debug("started", zap.String("name", name))
	return nil
}

// stopEntry must be called with mu held
func (s *Supervisor) stopEntry(name string, e *entry) error {
	err := e.actor.Stop(s.timeout)
	e.state = Stopped
	if err != nil {
		s.log.Warn("stop incomplete", zap.String("name", name), zap.Duration("timeout", s.timeout), zap.Error(err))
		return fmt.Errorf("actor %s stop: %w", name, err)
	}
	s.log.Debug("stopped", zap.String("name", name))
	return nil
}
