// Package engine wires one mixing session: the event queue, the player tracker,
// the intensity composer, the ambience driver and the supervisor that owns them.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lixenwraith/rumble/actor"
	"github.com/lixenwraith/rumble/ambience"
	"github.com/lixenwraith/rumble/core"
	"github.com/lixenwraith/rumble/event"
	"github.com/lixenwraith/rumble/intensity"
	"github.com/lixenwraith/rumble/parameter"
	"github.com/lixenwraith/rumble/sink"
	"github.com/lixenwraith/rumble/status"
	"github.com/lixenwraith/rumble/tracker"
)

// Actor names registered with the supervisor
const (
	ActorIntensity = "intensity"
	ActorAmbience  = "ambience"
)

// Settings is the static session configuration
type Settings struct {
	Player   event.Player
	Rules    tracker.ChatRules
	Pulses   PulseTable
	Ambience ambience.Config

	// Frequency is the actuator command rate in Hz
	Frequency    float64
	ApplyTimeout time.Duration
	StopTimeout  time.Duration

	// ChatRate and ChatBurst bound chat-triggered pulses, rate <= 0 disables limiting
	ChatRate  float64
	ChatBurst int
}

// DefaultSettings returns stock settings for player
func DefaultSettings(player event.Player) Settings {
	return Settings{
		Player:       player,
		Rules:        tracker.DefaultChatRules(),
		Pulses:       DefaultPulses(),
		Ambience:     ambience.DefaultConfig(),
		Frequency:    parameter.OutputFrequency,
		ApplyTimeout: parameter.ApplyTimeout,
		StopTimeout:  parameter.StopTimeout,
		ChatRate:     parameter.ChatPulseRate,
		ChatBurst:    parameter.ChatPulseBurst,
	}
}

// Option configures a Context
type Option func(*options)

type options struct {
	log   *zap.Logger
	reg   *status.Registry
	clock clock.Clock
	rng   *rand.Rand
}

// WithLogger sets the session logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRegistry publishes session counters into reg
func WithRegistry(reg *status.Registry) Option {
	return func(o *options) { o.reg = reg }
}

// WithClock drives the ambience driver from c
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRand seeds the ambience driver's random walk
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// Context holds one session's state
type Context struct {
	// ===== Immutable After Init =====
	id         uuid.UUID
	settings   Settings
	log        *zap.Logger
	reg        *status.Registry
	queue      *event.Queue
	composer   *intensity.Composer
	driver     *ambience.Driver
	supervisor *actor.Supervisor
	limiter    *rate.Limiter

	// ===== Dispatch-Path Exclusive =====
	// Accessed only from the goroutine calling Dispatch or Run
	tracker *tracker.Tracker

	// ===== Atomic (Self-Synchronized) =====
	halted atomic.Bool

	// Background work Shutdown waits for
	bg sync.WaitGroup

	// ===== Mutex-Protected (mu) =====
	mu     sync.Mutex
	recent []tracker.Signal // Most recent last, bounded by MonitorSignalHistory

	// Cached status pointers
	events      *atomic.Int64
	dropped     *atomic.Int64
	limited     *atomic.Int64
	killStreak  *atomic.Int64
	deathStreak *atomic.Int64
	haltedFlag  *atomic.Bool
	lastSignal  *status.AtomicString
}

// New builds a session writing actuator commands to s
func New(settings Settings, s sink.Sink, opts ...Option) *Context {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.reg == nil {
		o.reg = status.NewRegistry()
	}
	if settings.Pulses == nil {
		settings.Pulses = DefaultPulses()
	}

	id := uuid.New()
	log := o.log.With(zap.String("session", id.String()))

	composer := intensity.New(s,
		intensity.WithFrequency(settings.Frequency),
		intensity.WithApplyTimeout(settings.ApplyTimeout),
		intensity.WithLogger(log),
		intensity.WithRegistry(o.reg))

	driverOpts := []ambience.Option{ambience.WithLogger(log), ambience.WithRegistry(o.reg)}
	if o.clock != nil {
		driverOpts = append(driverOpts, ambience.WithClock(o.clock))
	}
	if o.rng != nil {
		driverOpts = append(driverOpts, ambience.WithRand(o.rng))
	}
	driver := ambience.New(settings.Ambience, composer, driverOpts...)

	limit := rate.Inf
	if settings.ChatRate > 0 {
		limit = rate.Limit(settings.ChatRate)
	}
	burst := max(settings.ChatBurst, 1)

	c := &Context{
		id:          id,
		settings:    settings,
		log:         log.Named("engine"),
		reg:         o.reg,
		queue:       event.NewQueue(),
		composer:    composer,
		driver:      driver,
		supervisor:  actor.NewSupervisor(actor.WithLogger(log), actor.WithStopTimeout(settings.StopTimeout)),
		limiter:     rate.NewLimiter(limit, burst),
		tracker:     tracker.New(settings.Player, settings.Rules),
		events:      o.reg.Ints.Get(status.KeyEngineEvents),
		dropped:     o.reg.Ints.Get(status.KeyEngineDropped),
		limited:     o.reg.Ints.Get(status.KeyEngineLimited),
		killStreak:  o.reg.Ints.Get(status.KeyKillStreak),
		deathStreak: o.reg.Ints.Get(status.KeyDeathStreak),
		haltedFlag:  o.reg.Bools.Get(status.KeyEngineHalted),
		lastSignal:  o.reg.Strings.Get(status.KeyEngineLastSignal),
	}
	return c
}

// ID returns the session id
func (c *Context) ID() string {
	return c.id.String()
}

// Queue returns the event queue producers push onto
func (c *Context) Queue() *event.Queue {
	return c.queue
}

// Composer returns the session composer
func (c *Context) Composer() *intensity.Composer {
	return c.composer
}

// Driver returns the session ambience driver
func (c *Context) Driver() *ambience.Driver {
	return c.driver
}

// Supervisor returns the session supervisor
func (c *Context) Supervisor() *actor.Supervisor {
	return c.supervisor
}

// Registry returns the session status registry
func (c *Context) Registry() *status.Registry {
	return c.reg
}

// Halted reports whether the safe word ended output for this session
func (c *Context) Halted() bool {
	return c.halted.Load()
}

// Start registers the workers and starts them, the composer first
func (c *Context) Start() error {
	if err := c.supervisor.Register(ActorIntensity, c.composer); err != nil {
		return err
	}
	if err := c.supervisor.Register(ActorAmbience, c.driver); err != nil {
		return err
	}
	if err := c.supervisor.StartAll(); err != nil {
		return fmt.Errorf("session start: %w", err)
	}
	c.log.Info("session started",
		zap.String("player", c.settings.Player.String()),
		zap.Duration("period", c.composer.Period()))
	return nil
}

// Run drains the queue until ctx is done, sleeping between empty polls
// Run and Dispatch must not be used concurrently
func (c *Context) Run(ctx context.Context) error {
	ticker := time.NewTicker(parameter.DispatchPoll)
	defer ticker.Stop()

	for {
		if ev, ok := c.queue.TryPop(); ok {
			c.Dispatch(ev)
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Dispatch applies one event to the session
func (c *Context) Dispatch(ev event.Event) {
	c.events.Add(1)
	c.dropped.Store(int64(c.queue.Dropped()))

	switch e := ev.(type) {
	case event.Kill:
		ks, ds, signals := c.tracker.ApplyKill(e)
		c.killStreak.Store(int64(ks))
		c.deathStreak.Store(int64(ds))
		if !c.halted.Load() {
			c.driver.UpdateParameters(ks, ds)
		}
		c.react(signals, false)

	case event.Chat:
		c.react(c.tracker.ClassifyChat(e), true)

	default:
		c.log.Warn("unknown event", zap.String("type", fmt.Sprintf("%T", ev)))
	}
}

// react records signals and issues at most one pulse, the strongest
func (c *Context) react(signals []tracker.Signal, fromChat bool) {
	if len(signals) == 0 {
		return
	}
	c.record(signals)

	pulses := make([]tracker.Signal, 0, len(signals))
	for _, s := range signals {
		switch reactionOf(s) {
		case reactHalt:
			c.halt()
			return
		case reactPulse:
			pulses = append(pulses, s)
		default:
			c.log.Warn("unhandled signal", zap.Stringer("signal", s))
		}
	}

	if c.halted.Load() {
		return
	}
	p, ok := c.settings.Pulses.strongest(pulses)
	if !ok {
		return
	}
	if fromChat && !c.limiter.Allow() {
		c.limited.Add(1)
		return
	}
	if err := c.composer.SetInstantPulse(p.Intensity, p.Duration); err != nil {
		c.log.Debug("pulse rejected", zap.Error(err))
	}
}

// halt ends output for the session, terminal
func (c *Context) halt() {
	if !c.halted.CompareAndSwap(false, true) {
		return
	}
	c.haltedFlag.Store(true)
	c.log.Warn("safe word received, halting output")

	// Outside the dispatch path in case the driver is mid-retarget
	c.bg.Add(1)
	core.Go("engine.halt", func() {
		defer c.bg.Done()
		if err := c.supervisor.Stop(ActorAmbience); err != nil {
			c.log.Debug("ambience stop", zap.Error(err))
		}
		// After the driver has exited so no retarget can follow the fade
		if err := c.composer.Silence(parameter.SilenceDuration); err != nil {
			c.log.Debug("silence", zap.Error(err))
		}
	})
}

func (c *Context) record(signals []tracker.Signal) {
	c.mu.Lock()
	c.recent = append(c.recent, signals...)
	if n := len(c.recent) - parameter.MonitorSignalHistory; n > 0 {
		c.recent = append(c.recent[:0], c.recent[n:]...)
	}
	c.mu.Unlock()
	c.lastSignal.Store(signals[len(signals)-1].String())
}

// Shutdown stops every worker, giving up after timeout
func (c *Context) Shutdown(timeout time.Duration) error {
	done := make(chan error, 1)
	core.Go("engine.shutdown", func() {
		c.bg.Wait()
		done <- c.supervisor.StopAll()
	})

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("session shutdown: %w", err)
		}
		c.log.Info("session stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("session shutdown: %w", actor.ErrAbandoned)
	}
}

// Snapshot is a point-in-time view for displays
type Snapshot struct {
	ID          string
	Player      event.Player
	Ambient     float64
	Instant     float64
	Output      float64
	KillStreak  int
	DeathStreak int
	Halted      bool
	Running     bool
	Dropped     uint64
	Recent      []tracker.Signal
}

// Snapshot returns the current session view, safe from any goroutine
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	recent := append([]tracker.Signal(nil), c.recent...)
	c.mu.Unlock()

	return Snapshot{
		ID:          c.ID(),
		Player:      c.settings.Player,
		Ambient:     c.composer.Ambient(),
		Instant:     c.composer.Instant(),
		Output:      c.composer.Sample(),
		KillStreak:  int(c.killStreak.Load()),
		DeathStreak: int(c.deathStreak.Load()),
		Halted:      c.halted.Load(),
		Running:     c.composer.Running(),
		Dropped:     c.queue.Dropped(),
		Recent:      recent,
	}
}
