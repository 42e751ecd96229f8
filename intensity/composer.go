// Package intensity blends an ambient baseline and an instant pulse into one
// actuator command, sampled at a fixed rate and pushed to a sink.
package intensity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/rumble/actor"
	"github.com/lixenwraith/rumble/core"
	"github.com/lixenwraith/rumble/parameter"
	"github.com/lixenwraith/rumble/sink"
	"github.com/lixenwraith/rumble/status"
)

// Sentinel errors
var (
	ErrAlreadyStarted = errors.New("composer already started")
	ErrStopped        = errors.New("composer stopped")
)

// Composer owns the ambient and instant channels and the sampling loop
// Value locks are never held across the sink call
type Composer struct {
	sink         sink.Sink
	period       time.Duration
	applyTimeout time.Duration
	log          *zap.Logger

	ambient channel
	instant channel

	started atomic.Bool
	running atomic.Bool
	stopped atomic.Bool

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Cached status pointers
	ticks       *atomic.Int64
	skipped     *atomic.Int64
	pulses      *atomic.Int64
	retargets   *atomic.Int64
	output      *status.AtomicFloat
	ambientOut  *status.AtomicFloat
	instantOut  *status.AtomicFloat
	runningFlag *atomic.Bool
}

// Option configures a Composer
type Option func(*Composer)

// WithFrequency sets the sampling rate in Hz, capped at parameter.MaxOutputFrequency
func WithFrequency(hz float64) Option {
	return func(c *Composer) {
		if hz <= 0 {
			return
		}
		hz = min(hz, parameter.MaxOutputFrequency)
		c.period = time.Duration(float64(time.Second) / hz)
	}
}

// WithApplyTimeout bounds each sink call
func WithApplyTimeout(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.applyTimeout = d
		}
	}
}

// WithLogger sets the composer logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRegistry publishes counters into reg
func WithRegistry(reg *status.Registry) Option {
	return func(c *Composer) {
		if reg != nil {
			c.bindStatus(reg)
		}
	}
}

// New creates a stopped composer writing to s
func New(s sink.Sink, opts ...Option) *Composer {
	c := &Composer{
		sink:         s,
		period:       time.Duration(float64(time.Second) / parameter.OutputFrequency),
		applyTimeout: parameter.ApplyTimeout,
		log:          zap.NewNop(),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
	c.bindStatus(status.NewRegistry())
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("intensity")
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

func (c *Composer) bindStatus(reg *status.Registry) {
	c.ticks = reg.Ints.Get(status.KeyIntensityTicks)
	c.skipped = reg.Ints.Get(status.KeyIntensitySkipped)
	c.pulses = reg.Ints.Get(status.KeyIntensityPulses)
	c.retargets = reg.Ints.Get(status.KeyIntensityRetargets)
	c.output = reg.Floats.Get(status.KeyIntensityOutput)
	c.ambientOut = reg.Floats.Get(status.KeyIntensityAmbient)
	c.instantOut = reg.Floats.Get(status.KeyIntensityInstant)
	c.runningFlag = reg.Bools.Get(status.KeyIntensityRunning)
}

// Period returns the sampling period
func (c *Composer) Period() time.Duration {
	return c.period
}

// Start begins the sampling loop, a composer runs at most once
func (c *Composer) Start() error {
	if c.stopped.Load() {
		return ErrStopped
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	c.running.Store(true)
	c.runningFlag.Store(true)
	core.Go("intensity.composer", c.loop)
	c.log.Debug("started", zap.Duration("period", c.period))
	return nil
}

// Stop signals the loop and waits up to timeout for it to exit
func (c *Composer) Stop(timeout time.Duration) error {
	c.signal()
	if !c.started.Load() {
		c.ambient.close()
		c.instant.close()
		return nil
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(timeout):
		c.log.Warn("sampling loop abandoned", zap.Duration("timeout", timeout))
		return fmt.Errorf("intensity composer: %w", actor.ErrAbandoned)
	}
}

// ForceStop signals the loop without waiting
func (c *Composer) ForceStop() {
	c.signal()
}

func (c *Composer) signal() {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		close(c.stopChan)
		c.cancel()
	})
}

// Running reports whether the sampling loop is alive
func (c *Composer) Running() bool {
	return c.running.Load()
}

// Done is closed when the sampling loop has exited
func (c *Composer) Done() <-chan struct{} {
	return c.done
}

// SetAmbientTarget slides the ambient channel from its current value to target
func (c *Composer) SetAmbientTarget(target float64, d time.Duration) error {
	return c.InstallAmbient(0, target, d, true)
}

// InstallAmbient slides the ambient channel to target
// With inherit the slide starts from the channel's value once the previous slider has stopped,
// otherwise from start
func (c *Composer) InstallAmbient(start, target float64, d time.Duration, inherit bool) error {
	if c.stopped.Load() {
		return ErrStopped
	}
	from := func() float64 { return start }
	if inherit {
		from = c.ambient.get
	}
	if err := c.ambient.replace(from, target, d); err != nil {
		return fmt.Errorf("ambient install: %w", err)
	}
	c.retargets.Add(1)
	return nil
}

// SetInstantPulse jumps the instant channel to initial and decays it to 0 over d
// The start is never inherited from a pulse still in flight
func (c *Composer) SetInstantPulse(initial float64, d time.Duration) error {
	if c.stopped.Load() {
		return ErrStopped
	}
	if err := c.instant.replace(func() float64 { return initial }, 0, d); err != nil {
		return fmt.Errorf("instant install: %w", err)
	}
	c.pulses.Add(1)
	return nil
}

// Silence fades both channels to zero over d
func (c *Composer) Silence(d time.Duration) error {
	if c.stopped.Load() {
		return ErrStopped
	}
	if err := c.instant.replace(c.instant.get, 0, d); err != nil {
		return fmt.Errorf("instant silence: %w", err)
	}
	if err := c.ambient.replace(c.ambient.get, 0, d); err != nil {
		return fmt.Errorf("ambient silence: %w", err)
	}
	return nil
}

// Ambient returns the ambient channel value
func (c *Composer) Ambient() float64 {
	return c.ambient.get()
}

// Instant returns the instant channel value
func (c *Composer) Instant() float64 {
	return c.instant.get()
}

// AmbientRemaining returns the time left in the active ambient slide
func (c *Composer) AmbientRemaining() time.Duration {
	return c.ambient.remaining()
}

// Sample returns the combined clamped intensity
func (c *Composer) Sample() float64 {
	return clamp(c.ambient.get() + c.instant.get())
}

// loop is the sampling goroutine
func (c *Composer) loop() {
	defer func() {
		c.ambient.close()
		c.instant.close()
		c.running.Store(false)
		c.runningFlag.Store(false)
		c.log.Debug("stopped")
		close(c.done)
	}()

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick samples both channels and sends one command
func (c *Composer) tick() {
	ambient, instant := c.ambient.get(), c.instant.get()
	combined := clamp(ambient + instant)

	ctx, cancel := context.WithTimeout(c.ctx, c.applyTimeout)
	err := c.sink.Apply(ctx, combined)
	cancel()

	c.ticks.Add(1)
	c.ambientOut.Set(ambient)
	c.instantOut.Set(instant)
	if err != nil {
		c.skipped.Add(1)
		if !errors.Is(err, context.Canceled) {
			c.log.Debug("tick skipped", zap.Float64("intensity", combined), zap.Error(err))
		}
		return
	}
	c.output.Set(combined)
}
