// Package ambience drives the slow ambient baseline as a bounded random walk
// whose level and pace follow the player's kill and death streaks.
package ambience

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/lixenwraith/rumble/actor"
	"github.com/lixenwraith/rumble/core"
	"github.com/lixenwraith/rumble/status"
)

// Sentinel errors
var (
	ErrAlreadyStarted = errors.New("ambience driver already started")
	ErrConsumerDown   = errors.New("intensity composer is not running")
)

// Target is the consumer of ambient retargets
type Target interface {
	Running() bool
	SetAmbientTarget(target float64, d time.Duration) error
}

// Driver periodically draws a new ambient target and settle interval
type Driver struct {
	cfg    Config
	target Target
	clock  clock.Clock
	log    *zap.Logger

	mu     sync.Mutex // Protects params, rng
	params Params
	rng    *rand.Rand

	// Owned by the loop goroutine
	last   time.Time
	settle time.Duration

	started atomic.Bool
	running atomic.Bool

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	errMu sync.Mutex
	err   error

	settles     *atomic.Int64
	targetOut   *status.AtomicFloat
	runningFlag *atomic.Bool
}

// Option configures a Driver
type Option func(*Driver)

// WithClock replaces the wall clock, tests pass clock.NewMock()
func WithClock(c clock.Clock) Option {
	return func(d *Driver) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithRand replaces the random source
func WithRand(r *rand.Rand) Option {
	return func(d *Driver) {
		if r != nil {
			d.rng = r
		}
	}
}

// WithLogger sets the driver logger
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

// WithRegistry publishes counters into reg
func WithRegistry(reg *status.Registry) Option {
	return func(d *Driver) {
		if reg != nil {
			d.bindStatus(reg)
		}
	}
}

// New creates a stopped driver feeding target
func New(cfg Config, target Target, opts ...Option) *Driver {
	d := &Driver{
		cfg:      cfg,
		target:   target,
		clock:    clock.New(),
		log:      zap.NewNop(),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	d.bindStatus(status.NewRegistry())
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.Named("ambience")
	d.params = cfg.derive(0, 0)
	d.settle = d.params.SettleRate
	d.last = d.clock.Now()
	return d
}

func (d *Driver) bindStatus(reg *status.Registry) {
	d.settles = reg.Ints.Get(status.KeyAmbienceSettles)
	d.targetOut = reg.Floats.Get(status.KeyAmbienceTarget)
	d.runningFlag = reg.Bools.Get(status.KeyAmbienceRunning)
}

// UpdateParameters recomputes the parameter bundle from the current streaks
func (d *Driver) UpdateParameters(killStreak, deathStreak int) {
	p := d.cfg.derive(killStreak, deathStreak)

	d.mu.Lock()
	d.params = p
	d.mu.Unlock()

	d.log.Debug("parameters",
		zap.Int("kill_streak", killStreak),
		zap.Int("death_streak", deathStreak),
		zap.Float64("intensity", p.Intensity),
		zap.Duration("settle", p.SettleRate))
}

// Params returns a snapshot of the parameter bundle
func (d *Driver) Params() Params {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params
}

// Start launches the settle loop
func (d *Driver) Start() error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	d.last = d.clock.Now()
	d.running.Store(true)
	d.runningFlag.Store(true)
	core.Go("ambience.driver", d.loop)
	return nil
}

// Stop signals the loop and waits up to timeout for it to exit
func (d *Driver) Stop(timeout time.Duration) error {
	d.signal()
	if !d.started.Load() {
		return nil
	}

	select {
	case <-d.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("ambience driver: %w", actor.ErrAbandoned)
	}
}

// ForceStop signals the loop without waiting
func (d *Driver) ForceStop() {
	d.signal()
}

func (d *Driver) signal() {
	d.stopOnce.Do(func() { close(d.stopChan) })
}

// Running reports whether the settle loop is alive
func (d *Driver) Running() bool {
	return d.running.Load()
}

// Done is closed when the settle loop has exited
func (d *Driver) Done() <-chan struct{} {
	return d.done
}

// Err returns the reason the loop terminated on its own, nil otherwise
func (d *Driver) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

func (d *Driver) loop() {
	defer func() {
		d.running.Store(false)
		d.runningFlag.Store(false)
		d.log.Debug("settle loop exited")
		close(d.done)
	}()

	ticker := d.clock.Ticker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case now := <-ticker.C:
			if _, err := d.step(now); err != nil {
				d.errMu.Lock()
				d.err = err
				d.errMu.Unlock()
				d.log.Warn("cannot control ambience", zap.Error(err))
				return
			}
		}
	}
}

// step runs one poll, returns true when a retarget was issued
func (d *Driver) step(now time.Time) (bool, error) {
	if now.Sub(d.last) <= d.settle {
		return false, nil
	}
	if !d.target.Running() {
		return false, ErrConsumerDown
	}

	d.mu.Lock()
	p := d.params
	settle := d.uniform(
		max(float64(d.cfg.SettleFloor), float64(p.SettleRate-p.SettleRateVariance)),
		float64(p.SettleRate+p.SettleRateVariance))
	target := d.uniform(
		max(0, p.Intensity-p.IntensityVariance),
		min(d.cfg.TargetCeiling, p.Intensity+p.IntensityVariance))
	d.mu.Unlock()

	d.settle = max(d.cfg.SettleFloor, time.Duration(settle))
	d.last = now

	if err := d.target.SetAmbientTarget(target, d.cfg.TransitionTime); err != nil {
		d.log.Debug("retarget rejected", zap.Error(err))
		return false, nil
	}
	d.settles.Add(1)
	d.targetOut.Set(target)
	return true, nil
}

// uniform draws from [lo, hi], collapsing to hi when the bounds cross
// Settle draws are raised back to the floor by step
// Callers hold mu
func (d *Driver) uniform(lo, hi float64) float64 {
	if lo > hi {
		lo = hi
	}
	return lo + d.rng.Float64()*(hi-lo)
}
