package intensity

import (
	"sync"
	"time"

	"github.com/lixenwraith/rumble/interp"
)

// channel is one additive intensity source driven by at most one slider
// install serializes replacements so cancel-and-join of the old slider
// happens-before the first tick of the new one
type channel struct {
	install sync.Mutex
	closed  bool // Guarded by install

	mu     sync.Mutex // Protects value, slider, gen
	value  float64
	slider *interp.Slider
	gen    uint64

	// trace sees every write with the generation of the slider that made it, under mu
	trace func(gen uint64, v float64)
}

// writer returns the applicator for the slider of generation gen
func (c *channel) writer(gen uint64) interp.Applicator {
	return func(v float64) {
		c.mu.Lock()
		c.value = v
		if c.trace != nil {
			c.trace(gen, v)
		}
		c.mu.Unlock()
	}
}

func (c *channel) get() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// replace cancels the active slider, then starts one from start() to target
// start is evaluated after the old worker has exited
func (c *channel) replace(start func() float64, target float64, d time.Duration) error {
	c.install.Lock()
	defer c.install.Unlock()
	if c.closed {
		return ErrStopped
	}
	c.stop()

	from := clamp(start())

	c.mu.Lock()
	c.gen++
	gen := c.gen
	s := interp.New(from, clamp(target), d, c.writer(gen))
	c.value = from
	c.slider = s
	if c.trace != nil {
		c.trace(gen, from)
	}
	c.mu.Unlock()

	return s.Start()
}

// close stops the active slider and rejects further installs
func (c *channel) close() {
	c.install.Lock()
	defer c.install.Unlock()
	c.closed = true
	c.stop()
}

// stop cancels and joins the active slider, the value stays where it was
// Callers hold install
func (c *channel) stop() {
	c.mu.Lock()
	prev := c.slider
	c.slider = nil
	c.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
}

// remaining returns the active slide's remaining time, 0 when idle
func (c *channel) remaining() time.Duration {
	c.mu.Lock()
	s := c.slider
	c.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.TimeRemaining()
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
