// Package audio renders the intensity command as an audible tone, a stand-in
// actuator for running without hardware.
package audio

import (
	"math"
	"sync/atomic"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/rumble/parameter"
	"github.com/lixenwraith/rumble/status"
)

// Tone is a beep.Streamer whose loudness and pitch follow a level in [0,1]
// The level is written from the sink side and read on the speaker goroutine
type Tone struct {
	rate  beep.SampleRate
	level status.AtomicFloat

	// Owned by the speaker goroutine
	phase   float64
	current float64

	streamed atomic.Uint64
}

// NewTone creates a silent tone at rate
func NewTone(rate beep.SampleRate) *Tone {
	return &Tone{rate: rate}
}

// SetLevel sets the commanded level, clamped to [0,1]
func (t *Tone) SetLevel(v float64) {
	t.level.Set(min(max(v, 0), 1))
}

// Level returns the commanded level
func (t *Tone) Level() float64 {
	return t.level.Get()
}

// Streamed returns the number of samples produced
func (t *Tone) Streamed() uint64 {
	return t.streamed.Load()
}

// Stream implements beep.Streamer, it never drains
func (t *Tone) Stream(samples [][2]float64) (int, bool) {
	target := t.level.Get()
	rate := float64(t.rate)

	for i := range samples {
		t.current += (target - t.current) * parameter.ToneSmoothing

		freq := parameter.ToneBaseHz + parameter.ToneSpanHz*t.current
		v := math.Sin(2*math.Pi*t.phase) * t.current * parameter.ToneGain
		samples[i][0] = v
		samples[i][1] = v

		t.phase += freq / rate
		if t.phase >= 1.0 {
			t.phase -= 1.0
		}
	}
	t.streamed.Add(uint64(len(samples)))
	return len(samples), true
}

// Err implements beep.Streamer
func (t *Tone) Err() error {
	return nil
}
