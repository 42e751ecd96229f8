package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"

	"github.com/lixenwraith/rumble/parameter"
	"github.com/lixenwraith/rumble/sink"
	"github.com/lixenwraith/rumble/status"
)

// ToneSink plays the intensity command through the default speaker
// Without a usable audio device it runs in silent mode and keeps accepting commands
type ToneSink struct {
	tone *Tone
	ctrl *beep.Ctrl
	log  *zap.Logger

	mu          sync.Mutex // Protects initialized
	initialized bool

	running    atomic.Bool
	silentMode atomic.Bool
	closed     atomic.Bool

	silentFlag *atomic.Bool
}

// NewToneSink creates an unopened sink, reg may be nil
func NewToneSink(l *zap.Logger, reg *status.Registry) *ToneSink {
	if l == nil {
		l = zap.NewNop()
	}
	if reg == nil {
		reg = status.NewRegistry()
	}
	tone := NewTone(beep.SampleRate(parameter.ToneSampleRate))
	return &ToneSink{
		tone:       tone,
		ctrl:       &beep.Ctrl{Streamer: tone},
		log:        l.Named("audio"),
		silentFlag: reg.Bools.Get(status.KeyAudioSilent),
	}
}

// Init opens the speaker and starts the tone
// Device failures switch to silent mode and are not returned
func (s *ToneSink) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return sink.ErrClosed
	}
	if s.initialized {
		return fmt.Errorf("tone sink already initialized")
	}
	s.initialized = true

	rate := beep.SampleRate(parameter.ToneSampleRate)
	if err := speaker.Init(rate, rate.N(parameter.ToneBuffer)); err != nil {
		s.log.Warn("no audio device, running silent", zap.Error(err))
		s.setSilent()
		s.running.Store(true)
		return nil
	}

	speaker.Play(s.ctrl)
	s.running.Store(true)
	s.log.Debug("speaker opened", zap.Int("rate", int(rate)))
	return nil
}

func (s *ToneSink) setSilent() {
	s.silentMode.Store(true)
	s.silentFlag.Store(true)
}

// Apply implements sink.Sink
func (s *ToneSink) Apply(ctx context.Context, intensity float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return sink.ErrClosed
	}
	s.tone.SetLevel(intensity)
	return nil
}

// Level returns the last commanded level
func (s *ToneSink) Level() float64 {
	return s.tone.Level()
}

// Silent reports whether output is discarded for lack of a device
func (s *ToneSink) Silent() bool {
	return s.silentMode.Load()
}

// IsRunning returns true after Init, even in silent mode
func (s *ToneSink) IsRunning() bool {
	return s.running.Load()
}

// Close stops playback and releases the speaker
func (s *ToneSink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.tone.SetLevel(0)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.CompareAndSwap(true, false) || s.silentMode.Load() {
		return nil
	}

	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
	speaker.Clear()
	speaker.Close()
	return nil
}
