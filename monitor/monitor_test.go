package monitor

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/rumble/core"
	"github.com/lixenwraith/rumble/engine"
	"github.com/lixenwraith/rumble/event"
	"github.com/lixenwraith/rumble/tracker"
)

type fixedSource struct {
	snap  engine.Snapshot
	calls atomic.Int64
}

func (f *fixedSource) Snapshot() engine.Snapshot {
	f.calls.Add(1)
	return f.snap
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(60, 20)
	t.Cleanup(s.Fini)
	return s
}

func row(s tcell.Screen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := s.GetContent(x, y)
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

// TestDrawLayout verifies bars, streaks, state and recent signals are rendered
func TestDrawLayout(t *testing.T) {
	screen := newScreen(t)
	src := &fixedSource{snap: engine.Snapshot{
		ID:         "0123456789abcdef",
		Player:     event.Player{Name: "Heavy", ID: "P"},
		Ambient:    0.5,
		Instant:    0,
		Output:     1,
		KillStreak: 3,
		Running:    true,
		Recent:     []tracker.Signal{tracker.KilledEnemy, tracker.DominatedEnemy},
	}}
	m := New(screen, src, nil)
	m.draw(src.Snapshot())

	assert.Equal(t, "rumble  session 01234567  player Heavy<P>", row(screen, rowTitle))

	ambient := row(screen, rowAmbient)
	assert.True(t, strings.HasPrefix(ambient, "ambient"))
	assert.True(t, strings.HasSuffix(ambient, "0.50"))
	assert.Equal(t, 22, strings.Count(ambient, "█"), "half of a 43 cell bar rounds up")
	assert.Equal(t, 21, strings.Count(ambient, "░"))

	assert.NotContains(t, row(screen, rowInstant), "█")
	assert.NotContains(t, row(screen, rowOutput), "░")

	assert.Contains(t, row(screen, rowStreaks), "kill streak 3")
	assert.Equal(t, "running", row(screen, rowState))
	assert.Equal(t, "  KilledEnemy", row(screen, rowRecent+1))
	assert.Equal(t, "  DominatedEnemy", row(screen, rowRecent+2))
	assert.Equal(t, "q quit", row(screen, 19))
}

// TestDrawHalted verifies the halted flag overrides the running state
func TestDrawHalted(t *testing.T) {
	screen := newScreen(t)
	src := &fixedSource{snap: engine.Snapshot{Halted: true, Running: true}}
	New(screen, src, nil).draw(src.Snapshot())
	assert.Equal(t, "HALTED (safe word)", row(screen, rowState))
}

// TestRunQuitKeys verifies each quit key ends the loop with ErrQuit
func TestRunQuitKeys(t *testing.T) {
	keys := []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl),
	}
	for _, key := range keys {
		screen := newScreen(t)
		m := New(screen, &fixedSource{}, nil)

		done := make(chan error, 1)
		go func() { done <- m.Run(context.Background()) }()
		require.NoError(t, screen.PostEvent(key))

		select {
		case err := <-done:
			assert.ErrorIs(t, err, ErrQuit)
		case <-time.After(2 * time.Second):
			t.Fatalf("key %v did not quit", key.Name())
		}
	}
}

// TestRunRedrawsUntilCancelled verifies periodic redraws and a clean exit on cancel
func TestRunRedrawsUntilCancelled(t *testing.T) {
	screen := newScreen(t)
	src := &fixedSource{}
	m := New(screen, src, nil)
	m.refresh = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	assert.Eventually(t, func() bool { return src.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

// brokenScreen panics when polled for input
type brokenScreen struct {
	tcell.SimulationScreen
}

func (brokenScreen) PollEvent() tcell.Event {
	panic("input device lost")
}

// TestRunEventPanicReachesCrashHandler verifies a panic while polling input goes to the crash handler
func TestRunEventPanicReachesCrashHandler(t *testing.T) {
	crashed := make(chan string, 1)
	core.SetCrashHandler(func(name string, r any, _ []byte) {
		crashed <- name
	})
	t.Cleanup(func() { core.SetCrashHandler(nil) })

	m := New(brokenScreen{newScreen(t)}, &fixedSource{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case name := <-crashed:
		assert.Equal(t, "monitor.events", name)
	case <-time.After(2 * time.Second):
		t.Fatal("crash handler not called")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
