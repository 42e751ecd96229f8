// Package monitor draws a live terminal dashboard of one mixing session.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/lixenwraith/rumble/core"
	"github.com/lixenwraith/rumble/engine"
	"github.com/lixenwraith/rumble/parameter"
)

// ErrQuit is returned by Run when the user asks to exit
var ErrQuit = errors.New("monitor quit")

// Source provides the session view
type Source interface {
	Snapshot() engine.Snapshot
}

// Monitor renders snapshots onto an initialized screen
type Monitor struct {
	screen  tcell.Screen
	src     Source
	refresh time.Duration
	log     *zap.Logger
}

// New creates a monitor, the caller owns screen Init and Fini
func New(screen tcell.Screen, src Source, l *zap.Logger) *Monitor {
	if l == nil {
		l = zap.NewNop()
	}
	return &Monitor{
		screen:  screen,
		src:     src,
		refresh: parameter.MonitorRefresh,
		log:     l.Named("monitor"),
	}
}

// Run redraws until ctx is done or the user quits
func (m *Monitor) Run(ctx context.Context) error {
	quit := make(chan struct{})
	defer close(quit)

	events := make(chan tcell.Event, 16)
	core.Go("monitor.events", func() {
		for {
			ev := m.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	})

	ticker := time.NewTicker(m.refresh)
	defer ticker.Stop()

	m.draw(m.src.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if isQuit(ev) {
					m.log.Debug("quit requested")
					return ErrQuit
				}
			case *tcell.EventResize:
				m.screen.Sync()
			}

		case <-ticker.C:
			m.draw(m.src.Snapshot())
		}
	}
}

func isQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}

var (
	styleTitle  = tcell.StyleDefault.Bold(true)
	styleLabel  = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleHalted = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleOK     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorGray)

	styleAmbient = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleInstant = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleOutput  = tcell.StyleDefault.Foreground(tcell.ColorPurple)
)

// Layout rows
const (
	rowTitle   = 0
	rowAmbient = 2
	rowInstant = 3
	rowOutput  = 4
	rowStreaks = 6
	rowState   = 7
	rowRecent  = 9
	labelWidth = 9
)

func (m *Monitor) draw(s engine.Snapshot) {
	m.screen.Clear()
	w, h := m.screen.Size()

	id := s.ID
	if len(id) > 8 {
		id = id[:8]
	}
	drawText(m.screen, 0, rowTitle, styleTitle, fmt.Sprintf("rumble  session %s  player %s", id, s.Player))

	barWidth := max(10, w-labelWidth-8)
	drawBar(m.screen, rowAmbient, "ambient", s.Ambient, barWidth, styleAmbient)
	drawBar(m.screen, rowInstant, "instant", s.Instant, barWidth, styleInstant)
	drawBar(m.screen, rowOutput, "output", s.Output, barWidth, styleOutput)

	drawText(m.screen, 0, rowStreaks, styleLabel,
		fmt.Sprintf("kill streak %d   death streak %d   dropped %d", s.KillStreak, s.DeathStreak, s.Dropped))

	switch {
	case s.Halted:
		drawText(m.screen, 0, rowState, styleHalted, "HALTED (safe word)")
	case s.Running:
		drawText(m.screen, 0, rowState, styleOK, "running")
	default:
		drawText(m.screen, 0, rowState, styleDim, "stopped")
	}

	drawText(m.screen, 0, rowRecent, styleLabel, "recent")
	for i, sig := range s.Recent {
		y := rowRecent + 1 + i
		if y >= h-1 {
			break
		}
		drawText(m.screen, 2, y, tcell.StyleDefault, sig.String())
	}

	drawText(m.screen, 0, h-1, styleDim, "q quit")
	m.screen.Show()
}

func drawBar(s tcell.Screen, y int, label string, v float64, width int, style tcell.Style) {
	v = min(max(v, 0), 1)
	filled := int(v*float64(width) + 0.5)

	drawText(s, 0, y, styleLabel, label)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	drawText(s, labelWidth, y, style, bar)
	drawText(s, labelWidth+width+1, y, tcell.StyleDefault, fmt.Sprintf("%.2f", v))
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
