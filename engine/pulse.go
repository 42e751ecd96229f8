package engine

import (
	"time"

	"github.com/lixenwraith/rumble/tracker"
)

// Pulse is one instant-channel reaction
type Pulse struct {
	Intensity float64
	Duration  time.Duration
}

// stronger reports whether p outranks q, ties on intensity go to the longer pulse
func (p Pulse) stronger(q Pulse) bool {
	if p.Intensity != q.Intensity {
		return p.Intensity > q.Intensity
	}
	return p.Duration > q.Duration
}

// PulseTable maps signals onto their instant reaction
// Signals without an entry produce no pulse
type PulseTable map[tracker.Signal]Pulse

// DefaultPulses returns the stock reaction table
func DefaultPulses() PulseTable {
	return PulseTable{
		tracker.KilledEnemy:       {0.45, 750 * time.Millisecond},
		tracker.CritKilledEnemy:   {0.6, 850 * time.Millisecond},
		tracker.GotKilled:         {0.4, 666 * time.Millisecond},
		tracker.GotCritKilled:     {0.65, 1200 * time.Millisecond},
		tracker.DominatedEnemy:    {0.7, 1500 * time.Millisecond},
		tracker.RemovedDomination: {0.5, 1000 * time.Millisecond},
		tracker.LostDomination:    {0.5, 900 * time.Millisecond},
		tracker.GotDominated:      {0.6, 1200 * time.Millisecond},
		tracker.ChatCelebration:   {0.4, 750 * time.Millisecond},
		tracker.ChatHostile:       {0.3, 500 * time.Millisecond},
		tracker.GotMentioned:      {0.25, 400 * time.Millisecond},
	}
}

// strongest returns the strongest pulse among signals
func (t PulseTable) strongest(signals []tracker.Signal) (Pulse, bool) {
	var best Pulse
	found := false
	for _, s := range signals {
		p, ok := t[s]
		if !ok || p.Intensity <= 0 || p.Duration <= 0 {
			continue
		}
		if !found || p.stronger(best) {
			best = p
			found = true
		}
	}
	return best, found
}

// reaction is how the session responds to a signal
type reaction uint8

const (
	reactUnknown reaction = iota
	reactPulse
	reactHalt
)

// reactionOf is the single dispatch point over signal kinds
// Every tracker.Signal must have a case; the exhaustiveness test walks them all
func reactionOf(s tracker.Signal) reaction {
	switch s {
	case tracker.KilledEnemy,
		tracker.CritKilledEnemy,
		tracker.DominatedEnemy,
		tracker.RemovedDomination,
		tracker.GotKilled,
		tracker.GotCritKilled,
		tracker.GotDominated,
		tracker.LostDomination,
		tracker.GotMentioned,
		tracker.ChatHostile,
		tracker.ChatCelebration:
		return reactPulse
	case tracker.ChatSafeWord:
		return reactHalt
	default:
		return reactUnknown
	}
}
