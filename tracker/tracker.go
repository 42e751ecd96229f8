// Package tracker turns kill and chat events into streak and domination state
// for one tracked player, emitting discrete signals for each notable change.
//
// A Tracker has no concurrency of its own and is driven from the single dispatch path.
package tracker

import (
	"maps"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/lixenwraith/rumble/event"
	"github.com/lixenwraith/rumble/parameter"
)

// ChatRules lists the phrases the chat classifier reacts to
type ChatRules struct {
	// Hostile phrases match as substrings in anyone's message
	Hostile []string

	// Celebration words match as whole words in the tracked player's message
	Celebration []string

	// SafeWord, sent by the tracked player, halts all output
	SafeWord string
}

// DefaultChatRules returns the stock phrase lists
func DefaultChatRules() ChatRules {
	return ChatRules{
		Hostile:     []string{"fuck you"},
		Celebration: []string{"uwu", "owo"},
		SafeWord:    parameter.SafeWord,
	}
}

// Tracker holds streak and domination state for the tracked player
type Tracker struct {
	player event.Player
	fold   cases.Caser

	hostile     []string
	celebration map[string]struct{}
	safeWord    string
	name        string

	killStreak  int
	deathStreak int

	killsOn     map[string]int // Consecutive kills on an opponent
	deathsBy    map[string]int // Consecutive deaths to an opponent
	dominating  map[string]struct{}
	dominatedBy map[string]struct{}
}

// New creates a tracker for player with empty state
func New(player event.Player, rules ChatRules) *Tracker {
	t := &Tracker{
		player:      player,
		fold:        cases.Fold(),
		celebration: make(map[string]struct{}, len(rules.Celebration)),
		killsOn:     make(map[string]int),
		deathsBy:    make(map[string]int),
		dominating:  make(map[string]struct{}),
		dominatedBy: make(map[string]struct{}),
	}
	for _, h := range rules.Hostile {
		if h = t.fold.String(strings.TrimSpace(h)); h != "" {
			t.hostile = append(t.hostile, h)
		}
	}
	for _, w := range rules.Celebration {
		if w = t.fold.String(strings.TrimSpace(w)); w != "" {
			t.celebration[w] = struct{}{}
		}
	}
	t.safeWord = t.fold.String(strings.TrimSpace(rules.SafeWord))
	t.name = t.fold.String(strings.TrimSpace(player.Name))
	return t
}

// Player returns the tracked player
func (t *Tracker) Player() event.Player {
	return t.player
}

// Streaks returns the current kill and death streaks
func (t *Tracker) Streaks() (killStreak, deathStreak int) {
	return t.killStreak, t.deathStreak
}

// Dominating returns keys of opponents the player is dominating, sorted
func (t *Tracker) Dominating() []string {
	return slices.Sorted(maps.Keys(t.dominating))
}

// DominatedBy returns keys of opponents dominating the player, sorted
func (t *Tracker) DominatedBy() []string {
	return slices.Sorted(maps.Keys(t.dominatedBy))
}

// ApplyKill updates state from a kill and returns the streaks and emitted signals
// Kills not involving the tracked player change nothing
func (t *Tracker) ApplyKill(k event.Kill) (killStreak, deathStreak int, signals []Signal) {
	switch {
	case k.Victim.Is(t.player):
		signals = t.onDeath(k)
	case k.Killer.Is(t.player):
		signals = t.onKill(k)
	}
	return t.killStreak, t.deathStreak, signals
}

func (t *Tracker) onDeath(k event.Kill) []Signal {
	signals := []Signal{GotKilled}
	if k.Crit {
		signals = append(signals, GotCritKilled)
	}

	killer := k.Killer.Key()
	t.deathsBy[killer]++

	// Dying to an opponent breaks the kill run against them
	delete(t.killsOn, killer)
	if _, ok := t.dominating[killer]; ok {
		delete(t.dominating, killer)
		signals = append(signals, LostDomination)
	}

	if t.deathsBy[killer] >= parameter.DominationThreshold {
		if _, ok := t.dominatedBy[killer]; !ok {
			t.dominatedBy[killer] = struct{}{}
			signals = append(signals, GotDominated)
		}
	}

	t.killStreak = 0
	t.deathStreak++
	return signals
}

func (t *Tracker) onKill(k event.Kill) []Signal {
	signals := []Signal{KilledEnemy}
	if k.Crit {
		signals = append(signals, CritKilledEnemy)
	}

	t.killStreak++
	t.deathStreak = 0

	victim := k.Victim.Key()
	t.killsOn[victim]++

	if _, ok := t.dominatedBy[victim]; ok {
		delete(t.dominatedBy, victim)
		signals = append(signals, RemovedDomination)
	}
	delete(t.deathsBy, victim)

	if t.killsOn[victim] >= parameter.DominationThreshold {
		if _, ok := t.dominating[victim]; !ok {
			t.dominating[victim] = struct{}{}
			signals = append(signals, DominatedEnemy)
		}
	}
	return signals
}

// ClassifyChat returns the signals a chat message triggers, matching case-insensitively
func (t *Tracker) ClassifyChat(c event.Chat) []Signal {
	var signals []Signal
	msg := t.fold.String(c.Message)

	for _, h := range t.hostile {
		if strings.Contains(msg, h) {
			signals = append(signals, ChatHostile)
			break
		}
	}

	if c.Author.Is(t.player) {
		if t.hasCelebration(msg) {
			signals = append(signals, ChatCelebration)
		}
		if t.safeWord != "" && strings.TrimSpace(msg) == t.safeWord {
			signals = append(signals, ChatSafeWord)
		}
		return signals
	}

	if t.name != "" && strings.Contains(msg, t.name) {
		signals = append(signals, GotMentioned)
	}
	return signals
}

// hasCelebration reports whether any whole word of msg is a celebration word
func (t *Tracker) hasCelebration(msg string) bool {
	words := strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := t.celebration[w]; ok {
			return true
		}
	}
	return false
}
