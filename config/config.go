// Package config loads rumble settings from a TOML file with environment overrides
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"go.uber.org/multierr"

	"github.com/lixenwraith/rumble/ambience"
	"github.com/lixenwraith/rumble/engine"
	"github.com/lixenwraith/rumble/event"
	"github.com/lixenwraith/rumble/parameter"
	"github.com/lixenwraith/rumble/tracker"
)

// Validation errors
var (
	ErrNoPlayer      = errors.New("player name or steam_id required")
	ErrUnknownKey    = errors.New("unknown config key")
	ErrOutOfRange    = errors.New("value out of range")
	ErrEmptySafeWord = errors.New("safe_word must not be empty")
)

// Config mirrors the file layout
type Config struct {
	Player   Player   `toml:"player"`
	Output   Output   `toml:"output"`
	Feed     Feed     `toml:"feed"`
	Instant  Instant  `toml:"instant"`
	Ambience Ambience `toml:"ambience"`
}

// Player identifies whose events drive output
type Player struct {
	Name    string `toml:"name" env:"RUMBLE_PLAYER_NAME"`
	SteamID string `toml:"steam_id" env:"RUMBLE_PLAYER_ID"`
}

// Output is the actuator command cadence
type Output struct {
	Frequency      float64 `toml:"frequency" env:"RUMBLE_OUTPUT_HZ"`
	ApplyTimeoutMS int     `toml:"apply_timeout_ms"`
}

// Feed locates the event stream
type Feed struct {
	Path string `toml:"path" env:"RUMBLE_FEED_PATH"`
}

// Instant holds the per-signal pulse table and chat phrase lists
type Instant struct {
	Intensity      PulseIntensity `toml:"intensity"`
	Times          PulseTimes     `toml:"times"`
	ChatMessages   ChatMessages   `toml:"chat_messages"`
	ChatRatePerSec float64        `toml:"chat_rate_per_sec"`
	ChatBurst      int            `toml:"chat_burst"`
}

// PulseIntensity is the starting level of each pulse, in [0, 1]
type PulseIntensity struct {
	OnKill           float64 `toml:"on_kill"`
	OnCritKill       float64 `toml:"on_crit_kill"`
	OnDeath          float64 `toml:"on_death"`
	OnCritDeath      float64 `toml:"on_crit_death"`
	OnDomination     float64 `toml:"on_domination"`
	OnUndominated    float64 `toml:"on_undominated"`
	OnLostDomination float64 `toml:"on_lost_domination"`
	OnDominated      float64 `toml:"on_dominated"`
	OnYouChatMsg     float64 `toml:"on_you_chat_msg"`
	OnAnyChatMsg     float64 `toml:"on_any_chat_msg"`
	OnMention        float64 `toml:"on_mention"`
}

// PulseTimes is the decay time of each pulse in milliseconds
type PulseTimes struct {
	OnKill           int `toml:"on_kill"`
	OnCritKill       int `toml:"on_crit_kill"`
	OnDeath          int `toml:"on_death"`
	OnCritDeath      int `toml:"on_crit_death"`
	OnDomination     int `toml:"on_domination"`
	OnUndominated    int `toml:"on_undominated"`
	OnLostDomination int `toml:"on_lost_domination"`
	OnDominated      int `toml:"on_dominated"`
	OnYouChatMsg     int `toml:"on_you_chat_msg"`
	OnAnyChatMsg     int `toml:"on_any_chat_msg"`
	OnMention        int `toml:"on_mention"`
}

// ChatMessages are the phrase lists the tracker matches
type ChatMessages struct {
	TriggerOnYouSay []string `toml:"trigger_on_you_say"`
	TriggerOnAnySay []string `toml:"trigger_on_any_say"`
	SafeWord        string   `toml:"safe_word"`
}

// Ambience is the baseline curve, change rates are in seconds
type Ambience struct {
	TransitionTime     int          `toml:"transition_time" env:"RUMBLE_TRANSITION_MS"`
	MaxAtValue         MaxAtValue   `toml:"max_at_value"`
	Intensity          StreakBounds `toml:"intensity"`
	IntensityVariance  StreakBounds `toml:"intensity_variance"`
	ChangeRate         StreakBounds `toml:"change_rate"`
	ChangeRateVariance StreakBounds `toml:"change_rate_variance"`
}

// MaxAtValue is the streak at which each range saturates
type MaxAtValue struct {
	KillStreak  int `toml:"killstreak"`
	DeathStreak int `toml:"deathstreak"`
}

// StreakBounds maps both streaks onto a min..max range
type StreakBounds struct {
	KillStreakMinimum  float64 `toml:"killstreak_minimum"`
	KillStreakMaximum  float64 `toml:"killstreak_maximum"`
	DeathStreakMinimum float64 `toml:"deathstreak_minimum"`
	DeathStreakMaximum float64 `toml:"deathstreak_maximum"`
}

// Default returns the stock configuration without a player
func Default() *Config {
	pulses := engine.DefaultPulses()
	rules := tracker.DefaultChatRules()
	amb := ambience.DefaultConfig()

	intensity := func(s tracker.Signal) float64 { return pulses[s].Intensity }
	ms := func(s tracker.Signal) int { return int(pulses[s].Duration / time.Millisecond) }

	return &Config{
		Output: Output{
			Frequency:      parameter.OutputFrequency,
			ApplyTimeoutMS: int(parameter.ApplyTimeout / time.Millisecond),
		},
		Instant: Instant{
			Intensity: PulseIntensity{
				OnKill:           intensity(tracker.KilledEnemy),
				OnCritKill:       intensity(tracker.CritKilledEnemy),
				OnDeath:          intensity(tracker.GotKilled),
				OnCritDeath:      intensity(tracker.GotCritKilled),
				OnDomination:     intensity(tracker.DominatedEnemy),
				OnUndominated:    intensity(tracker.RemovedDomination),
				OnLostDomination: intensity(tracker.LostDomination),
				OnDominated:      intensity(tracker.GotDominated),
				OnYouChatMsg:     intensity(tracker.ChatCelebration),
				OnAnyChatMsg:     intensity(tracker.ChatHostile),
				OnMention:        intensity(tracker.GotMentioned),
			},
			Times: PulseTimes{
				OnKill:           ms(tracker.KilledEnemy),
				OnCritKill:       ms(tracker.CritKilledEnemy),
				OnDeath:          ms(tracker.GotKilled),
				OnCritDeath:      ms(tracker.GotCritKilled),
				OnDomination:     ms(tracker.DominatedEnemy),
				OnUndominated:    ms(tracker.RemovedDomination),
				OnLostDomination: ms(tracker.LostDomination),
				OnDominated:      ms(tracker.GotDominated),
				OnYouChatMsg:     ms(tracker.ChatCelebration),
				OnAnyChatMsg:     ms(tracker.ChatHostile),
				OnMention:        ms(tracker.GotMentioned),
			},
			ChatMessages: ChatMessages{
				TriggerOnYouSay: rules.Celebration,
				TriggerOnAnySay: rules.Hostile,
				SafeWord:        rules.SafeWord,
			},
			ChatRatePerSec: parameter.ChatPulseRate,
			ChatBurst:      parameter.ChatPulseBurst,
		},
		Ambience: Ambience{
			TransitionTime: int(amb.TransitionTime / time.Millisecond),
			MaxAtValue: MaxAtValue{
				KillStreak:  amb.KillStreakCeiling,
				DeathStreak: amb.DeathStreakCeiling,
			},
			Intensity:          boundsOf(amb.Intensity),
			IntensityVariance:  boundsOf(amb.IntensityVariance),
			ChangeRate:         boundsOf(amb.SettleRate),
			ChangeRateVariance: boundsOf(amb.SettleRateVariance),
		},
	}
}

// Load reads path over the defaults, applies environment overrides and validates
// An empty path skips the file
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("%s: %w: %s", path, ErrUnknownKey, strings.Join(keys, ", "))
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrOutOfRange}, args...)...))
		}
	}

	if c.Player.Name == "" && c.Player.SteamID == "" {
		err = multierr.Append(err, ErrNoPlayer)
	}

	check(c.Output.Frequency > 0 && c.Output.Frequency <= parameter.MaxOutputFrequency,
		"output.frequency %g not in (0, %g]", c.Output.Frequency, parameter.MaxOutputFrequency)
	check(c.Output.ApplyTimeoutMS > 0, "output.apply_timeout_ms %d must be positive", c.Output.ApplyTimeoutMS)

	for key, p := range c.pulses() {
		check(p.Intensity >= 0 && p.Intensity <= 1, "instant.intensity.%s %g not in [0, 1]", key, p.Intensity)
		check(p.Duration >= 0, "instant.times.%s must not be negative", key)
	}
	check(c.Instant.ChatRatePerSec >= 0, "instant.chat_rate_per_sec %g must not be negative", c.Instant.ChatRatePerSec)
	check(c.Instant.ChatBurst >= 1, "instant.chat_burst %d must be at least 1", c.Instant.ChatBurst)
	if strings.TrimSpace(c.Instant.ChatMessages.SafeWord) == "" {
		err = multierr.Append(err, ErrEmptySafeWord)
	}

	a := c.Ambience
	check(a.TransitionTime >= 0, "ambience.transition_time %d must not be negative", a.TransitionTime)
	check(a.MaxAtValue.KillStreak > 0, "ambience.max_at_value.killstreak %d must be positive", a.MaxAtValue.KillStreak)
	check(a.MaxAtValue.DeathStreak > 0, "ambience.max_at_value.deathstreak %d must be positive", a.MaxAtValue.DeathStreak)
	for name, b := range map[string]StreakBounds{
		"intensity":          a.Intensity,
		"intensity_variance": a.IntensityVariance,
	} {
		for _, v := range b.values() {
			check(v >= 0 && v <= 1, "ambience.%s %g not in [0, 1]", name, v)
		}
	}
	for _, v := range a.ChangeRate.values() {
		check(v > 0, "ambience.change_rate %g must be positive", v)
	}
	for _, v := range a.ChangeRateVariance.values() {
		check(v >= 0, "ambience.change_rate_variance %g must not be negative", v)
	}

	return err
}

// PlayerIdentity returns the tracked player
func (c *Config) PlayerIdentity() event.Player {
	return event.Player{Name: c.Player.Name, ID: c.Player.SteamID}
}

// ChatRules returns the tracker phrase lists
func (c *Config) ChatRules() tracker.ChatRules {
	return tracker.ChatRules{
		Hostile:     c.Instant.ChatMessages.TriggerOnAnySay,
		Celebration: c.Instant.ChatMessages.TriggerOnYouSay,
		SafeWord:    c.Instant.ChatMessages.SafeWord,
	}
}

// PulseTable returns the per-signal pulse table
func (c *Config) PulseTable() engine.PulseTable {
	table := make(engine.PulseTable, 11)
	for key, p := range c.pulses() {
		table[pulseSignals[key]] = p
	}
	return table
}

// AmbienceConfig returns the driver tuning
func (c *Config) AmbienceConfig() ambience.Config {
	cfg := ambience.DefaultConfig()
	a := c.Ambience
	cfg.Intensity = a.Intensity.ranges()
	cfg.IntensityVariance = a.IntensityVariance.ranges()
	cfg.SettleRate = a.ChangeRate.ranges()
	cfg.SettleRateVariance = a.ChangeRateVariance.ranges()
	cfg.KillStreakCeiling = a.MaxAtValue.KillStreak
	cfg.DeathStreakCeiling = a.MaxAtValue.DeathStreak
	cfg.TransitionTime = time.Duration(a.TransitionTime) * time.Millisecond
	return cfg
}

// Settings returns the complete session settings
func (c *Config) Settings() engine.Settings {
	s := engine.DefaultSettings(c.PlayerIdentity())
	s.Rules = c.ChatRules()
	s.Pulses = c.PulseTable()
	s.Ambience = c.AmbienceConfig()
	s.Frequency = c.Output.Frequency
	s.ApplyTimeout = time.Duration(c.Output.ApplyTimeoutMS) * time.Millisecond
	s.ChatRate = c.Instant.ChatRatePerSec
	s.ChatBurst = c.Instant.ChatBurst
	return s
}

// pulseSignals maps file keys onto tracker signals
var pulseSignals = map[string]tracker.Signal{
	"on_kill":            tracker.KilledEnemy,
	"on_crit_kill":       tracker.CritKilledEnemy,
	"on_death":           tracker.GotKilled,
	"on_crit_death":      tracker.GotCritKilled,
	"on_domination":      tracker.DominatedEnemy,
	"on_undominated":     tracker.RemovedDomination,
	"on_lost_domination": tracker.LostDomination,
	"on_dominated":       tracker.GotDominated,
	"on_you_chat_msg":    tracker.ChatCelebration,
	"on_any_chat_msg":    tracker.ChatHostile,
	"on_mention":         tracker.GotMentioned,
}

// pulses pairs intensity and time entries by file key
func (c *Config) pulses() map[string]engine.Pulse {
	in, t := c.Instant.Intensity, c.Instant.Times
	p := func(v float64, ms int) engine.Pulse {
		return engine.Pulse{Intensity: v, Duration: time.Duration(ms) * time.Millisecond}
	}
	return map[string]engine.Pulse{
		"on_kill":            p(in.OnKill, t.OnKill),
		"on_crit_kill":       p(in.OnCritKill, t.OnCritKill),
		"on_death":           p(in.OnDeath, t.OnDeath),
		"on_crit_death":      p(in.OnCritDeath, t.OnCritDeath),
		"on_domination":      p(in.OnDomination, t.OnDomination),
		"on_undominated":     p(in.OnUndominated, t.OnUndominated),
		"on_lost_domination": p(in.OnLostDomination, t.OnLostDomination),
		"on_dominated":       p(in.OnDominated, t.OnDominated),
		"on_you_chat_msg":    p(in.OnYouChatMsg, t.OnYouChatMsg),
		"on_any_chat_msg":    p(in.OnAnyChatMsg, t.OnAnyChatMsg),
		"on_mention":         p(in.OnMention, t.OnMention),
	}
}

func boundsOf(r ambience.StreakRanges) StreakBounds {
	return StreakBounds{
		KillStreakMinimum:  r.KillStreak.Min,
		KillStreakMaximum:  r.KillStreak.Max,
		DeathStreakMinimum: r.DeathStreak.Min,
		DeathStreakMaximum: r.DeathStreak.Max,
	}
}

func (b StreakBounds) ranges() ambience.StreakRanges {
	return ambience.StreakRanges{
		KillStreak:  ambience.Range{Min: b.KillStreakMinimum, Max: b.KillStreakMaximum},
		DeathStreak: ambience.Range{Min: b.DeathStreakMinimum, Max: b.DeathStreakMaximum},
	}
}

func (b StreakBounds) values() []float64 {
	return []float64{b.KillStreakMinimum, b.KillStreakMaximum, b.DeathStreakMinimum, b.DeathStreakMaximum}
}
