package ambience

import (
	"math"
	"time"

	"github.com/lixenwraith/rumble/parameter"
)

// Range maps a streak in [0, ceiling] onto [Min, Max]
// Max may be below Min for quantities that shrink as the streak grows
type Range struct {
	Min float64
	Max float64
}

// At returns the value for streak, saturating at both ends
func (r Range) At(streak, ceiling int) float64 {
	if ceiling <= 0 {
		return r.Max
	}
	t := min(max(float64(streak)/float64(ceiling), 0), 1)
	return r.Min*(1-t) + r.Max*t
}

// StreakRanges pairs the kill streak and death streak mapping of one quantity
type StreakRanges struct {
	KillStreak  Range
	DeathStreak Range
}

// Config is the static tuning of the driver
// Settle rates and their variances are in seconds
type Config struct {
	Intensity          StreakRanges
	IntensityVariance  StreakRanges
	SettleRate         StreakRanges
	SettleRateVariance StreakRanges

	KillStreakCeiling  int
	DeathStreakCeiling int

	TransitionTime time.Duration
	PollInterval   time.Duration
	SettleFloor    time.Duration
	TargetCeiling  float64
}

// DefaultConfig returns the stock ambience curve
func DefaultConfig() Config {
	return Config{
		Intensity: StreakRanges{
			KillStreak:  Range{Min: 0.05, Max: 0.3},
			DeathStreak: Range{Min: 0.05, Max: 0.3},
		},
		IntensityVariance: StreakRanges{
			KillStreak:  Range{Min: 0.05, Max: 0.25},
			DeathStreak: Range{Min: 0.05, Max: 0.25},
		},
		SettleRate: StreakRanges{
			KillStreak:  Range{Min: 6.9, Max: 2.5},
			DeathStreak: Range{Min: 6.9, Max: 3.1},
		},
		SettleRateVariance: StreakRanges{
			KillStreak:  Range{Min: 0.5, Max: 0.2},
			DeathStreak: Range{Min: 0.5, Max: 0.3},
		},
		KillStreakCeiling:  parameter.KillStreakCeiling,
		DeathStreakCeiling: parameter.DeathStreakCeiling,
		TransitionTime:     parameter.AmbienceTransition,
		PollInterval:       parameter.AmbiencePoll,
		SettleFloor:        parameter.SettleFloor,
		TargetCeiling:      parameter.AmbientCeiling,
	}
}

// Params is the derived bundle the settle step draws from
type Params struct {
	Intensity          float64
	IntensityVariance  float64
	SettleRate         time.Duration
	SettleRateVariance time.Duration
}

// derive computes the bundle for a pair of streaks
// Intensity quantities take the stronger streak, settle quantities the faster one
func (c Config) derive(killStreak, deathStreak int) Params {
	k, d := c.KillStreakCeiling, c.DeathStreakCeiling
	return Params{
		Intensity:         max(c.Intensity.KillStreak.At(killStreak, k), c.Intensity.DeathStreak.At(deathStreak, d)),
		IntensityVariance: max(c.IntensityVariance.KillStreak.At(killStreak, k), c.IntensityVariance.DeathStreak.At(deathStreak, d)),
		SettleRate: seconds(min(
			c.SettleRate.KillStreak.At(killStreak, k),
			c.SettleRate.DeathStreak.At(deathStreak, d))),
		SettleRateVariance: seconds(min(
			c.SettleRateVariance.KillStreak.At(killStreak, k),
			c.SettleRateVariance.DeathStreak.At(deathStreak, d))),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
