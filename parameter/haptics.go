package parameter

import "time"

// Interpolation
const (
	// SliderTick is the cadence at which a slider advances and applies its value
	SliderTick = 5 * time.Millisecond

	// SliderEpsilon is the 'close enough' distance at which a slider completes
	SliderEpsilon = 1e-3
)

// Intensity Composition
const (
	// OutputFrequency is the default actuator command rate in Hz
	OutputFrequency = 5.0

	// MaxOutputFrequency caps the command rate; above this the sink call dominates the tick
	MaxOutputFrequency = 50.0

	// ApplyTimeout bounds a single actuator command, exceeding it skips the tick
	ApplyTimeout = 500 * time.Millisecond

	// SilenceDuration is the fade used when the session is halted by the safe word
	SilenceDuration = 250 * time.Millisecond
)

// Ambience
const (
	// AmbiencePoll is the settle loop polling interval
	AmbiencePoll = 50 * time.Millisecond

	// SettleFloor is the lowest allowed settle interval, avoids retarget thrashing
	SettleFloor = 330 * time.Millisecond

	// AmbientCeiling caps a drawn ambient target
	AmbientCeiling = 0.99

	// AmbienceTransition is the default slide time of an ambient retarget
	AmbienceTransition = 1000 * time.Millisecond

	// KillStreakCeiling is the kill streak at which ambience ranges saturate
	KillStreakCeiling = 15

	// DeathStreakCeiling is the death streak at which ambience ranges saturate
	DeathStreakCeiling = 5
)

// Tracker Policy
const (
	// DominationThreshold is the consecutive kill count that establishes a domination
	DominationThreshold = 3

	// SafeWord is the chat message that halts all output
	SafeWord = "PLUG STOP"
)

// Chat Pulses
const (
	// ChatPulseRate is the sustained number of chat-triggered pulses per second
	ChatPulseRate = 1.0

	// ChatPulseBurst is the number of chat pulses allowed back to back
	ChatPulseBurst = 3
)
