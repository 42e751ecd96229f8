package status

// Intensity composer
const (
	KeyIntensityTicks     = "intensity.ticks"
	KeyIntensitySkipped   = "intensity.skipped"
	KeyIntensityPulses    = "intensity.pulses"
	KeyIntensityRetargets = "intensity.retargets"
	KeyIntensityOutput    = "intensity.output"
	KeyIntensityAmbient   = "intensity.ambient"
	KeyIntensityInstant   = "intensity.instant"
	KeyIntensityRunning   = "intensity.running"
)

// Ambience driver
const (
	KeyAmbienceSettles = "ambience.settles"
	KeyAmbienceTarget  = "ambience.target"
	KeyAmbienceRunning = "ambience.running"
)

// Session
const (
	KeyEngineEvents     = "engine.events"
	KeyEngineDropped    = "engine.dropped"
	KeyEngineLimited    = "engine.chat_limited"
	KeyEngineHalted     = "engine.halted"
	KeyEngineLastSignal = "engine.last_signal"
	KeyKillStreak       = "tracker.kill_streak"
	KeyDeathStreak      = "tracker.death_streak"
)

// Sinks
const (
	KeySinkErrors      = "sink.errors"
	KeySinkBreakerOpen = "sink.breaker_open"
	KeyAudioSilent     = "audio.silent"
)
