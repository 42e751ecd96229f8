package parameter

import "time"

// Audio Preview Sink
const (
	// ToneSampleRate is the speaker sample rate
	ToneSampleRate = 44100

	// ToneBuffer is the speaker buffer length, latency versus underrun
	ToneBuffer = 100 * time.Millisecond

	// ToneBaseHz is the pitch at zero intensity
	ToneBaseHz = 80.0

	// ToneSpanHz is the pitch added at full intensity
	ToneSpanHz = 160.0

	// ToneGain is the amplitude at full intensity
	ToneGain = 0.35

	// ToneSmoothing is the per-sample glide factor towards the commanded level
	// Removes clicks at the command rate
	ToneSmoothing = 0.0015
)
