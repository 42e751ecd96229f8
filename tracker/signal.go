package tracker

// Signal is a discrete update emitted by the tracker
type Signal uint8

const (
	// Kill events, tracked player is the killer
	KilledEnemy Signal = iota
	CritKilledEnemy
	DominatedEnemy
	RemovedDomination

	// Kill events, tracked player is the victim
	GotKilled
	GotCritKilled
	GotDominated
	LostDomination

	// Chat events
	GotMentioned
	ChatHostile
	ChatCelebration
	ChatSafeWord

	signalCount
)

var signalNames = [signalCount]string{
	KilledEnemy:       "KilledEnemy",
	CritKilledEnemy:   "CritKilledEnemy",
	DominatedEnemy:    "DominatedEnemy",
	RemovedDomination: "RemovedDomination",
	GotKilled:         "GotKilled",
	GotCritKilled:     "GotCritKilled",
	GotDominated:      "GotDominated",
	LostDomination:    "LostDomination",
	GotMentioned:      "GotMentioned",
	ChatHostile:       "ChatHostile",
	ChatCelebration:   "ChatCelebration",
	ChatSafeWord:      "ChatSafeWord",
}

func (s Signal) String() string {
	if s < signalCount {
		return signalNames[s]
	}
	return "Signal(?)"
}

// Signals returns every defined signal in declaration order
func Signals() []Signal {
	out := make([]Signal, 0, signalCount)
	for s := Signal(0); s < signalCount; s++ {
		out = append(out, s)
	}
	return out
}
