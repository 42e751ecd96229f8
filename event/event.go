// Package event defines the game events consumed by the mixer and the queue
// that carries them from feed producers to the dispatch loop.
package event

import "fmt"

// Player identifies a participant by display name and stable id
type Player struct {
	Name string
	ID   string
}

// Is reports whether p and o are the same participant
// IDs decide when both are known, otherwise names are compared
func (p Player) Is(o Player) bool {
	if p.ID != "" && o.ID != "" {
		return p.ID == o.ID
	}
	return p.Name != "" && p.Name == o.Name
}

// Key returns the identity used for per-opponent bookkeeping
func (p Player) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Name
}

func (p Player) String() string {
	if p.ID == "" {
		return p.Name
	}
	return fmt.Sprintf("%s<%s>", p.Name, p.ID)
}

// Event is a sealed union of Kill and Chat
type Event interface {
	isEvent()
}

// Kill is a player kill reported by the game feed
type Kill struct {
	Killer Player
	Victim Player
	Weapon string
	Crit   bool
}

// Chat is a chat message reported by the game feed
type Chat struct {
	Author  Player
	Message string
}

func (Kill) isEvent() {}
func (Chat) isEvent() {}
