// Package feed decodes the game event feed and replays recorded sessions into the event queue.
//
// One event per line, as emitted by the feed's server-sent event stream:
//
//	data: {"type":"PlayerKill","event":{"killer_name":"A","killer_steamid":"1",...}}
//	{"type":"ChatMessage","event":{"player_name":"B","steamid":"2","message":"gg"}}
package feed

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/lixenwraith/rumble/event"
)

// Sentinel errors
var (
	ErrMalformed   = errors.New("malformed feed message")
	ErrUnknownType = errors.New("unknown feed message type")
)

// Feed message types
const (
	TypeKill = "PlayerKill"
	TypeChat = "ChatMessage"
)

var dataPrefix = []byte("data:")

// Decode parses one feed message, an optional SSE "data:" prefix is stripped
func Decode(line []byte) (event.Event, error) {
	line = bytes.TrimSpace(line)
	if rest, ok := bytes.CutPrefix(line, dataPrefix); ok {
		line = bytes.TrimSpace(rest)
	}
	if len(line) == 0 || !gjson.ValidBytes(line) {
		return nil, ErrMalformed
	}

	msg := gjson.ParseBytes(line)
	typ := msg.Get("type")
	body := msg.Get("event")
	if !typ.Exists() || !body.IsObject() {
		return nil, fmt.Errorf("%w: missing type or event body", ErrMalformed)
	}

	switch typ.String() {
	case TypeKill:
		return event.Kill{
			Killer: event.Player{Name: body.Get("killer_name").String(), ID: body.Get("killer_steamid").String()},
			Victim: event.Player{Name: body.Get("victim_name").String(), ID: body.Get("victim_steamid").String()},
			Weapon: body.Get("weapon").String(),
			Crit:   body.Get("crit").Bool(),
		}, nil
	case TypeChat:
		return event.Chat{
			Author:  event.Player{Name: body.Get("player_name").String(), ID: body.Get("steamid").String()},
			Message: body.Get("message").String(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ.String())
	}
}
