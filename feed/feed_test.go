package feed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lixenwraith/rumble/event"
	"github.com/lixenwraith/rumble/parameter"
)

const (
	killLine = `{"type":"PlayerKill","event":{"killer_name":"Heavy","killer_steamid":"P","victim_name":"Scout","victim_steamid":"S","weapon":"minigun","crit":true}}`
	chatLine = `data: {"type":"ChatMessage","event":{"player_name":"Scout","steamid":"S","message":"nice one heavy"}}`
)

// TestDecodeKill verifies kill messages map onto event.Kill
func TestDecodeKill(t *testing.T) {
	ev, err := Decode([]byte(killLine))
	require.NoError(t, err)
	assert.Equal(t, event.Kill{
		Killer: event.Player{Name: "Heavy", ID: "P"},
		Victim: event.Player{Name: "Scout", ID: "S"},
		Weapon: "minigun",
		Crit:   true,
	}, ev)
}

// TestDecodeChat verifies chat messages with an SSE prefix map onto event.Chat
func TestDecodeChat(t *testing.T) {
	ev, err := Decode([]byte(chatLine))
	require.NoError(t, err)
	assert.Equal(t, event.Chat{
		Author:  event.Player{Name: "Scout", ID: "S"},
		Message: "nice one heavy",
	}, ev)
}

// TestDecodeErrors verifies malformed and unknown messages are classified
func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"empty", "", ErrMalformed},
		{"not json", "hello", ErrMalformed},
		{"truncated", `{"type":"PlayerKill","event":{`, ErrMalformed},
		{"no type", `{"event":{}}`, ErrMalformed},
		{"no body", `{"type":"PlayerKill"}`, ErrMalformed},
		{"body not object", `{"type":"PlayerKill","event":3}`, ErrMalformed},
		{"unknown type", `{"type":"RoundEnd","event":{}}`, ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.line))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestReplay verifies events are pushed in order and bad lines are skipped
func TestReplay(t *testing.T) {
	input := strings.Join([]string{
		": keepalive",
		"event: message",
		killLine,
		"",
		"garbage",
		chatLine,
		`{"type":"RoundEnd","event":{}}`,
	}, "\n")

	q := event.NewQueue()
	st, err := Replay(context.Background(), strings.NewReader(input), q, ReplayOptions{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, Stats{Lines: 7, Pushed: 2, Skipped: 2}, st)

	ev, ok := q.TryPop()
	require.True(t, ok)
	assert.IsType(t, event.Kill{}, ev)
	ev, ok = q.TryPop()
	require.True(t, ok)
	assert.IsType(t, event.Chat{}, ev)
	_, ok = q.TryPop()
	assert.False(t, ok)
}

// TestReplayFullQueue verifies overflow is counted as dropped
func TestReplayFullQueue(t *testing.T) {
	lines := make([]string, parameter.EventQueueSize+5)
	for i := range lines {
		lines[i] = killLine
	}
	q := event.NewQueue()
	st, err := Replay(context.Background(), strings.NewReader(strings.Join(lines, "\n")), q, ReplayOptions{})
	require.NoError(t, err)
	assert.Equal(t, parameter.EventQueueSize, st.Pushed)
	assert.Equal(t, 5, st.Dropped)
}

// TestReplayCancelled verifies a paced replay stops with its context
func TestReplayCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	input := strings.Repeat(killLine+"\n", 100)
	q := event.NewQueue()
	st, err := Replay(ctx, strings.NewReader(input), q, ReplayOptions{Interval: 10 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, st.Pushed, 100)
}
