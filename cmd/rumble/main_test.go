package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/rumble/monitor"
)

// TestParseFlags verifies defaults and sink validation
func TestParseFlags(t *testing.T) {
	o, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "log", o.sinkName)
	assert.Equal(t, 2*time.Second, o.linger)
	assert.False(t, o.monitor)

	o, err = parseFlags([]string{"-sink", "tone", "-feed", "-", "-metrics", ":9100", "-pace", "10ms"})
	require.NoError(t, err)
	assert.Equal(t, "tone", o.sinkName)
	assert.Equal(t, "-", o.feedPath)
	assert.Equal(t, ":9100", o.metricsAddr)
	assert.Equal(t, 10*time.Millisecond, o.pace)

	_, err = parseFlags([]string{"-sink", "serial"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-h"})
	assert.ErrorIs(t, err, flag.ErrHelp)
}

// TestExpectedExit verifies which errors count as a clean exit
func TestExpectedExit(t *testing.T) {
	assert.True(t, expectedExit(monitor.ErrQuit))
	assert.True(t, expectedExit(fmt.Errorf("group: %w", errFeedDone)))
	assert.True(t, expectedExit(context.Canceled))
	assert.False(t, expectedExit(errors.New("listen tcp: address in use")))
}

// TestRunReplaysFeed verifies a file feed is mixed and the process exits cleanly
func TestRunReplaysFeed(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("RUMBLE_PLAYER_NAME", "Heavy")

	feedPath := filepath.Join(dir, "feed.log")
	body := `data: {"type":"PlayerKill","event":{"killer_name":"Heavy","killer_steamid":"","victim_name":"Scout","victim_steamid":"","weapon":"minigun","crit":false}}
data: {"type":"ChatMessage","event":{"player_name":"Scout","steamid":"","message":"nice one heavy"}}
`
	require.NoError(t, os.WriteFile(feedPath, []byte(body), 0o644))

	assert.Equal(t, 0, run([]string{"-feed", feedPath, "-linger", "50ms"}))
}

// TestRunBadConfig verifies configuration errors exit with usage status
func TestRunBadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RUMBLE_PLAYER_NAME", "")
	t.Setenv("RUMBLE_PLAYER_ID", "")
	assert.Equal(t, 2, run(nil))
}
