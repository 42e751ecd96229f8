package feed

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/rumble/event"
)

// maxLine bounds a single feed message
const maxLine = 64 * 1024

// Stats summarizes a replay
type Stats struct {
	Lines   int
	Pushed  int
	Dropped int
	Skipped int
}

// ReplayOptions tunes Replay
type ReplayOptions struct {
	// Interval paces pushes, zero replays as fast as the queue accepts
	Interval time.Duration

	Logger *zap.Logger
}

// Replay decodes r line by line and pushes each event onto q
// Malformed and unknown lines are logged and skipped; SSE comment and field lines are ignored
func Replay(ctx context.Context, r io.Reader, q *event.Queue, opts ReplayOptions) (Stats, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("feed")

	var st Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Lines++

		line := bytes.TrimSpace(sc.Bytes())
		if ignorable(line) {
			continue
		}

		ev, err := Decode(line)
		if err != nil {
			st.Skipped++
			log.Debug("skipping line", zap.Int("line", st.Lines), zap.Error(err))
			continue
		}

		if !q.Push(ev) {
			st.Dropped++
			log.Warn("event queue full, dropped", zap.Int("line", st.Lines))
		} else {
			st.Pushed++
		}

		if opts.Interval > 0 {
			if err := sleep(ctx, opts.Interval); err != nil {
				return st, err
			}
		}
	}

	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("feed read: %w", err)
	}
	log.Info("replay finished",
		zap.Int("lines", st.Lines),
		zap.Int("pushed", st.Pushed),
		zap.Int("dropped", st.Dropped),
		zap.Int("skipped", st.Skipped))
	return st, nil
}

// ignorable reports blank lines and SSE lines that carry no event data
func ignorable(line []byte) bool {
	if len(line) == 0 || line[0] == ':' {
		return true
	}
	for _, field := range [][]byte{[]byte("event:"), []byte("id:"), []byte("retry:")} {
		if bytes.HasPrefix(line, field) {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
