package interp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/rumble/parameter"
)

// recorder collects applied values
type recorder struct {
	mu     sync.Mutex
	values []float64
}

func (r *recorder) apply(v float64) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

func waitDone(t *testing.T, s *Slider, timeout time.Duration) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(timeout):
		t.Fatalf("slider did not finish within %s: %s", timeout, s)
	}
}

// TestSliderReachesTarget verifies upward and downward slides end within epsilon of target
func TestSliderReachesTarget(t *testing.T) {
	tests := []struct {
		name     string
		start    float64
		target   float64
		duration time.Duration
	}{
		{"up", 0.1, 0.5, 60 * time.Millisecond},
		{"down", 0.9, 0.2, 60 * time.Millisecond},
		{"full range", 0, 1, 100 * time.Millisecond},
		{"tiny", 0.5, 0.51, 40 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			s := New(tt.start, tt.target, tt.duration, rec.apply)
			require.NoError(t, s.Start())
			waitDone(t, s, 2*time.Second)

			assert.True(t, s.Complete())
			assert.False(t, s.Cancelled())
			assert.InDelta(t, tt.target, s.Value(), parameter.SliderEpsilon)
			assert.Equal(t, time.Duration(0), s.TimeRemaining())

			values := rec.snapshot()
			require.NotEmpty(t, values)
			for i, v := range values {
				if tt.target > tt.start {
					assert.LessOrEqual(t, v, tt.target, "value %d overshoots", i)
					if i > 0 {
						assert.GreaterOrEqual(t, v, values[i-1], "value %d moves backward", i)
					}
				} else {
					assert.GreaterOrEqual(t, v, tt.target, "value %d overshoots", i)
					if i > 0 {
						assert.LessOrEqual(t, v, values[i-1], "value %d moves backward", i)
					}
				}
			}
		})
	}
}

// TestSliderTimeRemainingMonotonic verifies remaining time never increases and is never negative
func TestSliderTimeRemainingMonotonic(t *testing.T) {
	s := New(0, 1, 80*time.Millisecond, nil)
	require.NoError(t, s.Start())

	last := s.TimeRemaining()
	for !s.Complete() {
		r := s.TimeRemaining()
		assert.GreaterOrEqual(t, r, time.Duration(0))
		assert.LessOrEqual(t, r, last)
		last = r
		time.Sleep(time.Millisecond)
	}
	waitDone(t, s, time.Second)
	assert.Equal(t, time.Duration(0), s.TimeRemaining())
}

// TestSliderCancel verifies cancellation joins the worker and stops further writes
func TestSliderCancel(t *testing.T) {
	rec := &recorder{}
	s := New(0, 1, 5*time.Second, rec.apply)
	require.NoError(t, s.Start())

	time.Sleep(30 * time.Millisecond)
	s.Cancel()

	select {
	case <-s.Done():
	default:
		t.Fatal("cancel returned before worker exited")
	}
	assert.True(t, s.Cancelled())
	assert.False(t, s.Complete())

	applied := len(rec.snapshot())
	frozen := s.Value()
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, rec.snapshot(), applied)
	assert.Equal(t, frozen, s.Value())
	assert.Less(t, frozen, 1.0)

	// Idempotent
	s.Cancel()
	assert.True(t, s.Cancelled())
}

// TestSliderCancelConcurrent verifies simultaneous cancels all return after the worker exits
func TestSliderCancelConcurrent(t *testing.T) {
	s := New(0, 1, 5*time.Second, nil)
	require.NoError(t, s.Start())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Cancel()
		}()
	}
	wg.Wait()

	select {
	case <-s.Done():
	default:
		t.Fatal("worker still running after concurrent cancel")
	}
}

// TestSliderCancelCompleted verifies cancel on a finished slide is a no-op
func TestSliderCancelCompleted(t *testing.T) {
	s := New(0.2, 0.3, 20*time.Millisecond, nil)
	require.NoError(t, s.Start())
	waitDone(t, s, time.Second)

	v := s.Value()
	s.Cancel()
	assert.True(t, s.Complete())
	assert.Equal(t, v, s.Value())
}

// TestSliderStartErrors verifies lifecycle misuse is rejected
func TestSliderStartErrors(t *testing.T) {
	s := New(0, 1, time.Second, nil)
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)
	s.Cancel()

	c := New(0, 1, time.Second, nil)
	c.Cancel()
	assert.ErrorIs(t, c.Start(), ErrCancelled)
	c.Join()
}

// TestSliderNoOp verifies equal start and target completes without applying
func TestSliderNoOp(t *testing.T) {
	rec := &recorder{}
	s := New(0.4, 0.4, time.Second, rec.apply)
	require.NoError(t, s.Start())
	waitDone(t, s, 100*time.Millisecond)

	assert.True(t, s.Complete())
	assert.Empty(t, rec.snapshot())
	assert.Equal(t, 0, s.Direction())
}

// TestSliderZeroDuration verifies a non-positive duration jumps to target with one apply
func TestSliderZeroDuration(t *testing.T) {
	rec := &recorder{}
	s := New(0.1, 0.7, 0, rec.apply)
	require.NoError(t, s.Start())
	waitDone(t, s, time.Second)

	assert.True(t, s.Complete())
	assert.Equal(t, []float64{0.7}, rec.snapshot())
	assert.Equal(t, 0.7, s.Value())
}

// TestSliderJoinUnstarted verifies join does not block on an unstarted slider
func TestSliderJoinUnstarted(t *testing.T) {
	s := New(0, 1, time.Second, nil)
	done := make(chan struct{})
	go func() {
		s.Join()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("join blocked on unstarted slider")
	}
}

// TestSliderDirection verifies direction and magnitude comparison
func TestSliderDirection(t *testing.T) {
	up := New(0.1, 0.5, time.Second, nil)
	upHigher := New(0.2, 0.8, time.Second, nil)
	down := New(0.6, 0.1, time.Second, nil)
	downLower := New(0.9, 0.05, time.Second, nil)
	flat := New(0.3, 0.3, time.Second, nil)

	assert.Equal(t, 1, up.Direction())
	assert.Equal(t, -1, down.Direction())
	assert.Equal(t, 0, flat.Direction())
	assert.True(t, up.MatchesDirection(upHigher))
	assert.False(t, up.MatchesDirection(down))

	greater, err := upHigher.GreaterMagnitude(up)
	require.NoError(t, err)
	assert.True(t, greater)

	greater, err = up.GreaterMagnitude(upHigher)
	require.NoError(t, err)
	assert.False(t, greater)

	greater, err = downLower.GreaterMagnitude(down)
	require.NoError(t, err)
	assert.True(t, greater)

	greater, err = flat.GreaterMagnitude(New(0.3, 0.3, 0, nil))
	require.NoError(t, err)
	assert.True(t, greater)

	_, err = up.GreaterMagnitude(down)
	assert.ErrorIs(t, err, ErrDirectionMismatch)
}
