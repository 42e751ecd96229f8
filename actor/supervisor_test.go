package actor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

// fakeActor records lifecycle calls into a shared journal
type fakeActor struct {
	name     string
	journal  *journal
	startErr error
	stopErr  error
}

type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.calls = append(j.calls, s)
	j.mu.Unlock()
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

func (f *fakeActor) Start() error {
	f.journal.add("start:" + f.name)
	return f.startErr
}

func (f *fakeActor) Stop(time.Duration) error {
	f.journal.add("stop:" + f.name)
	return f.stopErr
}

func (f *fakeActor) ForceStop() {
	f.journal.add("force:" + f.name)
}

func newFake(j *journal, name string) *fakeActor {
	return &fakeActor{name: name, journal: j}
}

// TestSupervisorLifecycle verifies single-entry transitions and their errors
func TestSupervisorLifecycle(t *testing.T) {
	j := &journal{}
	s := NewSupervisor(WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, s.Register("a", newFake(j, "a")))

	st, err := s.State("a")
	require.NoError(t, err)
	assert.Equal(t, NotStarted, st)

	assert.ErrorIs(t, s.Stop("a"), ErrNotRunning)
	require.NoError(t, s.Start("a"))
	assert.ErrorIs(t, s.Start("a"), ErrNotStartable)

	st, _ = s.State("a")
	assert.Equal(t, Running, st)

	require.NoError(t, s.Stop("a"))
	st, _ = s.State("a")
	assert.Equal(t, Stopped, st)

	assert.ErrorIs(t, s.Start("a"), ErrNotStartable)
	assert.ErrorIs(t, s.Stop("a"), ErrNotRunning)
	assert.Equal(t, []string{"start:a", "stop:a"}, j.snapshot())
}

// TestSupervisorUnknown verifies unknown names are rejected
func TestSupervisorUnknown(t *testing.T) {
	s := NewSupervisor()
	assert.ErrorIs(t, s.Start("ghost"), ErrUnknownActor)
	assert.ErrorIs(t, s.Stop("ghost"), ErrUnknownActor)
	assert.ErrorIs(t, s.StartLast(), ErrUnknownActor)
	_, err := s.State("ghost")
	assert.ErrorIs(t, err, ErrUnknownActor)
	_, ok := s.Get("ghost")
	assert.False(t, ok)
}

// TestSupervisorReplaceRunning verifies replacing a running actor stops it first
func TestSupervisorReplaceRunning(t *testing.T) {
	j := &journal{}
	s := NewSupervisor()
	old := newFake(j, "old")
	require.NoError(t, s.Register("x", old))
	require.NoError(t, s.Start("x"))

	replacement := newFake(j, "new")
	require.NoError(t, s.Register("x", replacement))

	st, _ := s.State("x")
	assert.Equal(t, NotStarted, st)
	got, ok := s.Get("x")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Equal(t, []string{"start:old", "stop:old"}, j.snapshot())
	assert.Equal(t, []string{"x"}, s.Names())
}

// TestSupervisorReplaceNotStarted verifies replacing an idle actor does not stop it
func TestSupervisorReplaceNotStarted(t *testing.T) {
	j := &journal{}
	s := NewSupervisor()
	require.NoError(t, s.Register("x", newFake(j, "old")))
	require.NoError(t, s.Register("x", newFake(j, "new")))
	assert.Empty(t, j.snapshot())
}

// TestSupervisorBulkOrder verifies start in registration order and stop in reverse
func TestSupervisorBulkOrder(t *testing.T) {
	j := &journal{}
	s := NewSupervisor()
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, s.Register(n, newFake(j, n)))
	}

	require.NoError(t, s.Start("b"))
	require.NoError(t, s.StartAll())
	require.NoError(t, s.StopAll())

	assert.Equal(t, []string{
		"start:b",
		"start:a", "start:c",
		"stop:c", "stop:b", "stop:a",
	}, j.snapshot())

	// Everything is Stopped, both bulk operations are silent no-ops
	require.NoError(t, s.StartAll())
	require.NoError(t, s.StopAll())
	assert.Len(t, j.snapshot(), 6)
}

// TestSupervisorBulkErrors verifies worker errors are aggregated without halting the pass
func TestSupervisorBulkErrors(t *testing.T) {
	j := &journal{}
	s := NewSupervisor()
	errA := errors.New("a exploded")
	errC := errors.New("c exploded")

	a := newFake(j, "a")
	a.startErr = errA
	c := newFake(j, "c")
	c.stopErr = errC
	require.NoError(t, s.Register("a", a))
	require.NoError(t, s.Register("b", newFake(j, "b")))
	require.NoError(t, s.Register("c", c))

	err := s.StartAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.Len(t, multierr.Errors(err), 1)

	st, _ := s.State("a")
	assert.Equal(t, NotStarted, st)

	err = s.StopAll()
	assert.ErrorIs(t, err, errC)
	st, _ = s.State("c")
	assert.Equal(t, Stopped, st, "abandoned or failed stop still transitions")
}

// TestSupervisorAbandoned verifies a timed-out stop surfaces ErrAbandoned
func TestSupervisorAbandoned(t *testing.T) {
	j := &journal{}
	s := NewSupervisor(WithStopTimeout(10 * time.Millisecond))
	slow := newFake(j, "slow")
	slow.stopErr = ErrAbandoned
	require.NoError(t, s.Register("slow", slow))
	require.NoError(t, s.Start("slow"))

	err := s.Stop("slow")
	assert.ErrorIs(t, err, ErrAbandoned)
	st, _ := s.State("slow")
	assert.Equal(t, Stopped, st)
}

// TestSupervisorStartLast verifies the most recent registration is started
func TestSupervisorStartLast(t *testing.T) {
	j := &journal{}
	s := NewSupervisor()
	require.NoError(t, s.Register("a", newFake(j, "a")))
	require.NoError(t, s.Register("b", newFake(j, "b")))

	require.NoError(t, s.StartLast())
	assert.Equal(t, []string{"start:b"}, j.snapshot())
	assert.ErrorIs(t, s.StartLast(), ErrNotStartable)
}

// TestSupervisorForceStopAll verifies running actors are signalled without join
func TestSupervisorForceStopAll(t *testing.T) {
	j := &journal{}
	s := NewSupervisor()
	require.NoError(t, s.Register("a", newFake(j, "a")))
	require.NoError(t, s.Register("b", newFake(j, "b")))
	require.NoError(t, s.Start("a"))

	s.ForceStopAll()
	assert.Equal(t, []string{"start:a", "force:a"}, j.snapshot())

	st, _ := s.State("a")
	assert.Equal(t, Stopped, st)
	st, _ = s.State("b")
	assert.Equal(t, NotStarted, st)
}

// TestStateString verifies state names
func TestStateString(t *testing.T) {
	assert.Equal(t, "not_started", NotStarted.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "unknown", State(99).String())
}
