package parameter

import "time"

// Dispatch Loop & Queue
const (
	// DispatchPoll is the sleep between empty queue polls on the dispatch path
	DispatchPoll = 5 * time.Millisecond

	// EventQueueSize is the fixed capacity of the event ring buffer, power of two
	EventQueueSize = 256

	// EventBufferMask is the bitmask for fast modulo operations (256 - 1)
	EventBufferMask = EventQueueSize - 1
)

// Worker Lifecycle
const (
	// StopTimeout is the default bounded wait when joining a worker
	StopTimeout = 1 * time.Second

	// ShutdownTimeout bounds the whole session teardown
	ShutdownTimeout = 2 * time.Second
)

// Monitor
const (
	// MonitorRefresh is the terminal dashboard redraw interval
	MonitorRefresh = 100 * time.Millisecond

	// MonitorSignalHistory is the number of recent signals kept for display
	MonitorSignalHistory = 8
)
