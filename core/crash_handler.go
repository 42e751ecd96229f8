package core

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync/atomic"
)

// CrashHandler receives a recovered panic value, the goroutine name and its stack
type CrashHandler func(name string, r any, stack []byte)

var crashHandler atomic.Pointer[CrashHandler]

// SetCrashHandler replaces the process-wide crash handler, nil restores the default
// The CLI installs one that restores the terminal before exiting
func SetCrashHandler(h CrashHandler) {
	if h == nil {
		crashHandler.Store(nil)
		return
	}
	crashHandler.Store(&h)
}

// HandleCrash routes a recovered panic to the installed handler
// Default prints the stack trace to stderr and exits the process
func HandleCrash(name string, r any) {
	if r == nil {
		return
	}
	stack := debug.Stack()

	if h := crashHandler.Load(); h != nil {
		(*h)(name, r, stack)
		return
	}

	os.Stdout.Sync()
	fmt.Fprintf(os.Stderr, "\n\x1b[31mCRASH DETECTED in %s: %v\x1b[0m\n", name, r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", stack)
	os.Stderr.Sync()

	os.Exit(1)
}

// Go runs fn in a new goroutine with panic recovery
// Use this instead of the 'go' keyword for long-lived workers
func Go(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(name, r)
			}
		}()
		fn()
	}()
}
