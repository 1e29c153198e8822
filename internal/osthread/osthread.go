// Package osthread pins goroutines to OS threads and reports thread ids.
package osthread

import "runtime"

// Pin locks the calling goroutine to its current OS thread and returns the
// thread id, or 0 where the platform has no cheap way to ask.
func Pin() int {
	runtime.LockOSThread()
	return ID()
}

// Unpin undoes one Pin.
func Unpin() {
	runtime.UnlockOSThread()
}
