//go:build !linux

package osthread

// ID returns 0; thread ids are only reported on linux.
func ID() int {
	return 0
}
