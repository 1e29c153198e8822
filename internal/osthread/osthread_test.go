package osthread

import (
	"runtime"
	"testing"
)

func TestPin_StableID(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		id := Pin()
		defer Unpin()

		for i := 0; i < 100; i++ {
			runtime.Gosched()
			if got := ID(); got != id {
				t.Errorf("pinned goroutine moved threads: %d -> %d", id, got)
				return
			}
		}
	}()
	<-done
}
