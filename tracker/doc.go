// Package tracker attributes wall-clock time to execution modes.
//
// Every goroutine that executes guest code owns a Thread. The runtime calls
// Thread.Transition whenever that goroutine switches between interpreted and
// compiled execution; the elapsed time of the mode being left is added to the
// thread's own counter and, atomically, to the process-wide Totals of the
// Tracker the thread belongs to.
//
// # Ownership
//
// A Thread is owned by exactly one goroutine and is never locked. Passing it
// to another goroutine while the owner still uses it is a data race. The
// owner may pin itself to an OS thread with AttachConfig.PinOSThread, which
// also records the kernel thread id for reports.
//
// Threads travel through call chains in a context.Context:
//
//	ctx = tracker.WithThread(ctx, th)
//	...
//	if th := tracker.FromContext(ctx); th != nil {
//	    prev := th.Enter(tracker.Compiled)
//	    defer th.Transition(prev)
//	}
//
// # Modes
//
// Interpreted and Compiled are accounted. Native is reserved for host calls
// and is accounting-inert: entering it leaves the enclosing accounted interval
// open, and leaving it resumes accounting as if Native had never been entered.
//
// # Units
//
// Counters hold nanoseconds of wall-clock time read from package clock.
package tracker
