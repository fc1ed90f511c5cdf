package runtime

import stdruntime "runtime"

// goexit terminates the calling goroutine after running its deferred calls,
// used to unwind an aborted task's Await call cleanly without ever resuming
// past the cancellation point. Isolated in its own file/name so the import
// alias needed to avoid colliding with this package's own name stays local.
func goexit() {
	stdruntime.Goexit()
}
