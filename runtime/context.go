package runtime

import (
	"sync/atomic"

	"github.com/egnees/mc-proto-sub000/address"
)

// ProcessHandle identifies the process that owns a task. The runtime never
// interprets it beyond passing it to cancellation predicates and exposing it
// from [Context] and [Runtime.NextTaskOwner]; callers attach whatever
// meaning they need (node membership, in particular) on top. It is the same
// shape as address.Address, since a task's owner is always a process.
type ProcessHandle = address.Address

// Context is installed (via [Install]) before every task poll and before
// every synchronous Process handler invocation, playing the role of a
// thread-local scope guard. Ext is a deliberate escape hatch: the
// runtime package must not import the event manager or filesystem packages
// (that would invert the module's layering), so callers that need to reach
// those from inside a task stash their own handle value here and recover it
// with a type assertion.
type Context struct {
	rt     *Runtime
	taskID TaskID
	Owner  ProcessHandle
	Ext    any
}

// Runtime returns the runtime that owns this context's task.
func (c *Context) Runtime() *Runtime { return c.rt }

// TaskID returns the id of the task this context was installed for.
func (c *Context) TaskID() TaskID { return c.taskID }

var current atomic.Pointer[Context]

// Guard releases the installed context when dropped, via [Guard.Release].
type Guard struct{}

// Install installs ctx as the current context. Re-entrant installation (a
// context already installed, not yet released) is a programmer error and
// panics immediately: nested context installation must never span a
// suspension point.
func Install(ctx *Context) *Guard {
	if !current.CompareAndSwap(nil, ctx) {
		panic("runtime: re-entrant context installation")
	}
	return &Guard{}
}

// Release resets the current context. Safe to call exactly once per Guard.
func (g *Guard) Release() {
	current.Store(nil)
}

// CurrentContext returns the installed context, panicking if none is
// installed: every code path that can reach here (task bodies, Process
// handler dispatch) is only ever invoked from under a [Guard].
func CurrentContext() *Context {
	ctx := current.Load()
	if ctx == nil {
		panic("runtime: no context installed")
	}
	return ctx
}

// TryCurrentContext returns the installed context and whether one is set,
// without panicking; used by diagnostics and tests.
func TryCurrentContext() (*Context, bool) {
	ctx := current.Load()
	return ctx, ctx != nil
}
