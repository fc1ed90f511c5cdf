package system

import (
	"time"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/fs"
	"github.com/egnees/mc-proto-sub000/rpcmodel"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/tcpmodel"
	"github.com/egnees/mc-proto-sub000/tracker"
)

// envOf recovers the System a task is running under from ctx.Ext, panicking
// if none was installed — every entry point into this file is only ever
// reachable from code running under a Context [System] itself constructed
// (via makeContext or Spawn below), so a missing Env means a caller built
// its own bare runtime.Context instead of going through this package.
func envOf(ctx *runtime.Context) *Env {
	env, ok := ctx.Ext.(*Env)
	if !ok || env == nil {
		panic("system: ctx not installed by this package (ctx.Ext is not *system.Env)")
	}
	return env
}

// Self returns the address of the process owning ctx.
func Self(ctx *runtime.Context) address.Address {
	return ctx.Owner
}

// Send emits a UDP datagram from ctx's owner to addr, a fire-and-forget
// operation with no completion to await.
func Send(ctx *runtime.Context, addr address.Address, content string) {
	sys := envOf(ctx).Sys
	sys.em.EmitUdp(ctx.Owner, addr, content, sys.cfg.UdpMinDelay, sys.cfg.UdpMaxDelay)
}

// SendLocal emits content as one of ctx's owner's observable local
// outputs.
func SendLocal(ctx *runtime.Context, content string) {
	envOf(ctx).Sys.appendLocal(ctx.Owner, content)
}

// Sleep suspends the calling task until a timer fires somewhere in
// [minDuration, maxDuration] from now.
func Sleep(ctx *runtime.Context, minDuration, maxDuration time.Duration) {
	sys := envOf(ctx).Sys
	waiter := sys.em.RegisterSleep(ctx.Owner, minDuration, maxDuration)
	runtime.Await[struct{}](ctx, waiter)
}

// SetTimer registers a bare timer without parking a task on it. When the
// timer fires it is only logged: the process is not notified.
func SetTimer(ctx *runtime.Context, minDuration, maxDuration time.Duration) tracker.EventID {
	sys := envOf(ctx).Sys
	return sys.em.SetTimer(ctx.Owner, minDuration, maxDuration)
}

// CancelTimer cancels a timer previously returned by [SetTimer].
func CancelTimer(ctx *runtime.Context, id tracker.EventID) bool {
	return envOf(ctx).Sys.em.CancelEvent(id)
}

// Info records a free-form diagnostic tag in the domain-level log,
// distinct from internal/diag's operational tracing.
func Info(ctx *runtime.Context, tag string) {
	envOf(ctx).Sys.em.LogProcessInfo(ctx.Owner, tag)
}

// Spawn starts f as a new cooperative task owned by ctx's owner, installing
// this package's Env on the task's own Context so nested calls to these free
// functions work — runtime.Spawn itself never sets Ext, since the runtime
// package has no notion of this package's Env.
func Spawn[T any](ctx *runtime.Context, f func(taskCtx *runtime.Context) T) *runtime.JoinHandle[T] {
	env := envOf(ctx)
	// env.Sys.rt, not ctx.Runtime(): ctx may be a synchronous dispatch
	// context System built by hand (e.g. the one wrapping a call to
	// Process.OnMessage), which has no task/runtime of its own to report.
	return runtime.Spawn(env.Sys.rt, ctx.Owner, func(taskCtx *runtime.Context) T {
		taskCtx.Ext = env
		return f(taskCtx)
	})
}

// TCP returns the TCP transport model, for processes that open listeners
// or connections directly.
func TCP(ctx *runtime.Context) *tcpmodel.Manager {
	return envOf(ctx).Sys.tcp
}

// RPC returns the RPC transport model.
func RPC(ctx *runtime.Context) *rpcmodel.Manager {
	return envOf(ctx).Sys.rpc
}

// FileSystem returns the filesystem manager hosted on ctx's owner's node,
// or nil if none was set up.
func FileSystem(ctx *runtime.Context) *fs.Manager {
	return envOf(ctx).Sys.FS(ctx.Owner.Node)
}
