// Package system wires the event manager, cooperative runtime, and the
// transport/filesystem models together into the single handle a test
// harness (or the search package) drives. Nothing here needs shared
// ownership across clones; callers that want independent replay state
// construct their own System.
package system

import (
	"sort"
	"time"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/event"
	"github.com/egnees/mc-proto-sub000/fs"
	"github.com/egnees/mc-proto-sub000/rpcmodel"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/tcpmodel"
)

// Env is the escape hatch threaded through every task's
// runtime.Context.Ext, letting the package of free functions (env.go)
// recover the owning System without every runtime-level API needing to know
// this package exists.
type Env struct {
	Sys *System
}

// Config bounds the delay intervals and capacities the constructed models
// use.
type Config struct {
	UdpMinDelay, UdpMaxDelay                     time.Duration
	TimerMinDuration, TimerMaxDuration            time.Duration
	TcpConnectMinDelay, TcpConnectMaxDelay        time.Duration
	TcpDataMinDelay, TcpDataMaxDelay              time.Duration
	TcpControlMinDelay, TcpControlMaxDelay        time.Duration
	RpcMinDelay, RpcMaxDelay                      time.Duration
	RpcControlMinDelay, RpcControlMaxDelay        time.Duration
	FsMinDelay, FsMaxDelay                        time.Duration
	FsCapacity                                    int
}

// Default returns a Config with small, deterministic delay intervals
// suitable for tests that don't care about exact timing.
func Default() Config {
	return Config{
		UdpMinDelay: time.Millisecond, UdpMaxDelay: 10 * time.Millisecond,
		TimerMinDuration: time.Millisecond, TimerMaxDuration: 10 * time.Millisecond,
		TcpConnectMinDelay: time.Millisecond, TcpConnectMaxDelay: 10 * time.Millisecond,
		TcpDataMinDelay: time.Millisecond, TcpDataMaxDelay: 10 * time.Millisecond,
		TcpControlMinDelay: time.Millisecond, TcpControlMaxDelay: 10 * time.Millisecond,
		RpcMinDelay: time.Millisecond, RpcMaxDelay: 10 * time.Millisecond,
		RpcControlMinDelay: time.Millisecond, RpcControlMaxDelay: 10 * time.Millisecond,
		FsMinDelay: time.Millisecond, FsMaxDelay: 10 * time.Millisecond,
		FsCapacity: 1 << 20,
	}
}

// System is the model-level simulated distributed system: a set of nodes
// hosting processes, the transports connecting them, and the event manager
// driving simulated time.
type System struct {
	cfg   Config
	nodes map[string]*Node
	roles map[string]string // node name -> role tag, for hash canonicalization

	rt  *runtime.Runtime
	em  *event.Manager
	tcp *tcpmodel.Manager
	rpc *rpcmodel.Manager

	env *Env
}

// New constructs an empty System with no nodes.
func New(cfg Config) *System {
	sys := &System{
		cfg:   cfg,
		nodes: make(map[string]*Node),
		roles: make(map[string]string),
		rt:    runtime.New(),
	}
	sys.env = &Env{Sys: sys}
	sys.em = event.New(sys.rt, sys, sys, sys.makeContext)
	sys.tcp = tcpmodel.New(sys.em,
		cfg.TcpConnectMinDelay, cfg.TcpConnectMaxDelay,
		cfg.TcpDataMinDelay, cfg.TcpDataMaxDelay,
		cfg.TcpControlMinDelay, cfg.TcpControlMaxDelay)
	sys.rpc = rpcmodel.New(sys.em, cfg.RpcMinDelay, cfg.RpcMaxDelay, cfg.RpcControlMinDelay, cfg.RpcControlMaxDelay)
	return sys
}

// makeContext builds the runtime.Context a task or synchronous dispatch
// runs under, with Ext set to this System's Env so every free function in
// env.go works from it. runtime.Spawn builds its own task Contexts
// internally, never via this func, so the Spawn free function sets Ext on
// those itself.
func (sys *System) makeContext(owner address.Address) *runtime.Context {
	return &runtime.Context{Owner: owner, Ext: sys.env}
}

// Env returns the ambient handle this System installs on every task
// Context it constructs.
func (sys *System) Env() *Env { return sys.env }

// EventManager exposes the underlying event manager for the search
// package's step generator, which must enumerate and select pending events
// directly.
func (sys *System) EventManager() *event.Manager { return sys.em }

// TCP returns the TCP transport model.
func (sys *System) TCP() *tcpmodel.Manager { return sys.tcp }

// RPC returns the RPC transport model.
func (sys *System) RPC() *rpcmodel.Manager { return sys.rpc }

// Now returns the current simulated time.
func (sys *System) Now() time.Duration { return sys.em.Now() }

// Log returns the accumulated lifecycle log.
func (sys *System) Log() *event.Log { return sys.em.Log() }

// Stat returns accumulated transport/timer counters.
func (sys *System) Stat() event.Stat { return sys.em.Stat() }

// NodesCount reports how many nodes are currently registered.
func (sys *System) NodesCount() int { return len(sys.nodes) }

// ---- Recipients / Dispatcher (consumed by event.Manager) ----

// HasProcess implements event.Recipients.
func (sys *System) HasProcess(addr address.Address) bool {
	n, ok := sys.nodes[addr.Node]
	if !ok {
		return false
	}
	_, ok = n.Procs[addr.Process]
	return ok
}

// DeliverUdp implements event.Dispatcher: it resolves the ambient Context
// the manager installed and threads it explicitly into the process handler.
func (sys *System) DeliverUdp(to, from address.Address, content any) {
	n, ok := sys.nodes[to.Node]
	if !ok {
		return
	}
	ps, ok := n.Procs[to.Process]
	if !ok {
		return
	}
	ctx := runtime.CurrentContext()
	ps.Impl.OnMessage(ctx, from, content.(string))
}

// DeliverLocal implements event.Dispatcher for user-submitted local
// messages.
func (sys *System) DeliverLocal(to address.Address, content any) {
	n, ok := sys.nodes[to.Node]
	if !ok {
		return
	}
	ps, ok := n.Procs[to.Process]
	if !ok {
		return
	}
	ctx := runtime.CurrentContext()
	ps.Impl.OnLocalMessage(ctx, content.(string))
}

// appendLocal records content as an observable output of proc, called by
// the free function SendLocal in env.go once a process's handler runs.
func (sys *System) appendLocal(proc address.Address, content string) {
	n, ok := sys.nodes[proc.Node]
	if !ok {
		return
	}
	ps, ok := n.Procs[proc.Process]
	if !ok {
		return
	}
	ps.Locals = append(ps.Locals, content)
	sys.em.LogProcessSentLocalMessage(proc)
}

// ---- node / process registration ----

// AddNode registers a new, role-less node.
func (sys *System) AddNode(name string) error {
	return sys.AddNodeWithRole(name, "")
}

// AddNodeWithRole registers a new node tagged with role, used by canonical
// hashing to fold together symmetric placements.
func (sys *System) AddNodeWithRole(name, role string) error {
	if _, exists := sys.nodes[name]; exists {
		return &Error{Kind: AlreadyExists, Name: name}
	}
	sys.nodes[name] = newNode(name)
	if role != "" {
		sys.roles[name] = role
	}
	return nil
}

// AddProcess registers proc under node/procName. Errs NotFound if the node
// doesn't exist, NodeUnavailable if it's shut down, or AlreadyExists if a
// process is already registered under that name.
func (sys *System) AddProcess(node, procName string, proc Process) (address.Address, error) {
	n, ok := sys.nodes[node]
	if !ok {
		return address.Address{}, &Error{Kind: NotFound, Name: node}
	}
	if n.Shutdown {
		return address.Address{}, &Error{Kind: NodeUnavailable, Name: node}
	}
	if _, exists := n.Procs[procName]; exists {
		return address.Address{}, &Error{Kind: AlreadyExists, Name: procName}
	}
	addr := address.New(node, procName)
	n.Procs[procName] = &ProcessState{Impl: proc, Addr: addr}
	return addr, nil
}

// FS returns the filesystem manager hosted on node, or nil if none has been
// set up (or the node doesn't exist).
func (sys *System) FS(node string) *fs.Manager {
	n, ok := sys.nodes[node]
	if !ok {
		return nil
	}
	return n.FS
}

// SetupFS attaches a filesystem to node.
func (sys *System) SetupFS(node string) error {
	n, ok := sys.nodes[node]
	if !ok {
		return &Error{Kind: NotFound, Name: node}
	}
	if n.FS != nil {
		return &Error{Kind: AlreadyExists, Name: node + ":fs"}
	}
	n.FS = fs.New(node, sys.em, sys.cfg.FsMinDelay, sys.cfg.FsMaxDelay, sys.cfg.FsCapacity)
	return nil
}

// CrashFS destroys node's filesystem contents.
func (sys *System) CrashFS(node string) error {
	n, ok := sys.nodes[node]
	if !ok {
		return &Error{Kind: NotFound, Name: node}
	}
	if n.FS == nil {
		return &Error{Kind: NotFound, Name: node + ":fs"}
	}
	n.FS.Crash()
	sys.em.RecordDiskFault()
	return nil
}

// CrashFSByIndex crashes the filesystem of the i-th node in
// [System.NodeNames] order, failing with NotFound for a node carrying no fs — the
// step generator's CrashDisk step (search package) addresses disks this way
// rather than by node name, matching CrashNodeByIndex's convention.
func (sys *System) CrashFSByIndex(i int) error {
	names := sys.NodeNames()
	if i < 0 || i >= len(names) {
		return &Error{Kind: NotFound, Name: "index out of range"}
	}
	return sys.CrashFS(names[i])
}

// ShutdownFS clears node's pending disk queue but preserves file contents.
func (sys *System) ShutdownFS(node string) error {
	n, ok := sys.nodes[node]
	if !ok {
		return &Error{Kind: NotFound, Name: node}
	}
	if n.FS == nil {
		return &Error{Kind: NotFound, Name: node + ":fs"}
	}
	n.FS.Shutdown()
	return nil
}

// ---- local messages / reads ----

// SendLocalFromUser delivers a user-submitted local message to addr and
// drains the runtime to a fixed point, propagating any process panic.
func (sys *System) SendLocalFromUser(addr address.Address, content string) *event.Panic {
	return sys.em.LocalMessageFromUser(addr, content)
}

// ReadLocals returns a copy of the locals recorded so far for addr.
func (sys *System) ReadLocals(addr address.Address) []string {
	n, ok := sys.nodes[addr.Node]
	if !ok {
		return nil
	}
	ps, ok := n.Procs[addr.Process]
	if !ok {
		return nil
	}
	out := make([]string, len(ps.Locals))
	copy(out, ps.Locals)
	return out
}

// DrainLocals returns and clears the locals recorded so far for addr.
func (sys *System) DrainLocals(addr address.Address) []string {
	n, ok := sys.nodes[addr.Node]
	if !ok {
		return nil
	}
	ps, ok := n.Procs[addr.Process]
	if !ok {
		return nil
	}
	out := ps.Locals
	ps.Locals = nil
	return out
}

// ---- node lifecycle ----

// NodeNames returns node names in stable (sorted) order, so index-addressed
// fault operations (CrashNodeByIndex etc.) are reproducible across replay.
func (sys *System) NodeNames() []string {
	names := make([]string, 0, len(sys.nodes))
	for name := range sys.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeAvailable reports whether node exists and is not shut down.
func (sys *System) NodeAvailable(node string) bool {
	n, ok := sys.nodes[node]
	return ok && !n.Shutdown
}

// CrashNode destroys node entirely: its processes, filesystem, and every
// pending event mentioning it are gone, and its pending tasks are
// cancelled. The returned *event.Panic
// surfaces any process panic raised while cancellation drains the
// runtime — the search package's CrashNode step must observe this rather than
// silently lose it.
func (sys *System) CrashNode(node string) (*event.Panic, error) {
	if _, ok := sys.nodes[node]; !ok {
		return nil, &Error{Kind: NotFound, Name: node}
	}
	delete(sys.roles, node)
	delete(sys.nodes, node)
	sys.em.HandleNodeCrash(node)
	sys.rt.CancelTasks(func(owner runtime.ProcessHandle) bool { return owner.OnNode(node) })
	return sys.RunAsyncTasks(), nil
}

// CrashNodeByIndex crashes the i-th node in [System.NodeNames] order, the
// index-addressed form the search package's CrashNode step uses.
func (sys *System) CrashNodeByIndex(i int) (*event.Panic, error) {
	names := sys.NodeNames()
	if i < 0 || i >= len(names) {
		return nil, &Error{Kind: NotFound, Name: "index out of range"}
	}
	return sys.CrashNode(names[i])
}

// ShutdownNode makes node unavailable without destroying its filesystem: its
// processes are gone (a shutdown node hosts none) but its fs, if any,
// persists under a fresh, empty node record until a restart re-adds
// processes.
func (sys *System) ShutdownNode(node string) (*event.Panic, error) {
	n, ok := sys.nodes[node]
	if !ok {
		return nil, &Error{Kind: NotFound, Name: node}
	}
	if n.FS != nil {
		n.FS.Shutdown()
	}
	sys.em.HandleNodeShutdown(node)
	sys.rt.CancelTasks(func(owner runtime.ProcessHandle) bool { return owner.OnNode(node) })
	pan := sys.RunAsyncTasks()

	fresh := newNode(node)
	fresh.FS = n.FS
	fresh.Shutdown = true
	sys.nodes[node] = fresh
	return pan, nil
}

// ShutdownNodeByIndex is ShutdownNode addressed by [System.NodeNames] order.
func (sys *System) ShutdownNodeByIndex(i int) (*event.Panic, error) {
	names := sys.NodeNames()
	if i < 0 || i >= len(names) {
		return nil, &Error{Kind: NotFound, Name: "index out of range"}
	}
	return sys.ShutdownNode(names[i])
}

// RestartNode clears node's shutdown flag and raises its filesystem, if
// any.
func (sys *System) RestartNode(node string) error {
	n, ok := sys.nodes[node]
	if !ok {
		return &Error{Kind: NotFound, Name: node}
	}
	n.Shutdown = false
	if n.FS != nil {
		n.FS.Raise()
	}
	return nil
}

// ---- driving the event loop ----

// RunAsyncTasks drains the cooperative runtime to a fixed point (exactly
// one task runs at a time until none are ready), reporting the first
// process panic observed, if any.
func (sys *System) RunAsyncTasks() *event.Panic {
	if owner, val, panicked := sys.rt.RunToFixedPoint(sys.makeContext); panicked {
		return &event.Panic{Owner: owner, Value: val}
	}
	return nil
}
