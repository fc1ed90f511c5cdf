package search

import (
	"fmt"

	"github.com/egnees/mc-proto-sub000/event"
	"github.com/egnees/mc-proto-sub000/system"
)

// Step is one legal transition out of a System state: select a ready event
// (with an optional drop branch for UDP) or inject a global fault. Steps
// are value types so a Trace can hold, copy, and compare them cheaply.
type Step interface {
	// Apply performs the transition against sys, returning any process
	// panic surfaced during dispatch.
	Apply(sys *system.System) (*event.Panic, error)
	String() string
}

// eventStep addresses one of the system's currently-ready events by its
// index in [event.Manager.PeekReady]/[event.Manager.NextReady] order. An
// index, not an id: selecting ready events positionally keeps the generator
// simple, with no id bookkeeping across steps.
type eventStep struct {
	Index int
}

// selectEvent selects and removes the addressed ready event, erroring if it's not
// of type T — a step applied against a system it wasn't generated from
// (wrong index, different event already consumed) surfaces this rather than
// misdispatching.
func selectEvent[T event.Info](sys *system.System, idx int) (*event.Event, T, error) {
	var zero T
	em := sys.EventManager()
	if idx < 0 || idx >= em.ReadyCount() {
		return nil, zero, fmt.Errorf("search: step index %d out of range (ready count %d)", idx, em.ReadyCount())
	}
	peek := em.PeekReady(idx)
	info, ok := peek.Info.(T)
	if !ok {
		return nil, zero, fmt.Errorf("search: step index %d is %T, not %T", idx, peek.Info, zero)
	}
	ev := em.NextReady(idx)
	return ev, info, nil
}

// SelectUdp delivers (or, if Drop, discards) the Index-th ready UDP
// datagram.
type SelectUdp struct {
	eventStep
	Drop bool
}

func (s SelectUdp) Apply(sys *system.System) (*event.Panic, error) {
	ev, _, err := selectEvent[event.UdpMessage](sys, s.Index)
	if err != nil {
		return nil, err
	}
	if s.Drop {
		sys.EventManager().DropEvent(ev)
		return nil, nil
	}
	return sys.EventManager().HandleEventOutcome(ev), nil
}

func (s SelectUdp) String() string {
	if s.Drop {
		return fmt.Sprintf("SelectUdp(%d, drop)", s.Index)
	}
	return fmt.Sprintf("SelectUdp(%d)", s.Index)
}

// SelectTimer fires the Index-th ready timer.
type SelectTimer struct{ eventStep }

func (s SelectTimer) Apply(sys *system.System) (*event.Panic, error) {
	ev, _, err := selectEvent[event.Timer](sys, s.Index)
	if err != nil {
		return nil, err
	}
	return sys.EventManager().HandleEventOutcome(ev), nil
}

func (s SelectTimer) String() string { return fmt.Sprintf("SelectTimer(%d)", s.Index) }

// SelectTcpPacket delivers the Index-th ready in-flight TCP packet.
type SelectTcpPacket struct{ eventStep }

func (s SelectTcpPacket) Apply(sys *system.System) (*event.Panic, error) {
	ev, _, err := selectEvent[event.TcpMessage](sys, s.Index)
	if err != nil {
		return nil, err
	}
	return sys.EventManager().HandleEventOutcome(ev), nil
}

func (s SelectTcpPacket) String() string { return fmt.Sprintf("SelectTcpPacket(%d)", s.Index) }

// SelectTcpEvent delivers the Index-th ready synthetic TCP control
// notification.
type SelectTcpEvent struct{ eventStep }

func (s SelectTcpEvent) Apply(sys *system.System) (*event.Panic, error) {
	ev, _, err := selectEvent[event.TcpControlEvent](sys, s.Index)
	if err != nil {
		return nil, err
	}
	return sys.EventManager().HandleEventOutcome(ev), nil
}

func (s SelectTcpEvent) String() string { return fmt.Sprintf("SelectTcpEvent(%d)", s.Index) }

// SelectFsEvent delivers the Index-th ready filesystem-operation
// completion.
type SelectFsEvent struct{ eventStep }

func (s SelectFsEvent) Apply(sys *system.System) (*event.Panic, error) {
	ev, _, err := selectEvent[event.FsEvent](sys, s.Index)
	if err != nil {
		return nil, err
	}
	return sys.EventManager().HandleEventOutcome(ev), nil
}

func (s SelectFsEvent) String() string { return fmt.Sprintf("SelectFsEvent(%d)", s.Index) }

// SelectRpcMessage delivers the Index-th ready in-flight RPC message.
type SelectRpcMessage struct{ eventStep }

func (s SelectRpcMessage) Apply(sys *system.System) (*event.Panic, error) {
	ev, _, err := selectEvent[event.RpcMessage](sys, s.Index)
	if err != nil {
		return nil, err
	}
	return sys.EventManager().HandleEventOutcome(ev), nil
}

func (s SelectRpcMessage) String() string { return fmt.Sprintf("SelectRpcMessage(%d)", s.Index) }

// SelectRpcEvent delivers the Index-th ready synthetic RPC control
// notification.
type SelectRpcEvent struct{ eventStep }

func (s SelectRpcEvent) Apply(sys *system.System) (*event.Panic, error) {
	ev, _, err := selectEvent[event.RpcEvent](sys, s.Index)
	if err != nil {
		return nil, err
	}
	return sys.EventManager().HandleEventOutcome(ev), nil
}

func (s SelectRpcEvent) String() string { return fmt.Sprintf("SelectRpcEvent(%d)", s.Index) }

// nodeStep addresses one of the system's currently-registered nodes by its
// [system.System.NodeNames] index.
type nodeStep struct {
	Index int
}

// CrashNode destroys the Index-th node entirely.
type CrashNode struct{ nodeStep }

func (s CrashNode) Apply(sys *system.System) (*event.Panic, error) {
	return sys.CrashNodeByIndex(s.Index)
}

func (s CrashNode) String() string { return fmt.Sprintf("CrashNode(%d)", s.Index) }

// ShutdownNode makes the Index-th node unavailable without destroying its
// filesystem.
type ShutdownNode struct{ nodeStep }

func (s ShutdownNode) Apply(sys *system.System) (*event.Panic, error) {
	return sys.ShutdownNodeByIndex(s.Index)
}

func (s ShutdownNode) String() string { return fmt.Sprintf("ShutdownNode(%d)", s.Index) }

// RestartNode clears the Index-th node's shutdown flag. Never emitted by
// Generate (it would let the search undo faults without bound, exploding
// the reachable state space) — available only for a Checker.Apply scenario
// that scripts a crash/restart sequence by hand.
type RestartNode struct{ nodeStep }

func (s RestartNode) Apply(sys *system.System) (*event.Panic, error) {
	names := sys.NodeNames()
	if s.Index < 0 || s.Index >= len(names) {
		return nil, fmt.Errorf("search: RestartNode index %d out of range", s.Index)
	}
	return nil, sys.RestartNode(names[s.Index])
}

func (s RestartNode) String() string { return fmt.Sprintf("RestartNode(%d)", s.Index) }

// CrashDisk destroys the filesystem contents of the Index-th node.
type CrashDisk struct{ nodeStep }

func (s CrashDisk) Apply(sys *system.System) (*event.Panic, error) {
	return nil, sys.CrashFSByIndex(s.Index)
}

func (s CrashDisk) String() string { return fmt.Sprintf("CrashDisk(%d)", s.Index) }

// ApplyStep applies s against sys; a thin named indirection so callers
// needn't type-assert Step to call its Apply method directly.
func ApplyStep(sys *system.System, s Step) (*event.Panic, error) {
	return s.Apply(sys)
}

// The constructors below build Step values directly. Generate is the
// normal source of Steps during a search; these exist for callers (e.g.
// Checker.Apply) scripting a specific step by hand, since eventStep and
// nodeStep are unexported and so can't be named in a composite literal
// outside this package.

func NewSelectUdp(index int, drop bool) SelectUdp {
	return SelectUdp{eventStep: eventStep{Index: index}, Drop: drop}
}

func NewSelectTimer(index int) SelectTimer { return SelectTimer{eventStep{Index: index}} }

func NewSelectTcpPacket(index int) SelectTcpPacket { return SelectTcpPacket{eventStep{Index: index}} }

func NewSelectTcpEvent(index int) SelectTcpEvent { return SelectTcpEvent{eventStep{Index: index}} }

func NewSelectFsEvent(index int) SelectFsEvent { return SelectFsEvent{eventStep{Index: index}} }

func NewSelectRpcMessage(index int) SelectRpcMessage {
	return SelectRpcMessage{eventStep{Index: index}}
}

func NewSelectRpcEvent(index int) SelectRpcEvent { return SelectRpcEvent{eventStep{Index: index}} }

func NewCrashNode(index int) CrashNode { return CrashNode{nodeStep{Index: index}} }

func NewShutdownNode(index int) ShutdownNode { return ShutdownNode{nodeStep{Index: index}} }

func NewRestartNode(index int) RestartNode { return RestartNode{nodeStep{Index: index}} }

func NewCrashDisk(index int) CrashDisk { return CrashDisk{nodeStep{Index: index}} }
