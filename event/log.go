package event

import (
	"fmt"
	"strings"

	"github.com/egnees/mc-proto-sub000/address"
)

// NetKind identifies which transport a network log entry concerns.
type NetKind int

const (
	NetUdp NetKind = iota
	NetTcp
	NetRpc
)

func (k NetKind) String() string {
	switch k {
	case NetUdp:
		return "Udp"
	case NetTcp:
		return "Tcp"
	case NetRpc:
		return "Rpc"
	default:
		return "Unknown"
	}
}

// NetOutcome is the lifecycle stage a network log entry records.
type NetOutcome int

const (
	NetSent NetOutcome = iota
	NetReceived
	NetDropped
)

func (o NetOutcome) String() string {
	switch o {
	case NetSent:
		return "Sent"
	case NetReceived:
		return "Received"
	case NetDropped:
		return "Dropped"
	default:
		return "Unknown"
	}
}

// FilePhase is the lifecycle stage a filesystem log entry records.
type FilePhase int

const (
	FileRequested FilePhase = iota
	FileInitiated
	FileCompleted
)

func (p FilePhase) String() string {
	switch p {
	case FileRequested:
		return "Requested"
	case FileInitiated:
		return "Initiated"
	case FileCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// LogEntry is one line of the append-only, replay-independent event log
// produced as a byproduct of driving the system; it is returned data, never
// routed through the ambient structured logger.
type LogEntry interface {
	isLogEntry()
}

// NetEvent records a Sent/Received/Dropped transition for a UDP, TCP, or
// RPC message.
type NetEvent struct {
	Kind    NetKind
	Outcome NetOutcome
	MsgID   uint64
	From, To address.Address
}

func (NetEvent) isLogEntry() {}

// FutureFellAsleep records a task parking on a sleep() registration.
type FutureFellAsleep struct{ Proc address.Address }

func (FutureFellAsleep) isLogEntry() {}

// FutureWokeUp records a parked sleep() task resuming.
type FutureWokeUp struct{ Proc address.Address }

func (FutureWokeUp) isLogEntry() {}

// TimerSet records a timer's registration.
type TimerSet struct {
	TimerID uint64
	Proc    address.Address
}

func (TimerSet) isLogEntry() {}

// TimerFired records a timer reaching its deadline.
type TimerFired struct {
	TimerID uint64
	Proc    address.Address
}

func (TimerFired) isLogEntry() {}

// TimerCancelled records an explicit or crash/shutdown-induced timer
// cancellation.
type TimerCancelled struct {
	TimerID uint64
	Proc    address.Address
}

func (TimerCancelled) isLogEntry() {}

// ProcessSentLocalMessage records a process handing a message to its
// node's local outbox.
type ProcessSentLocalMessage struct{ Proc address.Address }

func (ProcessSentLocalMessage) isLogEntry() {}

// ProcessReceivedLocalMessage records a user-submitted local message being
// delivered to a process.
type ProcessReceivedLocalMessage struct{ Proc address.Address }

func (ProcessReceivedLocalMessage) isLogEntry() {}

// ProcessInfo records an arbitrary diagnostic tag emitted by a Process
// implementation.
type ProcessInfo struct {
	Proc address.Address
	Tag  string
}

func (ProcessInfo) isLogEntry() {}

// NodeCrashed records a node crash, which destroys its filesystem and
// cancels its tasks.
type NodeCrashed struct{ Node string }

func (NodeCrashed) isLogEntry() {}

// NodeShutdown records a node shutdown (filesystem persists but becomes
// unavailable; tasks are cancelled).
type NodeShutdown struct{ Node string }

func (NodeShutdown) isLogEntry() {}

// FileOp records one phase of a filesystem operation's lifecycle.
type FileOp struct {
	Op    FsKind
	Phase FilePhase
	Proc  address.Address
}

func (FileOp) isLogEntry() {}

// Log is the append-only record of everything that happened while driving
// a system to a point in (simulated) time. search's error types hold a
// pointer to the log of the replay that produced them, never mutated
// concurrently with a replay.
type Log struct {
	entries []LogEntry
}

// NewLog returns an empty Log.
func NewLog() *Log { return &Log{} }

func (l *Log) append(e LogEntry) { l.entries = append(l.entries, e) }

// Entries returns the recorded entries in emission order. The returned
// slice must not be mutated by callers.
func (l *Log) Entries() []LogEntry { return l.entries }

// Len returns the number of recorded entries.
func (l *Log) Len() int { return len(l.entries) }

// Clone returns a deep-enough copy suitable for attaching to a
// point-in-time snapshot (the entries themselves are immutable value
// types, so only the backing slice needs copying).
func (l *Log) Clone() *Log {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return &Log{entries: out}
}

// String renders the log one entry per line, in emission order — consumed
// by search's error types (e.g. InvariantViolation.Error()) so a failing
// trace's diagnostics are human-readable without a separate formatter.
func (l *Log) String() string {
	var b strings.Builder
	for i, e := range l.entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d: %#v", i, e)
	}
	return b.String()
}
