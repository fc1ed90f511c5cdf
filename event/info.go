// Package event implements the authoritative event manager: the
// pending-event store, its lifecycle log, outcome dispatch, and per-node
// cancellation on crash/shutdown.
package event

import (
	"time"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/timeinterval"
	"github.com/egnees/mc-proto-sub000/tracker"
	"github.com/egnees/mc-proto-sub000/trigger"
)

// Tag identifies which concrete Info variant an Event carries.
type Tag int

const (
	TagUdpMessage Tag = iota
	TagTimer
	TagTcpMessage
	TagTcpControlEvent
	TagFsEvent
	TagRpcMessage
	TagRpcEvent
)

func (t Tag) String() string {
	switch t {
	case TagUdpMessage:
		return "UdpMessage"
	case TagTimer:
		return "Timer"
	case TagTcpMessage:
		return "TcpMessage"
	case TagTcpControlEvent:
		return "TcpControlEvent"
	case TagFsEvent:
		return "FsEvent"
	case TagRpcMessage:
		return "RpcMessage"
	case TagRpcEvent:
		return "RpcEvent"
	default:
		return "Unknown"
	}
}

// Info is the tagged-variant payload of an Event.
type Info interface {
	Tag() Tag
	// Mentions reports whether the event touches node as either endpoint,
	// used by node-crash/shutdown cancellation.
	Mentions(node string) bool
}

// UdpMessage is an unordered, droppable datagram in flight.
type UdpMessage struct {
	MsgID      uint64
	From, To   address.Address
	Content    any
}

func (UdpMessage) Tag() Tag { return TagUdpMessage }
func (m UdpMessage) Mentions(node string) bool {
	return m.From.OnNode(node) || m.To.OnNode(node)
}

// Timer fires after a (possibly ranged) duration; WithSleep distinguishes a
// sleep() registration (awaited by a task via a Trigger) from a bare timer.
type Timer struct {
	TimerID                 uint64
	Proc                    address.Address
	MinDuration, MaxDuration time.Duration
	WithSleep               bool
}

func (Timer) Tag() Tag { return TagTimer }
func (t Timer) Mentions(node string) bool { return t.Proc.OnNode(node) }

// TcpMessage is an in-flight TCP stream packet.
type TcpMessage struct {
	MsgID      uint64
	From, To   address.Address
	Packet     any
}

func (TcpMessage) Tag() Tag { return TagTcpMessage }
func (m TcpMessage) Mentions(node string) bool {
	return m.From.OnNode(node) || m.To.OnNode(node)
}

// ControlKind distinguishes the synthetic control notifications TCP/RPC
// can raise without ever scheduling a real message.
type ControlKind int

const (
	ConnectionRefused ControlKind = iota
	SenderDropped
)

func (k ControlKind) String() string {
	if k == SenderDropped {
		return "SenderDropped"
	}
	return "ConnectionRefused"
}

// TcpControlEvent is a synthetic notification addressed back to a sender
// (e.g. no listener at the destination).
type TcpControlEvent struct {
	ControlKind ControlKind
	ToProc      address.Address
}

func (TcpControlEvent) Tag() Tag { return TagTcpControlEvent }
func (e TcpControlEvent) Mentions(node string) bool { return e.ToProc.OnNode(node) }

// FsKind distinguishes which filesystem operation an FsEvent reports on.
type FsKind int

const (
	FsCreate FsKind = iota
	FsDelete
	FsOpen
	FsRead
	FsWrite
)

func (k FsKind) String() string {
	switch k {
	case FsCreate:
		return "Create"
	case FsDelete:
		return "Delete"
	case FsOpen:
		return "Open"
	case FsRead:
		return "Read"
	case FsWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// FsEvent reports the outcome of a filesystem operation.
type FsEvent struct {
	Proc    address.Address
	FsKind  FsKind
	Outcome error
}

func (FsEvent) Tag() Tag { return TagFsEvent }
func (e FsEvent) Mentions(node string) bool { return e.Proc.OnNode(node) }

// RpcMessage is TcpMessage's analogue for the RPC transport.
type RpcMessage struct {
	MsgID      uint64
	From, To   address.Address
	Payload    any
}

func (RpcMessage) Tag() Tag { return TagRpcMessage }
func (m RpcMessage) Mentions(node string) bool {
	return m.From.OnNode(node) || m.To.OnNode(node)
}

// RpcEvent is analogous to TcpControlEvent.
type RpcEvent struct {
	ControlKind ControlKind
	ToProc      address.Address
}

func (RpcEvent) Tag() Tag { return TagRpcEvent }
func (e RpcEvent) Mentions(node string) bool { return e.ToProc.OnNode(node) }

// Event is a scheduled occurrence pending in the tracker.
type Event struct {
	ID       tracker.EventID
	Time     timeinterval.Interval
	Info     Info
	OnHappen *trigger.Trigger
}
