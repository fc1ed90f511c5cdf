package event

import (
	"fmt"
	"time"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/internal/diag"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/timeinterval"
	"github.com/egnees/mc-proto-sub000/tracker"
	"github.com/egnees/mc-proto-sub000/trigger"
)

// Recipients answers existence questions the manager needs in order to
// decide, at emission time, whether a UDP/TCP/RPC send can possibly be
// delivered, or must be logged Dropped/ConnectionRefused synchronously.
type Recipients interface {
	HasProcess(addr address.Address) bool
}

// Dispatcher performs the one kind of delivery the manager cannot do by
// itself: handing a payload straight to a Process implementation. Every
// other outcome (timers, TCP/RPC/FS completions) is delivered through the
// Event's own OnHappen trigger instead, since those are always awaited by a
// task rather than pushed into a synchronous handler.
type Dispatcher interface {
	DeliverUdp(to, from address.Address, content any)
	DeliverLocal(to address.Address, content any)
}

// Stat accumulates simple, deterministic counters. No wall-clock metrics:
// those would break replay determinism.
type Stat struct {
	UdpSent, UdpDelivered, UdpDropped int
	TcpSent, TcpDelivered, TcpDropped int
	RpcSent, RpcDelivered, RpcDropped int
	TimersSet, TimersFired, TimersCancelled int

	// NodesCrashed/NodesShutdown/DiskFaults gate the step generator's fault
	// injection budgets; they live here so HandleNodeCrash and friends can
	// increment them without reaching back into the system layer.
	NodesCrashed, NodesShutdown, DiskFaults int
}

// Manager owns the pending-event tracker, the lifecycle log, and the
// outcome-dispatch logic. It is the single mutator of simulated time:
// Select/advance operations are only ever reached through
// [Manager.NextReady] and [Manager.HandleEventOutcome]. Sender/timer
// bookkeeping is folded directly onto Event.OnHappen rather than a parallel
// side-table; first-class function values and the [trigger] package make
// that table redundant.
type Manager struct {
	tr     *tracker.Tracker
	events map[tracker.EventID]*Event
	now    time.Duration
	log    *Log
	stat   Stat

	rt          *runtime.Runtime
	recipients  Recipients
	dispatcher  Dispatcher
	makeContext func(owner address.Address) *runtime.Context

	nextMsgID   uint64
	nextTimerID uint64
	nextEventID tracker.EventID
}

// New constructs a Manager. rt is the cooperative task runtime the manager
// drains to a fixed point after every dispatch that can wake tasks;
// recipients/dispatcher/makeContext are supplied by the owning system so
// the event package never depends on it (see package doc).
func New(rt *runtime.Runtime, recipients Recipients, dispatcher Dispatcher, makeContext func(address.Address) *runtime.Context) *Manager {
	return &Manager{
		tr:          tracker.New(),
		events:      make(map[tracker.EventID]*Event),
		log:         NewLog(),
		rt:          rt,
		recipients:  recipients,
		dispatcher:  dispatcher,
		makeContext: makeContext,
	}
}

// Now returns the current simulated time.
func (m *Manager) Now() time.Duration { return m.now }

// Log returns the accumulated lifecycle log.
func (m *Manager) Log() *Log { return m.log }

// Stat returns accumulated counters.
func (m *Manager) Stat() Stat { return m.stat }

// EmitUdp schedules a UDP datagram. minDelay/maxDelay bound the arrival
// interval relative to now; if no process exists at "to", the send is
// logged Dropped synchronously instead of being scheduled at all.
func (m *Manager) EmitUdp(from, to address.Address, content any, minDelay, maxDelay time.Duration) {
	id := m.nextMsgID
	m.nextMsgID++

	m.log.append(NetEvent{Kind: NetUdp, Outcome: NetSent, MsgID: id, From: from, To: to})
	m.stat.UdpSent++

	if !m.recipients.HasProcess(to) {
		m.log.append(NetEvent{Kind: NetUdp, Outcome: NetDropped, MsgID: id, From: from, To: to})
		m.stat.UdpDropped++
		return
	}

	m.scheduleEvent(m.now+minDelay, m.now+maxDelay, UdpMessage{MsgID: id, From: from, To: to, Content: content}, false)
}

// scheduleEvent is the single path that both allocates a tracker segment
// and keeps m.events in sync with it.
func (m *Manager) scheduleEvent(from, to time.Duration, info Info, withTrigger bool) (tracker.EventID, trigger.Waiter) {
	id := m.nextEventID
	m.nextEventID++
	m.tr.Add(from, to, id)
	ev := &Event{ID: id, Time: timeinterval.Interval{From: from, To: to}, Info: info}
	var waiter trigger.Waiter
	if withTrigger {
		w, t := trigger.New()
		ev.OnHappen = &t
		waiter = w
	}
	m.events[id] = ev
	return id, waiter
}

// RegisterSleep schedules a Timer event carrying a Trigger, for a task to
// Await; it returns the Waiter half directly so the caller (system, which
// owns the runtime.Context the task is running under) can pass it straight
// to [runtime.Await].
func (m *Manager) RegisterSleep(proc address.Address, minDuration, maxDuration time.Duration) trigger.Waiter {
	timerID := m.nextTimerID
	_, waiter := m.scheduleEvent(m.now+minDuration, m.now+maxDuration, Timer{
		TimerID: timerID, Proc: proc, MinDuration: minDuration, MaxDuration: maxDuration, WithSleep: true,
	}, true)
	m.nextTimerID++
	m.log.append(TimerSet{TimerID: timerID, Proc: proc})
	m.log.append(FutureFellAsleep{Proc: proc})
	m.stat.TimersSet++
	return waiter
}

// SetTimer schedules a bare Timer (no associated task parking) and returns
// its event id so it can later be cancelled via [Manager.CancelEvent]. When
// selected, the timer is only logged as fired: nothing is delivered to the
// process and no task is woken.
func (m *Manager) SetTimer(proc address.Address, minDuration, maxDuration time.Duration) tracker.EventID {
	timerID := m.nextTimerID
	id, _ := m.scheduleEvent(m.now+minDuration, m.now+maxDuration, Timer{
		TimerID: timerID, Proc: proc, MinDuration: minDuration, MaxDuration: maxDuration, WithSleep: false,
	}, false)
	m.nextTimerID++
	m.log.append(TimerSet{TimerID: timerID, Proc: proc})
	m.stat.TimersSet++
	return id
}

// EmitTcpPacket schedules an in-order TCP stream packet. Ordering between
// packets on the same (from,to) direction is the tcpmodel package's
// responsibility (it only ever calls this once the previous packet in that
// direction has been accepted); the manager just schedules a single event.
func (m *Manager) EmitTcpPacket(from, to address.Address, packet any, minDelay, maxDelay time.Duration) (tracker.EventID, trigger.Waiter) {
	id := m.nextMsgID
	m.nextMsgID++
	m.log.append(NetEvent{Kind: NetTcp, Outcome: NetSent, MsgID: id, From: from, To: to})
	m.stat.TcpSent++
	return m.scheduleEvent(m.now+minDelay, m.now+maxDelay, TcpMessage{MsgID: id, From: from, To: to, Packet: packet}, true)
}

// EmitTcpControl schedules a synthetic TCP control notification (e.g. no
// listener at "to") delivered back to a waiting sender.
func (m *Manager) EmitTcpControl(kind ControlKind, to address.Address, minDelay, maxDelay time.Duration) trigger.Waiter {
	_, waiter := m.scheduleEvent(m.now+minDelay, m.now+maxDelay, TcpControlEvent{ControlKind: kind, ToProc: to}, true)
	return waiter
}

// EmitRpcMessage is [Manager.EmitTcpPacket]'s analogue for the RPC
// transport.
func (m *Manager) EmitRpcMessage(from, to address.Address, payload any, minDelay, maxDelay time.Duration) (tracker.EventID, trigger.Waiter) {
	id := m.nextMsgID
	m.nextMsgID++
	m.log.append(NetEvent{Kind: NetRpc, Outcome: NetSent, MsgID: id, From: from, To: to})
	m.stat.RpcSent++
	return m.scheduleEvent(m.now+minDelay, m.now+maxDelay, RpcMessage{MsgID: id, From: from, To: to, Payload: payload}, true)
}

// EmitRpcControl is [Manager.EmitTcpControl]'s RPC analogue.
func (m *Manager) EmitRpcControl(kind ControlKind, to address.Address, minDelay, maxDelay time.Duration) trigger.Waiter {
	_, waiter := m.scheduleEvent(m.now+minDelay, m.now+maxDelay, RpcEvent{ControlKind: kind, ToProc: to}, true)
	return waiter
}

// EmitFsEvent schedules the deferred completion of a filesystem operation
// already recorded as Requested/Initiated by the fs package; outcome may
// be nil (success) or an *fs error describing why it failed.
func (m *Manager) EmitFsEvent(proc address.Address, kind FsKind, outcome error, minDelay, maxDelay time.Duration) trigger.Waiter {
	_, waiter := m.scheduleEvent(m.now+minDelay, m.now+maxDelay, FsEvent{Proc: proc, FsKind: kind, Outcome: outcome}, true)
	return waiter
}

// LogFileRequested/LogFileInitiated record the earlier, synchronous phases
// of a filesystem operation's lifecycle; only the terminal Completed phase
// goes through a scheduled
// event, since it's the only phase that can race against cancellation.
func (m *Manager) LogFileRequested(proc address.Address, kind FsKind) {
	m.log.append(FileOp{Op: kind, Phase: FileRequested, Proc: proc})
}

func (m *Manager) LogFileInitiated(proc address.Address, kind FsKind) {
	m.log.append(FileOp{Op: kind, Phase: FileInitiated, Proc: proc})
}

// LogFileInstant records the single-phase lifecycle of a synchronous
// filesystem operation (Create/Delete/Open): no delay is scheduled, so the
// fs package logs Requested and then, synchronously, this Completed line,
// with no Initiated phase in between.
func (m *Manager) LogFileInstant(proc address.Address, kind FsKind) {
	m.log.append(FileOp{Op: kind, Phase: FileCompleted, Proc: proc})
}

// LocalMessageFromUser delivers a user-submitted local message directly
// (no scheduling: local messages are not network traffic and arrive
// instantaneously), installs the recipient's context,
// invokes the dispatcher, then drains the runtime to a fixed point so any
// tasks the handler spawned or woke get to run before control returns to
// the caller.
func (m *Manager) LocalMessageFromUser(to address.Address, content any) *Panic {
	m.log.append(ProcessReceivedLocalMessage{Proc: to})
	if p := m.dispatchLocal(to, content); p != nil {
		return p
	}
	if owner, val, panicked := m.rt.RunToFixedPoint(m.makeContext); panicked {
		return &Panic{Owner: owner, Value: val}
	}
	return nil
}

func (m *Manager) dispatchLocal(to address.Address, content any) (panicInfo *Panic) {
	ctx := m.makeContext(to)
	guard := runtime.Install(ctx)
	defer guard.Release()
	defer func() {
		if r := recover(); r != nil {
			panicInfo = &Panic{Owner: to, Value: r}
		}
	}()
	m.dispatcher.DeliverLocal(to, content)
	return nil
}

// LogProcessSentLocalMessage records a process emitting a local message of
// its own; called by the system layer's DeliverLocal implementation once
// the process handler returns.
func (m *Manager) LogProcessSentLocalMessage(proc address.Address) {
	m.log.append(ProcessSentLocalMessage{Proc: proc})
}

// LogProcessInfo records a free-form diagnostic tag from a Process.
func (m *Manager) LogProcessInfo(proc address.Address, tag string) {
	m.log.append(ProcessInfo{Proc: proc, Tag: tag})
}

// AllEvents returns every pending event, ready or not, in unspecified
// order. Used by canonical state hashing, whose multiset hash is
// order-independent by construction.
func (m *Manager) AllEvents() []*Event {
	out := make([]*Event, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev)
	}
	return out
}

// ReadyCount reports how many pending events are currently selectable.
func (m *Manager) ReadyCount() int { return m.tr.ReadyCount() }

// PeekReady returns the i-th currently-selectable event without removing
// it, for search/exploration code that needs to enumerate branches before
// committing to one.
func (m *Manager) PeekReady(i int) *Event {
	id, _ := m.tr.GetReady(i)
	return m.events[id]
}

// CancelEvent removes a pending event without the tracker's
// selection-consistency adjustment: a direct drop, not an observed
// selection. If the event carried a trigger, it is dropped so any task
// awaiting it unwinds via cancellation instead of hanging forever.
func (m *Manager) CancelEvent(id tracker.EventID) bool {
	ev, ok := m.events[id]
	if !ok {
		return false
	}
	if !m.tr.RemoveByEventID(id) {
		return false
	}
	delete(m.events, id)
	if ev.OnHappen != nil {
		ev.OnHappen.Invoke(nil) //nolint:errcheck // best-effort: a Drop()-ed waiter already discarded interest
	}
	switch info := ev.Info.(type) {
	case Timer:
		m.log.append(TimerCancelled{TimerID: info.TimerID, Proc: info.Proc})
		m.stat.TimersCancelled++
	case UdpMessage:
		// An undelivered message cancelled out from under the network is
		// observationally a drop; the stat counters stay untouched, since
		// they gate the explicit drop budget, not cancellations.
		m.log.append(NetEvent{Kind: NetUdp, Outcome: NetDropped, MsgID: info.MsgID, From: info.From, To: info.To})
	case TcpMessage:
		m.log.append(NetEvent{Kind: NetTcp, Outcome: NetDropped, MsgID: info.MsgID, From: info.From, To: info.To})
	case RpcMessage:
		m.log.append(NetEvent{Kind: NetRpc, Outcome: NetDropped, MsgID: info.MsgID, From: info.From, To: info.To})
	}
	return true
}

// CancelEventsOnNode cancels every pending event mentioning node, used by
// crash/shutdown handling. It snapshots ids first since CancelEvent mutates
// the tracker it would otherwise be iterating.
func (m *Manager) CancelEventsOnNode(node string) {
	var ids []tracker.EventID
	for id, ev := range m.events {
		if ev.Info.Mentions(node) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		m.CancelEvent(id)
	}
}

// HandleNodeCrash records the crash and cancels every event touching it;
// filesystem teardown is the fs package's responsibility, invoked by the
// system layer alongside this call.
func (m *Manager) HandleNodeCrash(node string) {
	diag.Logger().Info().Str("node", node).Log("event: node crashed")
	m.log.append(NodeCrashed{Node: node})
	m.CancelEventsOnNode(node)
	m.stat.NodesCrashed++
}

// HandleNodeShutdown is [Manager.HandleNodeCrash]'s non-destructive
// counterpart: filesystem contents persist.
func (m *Manager) HandleNodeShutdown(node string) {
	diag.Logger().Info().Str("node", node).Log("event: node shut down")
	m.log.append(NodeShutdown{Node: node})
	m.CancelEventsOnNode(node)
	m.stat.NodesShutdown++
}

// RecordDiskFault increments the disk-fault budget counter the step
// generator's CrashDisk step consults; called by system.System.CrashFS.
func (m *Manager) RecordDiskFault() {
	m.stat.DiskFaults++
}

// NextReady selects the i-th currently-ready event for delivery: it
// narrows every other pending event's From per the tracker's
// selection-consistency rule, clamps the selected event's interval to the
// prior minimum right endpoint, advances simulated time to that clamped
// interval's right endpoint, removes it from the tracker, and
// returns it for [Manager.HandleEventOutcome] to dispatch. i must be in
// [0, ReadyCount()).
func (m *Manager) NextReady(i int) *Event {
	id, iv := m.tr.RemoveReady(i)
	ev := m.events[id]
	delete(m.events, id)
	m.now = iv.To
	ev.Time = iv
	return ev
}

// DropEvent records a UDP message as dropped instead of delivered — the
// step generator's explicit branching alternative to [Manager.HandleEventOutcome]
// for a [UdpMessage] that was already selected via [Manager.NextReady]:
// message drop is an explicit branching step, not a probabilistic coin
// flip. Only UDP messages may be dropped this way; any
// other Info variant reaching here is a step-generator bug.
func (m *Manager) DropEvent(ev *Event) {
	info, ok := ev.Info.(UdpMessage)
	if !ok {
		panic(fmt.Sprintf("event: drop not supported for info variant %T", ev.Info))
	}
	m.log.append(NetEvent{Kind: NetUdp, Outcome: NetDropped, MsgID: info.MsgID, From: info.From, To: info.To})
	m.stat.UdpDropped++
}

// Panic describes a process handler panic observed while dispatching an
// event or a local message; the searcher wraps this as a ProcessPanic
// rather than letting it escape and abort the whole search.
type Panic struct {
	Owner address.Address
	Value any
}

// dispatchUdp installs to's context and invokes the dispatcher's UDP
// delivery under a recover, so a panicking on_message handler (which runs
// synchronously on the caller's goroutine, not inside a task) reports back
// as a [Panic] instead of unwinding through the manager and leaving the
// thread-local context guard unreleased.
func (m *Manager) dispatchUdp(info UdpMessage) (panicInfo *Panic) {
	ctx := m.makeContext(info.To)
	guard := runtime.Install(ctx)
	defer guard.Release()
	defer func() {
		if r := recover(); r != nil {
			diag.Logger().Warning().Str("proc", info.To.String()).Interface("panic", r).Log("event: process panicked handling udp delivery")
			panicInfo = &Panic{Owner: info.To, Value: r}
		}
	}()
	m.dispatcher.DeliverUdp(info.To, info.From, info.Content)
	return nil
}

// HandleEventOutcome dispatches a selected event per its Info variant:
// UDP is delivered straight to the
// recipient's on_message handler (no trigger involved); every other kind
// fires its OnHappen trigger with a variant-appropriate payload for an
// awaiting task to observe. Either way, the runtime is drained to a fixed
// point afterward so newly-woken or newly-spawned tasks run before control
// returns to the driver. Reports the first process panic observed, whether
// raised synchronously (UDP delivery) or from within a task drained to
// fixed point afterward.
func (m *Manager) HandleEventOutcome(ev *Event) *Panic {
	switch info := ev.Info.(type) {
	case UdpMessage:
		m.log.append(NetEvent{Kind: NetUdp, Outcome: NetReceived, MsgID: info.MsgID, From: info.From, To: info.To})
		m.stat.UdpDelivered++
		if p := m.dispatchUdp(info); p != nil {
			return p
		}

	case Timer:
		if info.WithSleep {
			m.log.append(FutureWokeUp{Proc: info.Proc})
		}
		m.log.append(TimerFired{TimerID: info.TimerID, Proc: info.Proc})
		m.stat.TimersFired++
		if ev.OnHappen != nil {
			_ = ev.OnHappen.Invoke(struct{}{})
		}

	case TcpMessage:
		m.log.append(NetEvent{Kind: NetTcp, Outcome: NetReceived, MsgID: info.MsgID, From: info.From, To: info.To})
		m.stat.TcpDelivered++
		if ev.OnHappen != nil {
			_ = ev.OnHappen.Invoke(info)
		}

	case TcpControlEvent:
		if ev.OnHappen != nil {
			_ = ev.OnHappen.Invoke(info)
		}

	case RpcMessage:
		m.log.append(NetEvent{Kind: NetRpc, Outcome: NetReceived, MsgID: info.MsgID, From: info.From, To: info.To})
		m.stat.RpcDelivered++
		if ev.OnHappen != nil {
			_ = ev.OnHappen.Invoke(info)
		}

	case RpcEvent:
		if ev.OnHappen != nil {
			_ = ev.OnHappen.Invoke(info)
		}

	case FsEvent:
		m.log.append(FileOp{Op: info.FsKind, Phase: FileCompleted, Proc: info.Proc})
		if ev.OnHappen != nil {
			_ = ev.OnHappen.Invoke(info)
		}

	default:
		panic(fmt.Sprintf("event: unhandled info variant %T", info))
	}

	if owner, val, panicked := m.rt.RunToFixedPoint(m.makeContext); panicked {
		return &Panic{Owner: owner, Value: val}
	}
	return nil
}
