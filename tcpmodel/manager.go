// Package tcpmodel is a deterministic TCP connection/stream model:
// connection establishment via Listen/ListenTo/Connect, then in-order
// reliable byte delivery over the resulting Stream, plus synthetic
// SenderDropped/ConnectionRefused control notifications.
//
// Connect and Data packets are themselves scheduled as selectable
// TcpMessage events, so the search layer can interleave their delivery
// with everything else; a packet's delivery is the operation's completion
// directly, with no separate acknowledgement round trip.
package tcpmodel

import (
	"time"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/event"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/tracker"
	"github.com/egnees/mc-proto-sub000/trigger"
)

// Scheduler is the slice of event.Manager this package depends on.
type Scheduler interface {
	EmitTcpPacket(from, to address.Address, packet any, minDelay, maxDelay time.Duration) (tracker.EventID, trigger.Waiter)
	EmitTcpControl(kind event.ControlKind, to address.Address, minDelay, maxDelay time.Duration) trigger.Waiter
}

type connResult struct {
	stream *Stream
	err    error
}

type listenKey struct{ on, from address.Address }

// Manager owns the pending-listener tables for one simulation: every
// Listen/ListenTo call registers a trigger here, consumed the moment a
// matching Connect's packet is delivered.
type Manager struct {
	sched Scheduler

	connectMinDelay, connectMaxDelay time.Duration
	dataMinDelay, dataMaxDelay       time.Duration
	controlMinDelay, controlMaxDelay time.Duration

	listeners   map[address.Address]trigger.Trigger
	listenersTo map[listenKey]trigger.Trigger
}

// New constructs a Manager. connectDelay/dataDelay/controlDelay each bound
// their kind of scheduled event's transit interval.
func New(sched Scheduler, connectMinDelay, connectMaxDelay, dataMinDelay, dataMaxDelay, controlMinDelay, controlMaxDelay time.Duration) *Manager {
	return &Manager{
		sched:            sched,
		connectMinDelay:  connectMinDelay,
		connectMaxDelay:  connectMaxDelay,
		dataMinDelay:     dataMinDelay,
		dataMaxDelay:     dataMaxDelay,
		controlMinDelay:  controlMinDelay,
		controlMaxDelay:  controlMaxDelay,
		listeners:        make(map[address.Address]trigger.Trigger),
		listenersTo:      make(map[listenKey]trigger.Trigger),
	}
}

func registerListener[K comparable](table map[K]trigger.Trigger, key K, t trigger.Trigger) error {
	if existing, ok := table[key]; ok && existing.HasWaiter() {
		return &Error{Kind: AlreadyListening}
	}
	table[key] = t
	return nil
}

// Listen parks the calling task until some process connects to on.
func (m *Manager) Listen(ctx *runtime.Context, on address.Address) (*Stream, error) {
	waiter, t := trigger.New()
	if err := registerListener(m.listeners, on, t); err != nil {
		return nil, err
	}
	res := runtime.Await[connResult](ctx, waiter)
	return res.stream, res.err
}

// ListenTo is [Manager.Listen] narrowed to connections from a specific peer.
func (m *Manager) ListenTo(ctx *runtime.Context, on, from address.Address) (*Stream, error) {
	waiter, t := trigger.New()
	key := listenKey{on: on, from: from}
	if err := registerListener(m.listenersTo, key, t); err != nil {
		return nil, err
	}
	res := runtime.Await[connResult](ctx, waiter)
	return res.stream, res.err
}

// Connect schedules a connect packet from->to and, once it is delivered,
// matches it against a pending ListenTo(to, from) or Listen(to) — whichever
// was registered, establishing a connected Stream pair. Fails with
// ConnectionRefused if neither is pending at delivery time.
func (m *Manager) Connect(ctx *runtime.Context, from, to address.Address) (*Stream, error) {
	_, waiter := m.sched.EmitTcpPacket(from, to, connectPacket{}, m.connectMinDelay, m.connectMaxDelay)
	runtime.Await[event.TcpMessage](ctx, waiter)

	key := listenKey{on: to, from: from}
	var listenerTrigger trigger.Trigger
	var matched bool
	if t, ok := m.listenersTo[key]; ok && t.HasWaiter() {
		delete(m.listenersTo, key)
		listenerTrigger, matched = t, true
	} else if t, ok := m.listeners[to]; ok && t.HasWaiter() {
		delete(m.listeners, to)
		listenerTrigger, matched = t, true
	}

	if !matched {
		waiter := m.sched.EmitTcpControl(event.ConnectionRefused, from, m.controlMinDelay, m.controlMaxDelay)
		waiter.Drop()
		return nil, &Error{Kind: ConnectionRefused}
	}

	clientIn, serverIn := &appendChannel{}, &appendChannel{}
	client := &Stream{mgr: m, from: from, to: to, in: clientIn, peerIn: serverIn}
	server := &Stream{mgr: m, from: to, to: from, in: serverIn, peerIn: clientIn}

	_ = listenerTrigger.Invoke(connResult{stream: server})
	return client, nil
}

// Stream is one end of an established, connected TCP byte stream.
type Stream struct {
	mgr      *Manager
	from, to address.Address
	in       *appendChannel
	peerIn   *appendChannel
	closed   bool
}

// Peer returns the address at the other end of the stream.
func (s *Stream) Peer() address.Address { return s.to }

// Send schedules the packet's delivery and, once delivered, appends the
// bytes to the peer's receive queue; it never blocks on the peer actually
// calling Recv.
func (s *Stream) Send(ctx *runtime.Context, buf []byte) (int, error) {
	if s.closed {
		return 0, &Error{Kind: ClosedByPeer}
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	_, waiter := s.mgr.sched.EmitTcpPacket(s.from, s.to, dataPacket{Bytes: cp}, s.mgr.dataMinDelay, s.mgr.dataMaxDelay)
	runtime.Await[event.TcpMessage](ctx, waiter)
	s.peerIn.send(cp)
	return len(buf), nil
}

// Recv suspends until at least one previously sent chunk is available,
// then copies it (truncated to len(buf)) and returns its length. Returns
// ClosedByPeer once the sender has dropped its end and nothing remains
// queued.
func (s *Stream) Recv(ctx *runtime.Context, buf []byte) (int, error) {
	for {
		if n, ok := s.in.tryRecv(buf); ok {
			return n, nil
		}
		if s.in.closed {
			return 0, &Error{Kind: ClosedByPeer}
		}
		waiter, t := trigger.New()
		s.in.pendingRecv = &t
		runtime.Await[struct{}](ctx, waiter)
	}
}

// Close tears down the stream: the peer's queued-but-unread data survives,
// but its next Recv past that point observes ClosedByPeer, and a synthetic
// SenderDropped control event is scheduled purely so the search sees it as
// a selectable step (no log entry is written for it); nothing awaits it, so
// the waiter is dropped immediately.
func (s *Stream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.peerIn.close()
	waiter := s.mgr.sched.EmitTcpControl(event.SenderDropped, s.to, s.mgr.controlMinDelay, s.mgr.controlMaxDelay)
	waiter.Drop()
}
