// Package rpcmodel is a request/response RPC model, a thin analogue of
// [github.com/egnees/mc-proto-sub000/tcpmodel]: a single scheduled message
// carries the request to its destination, and the reply travels back over a
// private per-call trigger rather than a second scheduled event, since
// nothing needs to reorder a reply independently of the request whose
// trigger it resolves.
package rpcmodel

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
	EmitRpcMessage(from, to address.Address, payload any, minDelay, maxDelay time.Duration) (tracker.EventID, trigger.Waiter)
	EmitRpcControl(kind event.ControlKind, to address.Address, minDelay, maxDelay time.Duration) trigger.Waiter
}

type payload struct {
	tag     uint64
	value   any
	replyTo trigger.Trigger
}

type inbox struct {
	queue       []*Request
	pendingRecv *trigger.Trigger
}

// Manager owns the per-address inbox table. Registering a [Listener] for an
// address that already has one fails with AlreadyListening, matching
// tcpmodel's reuse rule.
type Manager struct {
	sched              Scheduler
	minDelay, maxDelay time.Duration
	controlMin, controlMax time.Duration
	inboxes            map[address.Address]*inbox
}

// New constructs a Manager. minDelay/maxDelay bound a request's transit
// interval; controlMin/controlMax bound the synthetic ConnectionRefused
// notification's.
func New(sched Scheduler, minDelay, maxDelay, controlMin, controlMax time.Duration) *Manager {
	return &Manager{
		sched:      sched,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
		controlMin: controlMin,
		controlMax: controlMax,
		inboxes:    make(map[address.Address]*inbox),
	}
}

// Request is one pending call, handed to a Listener's [Listener.Accept] and
// resolved exactly once via [Request.Reply].
type Request struct {
	Tag     uint64
	From    address.Address
	Value   any
	replied bool
	replyTo trigger.Trigger
}

// Reply resolves the request with value, waking the caller's [Manager.Call].
// Replying twice is a programmer error and panics, matching the
// single-shot contract every other trigger-backed rendezvous in this
// module follows.
func (r *Request) Reply(value any) {
	if r.replied {
		panic("rpcmodel: request already replied to")
	}
	r.replied = true
	_ = r.replyTo.Invoke(value) //nolint:errcheck // a dropped caller simply never observes the reply
}

// Listener is a registered inbox for one address.
type Listener struct {
	mgr *Manager
	on  address.Address
}

// Register reserves on for a single Listener.
func (m *Manager) Register(on address.Address) (*Listener, error) {
	if _, exists := m.inboxes[on]; exists {
		return nil, &Error{Kind: AlreadyListening}
	}
	m.inboxes[on] = &inbox{}
	return &Listener{mgr: m, on: on}, nil
}

// Close releases the listener's registration; any request that later
// arrives for this address is refused.
func (l *Listener) Close() {
	delete(l.mgr.inboxes, l.on)
}

// Accept suspends until a request is queued for this listener's address,
// then returns it.
func (l *Listener) Accept(ctx *runtime.Context) *Request {
	box := l.mgr.inboxes[l.on]
	for {
		if len(box.queue) > 0 {
			req := box.queue[0]
			box.queue = box.queue[1:]
			return req
		}
		waiter, t := trigger.New()
		box.pendingRecv = &t
		runtime.Await[struct{}](ctx, waiter)
	}
}

// Call schedules a request from->to carrying tag/value, and once it is
// delivered, either queues it on to's inbox (suspending for the reply) or
// fails with ConnectionRefused if nothing is registered there.
func (m *Manager) Call(ctx *runtime.Context, from, to address.Address, tag uint64, value any) (any, error) {
	replyWaiter, replyTrigger := trigger.New()
	_, waiter := m.sched.EmitRpcMessage(from, to, payload{tag: tag, value: value, replyTo: replyTrigger}, m.minDelay, m.maxDelay)
	ev := runtime.Await[event.RpcMessage](ctx, waiter)
	p, _ := ev.Payload.(payload)

	box, ok := m.inboxes[to]
	if !ok {
		w := m.sched.EmitRpcControl(event.ConnectionRefused, from, m.controlMin, m.controlMax)
		w.Drop()
		replyWaiter.Drop()
		return nil, &Error{Kind: ConnectionRefused}
	}

	req := &Request{Tag: p.tag, From: from, Value: p.value, replyTo: p.replyTo}
	box.queue = append(box.queue, req)
	if box.pendingRecv != nil {
		t := box.pendingRecv
		box.pendingRecv = nil
		_ = t.Invoke(struct{}{}) //nolint:errcheck // the registering Accept call owns the corresponding waiter
	}

	return runtime.Await[any](ctx, replyWaiter), nil
}
