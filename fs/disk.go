package fs

import (
	"time"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/event"
	"github.com/egnees/mc-proto-sub000/trigger"
)

// Scheduler is the slice of event.Manager the fs package depends on.
// Kept as a narrow interface so this package never imports the
// runtime/system layers above it.
type Scheduler interface {
	LogFileRequested(proc address.Address, kind event.FsKind)
	LogFileInstant(proc address.Address, kind event.FsKind)
	LogFileInitiated(proc address.Address, kind event.FsKind)
	EmitFsEvent(proc address.Address, kind event.FsKind, outcome error, minDelay, maxDelay time.Duration) trigger.Waiter
}

// turn is delivered to a caller once its queued request reaches the front of
// the disk's pipeline: waiter resolves to the event.FsEvent carrying the
// operation's outcome once the scheduled delay elapses and the event is
// selected.
type turn struct {
	waiter trigger.Waiter
}

type pendingRequest struct {
	proc    address.Address
	kind    event.FsKind
	outcome error
	onTurn  trigger.Trigger
}

// Disk processes one filesystem request at a time, queueing the rest FIFO.
// The capacity accounting a write performs happens synchronously at enqueue
// time, not when the request is eventually serviced.
type Disk struct {
	sched              Scheduler
	minDelay, maxDelay time.Duration
	capacity, used     int
	queue              []pendingRequest
	inProcess          bool
}

func newDisk(sched Scheduler, minDelay, maxDelay time.Duration, capacity int) *Disk {
	return &Disk{sched: sched, minDelay: minDelay, maxDelay: maxDelay, capacity: capacity}
}

// reserve checks (and, if it fits, commits) capacity for a write of n bytes;
// callers should pass the precomputed outcome into enqueue regardless of
// whether reserve succeeded, so the rejection itself still flows through the
// ordinary pipelined-event path rather than failing synchronously.
func (d *Disk) reserve(n int) error {
	if d.used+n > d.capacity {
		return &Error{Kind: StorageLimitReached}
	}
	d.used += n
	return nil
}

func (d *Disk) release(n int) {
	d.used -= n
}

// enqueue registers a pending request (already logged Initiated by the
// caller) and returns a waiter for this request's turn; it services the
// queue immediately if the disk was idle.
func (d *Disk) enqueue(proc address.Address, kind event.FsKind, outcome error) trigger.Waiter {
	waiter, trig := trigger.New()
	d.queue = append(d.queue, pendingRequest{proc: proc, kind: kind, outcome: outcome, onTurn: trig})
	if !d.inProcess {
		d.startNext()
	}
	return waiter
}

func (d *Disk) startNext() {
	if len(d.queue) == 0 {
		d.inProcess = false
		return
	}
	d.inProcess = true
	req := d.queue[0]
	d.queue = d.queue[1:]
	ev := d.sched.EmitFsEvent(req.proc, req.kind, req.outcome, d.minDelay, d.maxDelay)
	_ = req.onTurn.Invoke(turn{waiter: ev}) //nolint:errcheck // a dropped caller simply never observes its turn
}

// completed is called once the in-flight request's outcome has been
// observed, freeing the pipeline to start the next queued request.
func (d *Disk) completed() {
	d.inProcess = false
	d.startNext()
}

// crash drops every queued/in-flight request and resets capacity
// accounting; used by node-crash handling.
func (d *Disk) crash() {
	d.inProcess = false
	d.used = 0
	d.queue = nil
}

// shutdown drops queued/in-flight requests but preserves capacity
// accounting — the disk's contents survive a shutdown.
func (d *Disk) shutdown() {
	d.inProcess = false
	d.queue = nil
}
