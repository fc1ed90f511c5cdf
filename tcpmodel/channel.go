package tcpmodel

import "github.com/egnees/mc-proto-sub000/trigger"

// appendChannel is the in-order, unbounded FIFO byte-slice queue backing one
// direction of a connected Stream, independent of the event manager's
// scheduling: once a packet's transit delay has elapsed and it has been
// selected for delivery, handing it to the receiver is instantaneous.
type appendChannel struct {
	buf         [][]byte
	pendingRecv *trigger.Trigger
	closed      bool
}

// send enqueues b, waking a parked receiver if one is registered.
func (c *appendChannel) send(b []byte) {
	c.buf = append(c.buf, b)
	c.wake()
}

// close marks the channel as permanently empty-on-drain, waking a parked
// receiver so it observes ClosedByPeer instead of hanging forever.
func (c *appendChannel) close() {
	c.closed = true
	c.wake()
}

func (c *appendChannel) wake() {
	if c.pendingRecv == nil {
		return
	}
	t := c.pendingRecv
	c.pendingRecv = nil
	_ = t.Invoke(struct{}{}) //nolint:errcheck // the registering Recv call owns the corresponding waiter
}

// tryRecv pops the oldest queued slice into buf, reporting how much of it
// copied and whether anything was available at all.
func (c *appendChannel) tryRecv(buf []byte) (int, bool) {
	if len(c.buf) == 0 {
		return 0, false
	}
	n := copy(buf, c.buf[0])
	c.buf = c.buf[1:]
	return n, true
}
