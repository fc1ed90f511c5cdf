package event_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/event"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/timeinterval"
)

type recipientSet map[address.Address]bool

func (r recipientSet) HasProcess(addr address.Address) bool { return r[addr] }

type delivery struct {
	to, from address.Address
	content  any
}

type recordingDispatcher struct {
	udp []delivery
}

func (d *recordingDispatcher) DeliverUdp(to, from address.Address, content any) {
	d.udp = append(d.udp, delivery{to: to, from: from, content: content})
}

func (d *recordingDispatcher) DeliverLocal(to address.Address, content any) {}

func makeCtx(owner address.Address) *runtime.Context {
	return &runtime.Context{Owner: owner}
}

func newManager(recipients recipientSet) (*event.Manager, *recordingDispatcher, *runtime.Runtime) {
	rt := runtime.New()
	disp := &recordingDispatcher{}
	return event.New(rt, recipients, disp, makeCtx), disp, rt
}

func TestEmitUdpNoReceiverDropsSynchronously(t *testing.T) {
	from := address.New("n1", "p1")
	to := address.New("n2", "p2")
	mgr, _, _ := newManager(recipientSet{})

	mgr.EmitUdp(from, to, "m", time.Millisecond, 10*time.Millisecond)

	require.Zero(t, mgr.ReadyCount())
	require.Equal(t, 1, mgr.Stat().UdpSent)
	require.Equal(t, 1, mgr.Stat().UdpDropped)

	entries := mgr.Log().Entries()
	require.Len(t, entries, 2)
	require.Equal(t, event.NetEvent{Kind: event.NetUdp, Outcome: event.NetSent, MsgID: 0, From: from, To: to}, entries[0])
	require.Equal(t, event.NetEvent{Kind: event.NetUdp, Outcome: event.NetDropped, MsgID: 0, From: from, To: to}, entries[1])
}

func TestEmitUdpDelivery(t *testing.T) {
	from := address.New("n1", "p1")
	to := address.New("n2", "p2")
	mgr, disp, _ := newManager(recipientSet{to: true})

	mgr.EmitUdp(from, to, "m", time.Millisecond, 10*time.Millisecond)
	require.Equal(t, 1, mgr.ReadyCount())

	ev := mgr.NextReady(0)
	info, ok := ev.Info.(event.UdpMessage)
	require.True(t, ok)
	require.Equal(t, "m", info.Content)

	require.Nil(t, mgr.HandleEventOutcome(ev))
	require.Equal(t, []delivery{{to: to, from: from, content: "m"}}, disp.udp)
	require.Equal(t, 1, mgr.Stat().UdpDelivered)

	entries := mgr.Log().Entries()
	require.Equal(t, event.NetEvent{Kind: event.NetUdp, Outcome: event.NetReceived, MsgID: 0, From: from, To: to}, entries[len(entries)-1])
}

func TestDropEvent(t *testing.T) {
	from := address.New("n1", "p1")
	to := address.New("n2", "p2")
	mgr, disp, _ := newManager(recipientSet{to: true})

	mgr.EmitUdp(from, to, "m", time.Millisecond, 10*time.Millisecond)
	ev := mgr.NextReady(0)
	mgr.DropEvent(ev)

	require.Empty(t, disp.udp)
	require.Equal(t, 1, mgr.Stat().UdpDropped)
	require.Zero(t, mgr.Stat().UdpDelivered)

	entries := mgr.Log().Entries()
	require.Equal(t, event.NetEvent{Kind: event.NetUdp, Outcome: event.NetDropped, MsgID: 0, From: from, To: to}, entries[len(entries)-1])
}

// TestSelectionMonotonicity: selecting one event may never let a later
// selection produce an interval behind it, and simulated time never moves
// backward.
func TestSelectionMonotonicity(t *testing.T) {
	from := address.New("n1", "p1")
	to := address.New("n2", "p2")
	mgr, _, _ := newManager(recipientSet{to: true, from: true})

	mgr.EmitUdp(from, to, "a", time.Millisecond, 10*time.Millisecond)
	mgr.EmitUdp(to, from, "b", 2*time.Millisecond, 20*time.Millisecond)
	require.Equal(t, 2, mgr.ReadyCount())

	first := mgr.NextReady(0)
	require.Equal(t, timeinterval.New(time.Millisecond, 10*time.Millisecond), first.Time)
	require.Equal(t, 10*time.Millisecond, mgr.Now())

	second := mgr.NextReady(0)
	require.True(t, timeinterval.Dominates(first.Time, second.Time))
	require.GreaterOrEqual(t, mgr.Now(), 10*time.Millisecond)
}

// TestSleepTimerFires parks a task on a sleep registration and fires the
// resulting Timer event, which must wake the task before control returns.
func TestSleepTimerFires(t *testing.T) {
	proc := address.New("n1", "p1")
	mgr, _, rt := newManager(recipientSet{})

	woke := false
	runtime.Spawn(rt, proc, func(ctx *runtime.Context) struct{} {
		waiter := mgr.RegisterSleep(proc, time.Millisecond, 5*time.Millisecond)
		runtime.Await[struct{}](ctx, waiter)
		woke = true
		return struct{}{}
	})
	rt.RunToFixedPoint(makeCtx)

	require.False(t, woke)
	require.Equal(t, 1, mgr.ReadyCount())

	ev := mgr.NextReady(0)
	info, ok := ev.Info.(event.Timer)
	require.True(t, ok)
	require.True(t, info.WithSleep)

	require.Nil(t, mgr.HandleEventOutcome(ev))
	require.True(t, woke)
	require.Equal(t, 1, mgr.Stat().TimersFired)

	var sawWokeUp bool
	for _, e := range mgr.Log().Entries() {
		if _, ok := e.(event.FutureWokeUp); ok {
			sawWokeUp = true
		}
	}
	require.True(t, sawWokeUp)
}

// TestNodeCrashCancelsEverything: after a crash, no pending event mentions
// the node in either direction, undelivered messages are logged dropped,
// and pending timers are logged cancelled.
func TestNodeCrashCancelsEverything(t *testing.T) {
	p1 := address.New("n1", "p1")
	p2 := address.New("n2", "p2")
	mgr, _, _ := newManager(recipientSet{p1: true, p2: true})

	mgr.EmitUdp(p1, p2, "in", time.Millisecond, 10*time.Millisecond)
	mgr.EmitUdp(p2, p1, "out", time.Millisecond, 10*time.Millisecond)
	mgr.SetTimer(p2, time.Millisecond, 5*time.Millisecond)
	require.Len(t, mgr.AllEvents(), 3)

	mgr.HandleNodeCrash("n2")

	require.Empty(t, mgr.AllEvents())
	require.Zero(t, mgr.ReadyCount())
	require.Equal(t, 1, mgr.Stat().TimersCancelled)
	require.Equal(t, 1, mgr.Stat().NodesCrashed)

	var crashed, timerCancelled bool
	var droppedMsgs int
	for _, e := range mgr.Log().Entries() {
		switch entry := e.(type) {
		case event.NodeCrashed:
			crashed = true
			require.Equal(t, "n2", entry.Node)
		case event.TimerCancelled:
			timerCancelled = true
		case event.NetEvent:
			if entry.Outcome == event.NetDropped {
				droppedMsgs++
			}
		}
	}
	require.True(t, crashed)
	require.True(t, timerCancelled)
	require.Equal(t, 2, droppedMsgs)
}

func TestCancelEventUnknownID(t *testing.T) {
	mgr, _, _ := newManager(recipientSet{})
	require.False(t, mgr.CancelEvent(123))
}
