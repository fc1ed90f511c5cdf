package tcpmodel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/event"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/tcpmodel"
)

type noRecipients struct{}

func (noRecipients) HasProcess(address.Address) bool { return false }

type noDispatch struct{}

func (noDispatch) DeliverUdp(address.Address, address.Address, any) {}
func (noDispatch) DeliverLocal(address.Address, any)                {}

func makeCtx(owner address.Address) *runtime.Context {
	return &runtime.Context{Owner: owner}
}

func driveToQuiescence(mgr *event.Manager) {
	for mgr.ReadyCount() > 0 {
		ev := mgr.NextReady(0)
		mgr.HandleEventOutcome(ev)
	}
}

func newHarness() (*runtime.Runtime, *event.Manager, *tcpmodel.Manager) {
	rt := runtime.New()
	mgr := event.New(rt, noRecipients{}, noDispatch{}, makeCtx)
	tm := tcpmodel.New(mgr, time.Millisecond, 2*time.Millisecond, time.Millisecond, 2*time.Millisecond, time.Millisecond, time.Millisecond)
	return rt, mgr, tm
}

// TestConnectSendRecv exercises the full establishment-then-exchange path:
// one task listens, another connects, and a message sent by the connector
// is observed by the listener's accepted stream.
func TestConnectSendRecv(t *testing.T) {
	rt, mgr, tm := newHarness()
	server := address.New("n1", "server")
	client := address.New("n2", "client")

	var serverErr, clientErr error
	var received string

	runtime.Spawn(rt, server, func(ctx *runtime.Context) struct{} {
		stream, err := tm.Listen(ctx, server)
		serverErr = err
		if err != nil {
			return struct{}{}
		}
		buf := make([]byte, 5)
		n, rerr := stream.Recv(ctx, buf)
		if rerr != nil {
			serverErr = rerr
			return struct{}{}
		}
		received = string(buf[:n])
		return struct{}{}
	})

	runtime.Spawn(rt, client, func(ctx *runtime.Context) struct{} {
		stream, err := tm.Connect(ctx, client, server)
		clientErr = err
		if err != nil {
			return struct{}{}
		}
		_, werr := stream.Send(ctx, []byte("hello"))
		clientErr = werr
		return struct{}{}
	})

	rt.RunToFixedPoint(makeCtx)
	for i := 0; i < 10 && mgr.ReadyCount() > 0; i++ {
		driveToQuiescence(mgr)
		rt.RunToFixedPoint(makeCtx)
	}

	require.NoError(t, serverErr)
	require.NoError(t, clientErr)
	require.Equal(t, "hello", received)
}

// TestConnectRefusedWithoutListener checks that connecting to an address
// with no pending Listen/ListenTo fails with ConnectionRefused.
func TestConnectRefusedWithoutListener(t *testing.T) {
	rt, mgr, tm := newHarness()
	client := address.New("n2", "client")
	server := address.New("n1", "server")

	var connectErr error
	runtime.Spawn(rt, client, func(ctx *runtime.Context) struct{} {
		_, connectErr = tm.Connect(ctx, client, server)
		return struct{}{}
	})

	rt.RunToFixedPoint(makeCtx)
	driveToQuiescence(mgr)
	rt.RunToFixedPoint(makeCtx)

	var tcpErr *tcpmodel.Error
	require.ErrorAs(t, connectErr, &tcpErr)
	require.Equal(t, tcpmodel.ConnectionRefused, tcpErr.Kind)
}

// TestCloseUnblocksPeerRecv checks that closing one end of a stream wakes
// the peer's blocked Recv with ClosedByPeer.
func TestCloseUnblocksPeerRecv(t *testing.T) {
	rt, mgr, tm := newHarness()
	server := address.New("n1", "server")
	client := address.New("n2", "client")

	var recvErr error
	runtime.Spawn(rt, server, func(ctx *runtime.Context) struct{} {
		stream, err := tm.Listen(ctx, server)
		require.NoError(t, err)
		_, recvErr = stream.Recv(ctx, make([]byte, 1))
		return struct{}{}
	})

	var clientStream *tcpmodel.Stream
	runtime.Spawn(rt, client, func(ctx *runtime.Context) struct{} {
		s, err := tm.Connect(ctx, client, server)
		require.NoError(t, err)
		clientStream = s
		return struct{}{}
	})

	rt.RunToFixedPoint(makeCtx)
	for i := 0; i < 10 && mgr.ReadyCount() > 0; i++ {
		driveToQuiescence(mgr)
		rt.RunToFixedPoint(makeCtx)
	}

	require.NotNil(t, clientStream)
	clientStream.Close()
	driveToQuiescence(mgr)
	rt.RunToFixedPoint(makeCtx)

	var tcpErr *tcpmodel.Error
	require.ErrorAs(t, recvErr, &tcpErr)
	require.Equal(t, tcpmodel.ClosedByPeer, tcpErr.Kind)
}
