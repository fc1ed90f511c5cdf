package system_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/system"
)

// tagProc is a minimal process whose only observable state is its content
// hash; on a local message it sends the content on to Peer, leaving a
// pending UDP event behind.
type tagProc struct {
	H    uint64
	Peer address.Address
}

func (p *tagProc) OnMessage(ctx *runtime.Context, from address.Address, content string) {}

func (p *tagProc) OnLocalMessage(ctx *runtime.Context, content string) {
	if p.Peer != (address.Address{}) {
		system.Send(ctx, p.Peer, content)
	}
}

func (p *tagProc) Hash() uint64 { return p.H }

func TestHashRoleSubstitution(t *testing.T) {
	build := func(name string) *system.System {
		sys := system.New(system.Default())
		require.NoError(t, sys.AddNodeWithRole(name, "worker"))
		_, err := sys.AddProcess(name, "p", &tagProc{H: 7})
		require.NoError(t, err)
		return sys
	}

	a := build("alpha")
	b := build("beta")
	require.Equal(t, a.Hash(), b.Hash(), "same role, different node name: hashes must fold")

	// Without roles the node name itself is hashed, so they diverge.
	buildNoRole := func(name string) *system.System {
		sys := system.New(system.Default())
		require.NoError(t, sys.AddNode(name))
		_, err := sys.AddProcess(name, "p", &tagProc{H: 7})
		require.NoError(t, err)
		return sys
	}
	require.NotEqual(t, buildNoRole("alpha").Hash(), buildNoRole("beta").Hash())
}

func TestHashDependsOnProcessContent(t *testing.T) {
	build := func(h uint64) *system.System {
		sys := system.New(system.Default())
		require.NoError(t, sys.AddNodeWithRole("n", "worker"))
		_, err := sys.AddProcess("n", "p", &tagProc{H: h})
		require.NoError(t, err)
		return sys
	}
	require.NotEqual(t, build(1).Hash(), build(2).Hash())
}

// TestHashRoleSubstitutionInPendingEvents: a pending UDP message mentions
// both endpoint nodes by name; with both nodes role-tagged, swapping the
// concrete names must still produce equal hashes.
func TestHashRoleSubstitutionInPendingEvents(t *testing.T) {
	build := func(senderNode, receiverNode string) *system.System {
		sys := system.New(system.Default())
		require.NoError(t, sys.AddNodeWithRole(senderNode, "sender"))
		require.NoError(t, sys.AddNodeWithRole(receiverNode, "receiver"))

		receiver := address.New(receiverNode, "q")
		senderAddr, err := sys.AddProcess(senderNode, "p", &tagProc{H: 1, Peer: receiver})
		require.NoError(t, err)
		_, err = sys.AddProcess(receiverNode, "q", &tagProc{H: 2})
		require.NoError(t, err)

		require.Nil(t, sys.SendLocalFromUser(senderAddr, "m"))
		require.Len(t, sys.EventManager().AllEvents(), 1, "the send must leave one pending UDP event")
		return sys
	}

	a := build("alpha", "beta")
	b := build("beta", "alpha")
	require.Equal(t, a.Hash(), b.Hash())
}

// TestHashSymmetricPlacements: three nodes sharing one role fold into the
// same hash under any relabelling.
func TestHashSymmetricPlacements(t *testing.T) {
	build := func(names [3]string) *system.System {
		sys := system.New(system.Default())
		for _, name := range names {
			require.NoError(t, sys.AddNodeWithRole(name, "bcast"))
			_, err := sys.AddProcess(name, "p", &tagProc{H: 3})
			require.NoError(t, err)
		}
		return sys
	}

	base := build([3]string{"a", "b", "c"}).Hash()
	require.Equal(t, base, build([3]string{"b", "c", "a"}).Hash())
	require.Equal(t, base, build([3]string{"c", "a", "b"}).Hash())
}

// TestCrashNodeCancellation: after a crash, no pending event mentions the
// node and its processes are unreachable.
func TestCrashNodeCancellation(t *testing.T) {
	sys := system.New(system.Default())
	require.NoError(t, sys.AddNode("n1"))
	require.NoError(t, sys.AddNode("n2"))

	target := address.New("n2", "q")
	sender, err := sys.AddProcess("n1", "p", &tagProc{H: 1, Peer: target})
	require.NoError(t, err)
	_, err = sys.AddProcess("n2", "q", &tagProc{H: 2})
	require.NoError(t, err)

	require.Nil(t, sys.SendLocalFromUser(sender, "m"))
	require.Len(t, sys.EventManager().AllEvents(), 1)

	pan, err := sys.CrashNode("n2")
	require.NoError(t, err)
	require.Nil(t, pan)

	require.Empty(t, sys.EventManager().AllEvents())
	require.Equal(t, 1, sys.NodesCount())
	require.False(t, sys.NodeAvailable("n2"))
	require.Nil(t, sys.ReadLocals(target))
}
