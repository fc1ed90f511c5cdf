package system

import (
	"fmt"
	"hash/fnv"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/event"
)

// Hash computes this System's canonical state hash: a commutative
// combination over every node's content hash and every pending event's
// hash, with role-substituted addresses folding together symmetric
// placements. Two systems reachable via a different interleaving of
// otherwise-equivalent steps must hash equal; this is why every multiset of
// sub-hashes below is combined by wrapping addition rather than
// concatenation. The two top-level components (nodes, events) are combined
// with XOR; there are exactly two of them, fixed by position, so no
// multiset-cancellation risk applies.
func (sys *System) Hash() uint64 {
	return sys.hashNodes() ^ sys.hashEvents()
}

// nodeRepr substitutes a node's role tag for its name when one was
// registered via AddNodeWithRole, so two systems differing only in which
// concrete node plays a given role still hash equal.
func (sys *System) nodeRepr(node string) string {
	if role, ok := sys.roles[node]; ok {
		return role
	}
	return node
}

func hash64(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0}) // separator: disambiguates ("ab","c") from ("a","bc")
	}
	return h.Sum64()
}

func hashUint64(parts ...uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range parts {
		for i := range buf {
			buf[i] = byte(v >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func (sys *System) hashAddress(a address.Address) uint64 {
	return hash64(sys.nodeRepr(a.Node), a.Process)
}

// hashNode combines a node's name(-or-role) with the content hash of every
// process it hosts, itself commutative over process iteration order since a
// node's processes have no inherent ordering either. Per-process
// contributions are combined by wrapping addition rather than XOR: XOR
// cancels a value combined with itself, so two processes that happen to
// hash equal (e.g. two idle replicas of the same role) would vanish from the
// node hash entirely, collapsing states that actually differ in process
// count. Addition has no such cancellation.
func (sys *System) hashNode(n *Node) uint64 {
	var procs uint64
	for name, ps := range n.Procs {
		procs += hashUint64(hash64(name), ps.Impl.Hash())
	}
	return hashUint64(hash64(sys.nodeRepr(n.Name)), procs)
}

// hashNodes combines every node's hash via wrapping addition, for the same
// multiset-cancellation reason as hashNode's process loop above.
func (sys *System) hashNodes() uint64 {
	var out uint64
	for _, n := range sys.nodes {
		out += sys.hashNode(n)
	}
	return out
}

// hashEvent matches on every event.Info variant. RpcMessage.Payload is
// deliberately excluded: its concrete type embeds a run-dependent
// trigger.Trigger used to carry the reply back to the caller, which has no
// stable representation across replays. UDP/TCP payloads are plain
// strings/bytes and are hashed.
func (sys *System) hashEvent(ev *event.Event) uint64 {
	switch info := ev.Info.(type) {
	case event.UdpMessage:
		content, _ := info.Content.(string)
		return hashUint64(hash64("udp", content), sys.hashAddress(info.From), sys.hashAddress(info.To))

	case event.Timer:
		return hashUint64(hash64("timer"), uint64(info.MinDuration), uint64(info.MaxDuration), sys.hashAddress(info.Proc))

	case event.TcpMessage:
		// Packet's concrete type is tcpmodel-internal (connect/data markers),
		// so it's represented via its Go value formatting rather than a type
		// assertion this package has no business making.
		return hashUint64(hash64("tcp", fmt.Sprintf("%#v", info.Packet)), sys.hashAddress(info.From), sys.hashAddress(info.To))

	case event.TcpControlEvent:
		return hashUint64(hash64("tcpctl", info.ControlKind.String()), sys.hashAddress(info.ToProc))

	case event.FsEvent:
		return hashUint64(hash64("fs", info.FsKind.String()), sys.hashAddress(info.Proc))

	case event.RpcMessage:
		// Payload deliberately excluded — see doc comment above.
		return hashUint64(hash64("rpc"), sys.hashAddress(info.From), sys.hashAddress(info.To))

	case event.RpcEvent:
		return hashUint64(hash64("rpcctl", info.ControlKind.String()), sys.hashAddress(info.ToProc))

	default:
		panic("system: unhandled event.Info variant in hashEvent")
	}
}

// hashEvents combines every pending event's hash via wrapping addition
// rather than XOR, for the same multiset-cancellation reason as hashNodes:
// two pending events that hash equal (e.g. a duplicate retransmission) must
// still be distinguishable from zero or one of them.
func (sys *System) hashEvents() uint64 {
	var out uint64
	for _, ev := range sys.em.AllEvents() {
		out += sys.hashEvent(ev)
	}
	return out
}
