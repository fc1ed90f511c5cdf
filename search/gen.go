package search

import (
	"github.com/egnees/mc-proto-sub000/event"
	"github.com/egnees/mc-proto-sub000/system"
)

// Generate enumerates every legal Step out of sys under cfg's fault
// budgets: one ready-event selection step per currently-ready event (with a
// second, Drop branch for every ready UDP datagram), plus a crash step per
// registered node, a shutdown step per available (not shut down) node, and
// a disk-fault step per node carrying a filesystem,
// each gated by its own budget counter on sys.Stat().
func Generate(sys *system.System, cfg SearchConfig) []Step {
	em := sys.EventManager()
	var steps []Step

	stat := sys.Stat()
	dropsAllowed := within(stat.UdpDropped, cfg.MaxMsgDrops)

	for i := 0; i < em.ReadyCount(); i++ {
		switch em.PeekReady(i).Info.(type) {
		case event.UdpMessage:
			steps = append(steps, SelectUdp{eventStep: eventStep{Index: i}})
			if dropsAllowed {
				steps = append(steps, SelectUdp{eventStep: eventStep{Index: i}, Drop: true})
			}
		case event.Timer:
			steps = append(steps, SelectTimer{eventStep{Index: i}})
		case event.TcpMessage:
			steps = append(steps, SelectTcpPacket{eventStep{Index: i}})
		case event.TcpControlEvent:
			steps = append(steps, SelectTcpEvent{eventStep{Index: i}})
		case event.FsEvent:
			steps = append(steps, SelectFsEvent{eventStep{Index: i}})
		case event.RpcMessage:
			steps = append(steps, SelectRpcMessage{eventStep{Index: i}})
		case event.RpcEvent:
			steps = append(steps, SelectRpcEvent{eventStep{Index: i}})
		}
	}

	names := sys.NodeNames()

	if within(stat.NodesCrashed, cfg.MaxNodeFaults) {
		for i := range names {
			steps = append(steps, CrashNode{nodeStep{Index: i}})
		}
	}

	if within(stat.NodesShutdown, cfg.MaxNodeShutdowns) {
		for i, name := range names {
			if sys.NodeAvailable(name) {
				steps = append(steps, ShutdownNode{nodeStep{Index: i}})
			}
		}
	}

	if within(stat.DiskFaults, cfg.MaxDiskFaults) {
		for i, name := range names {
			if sys.FS(name) != nil {
				steps = append(steps, CrashDisk{nodeStep{Index: i}})
			}
		}
	}

	return steps
}
