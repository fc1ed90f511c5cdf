package process

import (
	"hash/fnv"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/system"
)

// Broadcaster is a best-effort broadcast process: a local message is sent
// to every peer and delivered locally; a received message is recorded and
// delivered locally, with no further relaying. Best-effort, not reliable:
// a single UDP drop loses that delivery for good.
type Broadcaster struct {
	Peers []address.Address // every other process's address, Self excluded

	seen []string // append-only, in receipt order — content of every message seen
}

func (b *Broadcaster) OnMessage(ctx *runtime.Context, from address.Address, content string) {
	b.seen = append(b.seen, content)
	system.SendLocal(ctx, content)
}

func (b *Broadcaster) OnLocalMessage(ctx *runtime.Context, content string) {
	b.seen = append(b.seen, content)
	for _, peer := range b.Peers {
		system.Send(ctx, peer, content)
	}
	system.SendLocal(ctx, content)
}

// Hash folds the sequence of messages seen so far, in delivery order.
func (b *Broadcaster) Hash() uint64 {
	h := fnv.New64a()
	for _, s := range b.seen {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
