// Package process collects small, reusable reference Process
// implementations exercised by the search package's scenario tests: a
// library of worked examples, not part of the core.
package process

import (
	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/system"
)

// Pinger sends whatever local message it's given straight to Other, and
// local-delivers whatever Other sends back. No retry, no state beyond the
// peer address.
type Pinger struct {
	Other address.Address
}

func (p *Pinger) OnMessage(ctx *runtime.Context, from address.Address, content string) {
	if from != p.Other {
		panic("pinger: message from unexpected peer")
	}
	system.SendLocal(ctx, content)
}

func (p *Pinger) OnLocalMessage(ctx *runtime.Context, content string) {
	system.Send(ctx, p.Other, content)
}

// Hash is 0: Pinger carries no state relevant to state-space folding.
func (p *Pinger) Hash() uint64 { return 0 }

// Ponger echoes whatever it receives back to the sender, then
// local-delivers it too.
type Ponger struct{}

func (p *Ponger) OnMessage(ctx *runtime.Context, from address.Address, content string) {
	system.Send(ctx, from, content)
	system.SendLocal(ctx, content)
}

// OnLocalMessage is unreachable: nothing in these scenarios submits a local
// message directly to a Ponger.
func (p *Ponger) OnLocalMessage(ctx *runtime.Context, content string) {
	panic("ponger: unexpected local message")
}

func (p *Ponger) Hash() uint64 { return 0 }
