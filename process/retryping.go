package process

import (
	"time"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/system"
)

// RetryPing resends a local message to Other on a sleep loop until the
// matching reply arrives, tolerating UDP drops.
type RetryPing struct {
	Other                       address.Address
	MinDuration, MaxDuration    time.Duration
	waiting                     map[string]bool
}

func (p *RetryPing) OnMessage(ctx *runtime.Context, from address.Address, content string) {
	if from != p.Other {
		panic("retry ping: message from unexpected peer")
	}
	if p.waiting[content] {
		delete(p.waiting, content)
		system.SendLocal(ctx, content)
	}
}

func (p *RetryPing) OnLocalMessage(ctx *runtime.Context, content string) {
	if p.waiting == nil {
		p.waiting = make(map[string]bool)
	}
	p.waiting[content] = true

	other, minDur, maxDur := p.Other, p.MinDuration, p.MaxDuration
	waiting := p.waiting
	system.Spawn(ctx, func(taskCtx *runtime.Context) struct{} {
		for waiting[content] {
			system.Send(taskCtx, other, content)
			system.Sleep(taskCtx, minDur, maxDur)
		}
		return struct{}{}
	})
}

// Hash is the count of replies still outstanding: enough to distinguish
// "waiting" from "done" states without depending on which specific
// messages are pending.
func (p *RetryPing) Hash() uint64 { return uint64(len(p.waiting)) }

// RetryPong is the non-retrying peer of [RetryPing]: it echoes every
// message it receives, retransmits included (so a RetryPing whose earlier
// reply was dropped still gets one), and local-delivers only the first time
// it sees each distinct content.
type RetryPong struct {
	delivered map[string]bool
}

func (p *RetryPong) OnMessage(ctx *runtime.Context, from address.Address, content string) {
	system.Send(ctx, from, content)
	if p.delivered == nil {
		p.delivered = make(map[string]bool)
	}
	if !p.delivered[content] {
		p.delivered[content] = true
		system.SendLocal(ctx, content)
	}
}

func (p *RetryPong) OnLocalMessage(ctx *runtime.Context, content string) {
	panic("retry pong: unexpected local message")
}

func (p *RetryPong) Hash() uint64 { return uint64(len(p.delivered)) }
