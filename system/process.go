package system

import (
	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/runtime"
)

// Process is the user-facing contract: two synchronous, non-suspending
// message handlers plus a content hash contributed to canonical state
// hashing.
//
// ctx is threaded explicitly into every handler rather than resolved from a
// hidden thread-local, matching the rest of the module (fs.File.Read,
// rpcmodel.Listener.Accept) everywhere a caller can pass one. The one place
// ctx genuinely cannot be threaded through, event.Dispatcher, resolves it
// via runtime.CurrentContext() instead (see System.DeliverUdp/DeliverLocal).
type Process interface {
	// OnMessage handles a delivered network message (UDP today; TCP/RPC
	// payloads are delivered to user code via their own stream/request
	// types instead).
	OnMessage(ctx *runtime.Context, from address.Address, content string)
	// OnLocalMessage handles a message submitted directly by the test
	// harness.
	OnLocalMessage(ctx *runtime.Context, content string)
	// Hash contributes this process's content hash to its owning node's
	// canonical hash. Processes with no internal state
	// relevant to state-space folding may simply return 0.
	Hash() uint64
}
