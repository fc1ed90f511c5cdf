package search_test

import (
	"fmt"
	"testing"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/process"
	"github.com/egnees/mc-proto-sub000/search"
	"github.com/egnees/mc-proto-sub000/system"
	"github.com/stretchr/testify/require"
)

// sameSet reports whether a and b contain the same elements, ignoring
// order and duplicates.
func sameSet(a, b []string) bool {
	ma := make(map[string]bool, len(a))
	for _, s := range a {
		ma[s] = true
	}
	mb := make(map[string]bool, len(b))
	for _, s := range b {
		mb[s] = true
	}
	if len(ma) != len(mb) {
		return false
	}
	for s := range ma {
		if !mb[s] {
			return false
		}
	}
	return true
}

// buildBroadcast3 wires three best-effort broadcasters on three nodes,
// n0/n1/n2, and kicks off a single broadcast from n0.
func buildBroadcast3(t *testing.T) search.Builder {
	return func() *system.System {
		sys := system.New(system.Default())
		require.NoError(t, sys.AddNode("n0"))
		require.NoError(t, sys.AddNode("n1"))
		require.NoError(t, sys.AddNode("n2"))

		a0 := address.New("n0", "b")
		a1 := address.New("n1", "b")
		a2 := address.New("n2", "b")

		_, err := sys.AddProcess("n0", "b", &process.Broadcaster{Peers: []address.Address{a1, a2}})
		require.NoError(t, err)
		_, err = sys.AddProcess("n1", "b", &process.Broadcaster{Peers: []address.Address{a0, a2}})
		require.NoError(t, err)
		_, err = sys.AddProcess("n2", "b", &process.Broadcaster{Peers: []address.Address{a0, a1}})
		require.NoError(t, err)

		pan := sys.SendLocalFromUser(a0, "hello")
		require.Nil(t, pan)
		return sys
	}
}

// TestChecker_BroadcastCrashDetectsDisagreement drives the full
// collect -> apply -> check pipeline: collect states where some surviving
// peer has already delivered the broadcast, crash the sender (node 0), then
// check whether the surviving peers agree. Since a message already in
// flight from the crashed sender is cancelled along with every other event
// mentioning it, a state collected before BOTH peers received the
// broadcast is a genuine, reachable disagreement — the "documented
// violation" half of S3, not the agreement half.
func TestChecker_BroadcastCrashDetectsDisagreement(t *testing.T) {
	a1 := address.New("n1", "b")
	a2 := address.New("n2", "b")

	checker := search.NewChecker(buildBroadcast3(t))

	err := checker.Collect(func(seed search.Trace) *search.Searcher {
		return search.NewBFS(seed, search.NoFaultsNoDrops()).
			WithGoal(func(sv search.StateView) bool {
				return len(sv.System().ReadLocals(a1)) > 0 || len(sv.System().ReadLocals(a2)) > 0
			})
	})
	require.NoError(t, err)
	require.NotEmpty(t, checker.States())

	require.NoError(t, checker.Apply(search.NewCrashNode(0)))

	err = checker.Check(func(seed search.Trace) *search.Searcher {
		return search.NewBFS(seed, search.NoFaultsNoDrops()).
			WithInvariant(func(sv search.StateView) error {
				sys := sv.System()
				if sys.EventManager().ReadyCount() > 0 {
					return nil
				}
				if !sameSet(sys.ReadLocals(a1), sys.ReadLocals(a2)) {
					return fmt.Errorf("surviving peers disagree: n1=%v n2=%v",
						sys.ReadLocals(a1), sys.ReadLocals(a2))
				}
				return nil
			})
	})

	require.Error(t, err)
	var searchErr *search.SearchError
	require.ErrorAs(t, err, &searchErr)
	var invariant *search.InvariantViolation
	require.ErrorAs(t, searchErr, &invariant)
}
