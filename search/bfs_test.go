package search_test

import (
	"testing"
	"time"

	"github.com/egnees/mc-proto-sub000/address"
	"github.com/egnees/mc-proto-sub000/process"
	"github.com/egnees/mc-proto-sub000/runtime"
	"github.com/egnees/mc-proto-sub000/search"
	"github.com/egnees/mc-proto-sub000/system"
	"github.com/stretchr/testify/require"
)

// TestBFS_PingPongNoDrops: a plain (non-retrying) ping-pong pair with no
// fault/drop budget must deterministically reach a
// state where the pinger's locals contain the echoed message, in at least
// two steps (the ping's delivery, then the pong's).
func TestBFS_PingPongNoDrops(t *testing.T) {
	pingerAddr := address.New("n1", "ping")
	pongerAddr := address.New("n2", "pong")

	build := func() *system.System {
		sys := system.New(system.Default())
		require.NoError(t, sys.AddNode("n1"))
		require.NoError(t, sys.AddNode("n2"))
		addr, err := sys.AddProcess("n1", "ping", &process.Pinger{Other: pongerAddr})
		require.NoError(t, err)
		require.Equal(t, pingerAddr, addr)
		_, err = sys.AddProcess("n2", "pong", &process.Ponger{})
		require.NoError(t, err)
		pan := sys.SendLocalFromUser(pingerAddr, "hello")
		require.Nil(t, pan)
		return sys
	}

	goalReachedAt := 0
	searcher := search.NewBFS(search.NewTrace(build), search.NoFaultsNoDrops()).
		WithGoal(func(sv search.StateView) bool {
			locals := sv.System().ReadLocals(pingerAddr)
			if len(locals) > 0 {
				goalReachedAt = sv.Trace().Len()
				return true
			}
			return false
		})

	require.NoError(t, searcher.Check())
	require.GreaterOrEqual(t, goalReachedAt, 2)

	report := searcher.Report()
	require.Positive(t, report.VisitedTotal)
	require.Positive(t, report.VisitedUnique)
	require.LessOrEqual(t, report.VisitedUnique, report.VisitedTotal)
}

// TestBFS_CycleDetection: a process that reschedules its own timer forever
// without ever making observable progress revisits
// the exact same canonical state every period, which BFS must report as a
// Cycled violation rather than exploring forever.
func TestBFS_CycleDetection(t *testing.T) {
	build := func() *system.System {
		sys := system.New(system.Default())
		require.NoError(t, sys.AddNode("n1"))
		addr, err := sys.AddProcess("n1", "loop", &looper{})
		require.NoError(t, err)
		pan := sys.SendLocalFromUser(addr, "start")
		require.Nil(t, pan)
		return sys
	}

	searcher := search.NewBFS(search.NewTrace(build), search.NoFaultsNoDrops())
	err := searcher.Check()
	require.Error(t, err)

	var searchErr *search.SearchError
	require.ErrorAs(t, err, &searchErr)
	var cycled *search.Cycled
	require.ErrorAs(t, searchErr, &cycled)
	require.GreaterOrEqual(t, cycled.Trace.Len(), 1)
}

// looper makes zero observable progress: on its first local message it
// spawns a task that sleeps for a fixed zero-width duration forever,
// rescheduling an identical Timer event every period.
type looper struct{}

func (l *looper) OnMessage(ctx *runtime.Context, from address.Address, content string) {}

func (l *looper) OnLocalMessage(ctx *runtime.Context, content string) {
	system.Spawn(ctx, func(taskCtx *runtime.Context) struct{} {
		for {
			system.Sleep(taskCtx, time.Millisecond, time.Millisecond)
		}
	})
}

func (l *looper) Hash() uint64 { return 0 }
