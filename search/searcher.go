package search

import "github.com/egnees/mc-proto-sub000/internal/diag"

// InvariantFunc inspects a reached state and returns a non-nil error
// describing the first invariant it finds broken, or nil if state is fine.
type InvariantFunc func(StateView) error

// GoalFunc reports whether state satisfies the property being searched
// for. A goal-achieving state is a terminal leaf: Searcher marks it and
// never expands past it.
type GoalFunc func(StateView) bool

// PruneFunc reports whether state's successors should be skipped entirely
// (a non-terminal leaf, distinct from a goal — e.g. bounding search depth).
type PruneFunc func(StateView) bool

type order int

const (
	orderBFS order = iota
	orderDFS
)

// Searcher explores every state reachable from a seed Trace, branching per
// [Generate]'s legal steps, in either breadth-first or depth-first order.
// Construct one via [NewBFS] or [NewDFS]; the two share the identical loop
// body save for which end of the frontier pops from.
type Searcher struct {
	seed      Trace
	cfg       SearchConfig
	invariant InvariantFunc
	goal      GoalFunc
	prune     PruneFunc
	order     order
	report    SearchReport
}

// SearchReport summarizes a finished exploration: VisitedTotal counts
// every frontier pop (including revisits of an already-seen canonical
// state), VisitedUnique counts the distinct canonical hashes seen.
// Available via [Searcher.Report] after Check or Collect returns.
type SearchReport struct {
	VisitedTotal  int
	VisitedUnique int
}

// Report returns the {visited_total, visited_unique} counters from the most
// recent Check or Collect call.
func (s *Searcher) Report() SearchReport { return s.report }

// WithInvariant attaches an invariant check; every reached state, goal and
// pruned states included, is checked as soon as it's reached, before the
// goal and prune checks run.
func (s *Searcher) WithInvariant(f InvariantFunc) *Searcher { s.invariant = f; return s }

// WithGoal attaches a goal check; a goal-achieving state is collected and
// not expanded further.
func (s *Searcher) WithGoal(f GoalFunc) *Searcher { s.goal = f; return s }

// WithPrune attaches a prune check; a pruned state is dropped without
// expanding or collecting it.
func (s *Searcher) WithPrune(f PruneFunc) *Searcher { s.prune = f; return s }

// Check explores every state reachable from the seed trace, failing fast on
// the first invariant violation, liveness violation, or process panic.
// Cycled/AllPruned are decided only once the whole frontier has drained;
// whether any branch reached the goal takes priority over either.
func (s *Searcher) Check() error {
	_, err := s.run()
	return err
}

// Collect is Check's non-failing counterpart: it still enforces every
// invariant and surfaces panics/cycles, but returns the traces of every
// goal-achieving or otherwise terminal state
// instead of discarding them, for a Checker to resume exploration from.
// If nothing at all was collected, the error is Cycled when some branch
// revisited a known state and none was pruned, and AllPruned otherwise.
func (s *Searcher) Collect() ([]Trace, error) {
	out, err := s.run()
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &SearchError{Cause: &AllPruned{}}
	}
	return out, nil
}

// run is the shared BFS/DFS loop: pop a trace from whichever end of the
// frontier this Searcher's order dictates, replay it to a SearchState, run
// the dedup/invariant/goal/prune gauntlet, then push every legal successor
// step back onto the frontier as a new branch.
//
// Revisiting an already-seen canonical state is not itself immediately
// fatal: the state still runs through the invariant/goal/prune checks
// below, and only fails to expand further. Whether the whole search
// ultimately succeeds or reports Cycled is decided once the frontier is
// fully drained, not at the moment of the first revisit: a single cyclic
// branch must not pre-empt a goal, or an invariant violation, still
// waiting to be found along a different branch.
func (s *Searcher) run() ([]Trace, error) {
	frontier := []Trace{s.seed}
	visited := make(map[uint64]bool)
	var collected []Trace
	var lastCycled *Cycled
	anyPruned := false
	visitedTotal := 0

	for len(frontier) > 0 {
		var trace Trace
		if s.order == orderBFS {
			trace, frontier = frontier[0], frontier[1:]
		} else {
			last := len(frontier) - 1
			trace, frontier = frontier[last], frontier[:last]
		}
		visitedTotal++

		state, err := newSearchState(trace)
		if err != nil {
			return nil, err
		}

		h := state.System().Hash()
		alreadyMet := visited[h]
		visited[h] = true

		if s.invariant != nil {
			if ierr := s.invariant(state); ierr != nil {
				return nil, &SearchError{Cause: &InvariantViolation{
					Message: ierr.Error(), Trace: trace, Log: state.System().Log(),
				}}
			}
		}

		if s.goal != nil && s.goal(state) {
			collected = append(collected, trace)
			continue
		}

		if s.prune != nil && s.prune(state) {
			anyPruned = true
			continue
		}

		if alreadyMet {
			lastCycled = &Cycled{Trace: trace, Hash: h}
			continue
		}

		steps := Generate(state.System(), s.cfg)
		if len(steps) == 0 {
			if s.goal != nil {
				return nil, &SearchError{Cause: &LivenessViolation{Trace: trace, Log: state.System().Log()}}
			}
			collected = append(collected, trace)
			continue
		}

		for _, step := range steps {
			frontier = append(frontier, trace.WithStep(step))
		}
	}

	s.report = SearchReport{VisitedTotal: visitedTotal, VisitedUnique: len(visited)}
	diag.Logger().Debug().
		Int("visited_total", s.report.VisitedTotal).
		Int("visited_unique", s.report.VisitedUnique).
		Log("search: frontier drained")

	if len(collected) > 0 {
		return collected, nil
	}
	if anyPruned {
		return nil, &SearchError{Cause: &AllPruned{}}
	}
	if lastCycled != nil {
		return nil, &SearchError{Cause: lastCycled}
	}
	return collected, nil
}
