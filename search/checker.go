package search

// Checker drives one or more stored traces through a pipeline of stages:
// narrow them by scripting a step onto every one (Apply), grow them by
// running a Searcher from each (Collect), assert something about each
// directly (ForEach), or run a Searcher from each without keeping the
// result (Check).
type Checker struct {
	states []Trace
}

// NewChecker seeds a Checker with the single initial trace build produces.
func NewChecker(build Builder) *Checker {
	return &Checker{states: []Trace{NewTrace(build)}}
}

// States returns a copy of the currently stored traces.
func (c *Checker) States() []Trace {
	out := make([]Trace, len(c.states))
	copy(out, c.states)
	return out
}

// Apply appends step to every stored trace, replaying each one first to
// confirm the step is legal there (e.g. a scripted crash or local-send
// every stored state must tolerate).
func (c *Checker) Apply(step Step) error {
	next := make([]Trace, 0, len(c.states))
	for _, t := range c.states {
		candidate := t.WithStep(step)
		if _, err := newSearchState(candidate); err != nil {
			return err
		}
		next = append(next, candidate)
	}
	c.states = next
	return nil
}

// Collect replaces the stored traces with the concatenation of every
// Searcher's collected traces, one Searcher built per stored trace via
// newSearcher.
func (c *Checker) Collect(newSearcher func(seed Trace) *Searcher) error {
	var next []Trace
	for _, t := range c.states {
		out, err := newSearcher(t).Collect()
		if err != nil {
			return err
		}
		next = append(next, out...)
	}
	c.states = next
	return nil
}

// Check runs a Searcher (built per stored trace via newSearcher) from
// every stored trace, failing fast on the first error without mutating the
// stored traces: the pipeline's final assertion.
func (c *Checker) Check(newSearcher func(seed Trace) *Searcher) error {
	for _, t := range c.states {
		if err := newSearcher(t).Check(); err != nil {
			return err
		}
	}
	return nil
}

// ForEach invokes f with every stored trace's reconstructed state, for
// assertions that don't need a full Searcher pass.
func (c *Checker) ForEach(f func(StateView) error) error {
	for _, t := range c.states {
		state, err := newSearchState(t)
		if err != nil {
			return err
		}
		if err := f(state); err != nil {
			return err
		}
	}
	return nil
}
