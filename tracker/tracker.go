// Package tracker maintains the set of pending events ordered by time
// interval and answers the two questions the step generator and event
// manager need: which events are ready to fire now, and how does selecting
// one affect every other pending event's lower bound.
//
// This is the naive sort-on-insert flavour; a Floyd-based constraint-graph
// flavour (for composite-delay consistency across all pending events) is
// intentionally not implemented. See DESIGN.md's Open Questions section.
package tracker

import (
	"sort"
	"time"

	"github.com/egnees/mc-proto-sub000/timeinterval"
)

// EventID identifies a pending event across the tracker and the event
// manager's own event map; it is allocated by the event manager, never by
// the tracker.
type EventID uint64

// segment is one pending event's time window, keyed by the event id it
// belongs to in the event manager.
type segment struct {
	from, to time.Duration
	id       EventID
}

// Tracker holds pending event windows sorted by (from, to), lexicographically.
// The zero value is ready to use.
type Tracker struct {
	segments []segment
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Add registers a new pending event window. from must be <= to.
func (t *Tracker) Add(from, to time.Duration, id EventID) {
	if from > to {
		panic("tracker: from > to")
	}
	t.segments = append(t.segments, segment{from: from, to: to, id: id})
	t.sort()
}

func (t *Tracker) sort() {
	sort.Slice(t.segments, func(i, j int) bool {
		a, b := t.segments[i], t.segments[j]
		if a.from != b.from {
			return a.from < b.from
		}
		return a.to < b.to
	})
}

// Len returns the number of pending events, ready or not.
func (t *Tracker) Len() int {
	return len(t.segments)
}

// minRight returns the minimum To across every pending segment. Ready-ness
// of any single segment is judged against this global bound: taking an event
// whose From exceeds some other pending event's To would let the clock skip
// past a point another event might still need to occupy.
func (t *Tracker) minRight() time.Duration {
	if len(t.segments) == 0 {
		return 0
	}
	m := t.segments[0].to
	for _, s := range t.segments[1:] {
		if s.to < m {
			m = s.to
		}
	}
	return m
}

// ReadyCount returns how many pending events are ready now. Because segments
// are sorted by From ascending and readiness is From <= minRight (a constant
// for the whole set), the ready events are exactly the prefix
// segments[:ReadyCount()] of the sorted slice.
func (t *Tracker) ReadyCount() int {
	r := t.minRight()
	n := 0
	for _, s := range t.segments {
		if s.from <= r {
			n++
		} else {
			break
		}
	}
	return n
}

// GetReady returns the i-th ready event's id and its interval, with To
// clamped down to the global minimum right endpoint. i must be < ReadyCount().
func (t *Tracker) GetReady(i int) (EventID, timeinterval.Interval) {
	if i < 0 || i >= t.ReadyCount() {
		panic("tracker: GetReady index out of range")
	}
	s := t.segments[i]
	r := t.minRight()
	return s.id, timeinterval.New(s.from, min(s.to, r))
}

// RemoveReady removes the i-th ready event (as selected by a step), clamps
// its own interval to the prior minimum right endpoint, and then raises
// every remaining segment's From to at least the selected event's original
// From. This is the formal statement of "advancing the clock past the
// selected event's lower bound forbids any remaining event from being
// considered to happen earlier than that". It returns the selected event's
// (clamped) interval.
func (t *Tracker) RemoveReady(i int) (EventID, timeinterval.Interval) {
	if i < 0 || i >= t.ReadyCount() {
		panic("tracker: RemoveReady index out of range")
	}
	r := t.minRight()
	selected := t.segments[i]
	selectedInterval := timeinterval.New(selected.from, min(selected.to, r))

	t.segments = append(t.segments[:i:i], t.segments[i+1:]...)
	for idx := range t.segments {
		if t.segments[idx].from < selected.from {
			t.segments[idx].from = selected.from
		}
	}
	t.sort()

	return selected.id, selectedInterval
}

// RemoveByEventID removes a pending event by id regardless of readiness,
// without any of RemoveReady's consistency adjustment — used for
// cancellation (node crash/shutdown, trigger drop), which is not a
// "selection" and must not perturb other events' bounds. Reports whether the
// id was present.
func (t *Tracker) RemoveByEventID(id EventID) bool {
	for i, s := range t.segments {
		if s.id == id {
			t.segments = append(t.segments[:i:i], t.segments[i+1:]...)
			return true
		}
	}
	return false
}

func min(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
