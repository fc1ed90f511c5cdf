// Package timeinterval models the uncertainty window attached to every
// scheduled event: a pair of non-negative durations [From, To] with
// From <= To. Range-based delays (e.g. "UDP delivery lands somewhere in
// [100ms, 200ms]") widen an interval; selecting an event for delivery is the
// only operation allowed to narrow one, and only down to the system-wide
// minimum right endpoint.
package timeinterval

import (
	"fmt"
	"time"
)

// Interval is a closed time window during which an event may happen.
// The zero value, {0, 0}, is a valid interval denoting "now".
type Interval struct {
	From time.Duration
	To   time.Duration
}

// New builds an Interval, panicking if from > to: a malformed interval is a
// programmer error in this package's callers, never a condition recoverable
// by inspecting it afterwards.
func New(from, to time.Duration) Interval {
	if from > to {
		panic(fmt.Sprintf("timeinterval: from (%s) > to (%s)", from, to))
	}
	return Interval{From: from, To: to}
}

// Shift adds a single fixed delay to both endpoints.
func (iv Interval) Shift(d time.Duration) Interval {
	return Interval{From: iv.From + d, To: iv.To + d}
}

// ShiftRange widens the interval by a delay range: lo is added to From, hi to
// To. Used whenever a process action (send, sleep, emit) carries a
// [min,max] delay rather than a fixed one.
func (iv Interval) ShiftRange(lo, hi time.Duration) Interval {
	if lo > hi {
		panic(fmt.Sprintf("timeinterval: lo (%s) > hi (%s)", lo, hi))
	}
	return Interval{From: iv.From + lo, To: iv.To + hi}
}

// Max returns the pointwise maximum of a and b on each endpoint
// independently; the result is not necessarily equal to either operand.
func Max(a, b Interval) Interval {
	return Interval{From: maxDuration(a.From, b.From), To: maxDuration(a.To, b.To)}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// Compare orders intervals lexicographically on (From, To): returns a
// negative number if a < b, zero if equal, a positive number if a > b.
func Compare(a, b Interval) int {
	if a.From != b.From {
		if a.From < b.From {
			return -1
		}
		return 1
	}
	switch {
	case a.To < b.To:
		return -1
	case a.To > b.To:
		return 1
	default:
		return 0
	}
}

// ClampTo returns iv with its To endpoint clamped down to r, the rule applied
// whenever an event is read out as "ready": its right endpoint can never be
// reported as looser than the system-wide minimum right endpoint.
func (iv Interval) ClampTo(r time.Duration) Interval {
	if iv.To > r {
		iv.To = r
	}
	return iv
}

// AdvanceFrom returns iv with From raised to at least floor: the formal
// statement of "once the clock passes floor, nothing pending may be
// considered to happen before it".
func (iv Interval) AdvanceFrom(floor time.Duration) Interval {
	if iv.From < floor {
		iv.From = floor
	}
	return iv
}

// LessEq reports whether a <= b against the lexicographic ordering used
// throughout the tracker and searcher (a.From <= b.From is NOT sufficient: an
// event is ready relative to a scalar bound, this helper is for comparing two
// full intervals, e.g. validating outcome monotonicity).
func LessEq(a, b Interval) bool {
	return Compare(a, b) <= 0
}

// Dominates reports whether both of b's endpoints are >= the corresponding
// endpoints of a: the monotonicity check applied to successive system
// intervals.
func Dominates(a, b Interval) bool {
	return b.From >= a.From && b.To >= a.To
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s]", iv.From, iv.To)
}
