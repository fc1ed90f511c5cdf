package search

import (
	"fmt"
	"strings"

	"github.com/egnees/mc-proto-sub000/event"
	"github.com/google/uuid"
)

// runNamespace seeds every run id RunID derives. An arbitrary fixed UUID,
// never uuid.New: a random namespace (or calling uuid.New directly for the
// run id itself) would reintroduce nondeterminism into an identifier meant
// to be replay-stable.
var runNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// RunID derives a stable identifier for trace from its step sequence
// alone, so two independent replays of the identical trace agree on the
// same id without coordinating.
func RunID(trace Trace) uuid.UUID {
	var b strings.Builder
	for _, step := range trace.Steps() {
		b.WriteString(step.String())
		b.WriteByte('\n')
	}
	return uuid.NewMD5(runNamespace, []byte(b.String()))
}

// SearchLog pairs a run's derived id with the event log its replay
// produced; distinct from event.Log itself in that it's addressable by
// RunID rather than only by the Trace that produced it. Neither Searcher
// nor Checker builds one.
type SearchLog struct {
	RunID uuid.UUID
	Log   *event.Log
}

// NewSearchLog derives trace's RunID and pairs it with log.
func NewSearchLog(trace Trace, log *event.Log) SearchLog {
	return SearchLog{RunID: RunID(trace), Log: log}
}

func (l SearchLog) String() string {
	return fmt.Sprintf("run %s:\n%s", l.RunID, l.Log)
}
