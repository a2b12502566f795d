package merge

import "github.com/cdtdelta/4n6time-core/internal/event"

// Slicer implements the optional "slicer" feature of §4.K: every event
// the merge observes is buffered, regardless of filter match, for one
// window behind the latest observed timestamp; when the filter does
// match an event, the buffered events preceding it are flushed as
// context, and events up to one window after the match are also passed
// through unfiltered.
type Slicer struct {
	windowMicros int64

	before    []*event.Event
	afterUntil int64
	hasAfter   bool
}

// NewSlicer returns a Slicer with the given window in minutes.
func NewSlicer(windowMinutes int) *Slicer {
	return &Slicer{windowMicros: int64(windowMinutes) * 60 * 1_000_000}
}

// observe records every event the merge produces, trimming the buffer to
// the configured window behind e's timestamp.
func (s *Slicer) observe(e *event.Event) {
	s.before = append(s.before, e)
	cutoff := e.Timestamp - s.windowMicros
	i := 0
	for ; i < len(s.before); i++ {
		if s.before[i].Timestamp >= cutoff {
			break
		}
	}
	s.before = s.before[i:]
}

// onMatch returns the buffered pre-match context (oldest first, e itself
// excluded) and opens the post-match window.
func (s *Slicer) onMatch(e *event.Event) []*event.Event {
	ctx := make([]*event.Event, 0, len(s.before))
	for _, be := range s.before {
		if be != e {
			ctx = append(ctx, be)
		}
	}
	s.before = nil
	s.afterUntil = e.Timestamp + s.windowMicros
	s.hasAfter = true
	return ctx
}

// inAfterWindow reports whether ts still falls inside an open post-match
// window.
func (s *Slicer) inAfterWindow(ts int64) bool {
	return s.hasAfter && ts <= s.afterUntil
}

// AnalysisSink receives every event emitted by the merge-sort reader
// (§4.K's pub/sub analysis stage) and produces a summary report at the
// end of the stream.
type AnalysisSink interface {
	Observe(e *event.Event)
	Report() string
}
