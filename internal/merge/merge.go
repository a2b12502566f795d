// Package merge implements the §4.K merge-sort reader (psort): given a
// storage container and an optional event filter, produce a single
// globally time-sorted stream over an optional [lower, upper] time
// slice, via a k-way min-heap merge over per-chunk (timestamp, offset)
// iterators.
//
// Grounded on original_source/plaso/lib/psort.py's merge phase (chunk
// range pruning, heap-driven k-way merge) and on event.Container's own
// min-heap Iterate (internal/event/container.go), the in-process analogue
// of the same merge this package performs across chunks.
package merge

import (
	"container/heap"
	"fmt"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/storage"
)

// EventFilter decides whether an event should be emitted. nil means
// every event passes.
type EventFilter interface {
	Matches(e *event.Event) bool
}

// heapItem is one chunk's current head entry, parked on the merge heap.
type heapItem struct {
	ts       int64
	offset   int64
	chunkNum int
	seq      int // tiebreak: preserves discovery order among equal timestamps
}

type itemHeap []*heapItem

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].ts != h[j].ts {
		return h[i].ts < h[j].ts
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(*heapItem)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Reader performs the k-way merge described in §4.K. Construct with New,
// then call Next repeatedly until ok is false.
type Reader struct {
	r      *storage.Reader
	lo, hi int64
	filter EventFilter

	iters map[int]*storage.ChunkIterator
	h     *itemHeap
	seq   int

	dedup    bool
	lastTS   int64
	lastData string
	lastMsg  string
	haveLast bool
	dupCount int

	slicer  *Slicer
	tees    []AnalysisSink
	pending []*event.Event // slicer context events queued ahead of their trigger
}

// Option configures a Reader at construction time.
type Option func(*Reader)

// WithFilter installs an event filter; only matching events are emitted.
func WithFilter(f EventFilter) Option {
	return func(r *Reader) { r.filter = f }
}

// WithDuplicateSuppression enables the optional duplicate-suppression
// feature of §4.K: consecutive events with the same timestamp, data
// type, and display name are collapsed to one, with the rest counted
// (DuplicatesSuppressed).
func WithDuplicateSuppression() Option {
	return func(r *Reader) { r.dedup = true }
}

// WithSlicer enables the optional slicer feature: context events
// surrounding each filter match are emitted even though they do not
// themselves match.
func WithSlicer(s *Slicer) Option {
	return func(r *Reader) { r.slicer = s }
}

// WithAnalysisTee registers an analysis-plugin sink that observes every
// emitted event (§4.K's pub/sub analysis stage).
func WithAnalysisTee(sinks ...AnalysisSink) Option {
	return func(r *Reader) { r.tees = append(r.tees, sinks...) }
}

// New builds a Reader over container r, restricted to [lo, hi]
// (use math.MinInt64/math.MaxInt64 for an unbounded slice).
func New(r *storage.Reader, lo, hi int64, opts ...Option) (*Reader, error) {
	chunks, err := r.ListChunks()
	if err != nil {
		return nil, fmt.Errorf("merge: list chunks: %w", err)
	}

	mr := &Reader{r: r, lo: lo, hi: hi, iters: map[int]*storage.ChunkIterator{}, h: &itemHeap{}}
	for _, opt := range opts {
		opt(mr)
	}
	heap.Init(mr.h)

	for _, c := range chunks {
		if !c.InRange(lo, hi) {
			continue
		}
		it, err := r.OpenChunk(c.Num)
		if err != nil {
			return nil, fmt.Errorf("merge: open chunk %d: %w", c.Num, err)
		}
		mr.iters[c.Num] = it
		mr.fillFrom(c.Num)
	}
	return mr, nil
}

// fillFrom advances chunk num's iterator past any entries outside
// [lo, hi] and pushes the first surviving entry onto the heap.
func (r *Reader) fillFrom(num int) {
	it := r.iters[num]
	for {
		e, ok := it.Next()
		if !ok {
			return
		}
		if e.Timestamp < r.lo || e.Timestamp > r.hi {
			continue
		}
		heap.Push(r.h, &heapItem{ts: e.Timestamp, offset: e.Offset, chunkNum: num, seq: r.seq})
		r.seq++
		return
	}
}

// Next returns the next event in non-decreasing timestamp order, or
// ok=false once every chunk is exhausted. When a filter is installed,
// non-matching events are consumed internally and never returned.
func (r *Reader) Next() (*event.Event, bool, error) {
	for r.h.Len() > 0 {
		item := heap.Pop(r.h).(*heapItem)
		r.fillFrom(item.chunkNum)

		e, err := r.r.Materialize(item.chunkNum, item.offset)
		if err != nil {
			return nil, false, fmt.Errorf("merge: materialize chunk %d offset %d: %w", item.chunkNum, item.offset, err)
		}

		if r.slicer != nil {
			r.slicer.observe(e)
		}

		matched := r.filter == nil || r.filter.Matches(e)
		inSliceWindow := r.slicer != nil && r.slicer.inAfterWindow(e.Timestamp)
		if !matched && !inSliceWindow {
			continue
		}

		if r.dedup && r.isDuplicate(e) {
			r.dupCount++
			continue
		}
		r.rememberForDedup(e)

		for _, t := range r.tees {
			t.Observe(e)
		}

		if matched && r.slicer != nil {
			// Emit buffered pre-match context ahead of e itself.
			ctx := r.slicer.onMatch(e)
			if len(ctx) > 0 {
				r.pending = append(r.pending, ctx...)
			}
		}

		if len(r.pending) > 0 {
			next := r.pending[0]
			r.pending = r.pending[1:]
			r.pending = append(r.pending, e)
			return next, true, nil
		}
		return e, true, nil
	}
	if len(r.pending) > 0 {
		next := r.pending[0]
		r.pending = r.pending[1:]
		return next, true, nil
	}
	return nil, false, nil
}

func (r *Reader) isDuplicate(e *event.Event) bool {
	if !r.haveLast {
		return false
	}
	return e.Timestamp == r.lastTS && e.DataType == r.lastData && e.DisplayName == r.lastMsg
}

func (r *Reader) rememberForDedup(e *event.Event) {
	r.lastTS = e.Timestamp
	r.lastData = e.DataType
	r.lastMsg = e.DisplayName
	r.haveLast = true
}

// DuplicatesSuppressed returns how many consecutive duplicate events
// WithDuplicateSuppression has dropped so far.
func (r *Reader) DuplicatesSuppressed() int { return r.dupCount }
