package event

import "container/heap"

// Container is a typed bag of events plus sub-containers, tracking the
// [first, last] timestamp bound of every descendant (§3.3). It is built
// by exactly one parser per source artifact; mutated only by that parser;
// written en-bloc when the parser returns; immutable thereafter.
//
// Containers form a tree, not a DAG (§9): the only way to attach a child
// is Container.NewChild, which always creates a fresh node under the
// receiver, so cycles cannot be constructed through this API.
type Container struct {
	DataType string

	events   []*Event
	children []*Container

	first, last int64
	hasBound    bool
}

// NewContainer returns an empty container.
func NewContainer(dataType string) *Container {
	return &Container{DataType: dataType}
}

// Append adds an event to this container and extends its timestamp bound.
func (c *Container) Append(e *Event) {
	c.events = append(c.events, e)
	c.extend(e.Timestamp)
}

// NewChild creates and attaches a fresh sub-container.
func (c *Container) NewChild(dataType string) *Container {
	child := NewContainer(dataType)
	c.children = append(c.children, child)
	return child
}

func (c *Container) extend(ts int64) {
	if !c.hasBound {
		c.first, c.last = ts, ts
		c.hasBound = true
		return
	}
	if ts < c.first {
		c.first = ts
	}
	if ts > c.last {
		c.last = ts
	}
}

// Bounds returns the (first, last) timestamp covering every descendant
// event, and whether any event has been seen yet.
func (c *Container) Bounds() (first, last int64, ok bool) {
	first, last, ok = c.first, c.last, c.hasBound
	for _, child := range c.children {
		cf, cl, cok := child.Bounds()
		if !cok {
			continue
		}
		if !ok || cf < first {
			first = cf
		}
		if !ok || cl > last {
			last = cl
		}
		ok = true
	}
	return first, last, ok
}

// Flatten walks the container tree and returns every descendant event,
// copying each attribute listed in inherited into every leaf event — the
// write-time flattening described in §9 that replaces parent-attribute
// lookup chains.
func (c *Container) Flatten(inherited map[string]Value) []*Event {
	var out []*Event
	for _, e := range c.events {
		for k, v := range inherited {
			if _, exists := e.Attributes[k]; !exists {
				e.Set(k, v)
			}
		}
		out = append(out, e)
	}
	for _, child := range c.children {
		out = append(out, child.Flatten(inherited)...)
	}
	return out
}

// iterHeapItem is one entry in the min-heap driving ordered iteration:
// one event, with seq recording the order it was pushed in.
type iterHeapItem struct {
	ts     int64
	event  *Event
	seq    int
}

type iterHeap []*iterHeapItem

func (h iterHeap) Len() int            { return len(h) }
func (h iterHeap) Less(i, j int) bool {
	if h[i].ts != h[j].ts {
		return h[i].ts < h[j].ts
	}
	return h[i].seq < h[j].seq
}
func (h iterHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *iterHeap) Push(x interface{}) { *h = append(*h, x.(*iterHeapItem)) }
func (h *iterHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Iterate returns every descendant event in non-decreasing timestamp
// order, via a min-heap over this container's own events and each
// sub-container's iterator (§3.3).
func (c *Container) Iterate() []*Event {
	h := &iterHeap{}
	heap.Init(h)
	seq := 0
	for _, e := range c.events {
		heap.Push(h, &iterHeapItem{ts: e.Timestamp, event: e, seq: seq})
		seq++
	}
	for _, child := range c.children {
		for _, e := range child.Iterate() {
			heap.Push(h, &iterHeapItem{ts: e.Timestamp, event: e, seq: seq})
			seq++
		}
	}
	out := make([]*Event, 0, h.Len())
	for h.Len() > 0 {
		item := heap.Pop(h).(*iterHeapItem)
		out = append(out, item.event)
	}
	return out
}
