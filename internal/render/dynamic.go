package render

import (
	"github.com/cdtdelta/4n6time-core/internal/dynamicparser"
	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/model"
)

// dynamicWriter buffers flattened rows and writes Plaso's dynamic CSV
// format on Close via dynamicparser.WriteEvents.
type dynamicWriter struct {
	path   string
	events []*model.Event
}

// NewDynamic returns a Writer producing psort's dynamic CSV output at
// path, grounded on original_source/plaso/output/dynamic.py.
func NewDynamic(path string) Writer {
	return &dynamicWriter{path: path}
}

func (w *dynamicWriter) WriteEvent(e *event.Event) error {
	w.events = append(w.events, model.FromEvent(e))
	return nil
}

func (w *dynamicWriter) Close() error {
	return dynamicparser.WriteEvents(w.path, w.events)
}
