package render

import (
	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/model"
	"github.com/cdtdelta/4n6time-core/internal/tlnparser"
)

// tlnWriter buffers flattened rows and writes L2TTLN format on Close via
// tlnparser.WriteEvents.
type tlnWriter struct {
	path   string
	events []*model.Event
}

// NewTLN returns a Writer producing L2TTLN ("Time|Source|Host|User|
// Description|TZ|Notes") output at path, grounded on
// original_source/plaso/output/l2t_tln.py.
func NewTLN(path string) Writer {
	return &tlnWriter{path: path}
}

func (w *tlnWriter) WriteEvent(e *event.Event) error {
	w.events = append(w.events, model.FromEvent(e))
	return nil
}

func (w *tlnWriter) Close() error {
	return tlnparser.WriteEvents(w.path, w.events)
}
