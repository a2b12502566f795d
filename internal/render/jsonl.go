package render

import (
	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/jsonlparser"
	"github.com/cdtdelta/4n6time-core/internal/model"
)

// jsonlWriter buffers flattened rows and writes one JSON object per
// line on Close via jsonlparser.WriteEvents.
type jsonlWriter struct {
	path   string
	events []*model.Event
}

// NewJSONL returns a Writer producing psort's json_line output at path.
func NewJSONL(path string) Writer {
	return &jsonlWriter{path: path}
}

func (w *jsonlWriter) WriteEvent(e *event.Event) error {
	w.events = append(w.events, model.FromEvent(e))
	return nil
}

func (w *jsonlWriter) Close() error {
	return jsonlparser.WriteEvents(w.path, w.events)
}
