package render

import (
	"github.com/cdtdelta/4n6time-core/internal/csvparser"
	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/model"
)

// l2tCSVWriter buffers flattened rows and writes them out in one pass on
// Close via csvparser.WriteEvents (the teacher's bulk exporter), since
// the underlying encoding/csv.Writer has no append mode once the header
// line has been written.
type l2tCSVWriter struct {
	path   string
	events []*model.Event
}

// NewL2TCSV returns a Writer producing the classic log2timeline CSV
// format at path, grounded on original_source/output/l2t_csv.py.
func NewL2TCSV(path string) Writer {
	return &l2tCSVWriter{path: path}
}

func (w *l2tCSVWriter) WriteEvent(e *event.Event) error {
	w.events = append(w.events, model.FromEvent(e))
	return nil
}

func (w *l2tCSVWriter) Close() error {
	return csvparser.WriteEvents(w.path, w.events)
}
