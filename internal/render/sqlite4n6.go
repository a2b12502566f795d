package render

import (
	"fmt"

	"github.com/cdtdelta/4n6time-core/internal/database"
	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/model"
)

// sqlite4n6Writer inserts each flattened row directly into a 4n6time
// SQLite database as it arrives — unlike the flat-file formats, the
// teacher's database.Store already supports row-at-a-time inserts, so
// no buffering is needed here.
type sqlite4n6Writer struct {
	store database.Store
}

// NewSQLite4n6 creates (or overwrites, if indexFields is non-nil and the
// caller has already removed any existing file) a 4n6time SQLite
// database at path and returns a Writer over it, grounded on
// original_source/output/sqlite_4n6.py's schema (kept nearly whole in
// internal/database, see DESIGN.md).
func NewSQLite4n6(path string, indexFields []string) (Writer, error) {
	store, err := database.CreateStore("sqlite", path, indexFields)
	if err != nil {
		return nil, fmt.Errorf("render: creating 4n6time database: %w", err)
	}
	return &sqlite4n6Writer{store: store}, nil
}

func (w *sqlite4n6Writer) WriteEvent(e *event.Event) error {
	return w.store.InsertEvent(model.FromEvent(e))
}

func (w *sqlite4n6Writer) Close() error {
	if err := w.store.UpdateMetadata(); err != nil {
		return fmt.Errorf("render: updating 4n6time metadata: %w", err)
	}
	return w.store.Close()
}
