package render

import (
	"fmt"

	"github.com/cdtdelta/4n6time-core/internal/database"
	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/model"
)

// postgres4n6Writer is sqlite4n6Writer's twin over database.PostgresStore,
// for deployments where the 4n6time viewer reads from a shared PostgreSQL
// instance rather than a per-run SQLite file (original_source/output
// carries a sqlite_4n6.py writer only; the teacher's postgres.go backend
// has no output-side counterpart in the original until this writer).
type postgres4n6Writer struct {
	store database.Store
}

// NewPostgres4n6 connects to connStr (a libpq-style connection string)
// and returns a Writer that inserts each event as it arrives, same
// row-at-a-time contract as NewSQLite4n6.
func NewPostgres4n6(connStr string, indexFields []string) (Writer, error) {
	store, err := database.CreateStore("postgres", connStr, indexFields)
	if err != nil {
		return nil, fmt.Errorf("render: connecting to 4n6time postgres database: %w", err)
	}
	return &postgres4n6Writer{store: store}, nil
}

func (w *postgres4n6Writer) WriteEvent(e *event.Event) error {
	return w.store.InsertEvent(model.FromEvent(e))
}

func (w *postgres4n6Writer) Close() error {
	if err := w.store.UpdateMetadata(); err != nil {
		return fmt.Errorf("render: updating 4n6time metadata: %w", err)
	}
	return w.store.Close()
}
