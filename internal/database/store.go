package database

import "github.com/cdtdelta/4n6time-core/internal/model"

// Store defines the interface for writing events into a 4n6time-format
// database. Every render writer depends on this interface, not on a
// concrete database type, so the same pipeline can target SQLite or
// PostgreSQL.
type Store interface {
	InsertEvent(e *model.Event) error
	InsertEvents(events []*model.Event, onProgress func(int)) (int, error)
	UpdateMetadata() error
	Close() error
}
