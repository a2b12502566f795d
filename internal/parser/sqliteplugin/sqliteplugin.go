// Package sqliteplugin is the SQLite framework parser of §4.E: it opens a
// candidate file as a SQLite database via modernc.org/sqlite (the
// teacher's own driver), enumerates sqlite_master for table names, and
// dispatches to every registered sub-plugin whose RequiredTables are all
// present. Grounded on original_source/plaso/parsers/sqlite_plugins/
// (interface.py's table-requirement gating) and on
// original_source/plaso/lib/worker.py's framework-parser dispatch shape.
package sqliteplugin

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/parser"
)

// SubPlugin is a parser that lives inside the SQLite framework parser,
// selected by table-presence rather than by magic bytes.
type SubPlugin interface {
	Name() string
	RequiredTables() []string
	Parse(db *sql.DB) ([]*event.Event, error)
}

// FrameworkParser implements parser.Parser and hosts a nested registry of
// SubPlugins.
type FrameworkParser struct {
	plugins []SubPlugin
}

// New returns an empty SQLite framework parser.
func New() *FrameworkParser {
	return &FrameworkParser{}
}

// Register adds a sub-plugin to the framework parser's nested registry.
func (f *FrameworkParser) Register(p SubPlugin) {
	f.plugins = append(f.plugins, p)
}

func (f *FrameworkParser) Name() string          { return "sqlite" }
func (f *FrameworkParser) DataTypePrefix() string { return "sqlite" }

// Signatures returns the SQLite file-format magic header.
func (f *FrameworkParser) Signatures() []parser.Signature {
	return []parser.Signature{{Offset: 0, Value: []byte("SQLite format 3\x00")}}
}

// Parse opens fe as a SQLite database, lists its tables, and dispatches
// to each sub-plugin whose requirements are satisfied.
func (f *FrameworkParser) Parse(fe *parser.FileEntry) ([]*event.Event, error) {
	path, ok := fe.Name, fe.Name != ""
	if !ok {
		return nil, fmt.Errorf("sqliteplugin: %w: no filesystem path available to open", parser.ErrUnableToParseFile)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqliteplugin: %w: %v", parser.ErrUnableToParseFile, err)
	}
	defer db.Close()

	tables, err := listTables(db)
	if err != nil {
		return nil, fmt.Errorf("sqliteplugin: %w: %v", parser.ErrUnableToParseFile, err)
	}

	var all []*event.Event
	matched := false
	for _, p := range f.plugins {
		if !hasAll(tables, p.RequiredTables()) {
			continue
		}
		matched = true
		events, err := p.Parse(db)
		if err != nil {
			// One sub-plugin failing does not disqualify the others; the
			// framework parser itself only returns ErrUnableToParseFile
			// when nothing at all matched.
			continue
		}
		all = append(all, events...)
	}
	if !matched {
		return nil, parser.ErrUnableToParseFile
	}
	return all, nil
}

func listTables(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables[name] = true
	}
	return tables, rows.Err()
}

func hasAll(tables map[string]bool, required []string) bool {
	for _, t := range required {
		if !tables[t] {
			return false
		}
	}
	return len(required) > 0
}
