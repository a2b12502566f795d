// Package render implements the §6 renderer contract: "individual
// output formatters; specified abstractly by the renderer contract"
// (spec.md §1's Out-of-scope list names this boundary explicitly). Each
// concrete writer here adapts the psort-side event.Event stream onto one
// of the 4n6time viewer's legacy row-oriented output formats, reusing
// the teacher's own read/write logic by flattening through
// internal/model.FromEvent.
package render

import "github.com/cdtdelta/4n6time-core/internal/event"

// Writer is the contract every output format implements: accept events
// in the order the merge-sort reader (internal/merge) produces them,
// then flush and finalize on Close.
type Writer interface {
	WriteEvent(e *event.Event) error
	Close() error
}

// Format names a renderer, matching the `-o` flag of the sort/psort
// front-end (§6).
type Format string

const (
	FormatL2TCSV   Format = "l2tcsv"
	FormatTLN      Format = "tln"
	FormatDynamic  Format = "dynamic"
	FormatJSONL    Format = "json_line"
	FormatSQLite   Format = "4n6time_sqlite"
	FormatPostgres Format = "4n6time_postgres"
)
