// Package filestat emits one event per populated stat timestamp
// (access, modification, metadata-change, creation) for a file or
// directory entry, independent of the entry's content. The worker
// invokes this parser directly for directory-stat path specs (§4.H:
// "for each directory, optionally emit a stat-only path spec so the
// FileStat parser can record directory metadata") rather than through
// the registry's content-based dispatch, since a directory has no bytes
// a content parser could read.
//
// Grounded on original_source/plaso/collector/collector.py's
// _SendContainerToStorage (filestat.StatEvents.GetEventsFromStat).
package filestat

import (
	"time"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/parser"
)

const dataType = "fs:stat"

// Parser emits stat-derived timestamp events. It carries no magic
// signature and is never registered into parser.Registry's normal
// dispatch table; the worker calls it directly for stat-only path
// specs.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Name() string                   { return "filestat" }
func (p *Parser) DataTypePrefix() string         { return "fs" }
func (p *Parser) Signatures() []parser.Signature { return nil }

// Parse mirrors filestat.StatEvents.GetEventsFromStat: one event per
// stat timestamp that the backing vfs.VFS actually populated.
func (p *Parser) Parse(fe *parser.FileEntry) ([]*event.Event, error) {
	info := fe.Info

	var out []*event.Event
	add := func(has bool, t int64, desc string) {
		if !has {
			return
		}
		e := event.NewEvent(t, desc, dataType)
		e.Parser = "filestat"
		out = append(out, e)
	}

	add(info.HasATime, toMicros(info.ATime), "Last Access Time")
	add(info.HasMTime, toMicros(info.MTime), "Last Modification Time")
	add(info.HasCTime, toMicros(info.CTime), "Last Metadata Change Time")
	add(info.HasCRTime, toMicros(info.CRTime), "Creation Time")

	if len(out) == 0 {
		return nil, parser.ErrUnableToParseFile
	}
	return out, nil
}

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}
