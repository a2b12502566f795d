package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cdtdelta/4n6time-core/internal/event"
)

// FromEvent flattens an open-schema event.Event into the legacy
// log2timeline row shape the 4n6time viewer/export formats operate on,
// mirroring original_source/plaso/output/l2t_csv.py's EventBody field
// selection: fixed provenance fields map onto fixed columns, everything
// else in the attribute bag is folded into Extra.
func FromEvent(e *event.Event) *Event {
	ts := time.UnixMicro(e.Timestamp).UTC()
	source, sourceLong := mapDataTypeToSource(e.DataType)

	inode := ""
	if e.Inode != 0 {
		inode = fmt.Sprintf("%d", e.Inode)
	}

	m := &Event{
		Datetime:       ts.Format("2006-01-02 15:04:05"),
		Timezone:       "UTC",
		MACB:           mapTimestampDescToMACB(e.TimestampDesc),
		Source:         source,
		SourceType:     sourceLong,
		Type:           e.DataType,
		User:           e.Username,
		Host:           e.Hostname,
		Desc:           e.DisplayName,
		Filename:       e.Filename,
		Inode:          inode,
		Format:         e.Parser,
		Extra:          collectExtras(e),
		Offset:         e.Offset,
		StoreNumber:    -1,
		StoreIndex:     -1,
		VSSStoreNumber: -1,
	}
	if e.Tag != nil && len(e.Tag.Labels) > 0 {
		m.Tag = strings.Join(e.Tag.Labels, " ")
	}
	if sid, ok := e.Get("user_sid"); ok && sid.Kind == event.KindString {
		m.UserSID = sid.S
	}
	if name, ok := e.Get("computer_name"); ok && name.Kind == event.KindString {
		m.ComputerName = name.S
	}
	return m
}

// ToEvent rebuilds an open-schema event.Event from a flattened row,
// the inverse of FromEvent. Attributes folded into Extra do not
// round-trip individually; they are restored as a single "extra"
// attribute.
func ToEvent(m *Event) *event.Event {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", m.Datetime, time.UTC)
	var ts int64
	if err == nil {
		ts = t.UnixMicro()
	}

	e := event.NewEvent(ts, m.SourceType, m.Type)
	e.Parser = m.Format
	e.DisplayName = m.Desc
	e.Filename = m.Filename
	e.Offset = m.Offset
	e.Hostname = m.Host
	e.Username = m.User
	if m.Inode != "" {
		fmt.Sscanf(m.Inode, "%d", &e.Inode)
	}
	if m.Tag != "" {
		e.Tag = &event.Tag{Labels: strings.Split(m.Tag, " ")}
	}
	if m.UserSID != "" {
		e.Set("user_sid", event.StringValue(m.UserSID))
	}
	if m.ComputerName != "" {
		e.Set("computer_name", event.StringValue(m.ComputerName))
	}
	if m.Extra != "" {
		e.Set("extra", event.StringValue(m.Extra))
	}
	return e
}

// collectExtras folds every attribute not already mapped onto a fixed
// column into a single "; "-joined string, sorted by key so output is
// deterministic across runs (the open-schema attribute map has no
// inherent order).
func collectExtras(e *event.Event) string {
	if len(e.Attributes) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		if knownAttribute[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	extras := make([]string, 0, len(keys))
	for _, k := range keys {
		extras = append(extras, fmt.Sprintf("%s: %s", k, formatValue(e.Attributes[k])))
	}
	return strings.Join(extras, "; ")
}

// knownAttribute lists open-schema attribute names already surfaced
// through a fixed Event column and therefore excluded from Extra.
var knownAttribute = map[string]bool{
	"user_sid": true, "computer_name": true,
}

func formatValue(v event.Value) string {
	switch v.Kind {
	case event.KindInt64:
		return fmt.Sprintf("%d", v.I)
	case event.KindUint64:
		return fmt.Sprintf("%d", v.U)
	case event.KindFloat64:
		return fmt.Sprintf("%g", v.F)
	case event.KindBool:
		return fmt.Sprintf("%t", v.B)
	case event.KindString:
		return v.S
	case event.KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// mapTimestampDescToMACB converts a timestamp_desc to MACB notation,
// mirroring l2t_csv.py's EventBody field selection; used when flattening
// a freshly extracted event.Event for the first time.
func mapTimestampDescToMACB(tsDesc string) string {
	lower := strings.ToLower(tsDesc)
	macb := [4]byte{'.', '.', '.', '.'}

	// An "entry modification" time is the metadata (C) change of the file
	// entry, not a content modification (M).
	entryModification := strings.Contains(lower, "entry modification")
	if !entryModification && (strings.Contains(lower, "modification") || strings.Contains(lower, "modified") ||
		strings.Contains(lower, "written")) {
		macb[0] = 'M'
	}
	if strings.Contains(lower, "access") {
		macb[1] = 'A'
	}
	if strings.Contains(lower, "change") || strings.Contains(lower, "metadata") ||
		strings.Contains(lower, "entry") || strings.Contains(lower, "mft") {
		macb[2] = 'C'
	}
	if strings.Contains(lower, "creation") || strings.Contains(lower, "birth") ||
		strings.Contains(lower, "created") {
		macb[3] = 'B'
	}

	return string(macb[:])
}

// mapDataTypeToSource derives (source, source_long) from a data_type tag
// using the same colon-prefix convention as l2t_csv.py's source mapping.
func mapDataTypeToSource(dataType string) (string, string) {
	parts := strings.SplitN(dataType, ":", 2)
	short := strings.ToUpper(parts[0])
	return short, dataType
}
