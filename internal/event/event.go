// Package event implements the open-schema Event and EventContainer
// model of §3.2-3.3: a fixed set of mandatory provenance fields plus a
// generic attribute bag, preserved end to end through storage.
package event

import (
	"encoding/gob"

	"github.com/cdtdelta/4n6time-core/internal/pathspec"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindInt64 ValueKind = iota
	KindUint64
	KindFloat64
	KindBool
	KindString
	KindBytes
	KindList
	KindMap
)

// Value is a tagged union over the scalar/compound types an open-schema
// attribute may hold, per the §9 design note.
type Value struct {
	Kind ValueKind

	I int64
	U uint64
	F float64
	B bool
	S string
	Bytes []byte
	List  []Value
	Map   map[string]Value
}

func init() {
	gob.Register(Value{})
}

func IntValue(v int64) Value    { return Value{Kind: KindInt64, I: v} }
func UintValue(v uint64) Value  { return Value{Kind: KindUint64, U: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat64, F: v} }
func BoolValue(v bool) Value    { return Value{Kind: KindBool, B: v} }
func StringValue(v string) Value { return Value{Kind: KindString, S: v} }
func BytesValue(v []byte) Value { return Value{Kind: KindBytes, Bytes: v} }
func ListValue(v []Value) Value { return Value{Kind: KindList, List: v} }
func MapValue(v map[string]Value) Value { return Value{Kind: KindMap, Map: v} }

// Equal performs a deep comparison between two values, used to verify the
// round-trip law in §4.C.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInt64:
		return v.I == other.I
	case KindUint64:
		return v.U == other.U
	case KindFloat64:
		return v.F == other.F
	case KindBool:
		return v.B == other.B
	case KindString:
		return v.S == other.S
	case KindBytes:
		if len(v.Bytes) != len(other.Bytes) {
			return false
		}
		for i := range v.Bytes {
			if v.Bytes[i] != other.Bytes[i] {
				return false
			}
		}
		return true
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(other.Map) {
			return false
		}
		for k, mv := range v.Map {
			ov, ok := other.Map[k]
			if !ok || !mv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Tag is the set of labels attached to an event (bookmarks, analysis output).
type Tag struct {
	Labels []string
}

// Event is the open-schema timestamped record of §3.2.
type Event struct {
	// Timestamp is microseconds since 1970-01-01 UTC. Mandatory.
	Timestamp int64

	TimestampDesc string
	DataType      string
	Parser        string

	DisplayName string
	Filename    string
	PathSpec    *pathspec.PathSpec
	Offset      int64
	Inode       uint64

	Hostname string
	Username string

	Tag *Tag

	// Attributes holds every parser-specific field beyond the fixed set
	// above; the open part of the open schema.
	Attributes map[string]Value
}

func init() {
	gob.Register(&Event{})
}

// NewEvent returns an Event with an initialized attribute map.
func NewEvent(timestamp int64, timestampDesc, dataType string) *Event {
	return &Event{
		Timestamp:     timestamp,
		TimestampDesc: timestampDesc,
		DataType:      dataType,
		Attributes:    make(map[string]Value),
	}
}

// Set stores an attribute on the event's open schema.
func (e *Event) Set(name string, v Value) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]Value)
	}
	e.Attributes[name] = v
}

// Get retrieves an open-schema attribute.
func (e *Event) Get(name string) (Value, bool) {
	v, ok := e.Attributes[name]
	return v, ok
}

// Valid checks invariant 1 of §8: timestamp is any valid int64 (always
// true in Go) and data_type is non-empty.
func (e *Event) Valid() bool {
	return e.DataType != ""
}
