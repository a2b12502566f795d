package event

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Serialize encodes an event as a flat (name, type_tag, value) record
// sufficient to round-trip the open schema (§4.C). gob is used rather
// than a loose text format because the byte-string and nested-map
// attribute variants must round-trip exactly; this is one of the places
// the implementation uses the standard library instead of a pack
// dependency.
func Serialize(e *Event) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("event: serialize: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes bytes produced by Serialize.
func Deserialize(data []byte) (*Event, error) {
	var e Event
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return nil, fmt.Errorf("event: deserialize: %w", err)
	}
	return &e, nil
}

// Equal performs the attribute-by-attribute comparison the round-trip law
// requires: Deserialize(Serialize(e)) == e for every attribute.
func (e *Event) Equal(other *Event) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Timestamp != other.Timestamp ||
		e.TimestampDesc != other.TimestampDesc ||
		e.DataType != other.DataType ||
		e.Parser != other.Parser ||
		e.DisplayName != other.DisplayName ||
		e.Filename != other.Filename ||
		e.Offset != other.Offset ||
		e.Inode != other.Inode ||
		e.Hostname != other.Hostname ||
		e.Username != other.Username {
		return false
	}
	if !e.PathSpec.Equal(other.PathSpec) {
		return false
	}
	var labels, otherLabels []string
	if e.Tag != nil {
		labels = e.Tag.Labels
	}
	if other.Tag != nil {
		otherLabels = other.Tag.Labels
	}
	if len(labels) != len(otherLabels) {
		return false
	}
	for i := range labels {
		if labels[i] != otherLabels[i] {
			return false
		}
	}
	if len(e.Attributes) != len(other.Attributes) {
		return false
	}
	for k, v := range e.Attributes {
		ov, ok := other.Attributes[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
