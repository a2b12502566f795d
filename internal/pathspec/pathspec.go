// Package pathspec implements the recursive location descriptor shared by
// the collector, worker, and storage layers. A PathSpec is the only
// identity a worker needs to reopen a file; it travels with every derived
// event for provenance.
package pathspec

import (
	"encoding/gob"
	"fmt"
	"strings"
)

// Type identifies the kind of location a PathSpec node describes.
type Type string

const (
	OS            Type = "OS"
	TSK           Type = "TSK"
	VSHADOW       Type = "VSHADOW"
	TSKPartition  Type = "TSK_PARTITION"
	ZIP           Type = "ZIP"
	TAR           Type = "TAR"
	GZIP          Type = "GZIP"
)

// PathSpec is a recursive descriptor of a byte source. The root node
// always has a nil Parent; every non-OS node must have one.
type PathSpec struct {
	Type Type

	// Location is the type-dependent path: a filesystem path for OS,
	// a ZIP/TAR member name for ZIP/TAR, empty for GZIP and VSHADOW.
	Location string

	// PartitionOffset is the byte offset of a TSK_PARTITION within its
	// parent image.
	PartitionOffset int64

	// VSSStoreIndex identifies which Volume Shadow Copy store a VSHADOW
	// node refers to.
	VSSStoreIndex int

	// Inode is the filesystem inode number for TSK nodes, when known.
	Inode uint64

	// Depth counts container-expansion hops from the original collected
	// path spec; workers refuse to expand beyond MAX_FILE_DEPTH.
	Depth int

	Parent *PathSpec
}

func init() {
	gob.Register(&PathSpec{})
}

// New returns a root OS path spec for the given location.
func New(location string) *PathSpec {
	return &PathSpec{Type: OS, Location: location}
}

// Child returns a new path spec nested inside p, with depth incremented.
func (p *PathSpec) Child(typ Type, location string) *PathSpec {
	depth := 0
	if p != nil {
		depth = p.Depth + 1
	}
	return &PathSpec{Type: typ, Location: location, Parent: p, Depth: depth}
}

// Validate enforces the root/parent invariants described in §3.1.
func (p *PathSpec) Validate() error {
	if p == nil {
		return fmt.Errorf("pathspec: nil path spec")
	}
	if p.Parent == nil && p.Type != OS {
		return fmt.Errorf("pathspec: non-OS node %q has no parent", p.Type)
	}
	if p.Parent != nil {
		return p.Parent.Validate()
	}
	return nil
}

// String renders a human-readable chain, innermost first, for logging and
// for use as a map key.
func (p *PathSpec) String() string {
	if p == nil {
		return "<nil>"
	}
	var parts []string
	for n := p; n != nil; n = n.Parent {
		seg := string(n.Type)
		switch n.Type {
		case OS, ZIP, TAR:
			seg = fmt.Sprintf("%s:%s", n.Type, n.Location)
		case VSHADOW:
			seg = fmt.Sprintf("%s:%d", n.Type, n.VSSStoreIndex)
		case TSKPartition:
			seg = fmt.Sprintf("%s:%d", n.Type, n.PartitionOffset)
		case TSK:
			seg = fmt.Sprintf("%s:%s:inode=%d", n.Type, n.Location, n.Inode)
		case GZIP:
			seg = string(n.Type)
		}
		parts = append(parts, seg)
	}
	// Reverse so the root comes first.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Equal reports whether two path specs describe the same chain of
// locations.
func (p *PathSpec) Equal(other *PathSpec) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.Type != other.Type || p.Location != other.Location ||
		p.PartitionOffset != other.PartitionOffset ||
		p.VSSStoreIndex != other.VSSStoreIndex ||
		p.Inode != other.Inode {
		return false
	}
	return p.Parent.Equal(other.Parent)
}

// Root returns the outermost (OS) path spec in the chain.
func (p *PathSpec) Root() *PathSpec {
	n := p
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}
