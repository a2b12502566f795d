// Package vfs defines the boundary contract between the core pipeline and
// whatever backend actually knows how to open nested locations (disk
// image -> partition -> filesystem -> file; VSS store; ZIP/TAR/GZIP
// member). The core only constructs and transports path specs; it never
// touches raw offsets itself.
package vfs

import (
	"errors"
	"io"
	"time"

	"github.com/cdtdelta/4n6time-core/internal/pathspec"
)

// ErrUnsupportedPathSpecType is returned by backends that do not (yet)
// implement resolution for a given pathspec.Type, e.g. TSK/VSHADOW before
// a sleuthkit-backed VFS is wired in.
var ErrUnsupportedPathSpecType = errors.New("vfs: unsupported path spec type")

// TypeIndicator classifies what a resolved node actually is.
type TypeIndicator int

const (
	TypeFile TypeIndicator = iota
	TypeDirectory
	TypeDevice
	TypeLink
)

// FileInfo mirrors the Stat contract of §4.A: provenance fields plus
// whichever timestamps the backend can supply.
type FileInfo struct {
	Size  int64
	Inode uint64
	Mode  uint32
	Type  TypeIndicator

	ATime time.Time
	MTime time.Time
	CTime time.Time
	CRTime time.Time

	HasATime, HasMTime, HasCTime, HasCRTime bool
}

// FileLike supports absolute seek and random read over the resolved
// bytes, matching the §4.A contract.
type FileLike interface {
	io.ReadSeekCloser
	Tell() (int64, error)
}

// VFS resolves path specs into openable bytes and directory listings.
type VFS interface {
	// Open returns a FileLike for the given path spec plus its Stat info.
	Open(ps *pathspec.PathSpec) (FileLike, FileInfo, error)

	// Stat returns file metadata without opening the file body.
	Stat(ps *pathspec.PathSpec) (FileInfo, error)

	// ListChildren lists the immediate children of a directory path spec.
	ListChildren(ps *pathspec.PathSpec) ([]*pathspec.PathSpec, error)
}
