// Package osfs implements vfs.VFS directly against the host filesystem.
// It is the one concrete VFS backend this repository ships; TSK/VSHADOW
// resolution remains contract-only (vfs.ErrUnsupportedPathSpecType) until
// a sleuthkit-backed VFS is plugged in.
package osfs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cdtdelta/4n6time-core/internal/pathspec"
	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

// OSFS resolves OS-type path specs against the real filesystem.
type OSFS struct{}

// New returns an OS-backed VFS.
func New() *OSFS {
	return &OSFS{}
}

type osFile struct {
	*os.File
}

func (f osFile) Tell() (int64, error) {
	return f.Seek(0, os.SEEK_CUR)
}

func (v *OSFS) Open(ps *pathspec.PathSpec) (vfs.FileLike, vfs.FileInfo, error) {
	if ps == nil || ps.Type != pathspec.OS {
		return nil, vfs.FileInfo{}, vfs.ErrUnsupportedPathSpecType
	}
	f, err := os.Open(ps.Location)
	if err != nil {
		return nil, vfs.FileInfo{}, fmt.Errorf("osfs: open %s: %w", ps.Location, err)
	}
	info, err := v.Stat(ps)
	if err != nil {
		f.Close()
		return nil, vfs.FileInfo{}, err
	}
	return osFile{f}, info, nil
}

func (v *OSFS) Stat(ps *pathspec.PathSpec) (vfs.FileInfo, error) {
	if ps == nil || ps.Type != pathspec.OS {
		return vfs.FileInfo{}, vfs.ErrUnsupportedPathSpecType
	}
	fi, err := os.Stat(ps.Location)
	if err != nil {
		return vfs.FileInfo{}, fmt.Errorf("osfs: stat %s: %w", ps.Location, err)
	}
	info := vfs.FileInfo{
		Size: fi.Size(),
		Mode: uint32(fi.Mode()),
	}
	if fi.IsDir() {
		info.Type = vfs.TypeDirectory
	} else if fi.Mode()&os.ModeSymlink != 0 {
		info.Type = vfs.TypeLink
	} else if fi.Mode()&os.ModeDevice != 0 {
		info.Type = vfs.TypeDevice
	} else {
		info.Type = vfs.TypeFile
	}
	statTimes(fi, &info)
	return info, nil
}

func (v *OSFS) ListChildren(ps *pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	if ps == nil || ps.Type != pathspec.OS {
		return nil, vfs.ErrUnsupportedPathSpecType
	}
	entries, err := os.ReadDir(ps.Location)
	if err != nil {
		return nil, fmt.Errorf("osfs: readdir %s: %w", ps.Location, err)
	}
	children := make([]*pathspec.PathSpec, 0, len(entries))
	for _, e := range entries {
		children = append(children, pathspec.New(filepath.Join(ps.Location, e.Name())))
	}
	return children, nil
}
