// Package memfs is an in-memory vfs.VFS used only by tests, so that
// collector/worker fixtures (ZIP/TAR/GZIP members, directory trees) can be
// built without touching the real filesystem.
package memfs

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cdtdelta/4n6time-core/internal/pathspec"
	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

type node struct {
	data     []byte
	isDir    bool
	children map[string]*node
	inode    uint64
	mtime    time.Time
}

// MemFS is a tiny in-memory tree addressed by OS-type path specs.
type MemFS struct {
	root   *node
	nextID uint64
}

// New returns an empty in-memory filesystem rooted at "/".
func New() *MemFS {
	return &MemFS{root: &node{isDir: true, children: map[string]*node{}}}
}

// WriteFile creates (or overwrites) a file at path with the given content,
// creating intermediate directories as needed.
func (m *MemFS) WriteFile(path string, content []byte) {
	parts := splitPath(path)
	dir := m.root
	for _, p := range parts[:len(parts)-1] {
		next, ok := dir.children[p]
		if !ok {
			next = &node{isDir: true, children: map[string]*node{}}
			dir.children[p] = next
		}
		dir = next
	}
	m.nextID++
	dir.children[parts[len(parts)-1]] = &node{
		data:  content,
		inode: m.nextID,
		mtime: time.Now(),
	}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (m *MemFS) lookup(path string) (*node, bool) {
	parts := splitPath(path)
	n := m.root
	for _, p := range parts {
		next, ok := n.children[p]
		if !ok {
			return nil, false
		}
		n = next
	}
	return n, true
}

type memFile struct {
	*bytes.Reader
}

func (f memFile) Close() error { return nil }

func (f memFile) Tell() (int64, error) {
	return f.Seek(0, io.SeekCurrent)
}

func (m *MemFS) Open(ps *pathspec.PathSpec) (vfs.FileLike, vfs.FileInfo, error) {
	if ps == nil || ps.Type != pathspec.OS {
		return nil, vfs.FileInfo{}, vfs.ErrUnsupportedPathSpecType
	}
	n, ok := m.lookup(ps.Location)
	if !ok || n.isDir {
		return nil, vfs.FileInfo{}, fmt.Errorf("memfs: no such file %s", ps.Location)
	}
	info := vfs.FileInfo{
		Size:     int64(len(n.data)),
		Inode:    n.inode,
		Type:     vfs.TypeFile,
		MTime:    n.mtime,
		HasMTime: true,
	}
	return memFile{bytes.NewReader(n.data)}, info, nil
}

func (m *MemFS) Stat(ps *pathspec.PathSpec) (vfs.FileInfo, error) {
	if ps == nil || ps.Type != pathspec.OS {
		return vfs.FileInfo{}, vfs.ErrUnsupportedPathSpecType
	}
	n, ok := m.lookup(ps.Location)
	if !ok {
		return vfs.FileInfo{}, fmt.Errorf("memfs: no such path %s", ps.Location)
	}
	info := vfs.FileInfo{Size: int64(len(n.data)), Inode: n.inode, MTime: n.mtime, HasMTime: true}
	if n.isDir {
		info.Type = vfs.TypeDirectory
	} else {
		info.Type = vfs.TypeFile
	}
	return info, nil
}

func (m *MemFS) ListChildren(ps *pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	if ps == nil || ps.Type != pathspec.OS {
		return nil, vfs.ErrUnsupportedPathSpecType
	}
	n, ok := m.lookup(ps.Location)
	if !ok || !n.isDir {
		return nil, fmt.Errorf("memfs: no such directory %s", ps.Location)
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*pathspec.PathSpec, 0, len(names))
	base := strings.TrimRight(ps.Location, "/")
	for _, name := range names {
		out = append(out, pathspec.New(base+"/"+name))
	}
	return out, nil
}
