// Package collector implements the §4.H collector: a breadth-first
// directory walk over a VFS that pushes discovered path specs onto the
// path-spec queue, with NTFS+VSS de-duplication and optional
// collection-filter-file scoping.
//
// Grounded on original_source/plaso/collector/collector.py (Collector,
// _ProcessDirectory, _CalculateNTFSTimeHash, _ProcessImage/_ProcessVss).
package collector

import (
	"crypto/md5"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cdtdelta/4n6time-core/internal/pathspec"
	"github.com/cdtdelta/4n6time-core/internal/queue"
	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

// Options configures one collection run.
type Options struct {
	ProcessVSS              bool
	VSSStoreIndexes         []int // 1-based, as in the spec's inclusive-range convention
	CollectDirectoryMetadata bool
	FilterFile              *Filter
}

// Collector walks a VFS tree rooted at a path spec and pushes every
// discovered path spec onto q, de-duplicating NTFS+VSS copies by
// timestamp hash.
type Collector struct {
	fs   vfs.VFS
	q    queue.Queue
	opts Options
	log  *logrus.Logger

	hashlist map[uint64][]string // inode -> seen NTFS timestamp hashes
}

// New returns a collector writing discovered path specs to q.
func New(fs vfs.VFS, q queue.Queue, opts Options, log *logrus.Logger) *Collector {
	c := &Collector{fs: fs, q: q, opts: opts, log: log}
	if opts.ProcessVSS {
		c.hashlist = make(map[uint64][]string)
	}
	return c
}

// Collect walks root and signals end-of-input on q when done. If root is
// a single file it is pushed once; if a filter file is configured, only
// matching paths are pushed instead of a full walk.
func (c *Collector) Collect(root *pathspec.PathSpec) error {
	defer c.q.SignalEndOfInput()

	info, err := c.fs.Stat(root)
	if err != nil {
		return fmt.Errorf("collector: stat root: %w", err)
	}

	switch info.Type {
	case vfs.TypeFile:
		c.q.Push(root)
		return nil
	case vfs.TypeDirectory:
		if c.opts.FilterFile != nil {
			return c.collectWithFilter(root)
		}
		return c.processDirectory(root)
	default:
		c.log.WithField("path", root.String()).Warn("collector: root is neither file nor directory, skipping")
		return nil
	}
}

// processDirectory mirrors _ProcessDirectory: breadth-first, files are
// pushed immediately, directories are queued and recursed after the
// current level finishes to bound stack depth.
func (c *Collector) processDirectory(dir *pathspec.PathSpec) error {
	children, err := c.fs.ListChildren(dir)
	if err != nil {
		c.log.WithField("path", dir.String()).WithError(err).Warn("collector: unable to list directory")
		return nil
	}

	var subDirs []*pathspec.PathSpec
	for _, child := range children {
		info, err := c.fs.Stat(child)
		if err != nil {
			c.log.WithField("path", child.String()).WithError(err).Warn("collector: unable to stat child")
			continue
		}

		switch info.Type {
		case vfs.TypeDirectory:
			if c.opts.CollectDirectoryMetadata {
				c.q.Push(directoryStatPathSpec(child))
			}
			subDirs = append(subDirs, child)
		case vfs.TypeFile:
			if c.opts.ProcessVSS {
				hash := ntfsTimeHash(info)
				if c.seenBefore(info.Inode, hash) {
					continue
				}
				c.remember(info.Inode, hash)
			}
			c.q.Push(child)
		default:
			continue
		}
	}

	for _, sub := range subDirs {
		if err := c.processDirectory(sub); err != nil {
			c.log.WithField("path", sub.String()).WithError(err).Warn("collector: directory recursion failed")
		}
	}
	return nil
}

// directoryStatPathSpec marks a path spec so the worker routes it to the
// FileStat parser rather than the normal dispatch table; the path spec
// itself is unchanged, the routing decision is made by the worker
// inspecting vfs.Stat's Type field, so this is currently the identity
// function kept as a named seam for that intent.
func directoryStatPathSpec(ps *pathspec.PathSpec) *pathspec.PathSpec {
	return ps
}

// seenBefore reports whether hash was already recorded for inode.
func (c *Collector) seenBefore(inode uint64, hash string) bool {
	for _, h := range c.hashlist[inode] {
		if h == hash {
			return true
		}
	}
	return false
}

func (c *Collector) remember(inode uint64, hash string) {
	c.hashlist[inode] = append(c.hashlist[inode], hash)
}

// ntfsTimeHash ports _CalculateNTFSTimeHash exactly: md5 of the four
// NTFS timestamps formatted as "atime:S.NScrtime:S.NSmtime:S.NSctime:S.NS"
// (no separators between fields, matching the reference's unbroken
// Update() call sequence).
func ntfsTimeHash(info vfs.FileInfo) string {
	sec := func(missing bool, sec int64) int64 {
		if missing {
			return 0
		}
		return sec
	}
	a := info.ATime.Unix()
	c := info.CRTime.Unix()
	m := info.MTime.Unix()
	ct := info.CTime.Unix()
	an := int64(info.ATime.Nanosecond())
	cn := int64(info.CRTime.Nanosecond())
	mn := int64(info.MTime.Nanosecond())
	ctn := int64(info.CTime.Nanosecond())

	s := fmt.Sprintf("atime:%d.%d", sec(!info.HasATime, a), sec(!info.HasATime, an)) +
		fmt.Sprintf("crtime:%d.%d", sec(!info.HasCRTime, c), sec(!info.HasCRTime, cn)) +
		fmt.Sprintf("mtime:%d.%d", sec(!info.HasMTime, m), sec(!info.HasMTime, mn)) +
		fmt.Sprintf("ctime:%d.%d", sec(!info.HasCTime, ct), sec(!info.HasCTime, ctn))

	sum := md5.Sum([]byte(s))
	return fmt.Sprintf("%x", sum)
}

// collectWithFilter walks only paths matching c.opts.FilterFile,
// expanding its {placeholder} segments, rather than a full tree walk.
func (c *Collector) collectWithFilter(root *pathspec.PathSpec) error {
	paths, err := c.opts.FilterFile.Expand(c.fs, root)
	if err != nil {
		return fmt.Errorf("collector: expand filter: %w", err)
	}
	for _, p := range paths {
		c.q.Push(p)
	}
	return nil
}

// VSSStoreRange converts the configured 1-based store selection (or, if
// empty, every store from 0..numberOfStores-1) into 0-based indexes.
// Both "X-Y" inclusive and single values are already expanded by the
// caller (see parseVSSStores in cmd/extract); this just applies the plaso off-by-one
// convention (plaso store 1 == pyvshadow store 0).
func VSSStoreRange(selected []int, numberOfStores int) []int {
	if len(selected) == 0 {
		out := make([]int, numberOfStores)
		for i := range out {
			out[i] = i
		}
		return out
	}
	var out []int
	for _, store := range selected {
		if store > 0 && store <= numberOfStores {
			out = append(out, store-1)
		}
	}
	return out
}
