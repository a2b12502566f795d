// Package worker implements the §4.I worker: pops path specs off the
// path-spec queue, dispatches each to the parser registry, enriches the
// resulting events with provenance (offset/display name/filename/path
// spec/parser/inode/hostname/username), optionally filters them, and
// pushes survivors onto the storage queue. After the direct parse it
// looks for container formats (ZIP/TAR/GZIP) and opens and parses each
// member in the same pass, up to MAX_FILE_DEPTH nested hops. Expansion
// runs for every file; no option turns it off.
//
// Grounded exactly on original_source/plaso/lib/worker.py (PlasoWorker:
// Run, ParsePathSpec, ParseFile, _ParseEvent, SmartOpenFile/
// SmartOpenFiles, SetNestedContainer).
package worker

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/parser"
	"github.com/cdtdelta/4n6time-core/internal/parsers/filestat"
	"github.com/cdtdelta/4n6time-core/internal/pathspec"
	"github.com/cdtdelta/4n6time-core/internal/preprocess"
	"github.com/cdtdelta/4n6time-core/internal/queue"
	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

// MaxFileDepth bounds container-expansion recursion (§3.1's Depth
// field): a file inside a ZIP is depth 1, a file inside a tar.gz is
// depth 2, and so on.
const MaxFileDepth = 3

// ErrBZ2Unsupported names the BZ2 case of container expansion. The magic
// table has no BZ2 entry, so a BZ2 file is never classified as a
// container and is not expanded; nothing in this package returns this
// error. The stdlib's compress/bzip2 package is read-only and cannot
// seek, and no archive pack dependency in this module's ecosystem wraps
// it into something the parser registry could dispatch against.
var ErrBZ2Unsupported = errors.New("worker: BZ2 container expansion unsupported")

// EventFilter reports whether an event should be kept.
type EventFilter interface {
	Matches(e *event.Event) bool
}

// Worker owns the path-spec/storage queues, the shared preprocess
// object, the parser registry, and an optional event filter.
type Worker struct {
	id         int
	fs         vfs.VFS
	registry   *parser.Registry
	statParser *filestat.Parser
	pathQ      queue.Queue
	storQ      queue.Queue
	pre        *preprocess.Object
	filter     EventFilter
	log        *logrus.Logger

	userMapping map[string]string
}

// New returns a worker reading from pathQ and writing accepted events to
// storQ.
func New(id int, fs vfs.VFS, registry *parser.Registry, pathQ, storQ queue.Queue, pre *preprocess.Object, filter EventFilter, log *logrus.Logger) *Worker {
	return &Worker{
		id: id, fs: fs, registry: registry, statParser: filestat.New(), pathQ: pathQ, storQ: storQ,
		pre: pre, filter: filter, log: log, userMapping: buildUserMapping(pre),
	}
}

// buildUserMapping maps a SID/UID value to a display username, ported
// from _GetUserMapping. This repository's preprocessor only populates
// Object.Users with bare usernames (no SID/UID pairing — no registry
// hive parser ships, see the preprocess package's RegistryHeuristic
// note), so the mapping degrades to identity: a parser that sets
// user_sid to a literal username will still resolve correctly, but a
// real SID/UID will only resolve once a Windows/POSIX heuristic that
// populates that pairing is added.
func buildUserMapping(pre *preprocess.Object) map[string]string {
	mapping := make(map[string]string)
	if pre == nil {
		return mapping
	}
	for _, u := range pre.Users {
		mapping[u] = u
	}
	return mapping
}

// Run drains the path-spec queue until EndOfInput, parsing each path
// spec and, when the parse tree permits, every file nested inside it.
func (w *Worker) Run() {
	w.log.WithField("worker", w.id).Info("worker started monitoring process queue")
	for {
		item := w.pathQ.Pop()
		if item == queue.EndOfInput {
			break
		}
		ps, ok := item.(*pathspec.PathSpec)
		if !ok {
			w.log.WithField("worker", w.id).Error("worker: non-path-spec item on queue, dropping")
			continue
		}
		w.parsePathSpec(ps)
	}
	w.log.WithField("worker", w.id).Info("worker stopped monitoring process queue")
}

// parsePathSpec opens ps, runs it (and any container members it yields)
// through ParseFile.
func (w *Worker) parsePathSpec(ps *pathspec.PathSpec) {
	fh, info, err := w.fs.Open(ps)
	if err != nil {
		w.log.WithField("pathspec", ps.String()).WithError(err).Warn("worker: unable to open path spec")
		return
	}
	defer fh.Close()

	w.parseFile(ps, fh, info)

	for _, nested := range w.smartOpenFiles(ps, fh, 0) {
		nestedFh, nestedInfo, err := w.fs.Open(nested)
		if err != nil {
			w.log.WithField("pathspec", nested.String()).WithError(err).Debug("worker: unable to open nested member")
			continue
		}
		w.parseFile(nested, nestedFh, nestedInfo)
		nestedFh.Close()
	}
}

// parseFile runs every registered parser (via the registry's dispatch)
// against fh and enriches/filters/forwards the resulting events. Each
// file's parse is isolated: a panicking parser is recovered so the
// worker keeps running.
func (w *Worker) parseFile(ps *pathspec.PathSpec, fh vfs.FileLike, info vfs.FileInfo) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.WithField("pathspec", ps.String()).WithField("panic", r).
					Warn("worker: parser panicked, file skipped")
			}
		}()

		fe := &parser.FileEntry{Reader: fh, Info: info, Name: ps.Location}

		var events []*event.Event
		var parserName string
		var err error
		if info.Type == vfs.TypeDirectory {
			// A directory has no content a registry parser could read; the
			// collector pushed this path spec purely so its stat
			// timestamps get recorded (§4.H).
			events, err = w.statParser.Parse(fe)
			parserName = w.statParser.Name()
		} else {
			var p parser.Parser
			events, p, err = w.registry.Dispatch(fe)
			if p != nil {
				parserName = p.Name()
			}
		}
		if err != nil {
			if errors.Is(err, parser.ErrUnableToParseFile) {
				w.log.WithField("pathspec", ps.String()).Debug("worker: no parser matched")
				return
			}
			w.log.WithField("pathspec", ps.String()).WithError(err).Warn("worker: parser error, file skipped")
			return
		}

		for _, e := range events {
			w.enrich(e, ps, parserName, info)
			if w.filter == nil || w.filter.Matches(e) {
				w.storQ.Push(e)
			}
		}
	}()
}

// enrich ports _ParseEvent: fills provenance fields a parser did not set
// itself, applies the hostname from the preprocess object, and resolves
// a user SID/UID to a username via the worker's user mapping.
func (w *Worker) enrich(e *event.Event, ps *pathspec.PathSpec, parserName string, info vfs.FileInfo) {
	e.DisplayName = fmt.Sprintf("%s:%s", ps.Type, ps.Location)
	e.Filename = ps.Location
	e.PathSpec = ps
	e.Parser = parserName
	if w.pre != nil && w.pre.Hostname != "" {
		e.Hostname = w.pre.Hostname
	}
	if e.Inode == 0 {
		e.Inode = info.Inode
	}
	if e.Username == "" {
		if sid, ok := e.Get("user_sid"); ok && sid.Kind == event.KindString {
			if name, ok := w.userMapping[sid.S]; ok {
				e.Username = name
			}
		}
	}
}

// magic table mirrors PlasoWorker.MAGIC_VALUES exactly: ZIP at offset 0,
// TAR at offset 257 ("ustar"), GZIP at offset 0.
type magic struct {
	offset int
	value  []byte
}

var (
	magicZIP  = magic{0, []byte("PK\x03\x04")}
	magicTAR  = magic{257, []byte("ustar")}
	magicGZIP = magic{0, []byte{0x1f, 0x8b}}
)

func magicMaxLength() int {
	max := 0
	for _, m := range []magic{magicZIP, magicTAR, magicGZIP} {
		if end := m.offset + len(m.value); end > max {
			max = end
		}
	}
	return max
}

func classify(header []byte) string {
	matches := func(m magic) bool {
		end := m.offset + len(m.value)
		return len(header) >= end && bytes.Equal(header[m.offset:end], m.value)
	}
	switch {
	case matches(magicZIP):
		return "ZIP"
	case matches(magicTAR):
		return "TAR"
	case matches(magicGZIP):
		return "GZ"
	default:
		return ""
	}
}

// smartOpenFiles recursively expands ps into nested path specs up to
// MaxFileDepth hops, mirroring SmartOpenFiles.
func (w *Worker) smartOpenFiles(ps *pathspec.PathSpec, fh vfs.FileLike, depth int) []*pathspec.PathSpec {
	if depth >= MaxFileDepth {
		return nil
	}
	members := w.smartOpenFile(ps, fh)

	var all []*pathspec.PathSpec
	for _, member := range members {
		all = append(all, member)
		memberFh, _, err := w.fs.Open(member)
		if err != nil {
			w.log.WithField("pathspec", member.String()).Debug("worker: unable to open extracted member")
			continue
		}
		all = append(all, w.smartOpenFiles(member, memberFh, depth+1)...)
		memberFh.Close()
	}
	return all
}

// smartOpenFile ports SmartOpenFile: classify by magic bytes, then
// extract member path specs for ZIP/TAR/GZIP, applying the jar/sym/xpi
// ZIP exclusion and the GZIP-of-GZIP rejection.
func (w *Worker) smartOpenFile(ps *pathspec.PathSpec, fh vfs.FileLike) []*pathspec.PathSpec {
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	header := make([]byte, magicMaxLength())
	n, _ := io.ReadFull(fh, header)
	header = header[:n]

	switch classify(header) {
	case "ZIP":
		return w.expandZIP(ps, fh)
	case "GZ":
		return w.expandGZIP(ps, fh)
	case "TAR":
		return w.expandTAR(ps, fh)
	}
	return nil
}

func lowerSuffix(name string, n int) string {
	name = strings.ToLower(name)
	if len(name) < n {
		return name
	}
	return name[len(name)-n:]
}

func (w *Worker) expandZIP(ps *pathspec.PathSpec, fh vfs.FileLike) []*pathspec.PathSpec {
	ending := lowerSuffix(ps.Location, 4)
	if ending == ".jar" || ending == ".sym" || ending == ".xpi" {
		w.log.WithField("pathspec", ps.String()).Debug("worker: ZIP excluded by extension")
		return nil
	}

	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	size, err := fh.Seek(0, io.SeekEnd)
	if err != nil {
		return nil
	}
	zr, err := zip.NewReader(asReaderAt(fh), size)
	if err != nil {
		return nil // not a valid ZIP despite the magic match
	}

	var out []*pathspec.PathSpec
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || f.UncompressedSize64 == 0 {
			continue
		}
		w.log.WithField("member", f.Name).Debug("worker: including ZIP member in process queue")
		out = append(out, ps.Child(pathspec.ZIP, f.Name))
	}
	return out
}

// asReaderAt adapts an io.ReadSeeker to io.ReaderAt for zip.NewReader.
type readerAtSeeker struct {
	io.ReadSeeker
}

func (r readerAtSeeker) ReadAt(p []byte, off int64) (int, error) {
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(r, p)
}

func asReaderAt(fh vfs.FileLike) io.ReaderAt {
	return readerAtSeeker{fh}
}

func (w *Worker) expandGZIP(ps *pathspec.PathSpec, fh vfs.FileLike) []*pathspec.PathSpec {
	if ps.Type == pathspec.GZIP {
		// SameFileType: GZIP of GZIP is rejected, matching the source's
		// errors.SameFileType short-circuit.
		return nil
	}
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	gr, err := gzip.NewReader(fh)
	if err != nil {
		return nil
	}
	defer gr.Close()
	if _, err := io.CopyN(io.Discard, gr, 4); err != nil && err != io.EOF {
		return nil
	}
	w.log.WithField("pathspec", ps.String()).Debug("worker: including GZIP member in process queue")
	return []*pathspec.PathSpec{ps.Child(pathspec.GZIP, "")}
}

func (w *Worker) expandTAR(ps *pathspec.PathSpec, fh vfs.FileLike) []*pathspec.PathSpec {
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	tr := tar.NewReader(fh)
	var out []*pathspec.PathSpec
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out // ReadError partway through: return what we found, like the source's except-and-return
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		w.log.WithField("member", hdr.Name).Debug("worker: including TAR member in process queue")
		out = append(out, ps.Child(pathspec.TAR, hdr.Name))
	}
	return out
}
