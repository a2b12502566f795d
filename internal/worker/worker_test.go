package worker

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"testing"
	"time"

	kzip "github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/parser"
	"github.com/cdtdelta/4n6time-core/internal/pathspec"
	"github.com/cdtdelta/4n6time-core/internal/preprocess"
	"github.com/cdtdelta/4n6time-core/internal/queue"
	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// byteFile adapts a byte slice into a vfs.FileLike for tests.
type byteFile struct {
	*bytes.Reader
}

func (b byteFile) Close() error          { return nil }
func (b byteFile) Tell() (int64, error)  { return b.Seek(0, io.SeekCurrent) }

// archiveVFS resolves OS path specs to registered byte blobs, and
// resolves ZIP/TAR/GZIP children by re-reading their parent's bytes.
type archiveVFS struct {
	blobs map[string][]byte // OS location -> content
}

func (a *archiveVFS) contentFor(ps *pathspec.PathSpec) ([]byte, error) {
	switch ps.Type {
	case pathspec.OS:
		return a.blobs[ps.Location], nil
	case pathspec.ZIP:
		parentBytes, err := a.contentFor(ps.Parent)
		if err != nil {
			return nil, err
		}
		zr, err := kzip.NewReader(bytes.NewReader(parentBytes), int64(len(parentBytes)))
		if err != nil {
			return nil, err
		}
		for _, f := range zr.File {
			if f.Name == ps.Location {
				rc, err := f.Open()
				if err != nil {
					return nil, err
				}
				defer rc.Close()
				return io.ReadAll(rc)
			}
		}
		return nil, io.EOF
	case pathspec.TAR:
		parentBytes, err := a.contentFor(ps.Parent)
		if err != nil {
			return nil, err
		}
		tr := tar.NewReader(bytes.NewReader(parentBytes))
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				return nil, io.EOF
			}
			if err != nil {
				return nil, err
			}
			if hdr.Name == ps.Location {
				return io.ReadAll(tr)
			}
		}
	case pathspec.GZIP:
		parentBytes, err := a.contentFor(ps.Parent)
		if err != nil {
			return nil, err
		}
		gr, err := gzip.NewReader(bytes.NewReader(parentBytes))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return io.ReadAll(gr)
	}
	return nil, vfs.ErrUnsupportedPathSpecType
}

func (a *archiveVFS) Open(ps *pathspec.PathSpec) (vfs.FileLike, vfs.FileInfo, error) {
	data, err := a.contentFor(ps)
	if err != nil {
		return nil, vfs.FileInfo{}, err
	}
	return byteFile{bytes.NewReader(data)}, vfs.FileInfo{Size: int64(len(data)), Type: vfs.TypeFile}, nil
}

func (a *archiveVFS) Stat(ps *pathspec.PathSpec) (vfs.FileInfo, error) {
	data, err := a.contentFor(ps)
	if err != nil {
		return vfs.FileInfo{}, err
	}
	return vfs.FileInfo{Size: int64(len(data)), Type: vfs.TypeFile}, nil
}

func (a *archiveVFS) ListChildren(ps *pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	return nil, vfs.ErrUnsupportedPathSpecType
}

func buildZIP(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := kzip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildGZIP(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "ZIP", classify([]byte("PK\x03\x04rest")))
	assert.Equal(t, "GZ", classify([]byte{0x1f, 0x8b, 0x00}))

	tarHeader := make([]byte, 262)
	copy(tarHeader[257:], []byte("ustar"))
	assert.Equal(t, "TAR", classify(tarHeader))

	assert.Equal(t, "", classify([]byte("plain text")))
}

func TestExpandZIPExcludesJarSymXpi(t *testing.T) {
	zipBytes := buildZIP(t, map[string]string{"a.class": "x"})
	a := &archiveVFS{blobs: map[string][]byte{"/app.jar": zipBytes}}

	w := &Worker{fs: a, log: silentLogger()}
	ps := pathspec.New("/app.jar")
	fh, _, err := a.Open(ps)
	require.NoError(t, err)
	members := w.expandZIP(ps, fh)
	assert.Empty(t, members)
}

func TestExpandZIPYieldsMembers(t *testing.T) {
	zipBytes := buildZIP(t, map[string]string{"evt.log": "hello", "empty.txt": ""})
	a := &archiveVFS{blobs: map[string][]byte{"/archive.zip": zipBytes}}

	w := &Worker{fs: a, log: silentLogger()}
	ps := pathspec.New("/archive.zip")
	fh, _, err := a.Open(ps)
	require.NoError(t, err)
	members := w.expandZIP(ps, fh)
	require.Len(t, members, 1)
	assert.Equal(t, "evt.log", members[0].Location)
	assert.Equal(t, pathspec.ZIP, members[0].Type)
}

func TestExpandGZIPRejectsGZIPOfGZIP(t *testing.T) {
	inner := buildGZIP(t, "payload")
	a := &archiveVFS{blobs: map[string][]byte{"/double.gz": inner}}

	w := &Worker{fs: a, log: silentLogger()}
	outerPS := pathspec.New("/double.gz").Child(pathspec.GZIP, "")
	fh, _, err := a.Open(outerPS)
	require.NoError(t, err)
	members := w.expandGZIP(outerPS, fh)
	assert.Empty(t, members, "GZIP of GZIP must be rejected")
}

func TestExpandTARYieldsRegularFilesOnly(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "file.txt", Size: 5, Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "dir/", Typeflag: tar.TypeDir}))
	require.NoError(t, tw.Close())

	a := &archiveVFS{blobs: map[string][]byte{"/archive.tar": buf.Bytes()}}
	w := &Worker{fs: a, log: silentLogger()}
	ps := pathspec.New("/archive.tar")
	fh, _, err := a.Open(ps)
	require.NoError(t, err)
	members := w.expandTAR(ps, fh)
	require.Len(t, members, 1)
	assert.Equal(t, "file.txt", members[0].Location)
}

func TestSmartOpenFilesRespectsMaxFileDepth(t *testing.T) {
	// Four levels of nested ZIPs: root -> a -> b -> c -> d.txt. With
	// MaxFileDepth=3, members a/b/c (depths 1/2/3) are discovered, but
	// d.txt (depth 4, requiring a SmartOpenFiles call at depth=3, which
	// aborts immediately) is never reached.
	c := buildZIP(t, map[string]string{"d.txt": "leaf"})
	b := buildZIP(t, map[string]string{"c.zip": string(c)})
	a := buildZIP(t, map[string]string{"b.zip": string(b)})
	root := buildZIP(t, map[string]string{"a.zip": string(a)})

	vfsImpl := &archiveVFS{blobs: map[string][]byte{"/root.zip": root}}
	w := &Worker{fs: vfsImpl, log: silentLogger()}
	ps := pathspec.New("/root.zip")
	fh, _, err := vfsImpl.Open(ps)
	require.NoError(t, err)

	members := w.smartOpenFiles(ps, fh, 0)
	var names []string
	for _, m := range members {
		names = append(names, m.Location)
	}
	assert.Contains(t, names, "a.zip")
	assert.Contains(t, names, "b.zip")
	assert.Contains(t, names, "c.zip")
	assert.NotContains(t, names, "d.txt")
}

type fakeFilter struct{ allow bool }

func (f fakeFilter) Matches(e *event.Event) bool { return f.allow }

type panicParser struct{}

func (panicParser) Name() string                                      { return "panic" }
func (panicParser) DataTypePrefix() string                            { return "panic" }
func (panicParser) Signatures() []parser.Signature                    { return nil }
func (panicParser) Parse(fe *parser.FileEntry) ([]*event.Event, error) { panic("boom") }

func TestParseFileRecoversFromPanickingParser(t *testing.T) {
	reg := parser.NewRegistry()
	reg.Register(panicParser{})

	a := &archiveVFS{blobs: map[string][]byte{"/f": []byte("data")}}
	storQ := queue.NewSingleThreaded()
	pathQ := queue.NewSingleThreaded()
	w := New(0, a, reg, pathQ, storQ, preprocess.NewObject(preprocess.OSLinux), nil, silentLogger())

	ps := pathspec.New("/f")
	fh, info, err := a.Open(ps)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		w.parseFile(ps, fh, info)
	})
}

type echoParser struct{ ev *event.Event }

func (p echoParser) Name() string                   { return "echo" }
func (p echoParser) DataTypePrefix() string         { return "echo" }
func (p echoParser) Signatures() []parser.Signature { return nil }
func (p echoParser) Parse(fe *parser.FileEntry) ([]*event.Event, error) {
	return []*event.Event{p.ev}, nil
}

func TestEnrichSetsProvenanceFields(t *testing.T) {
	reg := parser.NewRegistry()
	ev := event.NewEvent(100, "desc", "test:event")
	reg.Register(echoParser{ev: ev})

	a := &archiveVFS{blobs: map[string][]byte{"/f": []byte("data")}}
	storQ := queue.NewSingleThreaded()
	pathQ := queue.NewSingleThreaded()
	pre := preprocess.NewObject(preprocess.OSLinux)
	pre.Hostname = "box01"
	w := New(0, a, reg, pathQ, storQ, pre, nil, silentLogger())

	ps := pathspec.New("/f")
	fh, info, err := a.Open(ps)
	require.NoError(t, err)
	w.parseFile(ps, fh, info)

	item := storQ.Pop()
	require.NotEqual(t, queue.EndOfInput, item)
	got := item.(*event.Event)
	assert.Equal(t, "box01", got.Hostname)
	assert.Equal(t, "/f", got.Filename)
	assert.Equal(t, "echo", got.Parser)
}

func TestEventFilterDropsNonMatchingEvents(t *testing.T) {
	reg := parser.NewRegistry()
	ev := event.NewEvent(100, "desc", "test:event")
	reg.Register(echoParser{ev: ev})

	a := &archiveVFS{blobs: map[string][]byte{"/f": []byte("data")}}
	storQ := queue.NewSingleThreaded()
	pathQ := queue.NewSingleThreaded()
	w := New(0, a, reg, pathQ, storQ, preprocess.NewObject(preprocess.OSLinux), fakeFilter{allow: false}, silentLogger())

	ps := pathspec.New("/f")
	fh, info, err := a.Open(ps)
	require.NoError(t, err)
	w.parseFile(ps, fh, info)

	storQ.SignalEndOfInput()
	item := storQ.Pop()
	assert.Equal(t, queue.EndOfInput, item)
}

// directoryVFS resolves a single directory path spec with populated stat
// timestamps, exercising the worker's directory-stat routing path.
type directoryVFS struct {
	mtime time.Time
}

func (d *directoryVFS) Open(ps *pathspec.PathSpec) (vfs.FileLike, vfs.FileInfo, error) {
	return byteFile{bytes.NewReader(nil)}, vfs.FileInfo{Type: vfs.TypeDirectory, MTime: d.mtime, HasMTime: true}, nil
}
func (d *directoryVFS) Stat(ps *pathspec.PathSpec) (vfs.FileInfo, error) {
	return vfs.FileInfo{Type: vfs.TypeDirectory, MTime: d.mtime, HasMTime: true}, nil
}
func (d *directoryVFS) ListChildren(ps *pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	return nil, vfs.ErrUnsupportedPathSpecType
}

func TestParseFileRoutesDirectoriesToFileStat(t *testing.T) {
	reg := parser.NewRegistry()
	reg.Register(panicParser{}) // would panic if the registry were dispatched to

	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	d := &directoryVFS{mtime: mtime}
	storQ := queue.NewSingleThreaded()
	pathQ := queue.NewSingleThreaded()
	w := New(0, d, reg, pathQ, storQ, preprocess.NewObject(preprocess.OSLinux), nil, silentLogger())

	ps := pathspec.New("/some/dir")
	fh, info, err := d.Open(ps)
	require.NoError(t, err)
	w.parseFile(ps, fh, info)

	storQ.SignalEndOfInput()
	item := storQ.Pop()
	require.NotEqual(t, queue.EndOfInput, item)
	got := item.(*event.Event)
	assert.Equal(t, "filestat", got.Parser)
	assert.Equal(t, mtime.UnixMicro(), got.Timestamp)
}
