package engine

import (
	"bytes"
	"context"
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
	"github.com/cdtdelta/4n6time-core/internal/storage"
	"github.com/cdtdelta/4n6time-core/internal/vfs/memfs"
)

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// statEventParser emits exactly one event per file, timestamped by the
// file's byte length (deterministic, collision-free for small fixtures).
type statEventParser struct{}

func (statEventParser) Name() string                { return "statstub" }
func (statEventParser) DataTypePrefix() string       { return "statstub" }
func (statEventParser) Signatures() []parser.Signature { return nil }
func (statEventParser) Parse(fe *parser.FileEntry) ([]*event.Event, error) {
	return []*event.Event{event.NewEvent(fe.Info.Size, "File Stat", "statstub:entry")}, nil
}

func newRegistry() *parser.Registry {
	reg := parser.NewRegistry()
	reg.Register(statEventParser{})
	return reg
}

func readChunkedEvents(t *testing.T, data []byte) []*event.Event {
	t.Helper()
	zr, err := kzip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	r, err := storage.NewReader(zr)
	require.NoError(t, err)

	chunks, err := r.ListChunks()
	require.NoError(t, err)

	var out []*event.Event
	for _, c := range chunks {
		it, err := r.OpenChunk(c.Num)
		require.NoError(t, err)
		for {
			entry, ok := it.Next()
			if !ok {
				break
			}
			ev, err := r.Materialize(c.Num, entry.Offset)
			require.NoError(t, err)
			out = append(out, ev)
		}
	}
	return out
}

func TestSingleProcessRunProducesOneEventPerFile(t *testing.T) {
	fs := memfs.New()
	fs.WriteFile("/var/log/syslog", []byte("abc"))
	fs.WriteFile("/var/log/auth.log", []byte("de"))

	pre := preprocess.NewObject(preprocess.OSLinux)
	e := New(fs, newRegistry(), pre, silentLogger())

	var out bytes.Buffer
	cfg := Config{Mode: SingleProcess}
	err := e.Run(context.Background(), cfg, pathspec.New("/"), &out)
	require.NoError(t, err)

	events := readChunkedEvents(t, out.Bytes())
	require.Len(t, events, 2)
	assert.Equal(t, "statstub:entry", events[0].DataType)
}

func TestLocalMultiProcessRunProducesOneEventPerFile(t *testing.T) {
	fs := memfs.New()
	fs.WriteFile("/var/log/syslog", []byte("abcdef"))
	fs.WriteFile("/home/user/.bash_history", []byte("xy"))
	fs.WriteFile("/home/user/notes.txt", []byte("z"))

	pre := preprocess.NewObject(preprocess.OSLinux)
	e := New(fs, newRegistry(), pre, silentLogger())

	var out bytes.Buffer
	cfg := Config{Mode: LocalMultiProcess, Workers: 2}
	err := e.Run(context.Background(), cfg, pathspec.New("/"), &out)
	require.NoError(t, err)

	events := readChunkedEvents(t, out.Bytes())
	assert.Len(t, events, 3)
}

func TestClampWorkersHonorsExplicitPositiveValue(t *testing.T) {
	assert.Equal(t, 7, ClampWorkers(7))
}

func TestClampWorkersAutoSizesWithinBounds(t *testing.T) {
	got := ClampWorkers(0)
	assert.GreaterOrEqual(t, got, MinWorkers)
	assert.LessOrEqual(t, got, MaxWorkers)
}

func TestRunReturnsErrNotImplementedForDistributedMode(t *testing.T) {
	fs := memfs.New()
	pre := preprocess.NewObject(preprocess.OSLinux)
	e := New(fs, newRegistry(), pre, silentLogger())

	var out bytes.Buffer
	err := e.Run(context.Background(), Config{Mode: Distributed}, pathspec.New("/"), &out)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestLocalMultiProcessAbortsOnContextCancel(t *testing.T) {
	fs := memfs.New()
	for i := 0; i < 200; i++ {
		fs.WriteFile("/data/file"+string(rune('a'+i%26))+string(rune('0'+i%10)), []byte("payload"))
	}

	pre := preprocess.NewObject(preprocess.OSLinux)
	e := New(fs, newRegistry(), pre, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // canceled before Run even starts: must still terminate cleanly

	var out bytes.Buffer
	cfg := Config{Mode: LocalMultiProcess, Workers: 2}

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, cfg, pathspec.New("/"), &out) }()

	select {
	case err := <-done:
		assert.Error(t, err, "an already-canceled context must surface as an error, not hang")
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not terminate after context cancellation")
	}
}
