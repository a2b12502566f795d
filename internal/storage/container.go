// Package storage implements the §4.J storage container: an append-only
// archive of numbered per-chunk streams (index/proto/timestamps/meta)
// plus one information.dump per run, written by the single storage
// worker that owns the container.
//
// The archive format is the klauspost/compress/zip API (§3.4 [DOMAIN]
// choice) instead of stdlib archive/zip, matching the drop-in substitution
// the log-ingestion pack repo makes for its own on-disk spool files.
package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"

	"github.com/klauspost/compress/zip"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/preprocess"
)

// DefaultMaxChunkBytes is the default chunk size bound (§4.J: "≈ 196 MiB").
const DefaultMaxChunkBytes int64 = 196 << 20

// streamName renders one of the fixed stream prefixes for chunk n,
// zero-padded to 6 digits per §6's bit-level contract.
func streamName(prefix string, n int) string {
	return fmt.Sprintf("%s.%06d", prefix, n)
}

// chunkMeta is the per-chunk metadata record (§3.4): the gob wire form of
// plaso_meta.NNNNNN.
type chunkMeta struct {
	RangeLo         int64
	RangeHi         int64
	DataTypeCounter map[string]int
	ParserCounter   map[string]int
}

// pendingEvent is one buffered, not-yet-sealed event plus its serialized
// bytes (serialized eagerly so chunk byte size is always known exactly).
type pendingEvent struct {
	ev   *event.Event
	blob []byte
}

// Writer is the storage worker: the only component that ever writes to
// a container. It buffers pushed events by total serialized byte size
// and seals a chunk once the bound is reached.
type Writer struct {
	mu sync.Mutex

	zw            *zip.Writer
	maxChunkBytes int64
	chunkNum      int
	bufBytes      int64
	buf           []pendingEvent
	closed        bool
}

// NewWriter returns a Writer over w with the given maximum chunk size in
// bytes (DefaultMaxChunkBytes if maxChunkBytes <= 0).
func NewWriter(zw *zip.Writer, maxChunkBytes int64) *Writer {
	if maxChunkBytes <= 0 {
		maxChunkBytes = DefaultMaxChunkBytes
	}
	return &Writer{zw: zw, maxChunkBytes: maxChunkBytes}
}

// Push buffers e for the current chunk, serializing it immediately so
// the chunk's running byte size is exact, sealing the chunk first if
// adding e would exceed the configured bound (a chunk containing at
// least one event is always sealed eventually, even a single event
// larger than maxChunkBytes).
func (w *Writer) Push(e *event.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("storage: push after close")
	}

	blob, err := event.Serialize(e)
	if err != nil {
		return fmt.Errorf("storage: serialize event: %w", err)
	}
	// 4-byte length prefix plus the payload, matching the proto stream's
	// length-prefixed record format (§6).
	size := int64(4 + len(blob))

	if len(w.buf) > 0 && w.bufBytes+size > w.maxChunkBytes {
		if err := w.seal(); err != nil {
			return err
		}
	}

	w.buf = append(w.buf, pendingEvent{ev: e, blob: blob})
	w.bufBytes += size
	return nil
}

// seal sorts the buffered events by timestamp (stable, ties preserved),
// writes the three parallel streams and the chunk metadata stream, and
// advances the chunk counter. Caller must hold w.mu.
func (w *Writer) seal() error {
	if len(w.buf) == 0 {
		return nil
	}

	sort.SliceStable(w.buf, func(i, j int) bool {
		return w.buf[i].ev.Timestamp < w.buf[j].ev.Timestamp
	})

	var proto bytes.Buffer
	index := make([]int64, len(w.buf))
	timestamps := make([]int64, len(w.buf))
	meta := chunkMeta{DataTypeCounter: map[string]int{}, ParserCounter: map[string]int{}}

	for i, pe := range w.buf {
		index[i] = int64(proto.Len())
		timestamps[i] = pe.ev.Timestamp

		var lenPrefix [4]byte
		binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(pe.blob)))
		proto.Write(lenPrefix[:])
		proto.Write(pe.blob)

		if i == 0 || pe.ev.Timestamp < meta.RangeLo {
			meta.RangeLo = pe.ev.Timestamp
		}
		if i == 0 || pe.ev.Timestamp > meta.RangeHi {
			meta.RangeHi = pe.ev.Timestamp
		}
		meta.DataTypeCounter[pe.ev.DataType]++
		meta.ParserCounter[pe.ev.Parser]++
	}

	indexBytes := packInt64LE(index)
	timestampBytes := packInt64LE(timestamps)

	var metaBuf bytes.Buffer
	if err := gob.NewEncoder(&metaBuf).Encode(meta); err != nil {
		return fmt.Errorf("storage: encode chunk meta: %w", err)
	}

	// All three (plus meta) are fully prepared in memory before any is
	// written, so a mid-write failure here is only a missing archive
	// member, never a partially-written stream.
	if err := w.writeEntry(streamName("plaso_index", w.chunkNum), indexBytes); err != nil {
		return err
	}
	if err := w.writeEntry(streamName("plaso_proto", w.chunkNum), proto.Bytes()); err != nil {
		return err
	}
	if err := w.writeEntry(streamName("plaso_timestamps", w.chunkNum), timestampBytes); err != nil {
		return err
	}
	if err := w.writeEntry(streamName("plaso_meta", w.chunkNum), metaBuf.Bytes()); err != nil {
		return err
	}

	w.chunkNum++
	w.buf = nil
	w.bufBytes = 0
	return nil
}

func (w *Writer) writeEntry(name string, data []byte) error {
	f, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("storage: create entry %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("storage: write entry %s: %w", name, err)
	}
	return nil
}

func packInt64LE(values []int64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
	}
	return out
}

// WriteInformation appends one serialized PreprocessObject record to
// information.dump. Readers must tolerate more than one record when
// containers from multiple runs are concatenated (§6).
func (w *Writer) WriteInformation(pre *preprocess.Object) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(pre); err != nil {
		return fmt.Errorf("storage: encode preprocess object: %w", err)
	}
	return w.writeEntry("information.dump", buf.Bytes())
}

// Flush seals the current buffer early, even if it has not reached
// maxChunkBytes. Used by callers that need a chunk boundary at a known
// point (tests constructing multi-chunk fixtures); the engine's normal
// run relies on the byte-size bound instead.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("storage: flush after close")
	}
	return w.seal()
}

// Close seals any buffered events and finalizes the archive.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	if err := w.seal(); err != nil {
		return err
	}
	w.closed = true
	return w.zw.Close()
}
