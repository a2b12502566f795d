package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/preprocess"
)

// ChunkInfo is the public view of one chunk's metadata, the information
// psort (§4.K) uses to prune chunks against a requested time range before
// opening any stream.
type ChunkInfo struct {
	Num             int
	RangeLo         int64
	RangeHi         int64
	DataTypeCounter map[string]int
	ParserCounter   map[string]int
}

// InRange reports whether this chunk's timestamp range overlaps [lo, hi].
func (c ChunkInfo) InRange(lo, hi int64) bool {
	return c.RangeLo <= hi && c.RangeHi >= lo
}

type chunkFiles struct {
	index, proto, timestamps, meta *zip.File
}

// Reader is the read side of a container: chunk-metadata enumeration plus
// per-chunk (timestamp, offset) iteration and event materialization, the
// primitives psort's k-way merge (internal/merge) is built on.
type Reader struct {
	zr     *zip.Reader
	chunks map[int]chunkFiles

	mu         sync.Mutex
	protoCache map[int][]byte
}

// NewReader groups a zip.Reader's members by chunk number and stream
// kind.
func NewReader(zr *zip.Reader) (*Reader, error) {
	r := &Reader{zr: zr, chunks: map[int]chunkFiles{}, protoCache: map[int][]byte{}}
	for _, f := range zr.File {
		prefix, num, ok := splitStreamName(f.Name)
		if !ok {
			continue
		}
		cf := r.chunks[num]
		switch prefix {
		case "plaso_index":
			cf.index = f
		case "plaso_proto":
			cf.proto = f
		case "plaso_timestamps":
			cf.timestamps = f
		case "plaso_meta":
			cf.meta = f
		default:
			continue
		}
		r.chunks[num] = cf
	}
	return r, nil
}

func splitStreamName(name string) (prefix string, num int, ok bool) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return name[:idx], n, true
}

// ListChunks returns every chunk's metadata, ordered by chunk number
// (dense and monotonic per §3.4). Chunks are sealed in append order, so
// their timestamp ranges can overlap; ordering across chunks is left to
// the k-way merge.
func (r *Reader) ListChunks() ([]ChunkInfo, error) {
	nums := make([]int, 0, len(r.chunks))
	for n := range r.chunks {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	out := make([]ChunkInfo, 0, len(nums))
	for _, n := range nums {
		cf := r.chunks[n]
		if cf.meta == nil {
			return nil, fmt.Errorf("storage: chunk %d missing meta stream", n)
		}
		var meta chunkMeta
		if err := readGobEntry(cf.meta, &meta); err != nil {
			return nil, fmt.Errorf("storage: chunk %d meta: %w", n, err)
		}
		out = append(out, ChunkInfo{
			Num:             n,
			RangeLo:         meta.RangeLo,
			RangeHi:         meta.RangeHi,
			DataTypeCounter: meta.DataTypeCounter,
			ParserCounter:   meta.ParserCounter,
		})
	}
	return out, nil
}

func readGobEntry(f *zip.File, v interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return gob.NewDecoder(rc).Decode(v)
}

// ChunkEntry is one (timestamp, offset) pair within a chunk's parallel
// index/timestamps streams.
type ChunkEntry struct {
	Timestamp int64
	Offset    int64
}

// ChunkIterator walks a single chunk's (timestamp, offset) pairs in
// storage order (already timestamp-ascending, since the writer sorted
// before sealing).
type ChunkIterator struct {
	entries []ChunkEntry
	pos     int
}

// Next returns the next entry, or ok=false once exhausted.
func (it *ChunkIterator) Next() (ChunkEntry, bool) {
	if it.pos >= len(it.entries) {
		return ChunkEntry{}, false
	}
	e := it.entries[it.pos]
	it.pos++
	return e, true
}

// OpenChunk returns an iterator over chunk num's (timestamp, offset)
// pairs, restartable by calling OpenChunk again (§4.K's "restartable
// iterator" requirement).
func (r *Reader) OpenChunk(num int) (*ChunkIterator, error) {
	cf, ok := r.chunks[num]
	if !ok {
		return nil, fmt.Errorf("storage: no chunk %d", num)
	}
	if cf.index == nil || cf.timestamps == nil {
		return nil, fmt.Errorf("storage: chunk %d missing index/timestamps stream", num)
	}

	offsets, err := readInt64LEStream(cf.index)
	if err != nil {
		return nil, fmt.Errorf("storage: chunk %d index: %w", num, err)
	}
	timestamps, err := readInt64LEStream(cf.timestamps)
	if err != nil {
		return nil, fmt.Errorf("storage: chunk %d timestamps: %w", num, err)
	}
	if len(offsets) != len(timestamps) {
		return nil, fmt.Errorf("storage: chunk %d index/timestamps length mismatch (%d != %d)", num, len(offsets), len(timestamps))
	}

	entries := make([]ChunkEntry, len(offsets))
	for i := range offsets {
		entries[i] = ChunkEntry{Timestamp: timestamps[i], Offset: offsets[i]}
	}
	return &ChunkIterator{entries: entries}, nil
}

func readInt64LEStream(f *zip.File) ([]int64, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("storage: stream length %d not a multiple of 8", len(data))
	}
	out := make([]int64, len(data)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}

// Materialize reads and deserializes the event record at offset within
// chunk num's proto stream. The proto stream is read once per chunk and
// cached, since psort revisits a chunk's members in timestamp rather
// than file order.
func (r *Reader) Materialize(num int, offset int64) (*event.Event, error) {
	proto, err := r.protoBytes(num)
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset+4 > int64(len(proto)) {
		return nil, fmt.Errorf("storage: chunk %d offset %d out of range", num, offset)
	}
	length := binary.LittleEndian.Uint32(proto[offset : offset+4])
	start := offset + 4
	end := start + int64(length)
	if end > int64(len(proto)) {
		return nil, fmt.Errorf("storage: chunk %d record at %d overruns proto stream", num, offset)
	}
	return event.Deserialize(proto[start:end])
}

func (r *Reader) protoBytes(num int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.protoCache[num]; ok {
		return cached, nil
	}
	cf, ok := r.chunks[num]
	if !ok || cf.proto == nil {
		return nil, fmt.Errorf("storage: no proto stream for chunk %d", num)
	}
	rc, err := cf.proto.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	r.protoCache[num] = data
	return data, nil
}

// ReadInformation decodes every PreprocessObject record stored under
// information.dump. A container may carry more than one entry (or one
// entry holding more than one concatenated record) when containers from
// separate runs are merged, so every record found is returned in order.
func (r *Reader) ReadInformation() ([]*preprocess.Object, error) {
	var out []*preprocess.Object
	for _, f := range r.zr.File {
		if f.Name != "information.dump" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		dec := gob.NewDecoder(bytes.NewReader(data))
		for {
			var obj preprocess.Object
			if err := dec.Decode(&obj); err != nil {
				if err == io.EOF {
					break
				}
				return nil, fmt.Errorf("storage: decode information.dump: %w", err)
			}
			out = append(out, &obj)
		}
	}
	return out, nil
}
