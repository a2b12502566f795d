package parser

import (
	"bytes"
	"testing"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeParser struct {
	name string
	sigs []Signature
	err  error
	evs  []*event.Event
}

func (f *fakeParser) Name() string             { return f.name }
func (f *fakeParser) DataTypePrefix() string    { return f.name }
func (f *fakeParser) Signatures() []Signature   { return f.sigs }
func (f *fakeParser) Parse(fe *FileEntry) ([]*event.Event, error) {
	return f.evs, f.err
}

func TestDispatchTriesSignatureMatchedFirst(t *testing.T) {
	r := NewRegistry()
	zip := &fakeParser{name: "zip", sigs: []Signature{{Offset: 0, Value: []byte("PK\x03\x04")}},
		evs: []*event.Event{event.NewEvent(1, "x", "zip:entry")}}
	other := &fakeParser{name: "other", err: ErrUnableToParseFile}
	r.Register(other)
	r.Register(zip)

	fe := &FileEntry{Reader: bytes.NewReader([]byte("PK\x03\x04hello"))}
	events, p, err := r.Dispatch(fe)
	require.NoError(t, err)
	assert.Equal(t, "zip", p.Name())
	assert.Len(t, events, 1)
}

func TestDispatchFallsBackWhenNoSignatureMatches(t *testing.T) {
	r := NewRegistry()
	fail := &fakeParser{name: "fail", err: ErrUnableToParseFile}
	ok := &fakeParser{name: "ok", evs: []*event.Event{event.NewEvent(1, "x", "ok:entry")}}
	r.Register(fail)
	r.Register(ok)

	fe := &FileEntry{Reader: bytes.NewReader([]byte("plain text"))}
	events, p, err := r.Dispatch(fe)
	require.NoError(t, err)
	assert.Equal(t, "ok", p.Name())
	assert.Len(t, events, 1)
}

func TestDispatchAllFailReturnsUnableToParseFile(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeParser{name: "a", err: ErrUnableToParseFile})
	r.Register(&fakeParser{name: "b", err: ErrUnableToParseFile})

	fe := &FileEntry{Reader: bytes.NewReader([]byte("nope"))}
	_, _, err := r.Dispatch(fe)
	assert.ErrorIs(t, err, ErrUnableToParseFile)
}

func TestMagicMaxLengthComputedFromSignatures(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeParser{name: "tar", sigs: []Signature{{Offset: 257, Value: []byte("ustar")}}})
	assert.Equal(t, int64(262), r.MagicMaxLength())
}
