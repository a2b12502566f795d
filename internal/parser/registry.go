// Package parser implements the parser registry and dispatch algorithm of
// §4.E: explicit registration (not metaclass/init-side-effect, per the §9
// design note), magic-byte signature matching, and the "signature
// parsers first, then everyone, first non-UnableToParseFile wins"
// dispatch grounded on original_source/plaso/lib/worker.py's ParseFile.
package parser

import (
	"errors"
	"io"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

// ErrUnableToParseFile is the structured "not my format" signal: expected,
// and silently tried next (§4.E, §7).
var ErrUnableToParseFile = errors.New("parser: unable to parse file")

// FileEntry bundles everything a Parser needs: the seekable content and
// its stat info.
type FileEntry struct {
	Reader io.ReadSeeker
	Info   vfs.FileInfo
	Name   string
}

// Signature is one registered magic-byte match.
type Signature struct {
	Offset int64
	Value  []byte
}

// Parser is the contract every concrete parser implements.
type Parser interface {
	Name() string
	DataTypePrefix() string
	Signatures() []Signature
	Parse(fe *FileEntry) ([]*event.Event, error)
}

// Registry holds every registered parser and the derived magic-matching
// table, populated once at startup and read-only thereafter (§9 "Global
// process-wide state").
type Registry struct {
	all             []Parser
	magicMaxLength  int64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a parser. Intended to be called a fixed number of times
// at startup (an explicit init step), never during dispatch.
func (r *Registry) Register(p Parser) {
	r.all = append(r.all, p)
	for _, sig := range p.Signatures() {
		end := sig.Offset + int64(len(sig.Value))
		if end > r.magicMaxLength {
			r.magicMaxLength = end
		}
	}
}

// MagicMaxLength returns the number of leading bytes the dispatcher needs
// to read to evaluate every registered signature.
func (r *Registry) MagicMaxLength() int64 {
	return r.magicMaxLength
}

// matches reports whether the leading bytes satisfy every byte of sig.
func matches(lead []byte, sig Signature) bool {
	end := sig.Offset + int64(len(sig.Value))
	if end > int64(len(lead)) {
		return false
	}
	for i, b := range sig.Value {
		if lead[sig.Offset+int64(i)] != b {
			return false
		}
	}
	return true
}

// signatureMatched returns the parsers whose declared signatures match
// the given leading bytes.
func (r *Registry) signatureMatched(lead []byte) []Parser {
	var out []Parser
	for _, p := range r.all {
		for _, sig := range p.Signatures() {
			if matches(lead, sig) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Dispatch runs the §4.E algorithm: read the leading bytes once, try any
// signature-matched parsers first, then every remaining registered
// parser; the first whose Parse returns no error wins.
func (r *Registry) Dispatch(fe *FileEntry) ([]*event.Event, Parser, error) {
	lead := make([]byte, r.magicMaxLength)
	if r.magicMaxLength > 0 {
		if _, err := fe.Reader.Seek(0, io.SeekStart); err != nil {
			return nil, nil, err
		}
		n, _ := io.ReadFull(fe.Reader, lead)
		lead = lead[:n]
	}

	candidates := r.signatureMatched(lead)
	for _, p := range r.all {
		matched := false
		for _, sig := range p.Signatures() {
			if matches(lead, sig) {
				matched = true
				break
			}
		}
		if !matched {
			candidates = append(candidates, p)
		}
	}

	var lastErr error = ErrUnableToParseFile
	for _, p := range candidates {
		if _, err := fe.Reader.Seek(0, io.SeekStart); err != nil {
			return nil, nil, err
		}
		events, err := p.Parse(fe)
		if err == nil {
			return events, p, nil
		}
		if errors.Is(err, ErrUnableToParseFile) {
			lastErr = err
			continue
		}
		// Any other error: parser skipped for this file only; dispatch
		// keeps trying the rest and returns only the last error seen.
		lastErr = err
		continue
	}
	return nil, nil, lastErr
}

// Try returns a copy of every registered parser, in registration order.
func (r *Registry) Try() []Parser {
	return append([]Parser(nil), r.all...)
}
