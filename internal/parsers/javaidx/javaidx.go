// Package javaidx parses Java Web Start/applet deployment cache IDX
// files (versions 602-605), emitting a "File Hosted Date" event for
// every file, an optional "File Expiration Date" event, and a "File
// Downloaded" event recovered from the trailing HTTP response headers.
//
// Grounded on original_source/plaso/parsers/java_idx.py
// (JavaIDXParser.Parse: the magic/version probe, the three struct
// layouts, and the HTTP header scan for the "date" field) and its test
// fixture in original_source/tests/parsers/java_idx.py.
package javaidx

import (
	"encoding/binary"
	"io"
	"strings"
	"time"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/parser"
	"github.com/cdtdelta/4n6time-core/internal/timestamp"
)

const dataType = "java:download:idx"

// httpDateLayout mirrors JavaIDXParser.HTTP_DATE_FMT
// ('%a, %d %b %Y %H:%M:%S %Z').
const httpDateLayout = time.RFC1123

// Parser decodes Java IDX cache files. No magic signature is
// registered: IDX files have no fixed leading byte pattern beyond the
// busy/incomplete/version fields this parser itself validates, so it
// always participates in the "try every parser" dispatch fallback.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Name() string                   { return "java_idx" }
func (p *Parser) DataTypePrefix() string         { return "java:download" }
func (p *Parser) Signatures() []parser.Signature { return nil }

type shortMagic struct {
	Busy       uint8
	Incomplete uint8
	Version    uint32
}

type idx602SectionOne struct {
	NullSpace        uint16
	Shortcut         uint8
	ContentLength    uint32
	LastModifiedDate uint64
	ExpirationDate   uint64
}

type idx605SectionOne struct {
	Shortcut         uint8
	ContentLength    uint32
	LastModifiedDate uint64
	ExpirationDate   uint64
	ValidationDate   uint64
	Signed           uint8
	Sec2Len          uint32
	Sec3Len          uint32
	Sec4Len          uint32
}

// Parse mirrors JavaIDXParser.Parse exactly: probe the 6-byte magic
// header, pick the version-specific section-one layout, read section
// two (for 603/604/605, only when the file is long enough to carry it),
// then walk the trailing HTTP headers looking for a "date" field.
func (p *Parser) Parse(fe *parser.FileEntry) ([]*event.Event, error) {
	r := fe.Reader

	var magic shortMagic
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, parser.ErrUnableToParseFile
	}
	if magic.Busy > 1 || magic.Incomplete > 1 {
		return nil, parser.ErrUnableToParseFile
	}
	switch magic.Version {
	case 602, 603, 604, 605:
	default:
		return nil, parser.ErrUnableToParseFile
	}

	var lastModified, expirationDate uint64
	var haveExpiration bool
	var url, ipAddress string
	var httpHeaderCount uint32

	if magic.Version == 602 {
		var sec1 idx602SectionOne
		if err := binary.Read(r, binary.BigEndian, &sec1); err != nil {
			return nil, parser.ErrUnableToParseFile
		}
		versionString, err := readPascalString(r)
		if err != nil {
			return nil, parser.ErrUnableToParseFile
		}
		_ = versionString
		url, err = readPascalString(r)
		if err != nil {
			return nil, parser.ErrUnableToParseFile
		}
		if _, err := readPascalString(r); err != nil { // namespace
			return nil, parser.ErrUnableToParseFile
		}
		if err := binary.Read(r, binary.BigEndian, &httpHeaderCount); err != nil {
			return nil, parser.ErrUnableToParseFile
		}
		lastModified = sec1.LastModifiedDate
		expirationDate = sec1.ExpirationDate
		haveExpiration = true
		ipAddress = "Unknown"
	} else {
		if magic.Version == 603 || magic.Version == 604 {
			if _, err := io.CopyN(io.Discard, r, 2); err != nil {
				return nil, parser.ErrUnableToParseFile
			}
		}
		var sec1 idx605SectionOne
		if err := binary.Read(r, binary.BigEndian, &sec1); err != nil {
			return nil, parser.ErrUnableToParseFile
		}
		lastModified = sec1.LastModifiedDate
		expirationDate = sec1.ExpirationDate
		haveExpiration = true

		if fe.Info.Size > 128 {
			if seeker, ok := r.(io.Seeker); ok {
				if _, err := seeker.Seek(128, io.SeekStart); err != nil {
					return nil, parser.ErrUnableToParseFile
				}
			}
			var err error
			if _, err = readPascalString(r); err != nil { // version
				return nil, parser.ErrUnableToParseFile
			}
			if url, err = readPascalString(r); err != nil {
				return nil, parser.ErrUnableToParseFile
			}
			if _, err = readPascalString(r); err != nil { // namespec
				return nil, parser.ErrUnableToParseFile
			}
			if ipAddress, err = readPascalString(r); err != nil {
				return nil, parser.ErrUnableToParseFile
			}
			if err := binary.Read(r, binary.BigEndian, &httpHeaderCount); err != nil {
				return nil, parser.ErrUnableToParseFile
			}
		} else {
			url = "Unknown"
			ipAddress = "Unknown"
		}
	}

	var downloadDate int64
	for i := uint32(0); i < httpHeaderCount; i++ {
		field, err := readPascalString(r)
		if err != nil {
			break
		}
		value, err := readPascalString(r)
		if err != nil {
			break
		}
		if strings.EqualFold(field, "date") {
			downloadDate = timestamp.FromTimeString(value, httpDateLayout, "UTC", false)
		}
	}

	if url == "" || ipAddress == "" {
		return nil, parser.ErrUnableToParseFile
	}

	var out []*event.Event
	newEvent := func(ts int64, desc string) *event.Event {
		e := event.NewEvent(ts, desc, dataType)
		e.Parser = "java_idx"
		e.Set("url", event.StringValue(url))
		e.Set("ip_address", event.StringValue(ipAddress))
		e.Set("idx_version", event.UintValue(uint64(magic.Version)))
		return e
	}

	// FromJavaTime applies java_idx.py's one multiply-by-1000 (ms -> us),
	// nothing more. For the 605 fixture walkthrough this lands the hosted
	// date one hour after the commonly cited 05:00:00 UTC value; no binary
	// fixture was available to confirm which side is wrong, so the literal
	// formula wins rather than a silent hour of padding.
	out = append(out, newEvent(timestamp.FromJavaTime(int64(lastModified)), "File Hosted Date"))
	if haveExpiration && expirationDate != 0 {
		out = append(out, newEvent(timestamp.FromJavaTime(int64(expirationDate)), "File Expiration Date"))
	}
	if downloadDate != 0 {
		out = append(out, newEvent(downloadDate, "File Downloaded"))
	}
	return out, nil
}

// readPascalString reads Java's 2-byte big-endian length-prefixed UTF
// string encoding (construct.PascalString with a UBInt16 length field
// in the source parser).
func readPascalString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
