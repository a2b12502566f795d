// Package mactime parses Sleuthkit (TSK) "bodyfile" / mactime timelines:
// one `|`-separated line per file-system entry, carrying up to four POSIX
// timestamps. Grounded on
// original_source/plaso/parsers/mactime.py (MactimeParser, VerifyRow,
// ParseRow) and its test fixture in
// original_source/tests/parsers/mactime.py.
package mactime

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/parser"
	"github.com/cdtdelta/4n6time-core/internal/timestamp"
)

const dataType = "mactime:line"

// columns mirrors MactimeParser.COLUMNS; valueSeparator is
// MactimeParser.VALUE_SEPARATOR.
var columns = []string{
	"md5", "name", "inode", "mode_as_string", "uid", "gid", "size",
	"atime", "mtime", "ctime", "crtime",
}

const valueSeparator = "|"

// md5Re matches MactimeParser.MD5_RE.
var md5Re = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// timestampColumns mirrors MactimeParser._TIMESTAMP_DESC_MAP, in the
// fixed emission order atime, mtime, ctime, crtime.
var timestampColumns = []struct {
	column string
	desc   string
}{
	{"atime", "Last Access Time"},
	{"mtime", "Last Modification Time"},
	{"ctime", "Last Metadata Change Time"},
	{"crtime", "Creation Time"},
}

// Parser parses TSK mactime bodyfiles, one event per non-zero timestamp
// column per line.
type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Name() string            { return "mactime" }
func (p *Parser) DataTypePrefix() string  { return "mactime" }
func (p *Parser) Signatures() []parser.Signature { return nil }

// Parse reads fe line by line, verifying and converting each row
// independently; a malformed line is simply skipped (VerifyRow returns
// false for it in the source parser) rather than failing the whole file,
// since a bodyfile commonly mixes a header or blank lines with data rows.
func (p *Parser) Parse(fe *parser.FileEntry) ([]*event.Event, error) {
	scanner := bufio.NewScanner(fe.Reader)
	// Bodyfile lines embedding long paths can exceed bufio's 64KiB default.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	var out []*event.Event
	matchedAnyRow := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		row, ok := splitRow(line)
		if !ok {
			continue
		}
		if !verifyRow(row) {
			continue
		}
		matchedAnyRow = true
		out = append(out, parseRow(row)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mactime: scan: %w", err)
	}
	if !matchedAnyRow {
		return nil, parser.ErrUnableToParseFile
	}
	return out, nil
}

// splitRow maps a raw line onto the fixed column layout, mirroring
// TextCSVParser's row-to-dict behavior for this format.
func splitRow(line string) (map[string]string, bool) {
	fields := strings.Split(line, valueSeparator)
	if len(fields) != len(columns) {
		return nil, false
	}
	row := make(map[string]string, len(columns))
	for i, col := range columns {
		row[col] = fields[i]
	}
	return row, true
}

// verifyRow mirrors MactimeParser.VerifyRow.
func verifyRow(row map[string]string) bool {
	if !md5Re.MatchString(row["md5"]) {
		return false
	}
	size := row["size"]
	n, err := strconv.Atoi(size)
	if err != nil {
		return false
	}
	return strconv.Itoa(n) == size
}

// parseRow mirrors MactimeParser.ParseRow: a shared attribute bag (every
// column but the four timestamps, with md5 "0" dropped and uid mirrored
// into a username attribute), fanned out into up to four events, one per
// non-zero timestamp column.
func parseRow(row map[string]string) []*event.Event {
	inode, _ := strconv.ParseUint(row["inode"], 10, 64)

	attrs := map[string]event.Value{}
	for key, value := range row {
		switch key {
		case "atime", "mtime", "ctime", "crtime":
			continue
		case "md5":
			if value == "0" {
				continue
			}
		}
		attrs[key] = event.StringValue(value)
	}
	if uid, ok := row["uid"]; ok {
		// The source parser resolves uid against preprocess.Object.Users
		// (sid/uid -> name); this port's Users is a flat name list with no
		// uid mapping, so username mirrors uid verbatim until a richer
		// user-account preprocessor attribute exists.
		attrs["username"] = event.StringValue(uid)
	}

	var out []*event.Event
	for _, tc := range timestampColumns {
		raw := row[tc.column]
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || seconds == 0 {
			continue
		}
		e := event.NewEvent(timestamp.FromPosixTime(seconds), tc.desc, dataType)
		e.Parser = "mactime"
		e.Inode = inode
		e.Filename = row["name"]
		for k, v := range attrs {
			e.Set(k, v)
		}
		out = append(out, e)
	}
	return out
}
