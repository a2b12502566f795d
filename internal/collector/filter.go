// Filter implements the collection-filter-file feature of §4.H: lines of
// glob-like path expressions with "{placeholder}" segments and
// segment-level regular expressions, expanded against the VFS tree
// instead of a full walk.
//
// Grounded on original_source/plaso/collector/collector.py's
// GenericPreprocessCollector (_GetPathSegmentExpressionsList, _GetPaths,
// GetFilePaths, GetPathSpecs) and BuildCollectionFilterFromFile.
package collector

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/cdtdelta/4n6time-core/internal/pathspec"
	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

// placeholderPattern matches a whole path segment of the form "{name}".
var placeholderPattern = regexp.MustCompile(`^\{[a-z_]+\}$`)

// placeholders is the small, fixed placeholder table this repository
// ships (a stand-in for the Windows Registry path expander, which this
// repository does not implement — see the preprocess package's
// RegistryHeuristic note). Expansion simply substitutes a known literal
// segment sequence.
var placeholders = map[string][]string{
	"{windir}":       {"Windows"},
	"{systemroot}":    {"Windows"},
	"{syswow64}":      {"Windows", "SysWOW64"},
	"{programfiles}":  {"Program Files"},
	"{allusersappdata}": {"ProgramData"},
}

// segment is one path-segment matcher: either a literal (from a resolved
// placeholder) or a compiled, anchored, case-insensitive regular
// expression.
type segment struct {
	literal string
	re      *regexp.Regexp
}

func (s segment) matches(name string) bool {
	if s.re != nil {
		return s.re.MatchString(name)
	}
	return strings.EqualFold(s.literal, name)
}

// Filter holds every filter line loaded from a collection filter file.
type Filter struct {
	lines []string
}

// NewFilter builds a Filter from raw, already-comment-stripped filter
// lines.
func NewFilter(lines []string) *Filter {
	return &Filter{lines: lines}
}

// LoadFilterFile reads a collection filter file: one expression per
// line, blank lines and lines starting with "#" ignored.
func LoadFilterFile(r *bufio.Scanner) *Filter {
	var lines []string
	for r.Scan() {
		line := strings.TrimSpace(r.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return NewFilter(lines)
}

// segmentsFor splits expression on "/" into segment matchers, expanding
// "{placeholder}" segments and compiling everything else as an anchored,
// case-insensitive, dot-matches-newline regular expression.
func segmentsFor(expression string) ([]segment, error) {
	var out []segment
	for _, part := range strings.Split(expression, "/") {
		if part == "" {
			continue
		}
		if placeholderPattern.MatchString(part) {
			resolved, ok := placeholders[strings.ToLower(part)]
			if !ok {
				return nil, fmt.Errorf("collector: unknown placeholder %s", part)
			}
			for _, lit := range resolved {
				out = append(out, segment{literal: lit})
			}
			continue
		}
		re, err := regexp.Compile(`(?is)^` + part + `$`)
		if err != nil {
			return nil, fmt.Errorf("collector: bad filter segment %q: %w", part, err)
		}
		out = append(out, segment{re: re})
	}
	return out, nil
}

// Expand walks fs starting at root, matching every filter line's
// segments level by level, and returns every path spec (file or
// directory) that matched a line in full.
func (f *Filter) Expand(fs vfs.VFS, root *pathspec.PathSpec) ([]*pathspec.PathSpec, error) {
	var out []*pathspec.PathSpec
	for _, line := range f.lines {
		segs, err := segmentsFor(line)
		if err != nil {
			continue // a single malformed filter line does not abort the run
		}
		matches, err := expandSegments(fs, root, segs)
		if err != nil {
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

// expandSegments performs the level-by-level directory walk described in
// _GetPaths: start at root, and for each segment narrow the current
// candidate set of directories/files down to the children whose name
// matches that segment.
func expandSegments(fs vfs.VFS, root *pathspec.PathSpec, segs []segment) ([]*pathspec.PathSpec, error) {
	candidates := []*pathspec.PathSpec{root}
	for _, seg := range segs {
		var next []*pathspec.PathSpec
		for _, cand := range candidates {
			info, err := fs.Stat(cand)
			if err != nil || info.Type != vfs.TypeDirectory {
				continue
			}
			children, err := fs.ListChildren(cand)
			if err != nil {
				continue
			}
			for _, child := range children {
				name := lastSegment(child.Location)
				if seg.matches(name) {
					next = append(next, child)
				}
			}
		}
		candidates = next
		if len(candidates) == 0 {
			break
		}
	}
	return candidates, nil
}

func lastSegment(location string) string {
	location = strings.TrimRight(location, "/")
	idx := strings.LastIndex(location, "/")
	if idx < 0 {
		return location
	}
	return location[idx+1:]
}
