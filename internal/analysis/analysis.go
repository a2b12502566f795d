// Package analysis implements the §4.K pub/sub analysis-plugin sinks
// named by the sort/psort front-end's `--analysis <plugin-list>` flag:
// every sink observes the merge-sort reader's emitted stream and
// produces a one-shot text report once the stream is exhausted.
//
// Grounded on original_source/plaso/lib/analysis_interface.py's
// AnalysisPlugin contract (NAME, TYPE_REPORT, Observe-then-report shape)
// and original_source/plaso/analysis/chrome_extension.py's general
// report-plugin structure, reworked into two self-contained, offline
// sinks: the source plugin's own network lookup against the Chrome Web
// Store has no equivalent in this module (no outbound HTTP client is
// wired anywhere else in the pipeline, and a forensic tool making
// unannounced network calls during analysis is the opposite of what
// this package should do).
package analysis

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/cdtdelta/4n6time-core/internal/event"
)

// Named builds one registered sink by name, for the --analysis flag's
// comma-separated plugin list. An unknown name returns a nil sink and
// false.
func Named(name string) (Sink, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "parser_count":
		return NewParserCount(), true
	case "unique_domains":
		return NewUniqueDomains(), true
	default:
		return nil, false
	}
}

// Sink matches merge.AnalysisSink's shape exactly (Observe/Report), kept
// as its own named interface so this package has no import-time
// dependency on internal/merge.
type Sink interface {
	Observe(e *event.Event)
	Report() string
}

// ParserCount tallies events per parser name, the simplest possible
// TYPE_REPORT-style plugin: a summary of what ran, not a per-event
// transformation.
type ParserCount struct {
	counts map[string]int
}

func NewParserCount() *ParserCount { return &ParserCount{counts: make(map[string]int)} }

func (p *ParserCount) Observe(e *event.Event) {
	name := e.Parser
	if name == "" {
		name = "(unknown)"
	}
	p.counts[name]++
}

func (p *ParserCount) Report() string {
	names := make([]string, 0, len(p.counts))
	for name := range p.counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintln(&b, "parser_count analysis report")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-20s %d\n", name, p.counts[name])
	}
	return b.String()
}

// UniqueDomains extracts the host portion of every "url" attribute an
// event carries (javaidx's url attribute, a SQLite sub-plugin's visited
// URL column, and so on) and reports the distinct set, mirroring the
// source plugin's NAME='chrome_extension' report shape without its
// network lookup.
type UniqueDomains struct {
	domains map[string]int
}

func NewUniqueDomains() *UniqueDomains {
	return &UniqueDomains{domains: make(map[string]int)}
}

func (u *UniqueDomains) Observe(e *event.Event) {
	v, ok := e.Get("url")
	if !ok || v.Kind != event.KindString || v.S == "" {
		return
	}
	parsed, err := url.Parse(v.S)
	if err != nil || parsed.Host == "" {
		return
	}
	u.domains[strings.ToLower(parsed.Host)]++
}

func (u *UniqueDomains) Report() string {
	domains := make([]string, 0, len(u.domains))
	for d := range u.domains {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	var b strings.Builder
	fmt.Fprintln(&b, "unique_domains analysis report")
	for _, d := range domains {
		fmt.Fprintf(&b, "  %-40s %d\n", d, u.domains[d])
	}
	return b.String()
}
