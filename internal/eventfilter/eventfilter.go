// Package eventfilter compiles the `--filter <expr>` / `sort <storage>
// [filter]` expression of §6 into something both the worker
// (worker.EventFilter) and the merge-sort reader (merge.EventFilter) can
// apply to an event.Event, independent of any particular output format.
//
// Grounded on the teacher's relational predicate shape ("field op value",
// AND-combined), adapted onto the open-schema event.Event this filter
// actually runs against, since no expression-filter source file was
// retrieved from the original implementation's filters package.
package eventfilter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cdtdelta/4n6time-core/internal/event"
)

// Operator is one clause comparison.
type Operator string

const (
	Equal    Operator = "="
	Contains Operator = "~"
)

type clause struct {
	field string
	op    Operator
	value string
}

// Filter is an AND-combined list of clauses, matching worker.EventFilter
// and merge.EventFilter's identical Matches(e *event.Event) bool shape.
type Filter struct {
	clauses []clause
}

// Compile parses expr, a comma-or-"and"-separated list of
// `field=value` (exact, case-insensitive) or `field~value` (substring,
// case-insensitive) clauses. An empty expr compiles to a Filter that
// matches everything.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}

	raw := strings.FieldsFunc(expr, func(r rune) bool { return r == ',' })
	var clauses []clause
	for _, part := range raw {
		for _, piece := range splitAnd(part) {
			c, err := parseClause(piece)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, c)
		}
	}
	return &Filter{clauses: clauses}, nil
}

func splitAnd(s string) []string {
	lower := strings.ToLower(s)
	idx := strings.Index(lower, " and ")
	if idx < 0 {
		return []string{s}
	}
	return append([]string{s[:idx]}, splitAnd(s[idx+5:])...)
}

func parseClause(piece string) (clause, error) {
	piece = strings.TrimSpace(piece)
	op := Equal
	sep := "="
	if strings.Contains(piece, "~") && (!strings.Contains(piece, "=") || strings.Index(piece, "~") < strings.Index(piece, "=")) {
		op = Contains
		sep = "~"
	}
	idx := strings.Index(piece, sep)
	if idx < 0 {
		return clause{}, fmt.Errorf("eventfilter: invalid clause %q", piece)
	}
	field := strings.ToLower(strings.TrimSpace(piece[:idx]))
	value := strings.TrimSpace(piece[idx+1:])
	value = strings.Trim(value, `"'`)
	if field == "" {
		return clause{}, fmt.Errorf("eventfilter: invalid clause %q", piece)
	}
	return clause{field: field, op: op, value: value}, nil
}

// Matches reports whether every clause matches e.
func (f *Filter) Matches(e *event.Event) bool {
	if f == nil {
		return true
	}
	for _, c := range f.clauses {
		if !c.matches(e) {
			return false
		}
	}
	return true
}

func (c clause) matches(e *event.Event) bool {
	actual, ok := fieldValue(e, c.field)
	if !ok {
		return false
	}
	switch c.op {
	case Contains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(c.value))
	default:
		return strings.EqualFold(actual, c.value)
	}
}

func fieldValue(e *event.Event, field string) (string, bool) {
	switch field {
	case "parser":
		return e.Parser, true
	case "data_type":
		return e.DataType, true
	case "timestamp_desc":
		return e.TimestampDesc, true
	case "display_name":
		return e.DisplayName, true
	case "filename":
		return e.Filename, true
	case "hostname":
		return e.Hostname, true
	case "username":
		return e.Username, true
	case "timestamp":
		return strconv.FormatInt(e.Timestamp, 10), true
	default:
		v, ok := e.Get(field)
		if !ok {
			return "", false
		}
		return formatValue(v), true
	}
}

func formatValue(v event.Value) string {
	switch v.Kind {
	case event.KindString:
		return v.S
	case event.KindInt64:
		return strconv.FormatInt(v.I, 10)
	case event.KindUint64:
		return strconv.FormatUint(v.U, 10)
	case event.KindFloat64:
		return strconv.FormatFloat(v.F, 'f', -1, 64)
	case event.KindBool:
		return strconv.FormatBool(v.B)
	default:
		return ""
	}
}
