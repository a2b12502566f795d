// Package chromehistory is a worked sub-plugin example for the SQLite
// framework parser (internal/parser/sqliteplugin), grounded on
// original_source/plaso/parsers/sqlite_plugins/chrome_history.py. It
// extracts page-visit events from Chrome's "History" SQLite database.
package chromehistory

import (
	"database/sql"
	"fmt"

	"github.com/cdtdelta/4n6time-core/internal/event"
	"github.com/cdtdelta/4n6time-core/internal/timestamp"
)

const dataTypePageVisited = "chrome:history:page_visited"

// query selects one row per visit joined to its URL; visits.visit_time
// is Chrome's microseconds-since-1601 (WebKit) timestamp.
const query = `
SELECT
  urls.url,
  urls.title,
  urls.visit_count,
  urls.typed_count,
  visits.visit_time,
  visits.from_visit
FROM urls
JOIN visits ON visits.url = urls.id
`

// Plugin extracts Chrome history page-visit events.
type Plugin struct{}

// New returns the chrome_history sub-plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "chrome_8_history" }

func (p *Plugin) RequiredTables() []string {
	return []string{"urls", "visits"}
}

func (p *Plugin) Parse(db *sql.DB) ([]*event.Event, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("chromehistory: query: %w", err)
	}
	defer rows.Close()

	var out []*event.Event
	for rows.Next() {
		var (
			url        string
			title      string
			visitCount int64
			typedCount int64
			visitTime  int64
			fromVisit  sql.NullInt64
		)
		if err := rows.Scan(&url, &title, &visitCount, &typedCount, &visitTime, &fromVisit); err != nil {
			return nil, fmt.Errorf("chromehistory: scan: %w", err)
		}

		ts := timestamp.FromWebKitTime(visitTime)
		e := event.NewEvent(ts, "Last Visited Time", dataTypePageVisited)
		e.Parser = p.Name()
		e.Set("url", event.StringValue(url))
		e.Set("title", event.StringValue(title))
		e.Set("visit_count", event.IntValue(visitCount))
		e.Set("typed_count", event.IntValue(typedCount))
		if fromVisit.Valid {
			e.Set("from_visit", event.IntValue(fromVisit.Int64))
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
