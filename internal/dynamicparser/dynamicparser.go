package dynamicparser

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cdtdelta/4n6time-core/internal/model"
)

// defaultWriteFields mirrors Dynamic.Start's default field list exactly
// (original_source/plaso/output/dynamic.py), comma-separated with each
// value's own commas replaced by a space per EventBody's join rule.
var defaultWriteFields = []string{
	"datetime", "timestamp_desc", "source_short", "source_long",
	"message", "parser", "display_name", "store_number", "store_index",
}

// WriteEvents writes events in Plaso's dynamic CSV format using
// defaultWriteFields, grounded on dynamic.py's Start/EventBody.
func WriteEvents(path string, events []*model.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	if _, err := w.WriteString(strings.Join(defaultWriteFields, ",") + "\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, e := range events {
		row := []string{
			e.Datetime, e.Type, e.Source, e.SourceType, e.Desc, e.Format,
			e.Filename, fmt.Sprintf("%d", e.StoreNumber), fmt.Sprintf("%d", e.StoreIndex),
		}
		for i, v := range row {
			row[i] = strings.ReplaceAll(v, ",", " ")
		}
		if _, err := w.WriteString(strings.Join(row, ",") + "\n"); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	return nil
}
