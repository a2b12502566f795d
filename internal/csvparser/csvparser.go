package csvparser

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/cdtdelta/4n6time-core/internal/model"
)

// Export header for writing events back to CSV.
var exportHeader = []string{
	"datetime", "timezone", "MACB", "source", "sourcetype", "type",
	"user", "host", "desc", "filename", "inode", "notes", "format",
	"extra", "reportnotes", "inreport", "tag", "color",
	"offset", "store_number", "store_index", "vss_store_number", "bookmark",
}

// WriteEvents writes events to a CSV file in 4n6time export format.
func WriteEvents(path string, events []*model.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	// Write header
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, e := range events {
		row := []string{
			e.Datetime,
			e.Timezone,
			e.MACB,
			e.Source,
			e.SourceType,
			e.Type,
			e.User,
			e.Host,
			e.Desc,
			e.Filename,
			e.Inode,
			e.Notes,
			e.Format,
			e.Extra,
			e.ReportNotes,
			e.InReport,
			e.Tag,
			e.Color,
			fmt.Sprintf("%d", e.Offset),
			fmt.Sprintf("%d", e.StoreNumber),
			fmt.Sprintf("%d", e.StoreIndex),
			fmt.Sprintf("%d", e.VSSStoreNumber),
			fmt.Sprintf("%d", e.Bookmark),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	return nil
}
