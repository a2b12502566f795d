package jsonlparser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cdtdelta/4n6time-core/internal/model"
)

// psortLine is one JSON object in psort's json_line output module shape.
type psortLine struct {
	Datetime      string `json:"datetime"`
	Timestamp     int64  `json:"timestamp,omitempty"`
	Zone          string `json:"zone,omitempty"`
	TimestampDesc string `json:"timestamp_desc,omitempty"`
	SourceShort   string `json:"source_short,omitempty"`
	SourceLong    string `json:"source_long,omitempty"`
	Message       string `json:"message,omitempty"`
	Parser        string `json:"parser,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	Filename      string `json:"filename,omitempty"`
	Inode         string `json:"inode,omitempty"`
	Hostname      string `json:"hostname,omitempty"`
	Username      string `json:"username,omitempty"`
	Tag           string `json:"tag,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Extra         string `json:"extra,omitempty"`
	Offset        int64  `json:"offset,omitempty"`
	StoreNumber   int64  `json:"store_number,omitempty"`
	StoreIndex    int64  `json:"store_index,omitempty"`
}

// WriteEvents writes events as one psort-format JSON object per line,
// grounded on the psort json_line output module.
func WriteEvents(path string, events []*model.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	for _, e := range events {
		line := psortLine{
			Datetime: e.Datetime, Zone: e.Timezone, TimestampDesc: e.Type,
			SourceShort: e.Source, SourceLong: e.SourceType, Message: e.Desc,
			Parser: e.Format, DisplayName: e.Filename, Filename: e.Filename,
			Inode: e.Inode, Hostname: e.Host, Username: e.User, Tag: e.Tag,
			Notes: e.Notes, Extra: e.Extra, Offset: e.Offset,
			StoreNumber: e.StoreNumber, StoreIndex: e.StoreIndex,
		}
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", e.Datetime, time.UTC); err == nil {
			line.Timestamp = t.UnixMicro()
		}
		b, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("marshaling event: %w", err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	return nil
}
