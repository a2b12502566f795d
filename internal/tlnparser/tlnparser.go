package tlnparser

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/cdtdelta/4n6time-core/internal/model"
)

// WriteEvents writes events in L2TTLN format ("Time|Source|Host|User|
// Description|TZ|Notes"), grounded on
// original_source/plaso/output/l2t_tln.py (L2TTLN output: EventBody
// joins the five base TLN fields plus timezone and a Notes field that
// falls back to "File: <display_name> inode: <inode>" when the parser
// supplied no dedicated notes).
func WriteEvents(path string, events []*model.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	if _, err := w.WriteString("Time|Source|Host|User|Description|TZ|Notes\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, e := range events {
		epoch := int64(0)
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", e.Datetime, time.UTC); err == nil {
			epoch = t.Unix()
		}

		notes := e.Notes
		if notes == "" {
			notes = fmt.Sprintf("File: %s inode: %s", e.Filename, e.Inode)
		}

		line := fmt.Sprintf("%d|%s|%s|%s|%s; %s; %s|%s|%s\n",
			epoch, e.Source, e.Host, e.User, e.Datetime, e.Type, e.Desc, e.Timezone, notes)
		if _, err := w.WriteString(line); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	return nil
}
