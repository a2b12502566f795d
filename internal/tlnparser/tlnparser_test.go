package tlnparser

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cdtdelta/4n6time-core/internal/model"
)

func sampleEvent() *model.Event {
	return &model.Event{
		Datetime: "2024-01-15 10:30:00",
		Timezone: "UTC",
		Type:     "Content Modification Time",
		Source:   "FILE",
		Desc:     "test file event",
		Host:     "WORKSTATION1",
		User:     "admin",
		Filename: "/Users/admin/test.txt",
		Inode:    "12345",
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestWriteEvents_Header(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tln")
	if err := WriteEvents(path, []*model.Event{sampleEvent()}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := readLines(t, path)
	if len(lines) < 1 || lines[0] != "Time|Source|Host|User|Description|TZ|Notes" {
		t.Fatalf("header = %q, want L2TTLN header", lines[0])
	}
}

func TestWriteEvents_RowFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "row.tln")
	if err := WriteEvents(path, []*model.Event{sampleEvent()}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	fields := strings.Split(lines[1], "|")
	if len(fields) != 7 {
		t.Fatalf("expected 7 pipe-delimited fields, got %d: %v", len(fields), fields)
	}
	if fields[0] != "1705314600" {
		t.Errorf("epoch = %q, want %q", fields[0], "1705314600")
	}
	if fields[1] != "FILE" {
		t.Errorf("source = %q, want %q", fields[1], "FILE")
	}
	if fields[2] != "WORKSTATION1" {
		t.Errorf("host = %q, want %q", fields[2], "WORKSTATION1")
	}
	if fields[3] != "admin" {
		t.Errorf("user = %q, want %q", fields[3], "admin")
	}
	if !strings.Contains(fields[4], "test file event") {
		t.Errorf("description = %q, want it to contain message", fields[4])
	}
	if fields[5] != "UTC" {
		t.Errorf("tz = %q, want %q", fields[5], "UTC")
	}
}

func TestWriteEvents_NotesFallsBackToFileInode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.tln")
	if err := WriteEvents(path, []*model.Event{sampleEvent()}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := readLines(t, path)
	fields := strings.Split(lines[1], "|")
	want := "File: /Users/admin/test.txt inode: 12345"
	if fields[6] != want {
		t.Errorf("notes = %q, want %q", fields[6], want)
	}
}

func TestWriteEvents_NotesPreservedWhenSet(t *testing.T) {
	e := sampleEvent()
	e.Notes = "manually flagged"
	path := filepath.Join(t.TempDir(), "explicitnotes.tln")
	if err := WriteEvents(path, []*model.Event{e}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := readLines(t, path)
	fields := strings.Split(lines[1], "|")
	if fields[6] != "manually flagged" {
		t.Errorf("notes = %q, want %q", fields[6], "manually flagged")
	}
}

func TestWriteEvents_UnparsableDatetimeYieldsZeroEpoch(t *testing.T) {
	e := sampleEvent()
	e.Datetime = "Not a time"
	path := filepath.Join(t.TempDir(), "badtime.tln")
	if err := WriteEvents(path, []*model.Event{e}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := readLines(t, path)
	fields := strings.Split(lines[1], "|")
	if fields[0] != "0" {
		t.Errorf("epoch = %q, want %q", fields[0], "0")
	}
}

func TestWriteEvents_MultipleRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.tln")
	events := []*model.Event{sampleEvent(), sampleEvent(), sampleEvent()}
	if err := WriteEvents(path, events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := readLines(t, path)
	if len(lines) != 4 {
		t.Errorf("expected header + 3 rows, got %d lines", len(lines))
	}
}
