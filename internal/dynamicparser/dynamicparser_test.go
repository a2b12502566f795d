package dynamicparser

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
		Datetime:   "2024-01-15 10:30:00",
		Type:       "Content Modification Time",
		Source:     "FILE",
		SourceType: "NTFS MFT",
		Desc:       "test file event",
		Format:     "mft",
		Filename:   "/Users/admin/test.txt",
		StoreNumber: 1,
		StoreIndex:  2,
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
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteEvents(path, []*model.Event{sampleEvent()}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := readLines(t, path)
	want := strings.Join(defaultWriteFields, ",")
	if len(lines) < 1 || lines[0] != want {
		t.Fatalf("header = %q, want %q", lines[0], want)
	}
}

func TestWriteEvents_RowFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "row.csv")
	if err := WriteEvents(path, []*model.Event{sampleEvent()}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	fields := strings.Split(lines[1], ",")
	if len(fields) != 9 {
		t.Fatalf("expected 9 fields, got %d: %v", len(fields), fields)
	}
	if fields[0] != "2024-01-15 10:30:00" {
		t.Errorf("datetime = %q", fields[0])
	}
	if fields[2] != "FILE" {
		t.Errorf("source_short = %q, want %q", fields[2], "FILE")
	}
	if fields[4] != "test file event" {
		t.Errorf("message = %q, want %q", fields[4], "test file event")
	}
	if fields[7] != "1" || fields[8] != "2" {
		t.Errorf("store_number/index = %q/%q, want 1/2", fields[7], fields[8])
	}
}

func TestWriteEvents_CommasInFieldsAreReplacedWithSpaces(t *testing.T) {
	e := sampleEvent()
	e.Desc = "comma, separated, message"
	path := filepath.Join(t.TempDir(), "commas.csv")
	if err := WriteEvents(path, []*model.Event{e}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := readLines(t, path)
	fields := strings.Split(lines[1], ",")
	if len(fields) != 9 {
		t.Fatalf("expected commas within message to be replaced, got %d fields: %v", len(fields), fields)
	}
	if fields[4] != "comma  separated  message" {
		t.Errorf("message = %q, want commas replaced with spaces", fields[4])
	}
}

func TestWriteEvents_MultipleRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.csv")
	events := []*model.Event{sampleEvent(), sampleEvent(), sampleEvent()}
	if err := WriteEvents(path, events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	lines := readLines(t, path)
	if len(lines) != 4 {
		t.Errorf("expected header + 3 rows, got %d lines", len(lines))
	}
}
