package database

import (
	"os"
	"testing"

	"github.com/cdtdelta/4n6time-core/internal/model"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return t.TempDir() + "/test.db"
}

func createTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := Create(tempDBPath(t), nil)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleEvent() *model.Event {
	return &model.Event{
		Timezone:       "UTC",
		MACB:           "MACB",
		Source:         "FILE",
		SourceType:     "OS:NTFS:MFT",
		Type:           "Last Written",
		User:           "admin",
		Host:           "WORKSTATION1",
		Desc:           "test file entry",
		Filename:       "/Users/admin/test.txt",
		Inode:          "12345",
		Format:         "mft",
		Datetime:       "2025-01-15 10:30:00",
		StoreNumber:    -1,
		StoreIndex:     -1,
		VSSStoreNumber: -1,
		RecordNumber:   "1001",
		UserSID:        "S-1-5-21-123456",
		ComputerName:   "WORKSTATION1",
	}
}

func TestCreate(t *testing.T) {
	path := tempDBPath(t)

	db, err := Create(path, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	var count int64
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM log2timeline").Scan(&count); err != nil {
		t.Fatalf("querying fresh schema: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty log2timeline table, got %d rows", count)
	}
}

func TestCreateSQLiteDefaultIndexes(t *testing.T) {
	db, err := CreateSQLite(tempDBPath(t), nil)
	if err != nil {
		t.Fatalf("CreateSQLite failed: %v", err)
	}
	defer db.Close()

	sqliteDB := db.(*SQLiteStore)
	rows, err := sqliteDB.conn.Query("SELECT name FROM sqlite_master WHERE type='index' AND name LIKE '%_idx'")
	if err != nil {
		t.Fatalf("querying indexes failed: %v", err)
	}
	defer rows.Close()

	indexes := make(map[string]bool)
	for rows.Next() {
		var name string
		rows.Scan(&name)
		indexes[name] = true
	}
	for _, f := range DefaultIndexFields {
		if !indexes[f+"_idx"] {
			t.Errorf("expected %s_idx to exist", f)
		}
	}
}

func TestInsertEvent(t *testing.T) {
	db := createTestDB(t)

	if err := db.InsertEvent(sampleEvent()); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	var count int64
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM log2timeline").Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var source, host string
	err := db.conn.QueryRow("SELECT source, host FROM log2timeline").Scan(&source, &host)
	if err != nil {
		t.Fatalf("reading inserted row: %v", err)
	}
	if source != "FILE" {
		t.Errorf("source = %q, want %q", source, "FILE")
	}
	if host != "WORKSTATION1" {
		t.Errorf("host = %q, want %q", host, "WORKSTATION1")
	}
}

func TestInsertEvents(t *testing.T) {
	db := createTestDB(t)

	events := make([]*model.Event, 100)
	for i := range events {
		e := sampleEvent()
		e.Host = "HOST" + string(rune('A'+i%26))
		events[i] = e
	}

	var progressCalls int
	inserted, err := db.InsertEvents(events, func(count int) {
		progressCalls++
	})
	if err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}
	if inserted != 100 {
		t.Errorf("expected 100 inserted, got %d", inserted)
	}

	var count int64
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM log2timeline").Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 100 {
		t.Errorf("expected 100 rows, got %d", count)
	}
}

func TestInsertEventsOnClosedConnectionFails(t *testing.T) {
	db, err := Create(tempDBPath(t), nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	db.Close()

	if _, err := db.InsertEvents([]*model.Event{sampleEvent()}, nil); err == nil {
		t.Fatal("expected InsertEvents to fail on a closed connection")
	}
}

func TestUpdateMetadata(t *testing.T) {
	db := createTestDB(t)

	for _, src := range []string{"FILE", "REG", "FILE"} {
		e := sampleEvent()
		e.Source = src
		if err := db.InsertEvent(e); err != nil {
			t.Fatalf("InsertEvent failed: %v", err)
		}
	}

	if err := db.UpdateMetadata(); err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}

	rows, err := db.conn.Query("SELECT source, frequency FROM l2t_sources ORDER BY source")
	if err != nil {
		t.Fatalf("querying l2t_sources failed: %v", err)
	}
	defer rows.Close()

	results := make(map[string]int64)
	for rows.Next() {
		var name string
		var freq int64
		rows.Scan(&name, &freq)
		results[name] = freq
	}

	if results["FILE"] != 2 {
		t.Errorf("expected FILE frequency 2, got %d", results["FILE"])
	}
	if results["REG"] != 1 {
		t.Errorf("expected REG frequency 1, got %d", results["REG"])
	}
}

func TestUpdateMetadataSplitsCommaSeparatedTags(t *testing.T) {
	db := createTestDB(t)

	for _, tag := range []string{"malware", "suspicious,lateral_movement", "malware"} {
		e := sampleEvent()
		e.Tag = tag
		if err := db.InsertEvent(e); err != nil {
			t.Fatalf("InsertEvent failed: %v", err)
		}
	}

	if err := db.UpdateMetadata(); err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}

	rows, err := db.conn.Query("SELECT tag FROM l2t_tags ORDER BY tag")
	if err != nil {
		t.Fatalf("querying l2t_tags failed: %v", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		rows.Scan(&tag)
		tags = append(tags, tag)
	}

	want := map[string]bool{"malware": true, "suspicious": true, "lateral_movement": true}
	if len(tags) != len(want) {
		t.Fatalf("expected %d distinct tags, got %d: %v", len(want), len(tags), tags)
	}
	for _, tag := range tags {
		if !want[tag] {
			t.Errorf("unexpected tag: %s", tag)
		}
	}
}

func TestClose(t *testing.T) {
	db, err := Create(tempDBPath(t), nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := db.InsertEvent(sampleEvent()); err == nil {
		t.Fatal("expected InsertEvent to fail on a closed connection")
	}
}
